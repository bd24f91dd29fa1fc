package input

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/mouncefik/nbgen/utils/config"
	"github.com/mouncefik/nbgen/utils/fileutil"
)

// DefaultPreviewRows is the number of rows shown in the head preview
const DefaultPreviewRows = 5

// NoMissingValues is reported when every column is fully populated
const NoMissingValues = "No missing values found!"

// Column data types, named the way pandas reports them
const (
	DtypeInt64   = "int64"
	DtypeFloat64 = "float64"
	DtypeBool    = "bool"
	DtypeObject  = "object"
)

// missingMarkers are the cell values treated as missing
var missingMarkers = map[string]bool{
	"":     true,
	"NA":   true,
	"N/A":  true,
	"n/a":  true,
	"NaN":  true,
	"nan":  true,
	"-nan": true,
	"NULL": true,
	"null": true,
	"None": true,
	"<NA>": true,
	"#N/A": true,
}

// Column describes one CSV column
type Column struct {
	Name    string
	Dtype   string
	NonNull int
	Missing int
}

// CSVSummary is the textual digest of a CSV file given to the model
type CSVSummary struct {
	FileName             string
	Rows                 int
	Columns              []Column
	DtypesSummary        string
	HeadPreview          string
	DescriptionStats     string
	MissingValuesSummary string
}

// Shape renders the (rows, columns) pair
func (s *CSVSummary) Shape() string {
	return fmt.Sprintf("(%d, %d)", s.Rows, len(s.Columns))
}

// ColumnNames returns the header names in file order
func (s *CSVSummary) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// table holds the parsed CSV with short rows padded to the header width
type table struct {
	header []string
	rows   [][]string
}

func (t *table) cell(row, col int) string {
	return t.rows[row][col]
}

func (t *table) missing(row, col int) bool {
	return missingMarkers[strings.TrimSpace(t.cell(row, col))]
}

// SummarizeCSV reads the CSV at path and builds its summary. previewRows
// values below one fall back to DefaultPreviewRows.
func SummarizeCSV(path string, previewRows int) (*CSVSummary, error) {
	config.VerboseLog("Processing CSV: %s", path)
	if previewRows < 1 {
		previewRows = DefaultPreviewRows
	}

	f, _, err := fileutil.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error processing %s: %w", path, err)
	}
	defer f.Close()

	tbl, err := readTable(f)
	if err != nil {
		return nil, fmt.Errorf("error processing %s: %w", path, err)
	}

	summary := &CSVSummary{
		FileName: filepath.Base(path),
		Rows:     len(tbl.rows),
	}
	for col, name := range tbl.header {
		c := Column{Name: name, Dtype: inferDtype(tbl, col)}
		for row := range tbl.rows {
			if tbl.missing(row, col) {
				c.Missing++
			} else {
				c.NonNull++
			}
		}
		summary.Columns = append(summary.Columns, c)
	}

	summary.DtypesSummary = formatDtypes(summary)
	summary.HeadPreview = formatHead(tbl, previewRows)
	summary.DescriptionStats = formatDescription(tbl, summary.Columns)
	summary.MissingValuesSummary = formatMissing(summary.Columns)

	config.VerboseLog("Successfully processed CSV: %s. Shape=%s", path, summary.Shape())
	return summary, nil
}

func readTable(r io.Reader) (*table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("no columns to parse from file")
	}
	if err != nil {
		return nil, err
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")
	for i, h := range header {
		if strings.TrimSpace(h) == "" {
			header[i] = fmt.Sprintf("Unnamed: %d", i)
		}
	}

	tbl := &table{header: header}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(record) > len(header) {
			line, _ := reader.FieldPos(0)
			return nil, fmt.Errorf("expected %d fields in line %d, saw %d", len(header), line, len(record))
		}
		for len(record) < len(header) {
			record = append(record, "")
		}
		tbl.rows = append(tbl.rows, record)
	}
	return tbl, nil
}

// inferDtype picks the narrowest type every non-missing value parses as.
// Integer columns with gaps widen to float64, and empty columns are float64.
func inferDtype(tbl *table, col int) string {
	isInt, isFloat, isBool := true, true, true
	hasMissing, seen := false, false

	for row := range tbl.rows {
		if tbl.missing(row, col) {
			hasMissing = true
			continue
		}
		seen = true
		v := strings.TrimSpace(tbl.cell(row, col))
		if isInt {
			if _, err := strconv.ParseInt(v, 10, 64); err != nil {
				isInt = false
			}
		}
		if isFloat {
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				isFloat = false
			}
		}
		if isBool {
			if _, ok := parseBool(v); !ok {
				isBool = false
			}
		}
	}

	switch {
	case !seen:
		return DtypeFloat64
	case isInt && !hasMissing:
		return DtypeInt64
	case isInt || isFloat:
		return DtypeFloat64
	case isBool && !hasMissing:
		return DtypeBool
	default:
		return DtypeObject
	}
}

func parseBool(v string) (bool, bool) {
	switch v {
	case "True", "true", "TRUE":
		return true, true
	case "False", "false", "FALSE":
		return false, true
	}
	return false, false
}

func formatDtypes(s *CSVSummary) string {
	var b strings.Builder
	if s.Rows == 0 {
		b.WriteString("RangeIndex: 0 entries\n")
	} else {
		fmt.Fprintf(&b, "RangeIndex: %d entries, 0 to %d\n", s.Rows, s.Rows-1)
	}
	fmt.Fprintf(&b, "Data columns (total %d columns):\n", len(s.Columns))

	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, " #\tColumn\tNon-Null Count\tDtype")
	fmt.Fprintln(w, "---\t------\t--------------\t-----")
	counts := map[string]int{}
	for i, c := range s.Columns {
		fmt.Fprintf(w, " %d\t%s\t%d non-null\t%s\n", i, c.Name, c.NonNull, c.Dtype)
		counts[c.Dtype]++
	}
	w.Flush()

	dtypes := make([]string, 0, len(counts))
	for d := range counts {
		dtypes = append(dtypes, d)
	}
	sort.Strings(dtypes)
	parts := make([]string, len(dtypes))
	for i, d := range dtypes {
		parts[i] = fmt.Sprintf("%s(%d)", d, counts[d])
	}
	fmt.Fprintf(&b, "dtypes: %s", strings.Join(parts, ", "))
	return b.String()
}

func formatHead(tbl *table, n int) string {
	if n > len(tbl.rows) {
		n = len(tbl.rows)
	}
	if n == 0 {
		return fmt.Sprintf("Empty DataFrame\nColumns: [%s]\nIndex: []", strings.Join(tbl.header, ", "))
	}

	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "\t%s\n", strings.Join(tbl.header, "\t"))
	for row := 0; row < n; row++ {
		values := make([]string, len(tbl.header))
		for col := range tbl.header {
			if tbl.missing(row, col) {
				values[col] = "NaN"
			} else {
				values[col] = strings.TrimSpace(tbl.cell(row, col))
			}
		}
		fmt.Fprintf(w, "%d\t%s\n", row, strings.Join(values, "\t"))
	}
	w.Flush()
	return strings.TrimRight(b.String(), "\n")
}

// columnStats are the describe() rows for one column. Rows that do not
// apply to the column type are NaN or empty.
type columnStats struct {
	count  int
	unique int
	top    string
	freq   int
	mean   float64
	std    float64
	min    float64
	q25    float64
	q50    float64
	q75    float64
	max    float64
}

func describeColumn(tbl *table, col int, dtype string) columnStats {
	nan := math.NaN()
	st := columnStats{unique: -1, freq: -1, mean: nan, std: nan, min: nan, q25: nan, q50: nan, q75: nan, max: nan}

	if dtype == DtypeInt64 || dtype == DtypeFloat64 {
		var values []float64
		for row := range tbl.rows {
			if tbl.missing(row, col) {
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(tbl.cell(row, col)), 64)
			if err == nil {
				values = append(values, v)
			}
		}
		st.count = len(values)
		if len(values) == 0 {
			return st
		}
		sort.Float64s(values)
		var sum float64
		for _, v := range values {
			sum += v
		}
		st.mean = sum / float64(len(values))
		if len(values) > 1 {
			var sq float64
			for _, v := range values {
				sq += (v - st.mean) * (v - st.mean)
			}
			st.std = math.Sqrt(sq / float64(len(values)-1))
		}
		st.min = values[0]
		st.max = values[len(values)-1]
		st.q25 = quantile(values, 0.25)
		st.q50 = quantile(values, 0.50)
		st.q75 = quantile(values, 0.75)
		return st
	}

	freq := map[string]int{}
	var order []string
	for row := range tbl.rows {
		if tbl.missing(row, col) {
			continue
		}
		v := strings.TrimSpace(tbl.cell(row, col))
		if freq[v] == 0 {
			order = append(order, v)
		}
		freq[v]++
		st.count++
	}
	st.unique = len(freq)
	if st.count > 0 {
		for _, v := range order {
			if freq[v] > st.freq {
				st.top, st.freq = v, freq[v]
			}
		}
	}
	return st
}

// quantile interpolates linearly between the closest ranks of sorted values
func quantile(sorted []float64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (sorted[hi]-sorted[lo])*(pos-float64(lo))
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	if math.Abs(v) >= 1e9 {
		return strconv.FormatFloat(v, 'e', 6, 64)
	}
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func formatDescription(tbl *table, columns []Column) string {
	if len(columns) == 0 {
		return "No columns to describe."
	}

	stats := make([]columnStats, len(columns))
	hasText, hasNumeric := false, false
	for i, c := range columns {
		stats[i] = describeColumn(tbl, i, c.Dtype)
		if c.Dtype == DtypeInt64 || c.Dtype == DtypeFloat64 {
			hasNumeric = true
		} else {
			hasText = true
		}
	}

	type statRow struct {
		label string
		value func(columnStats) string
	}
	intOrNaN := func(v int) string {
		if v < 0 {
			return "NaN"
		}
		return strconv.Itoa(v)
	}
	rows := []statRow{{"count", func(s columnStats) string { return formatFloat(float64(s.count)) }}}
	if hasText {
		rows = append(rows,
			statRow{"unique", func(s columnStats) string { return intOrNaN(s.unique) }},
			statRow{"top", func(s columnStats) string {
				if s.top == "" {
					return "NaN"
				}
				return s.top
			}},
			statRow{"freq", func(s columnStats) string { return intOrNaN(s.freq) }},
		)
	}
	if hasNumeric {
		rows = append(rows,
			statRow{"mean", func(s columnStats) string { return formatFloat(s.mean) }},
			statRow{"std", func(s columnStats) string { return formatFloat(s.std) }},
			statRow{"min", func(s columnStats) string { return formatFloat(s.min) }},
			statRow{"25%", func(s columnStats) string { return formatFloat(s.q25) }},
			statRow{"50%", func(s columnStats) string { return formatFloat(s.q50) }},
			statRow{"75%", func(s columnStats) string { return formatFloat(s.q75) }},
			statRow{"max", func(s columnStats) string { return formatFloat(s.max) }},
		)
	}

	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "\t%s\n", strings.Join(tbl.header, "\t"))
	for _, r := range rows {
		values := make([]string, len(stats))
		for i, s := range stats {
			values[i] = r.value(s)
		}
		fmt.Fprintf(w, "%s\t%s\n", r.label, strings.Join(values, "\t"))
	}
	w.Flush()
	return strings.TrimRight(b.String(), "\n")
}

func formatMissing(columns []Column) string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	found := false
	for _, c := range columns {
		if c.Missing > 0 {
			fmt.Fprintf(w, "%s\t%d\n", c.Name, c.Missing)
			found = true
		}
	}
	if !found {
		return NoMissingValues
	}
	w.Flush()
	return strings.TrimRight(b.String(), "\n")
}
