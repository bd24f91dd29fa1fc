package notebook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mouncefik/nbgen/utils/config"
)

const (
	// FormatVersion and FormatMinor identify the nbformat schema written
	FormatVersion = 4
	FormatMinor   = 5
)

// CellType is the nbformat cell type
type CellType string

const (
	MarkdownCell CellType = "markdown"
	CodeCell     CellType = "code"
	RawCell      CellType = "raw"
)

// SerializationError wraps a failure to encode a document
type SerializationError struct {
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("error writing notebook object: %v", e.Err)
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}

// KernelSpec declares the kernel that runs the notebook
type KernelSpec struct {
	DisplayName string `json:"display_name"`
	Language    string `json:"language"`
	Name        string `json:"name"`
}

// LanguageInfo declares the notebook language
type LanguageInfo struct {
	Name string `json:"name"`
}

// Metadata is the document-level notebook metadata
type Metadata struct {
	KernelSpec   *KernelSpec            `json:"kernelspec,omitempty"`
	LanguageInfo *LanguageInfo          `json:"language_info,omitempty"`
	Extra        map[string]interface{} `json:"-"`
}

// MarshalJSON merges Extra with the declared fields so keys stay sorted
func (m Metadata) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(m.Extra)+2)
	for k, v := range m.Extra {
		out[k] = v
	}
	if m.KernelSpec != nil {
		out["kernelspec"] = m.KernelSpec
	}
	if m.LanguageInfo != nil {
		out["language_info"] = m.LanguageInfo
	}
	return marshalNoEscape(out)
}

// UnmarshalJSON keeps unknown metadata in Extra
func (m *Metadata) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = Metadata{}
	for k, v := range raw {
		switch k {
		case "kernelspec":
			m.KernelSpec = &KernelSpec{}
			if err := json.Unmarshal(v, m.KernelSpec); err != nil {
				return err
			}
		case "language_info":
			m.LanguageInfo = &LanguageInfo{}
			if err := json.Unmarshal(v, m.LanguageInfo); err != nil {
				return err
			}
		default:
			if m.Extra == nil {
				m.Extra = make(map[string]interface{})
			}
			var val interface{}
			if err := json.Unmarshal(v, &val); err != nil {
				return err
			}
			m.Extra[k] = val
		}
	}
	return nil
}

// Cell is a single notebook cell
type Cell struct {
	ID             string
	Type           CellType
	Source         string
	Metadata       map[string]interface{}
	ExecutionCount *int
	Outputs        []json.RawMessage
}

// codeCellJSON and textCellJSON list fields in sorted key order, matching
// the nbformat writer
type codeCellJSON struct {
	CellType       CellType               `json:"cell_type"`
	ExecutionCount *int                   `json:"execution_count"`
	ID             string                 `json:"id"`
	Metadata       map[string]interface{} `json:"metadata"`
	Outputs        []json.RawMessage      `json:"outputs"`
	Source         []string               `json:"source"`
}

type textCellJSON struct {
	CellType CellType               `json:"cell_type"`
	ID       string                 `json:"id"`
	Metadata map[string]interface{} `json:"metadata"`
	Source   []string               `json:"source"`
}

type readCellJSON struct {
	CellType       CellType               `json:"cell_type"`
	ExecutionCount *int                   `json:"execution_count"`
	ID             string                 `json:"id"`
	Metadata       map[string]interface{} `json:"metadata"`
	Outputs        []json.RawMessage      `json:"outputs"`
	Source         json.RawMessage        `json:"source"`
}

// MarshalJSON writes the cell in nbformat v4 shape
func (c Cell) MarshalJSON() ([]byte, error) {
	metadata := c.Metadata
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	if c.Type == CodeCell {
		outputs := c.Outputs
		if outputs == nil {
			outputs = []json.RawMessage{}
		}
		return marshalNoEscape(codeCellJSON{
			CellType:       c.Type,
			ExecutionCount: c.ExecutionCount,
			ID:             c.ID,
			Metadata:       metadata,
			Outputs:        outputs,
			Source:         splitLines(c.Source),
		})
	}
	return marshalNoEscape(textCellJSON{
		CellType: c.Type,
		ID:       c.ID,
		Metadata: metadata,
		Source:   splitLines(c.Source),
	})
}

// UnmarshalJSON accepts source as a string or a list of lines
func (c *Cell) UnmarshalJSON(data []byte) error {
	var raw readCellJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	source, err := decodeSource(raw.Source)
	if err != nil {
		return fmt.Errorf("invalid source in cell %q: %w", raw.ID, err)
	}
	*c = Cell{
		ID:             raw.ID,
		Type:           raw.CellType,
		Source:         source,
		Metadata:       raw.Metadata,
		ExecutionCount: raw.ExecutionCount,
		Outputs:        raw.Outputs,
	}
	return nil
}

// marshalNoEscape is json.Marshal without HTML escaping
func marshalNoEscape(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func decodeSource(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var lines []string
	if err := json.Unmarshal(raw, &lines); err != nil {
		return "", err
	}
	return strings.Join(lines, ""), nil
}

// splitLines splits s into lines that keep their trailing newline
func splitLines(s string) []string {
	lines := []string{}
	for s != "" {
		i := strings.IndexByte(s, '\n')
		if i < 0 {
			lines = append(lines, s)
			break
		}
		lines = append(lines, s[:i+1])
		s = s[i+1:]
	}
	return lines
}

// Document is an nbformat v4 notebook
type Document struct {
	Cells         []Cell   `json:"cells"`
	Metadata      Metadata `json:"metadata"`
	NBFormat      int      `json:"nbformat"`
	NBFormatMinor int      `json:"nbformat_minor"`
}

// newCellID returns an nbformat 4.5 cell id
var newCellID = func() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// New returns an empty Python notebook
func New() *Document {
	return &Document{
		Cells: []Cell{},
		Metadata: Metadata{
			KernelSpec: &KernelSpec{
				DisplayName: "Python 3",
				Language:    "python",
				Name:        "python3",
			},
			LanguageInfo: &LanguageInfo{Name: "python"},
		},
		NBFormat:      FormatVersion,
		NBFormatMinor: FormatMinor,
	}
}

// AddMarkdown appends a markdown cell
func (d *Document) AddMarkdown(source string) {
	d.Cells = append(d.Cells, Cell{ID: newCellID(), Type: MarkdownCell, Source: source})
}

// AddCode appends a code cell, trimming stray blank lines around the source
func (d *Document) AddCode(source string) {
	d.Cells = append(d.Cells, Cell{ID: newCellID(), Type: CodeCell, Source: strings.TrimSpace(source)})
}

// Build renders blocks, in order, into a fresh document
func Build(blocks []Block) *Document {
	doc := New()
	for _, b := range blocks {
		config.DebugLog("Adding %s cell. Content length: %d", b.Kind, len(b.Content))
		switch b.Kind {
		case Executable:
			doc.AddCode(b.Content)
		default:
			doc.AddMarkdown(b.Content)
		}
	}
	return doc
}

// Blocks converts markdown and code cells back into blocks. Raw cells
// and cells with blank source are skipped.
func (d *Document) Blocks() []Block {
	var blocks []Block
	for _, c := range d.Cells {
		content := strings.TrimSpace(c.Source)
		if content == "" {
			continue
		}
		switch c.Type {
		case MarkdownCell:
			blocks = append(blocks, Block{Kind: Narrative, Content: content})
		case CodeCell:
			blocks = append(blocks, Block{Kind: Executable, Content: content})
		}
	}
	return blocks
}

// Tagged renders the document's cells as marker-delimited text, the same
// format Parse reads
func (d *Document) Tagged() string {
	var b strings.Builder
	for i, block := range d.Blocks() {
		if i > 0 {
			b.WriteString("\n")
		}
		if block.Kind == Executable {
			b.WriteString(CodeTag)
		} else {
			b.WriteString(MarkdownTag)
		}
		b.WriteString("\n")
		b.WriteString(block.Content)
	}
	return b.String()
}

// Marshal serializes the document the way the nbformat writer does:
// one-space indentation, sorted keys, trailing newline
func (d *Document) Marshal() (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", " ")
	if err := enc.Encode(d); err != nil {
		config.Logger().Errorf("Failed to serialize the notebook object: %v", err)
		return "", &SerializationError{Err: err}
	}
	return buf.String(), nil
}

// Read decodes an .ipynb document
func Read(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("error parsing notebook: %w", err)
	}
	if doc.NBFormat == 0 {
		return nil, fmt.Errorf("error parsing notebook: missing nbformat version")
	}
	return &doc, nil
}

// Reconstruction is a serialized notebook built from tagged model output
type Reconstruction struct {
	Notebook string
	Cells    int
	// Preamble is the text discarded before the first marker
	Preamble string
}

// Reconstruct parses tagged model output and serializes the resulting notebook
func Reconstruct(raw string) (*Reconstruction, error) {
	config.VerboseLog("Starting notebook construction from AI response...")

	parsed, err := Parse(raw)
	if err != nil {
		return nil, err
	}

	doc := Build(parsed.Blocks)
	out, err := doc.Marshal()
	if err != nil {
		return nil, err
	}

	config.VerboseLog("Notebook construction successful. Created %d cells.", len(doc.Cells))
	return &Reconstruction{Notebook: out, Cells: len(doc.Cells), Preamble: parsed.Preamble}, nil
}

// ParseAndBuild turns tagged model output into a serialized notebook
func ParseAndBuild(raw string) (string, error) {
	r, err := Reconstruct(raw)
	if err != nil {
		return "", err
	}
	return r.Notebook, nil
}
