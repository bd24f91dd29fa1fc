package prompt

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/mouncefik/nbgen/utils/config"
	"github.com/mouncefik/nbgen/utils/input"
	"github.com/mouncefik/nbgen/utils/notebook"
)

// DefaultGoal is used when the user states no goal
const DefaultGoal = "Perform a comprehensive Exploratory Data Analysis (EDA) and provide insights."

const (
	noCSVSummary      = "No CSV summary provided."
	noNotebookContext = "No existing notebook context provided."
	defaultDataFile   = "data.csv"
	notAvailable      = "N/A"
)

var generationTemplate = template.Must(
	template.Must(template.New("prompt").Funcs(template.FuncMap{
		"code":  func(s string) string { return "`" + s + "`" },
		"fence": func() string { return "```" },
	}).Parse(contextTemplate)).New("guide").Parse(notebookGuide),
)

// Context is everything the generation prompt is assembled from. Nil and
// empty fields render as explicit placeholders.
type Context struct {
	CSV         *input.CSVSummary
	Description string
	Notebook    *input.NotebookContext
	Goal        string
}

type templateData struct {
	MarkdownTag     string
	CodeTag         string
	DataFile        string
	CSV             string
	Description     string
	NotebookContext string
	Goal            string
}

// Build renders the notebook generation prompt
func Build(ctx Context) (string, error) {
	config.VerboseLog("Building generation prompt...")

	data := templateData{
		MarkdownTag:     notebook.MarkdownTag,
		CodeTag:         notebook.CodeTag,
		DataFile:        defaultDataFile,
		CSV:             FormatCSVSummary(ctx.CSV),
		Description:     strings.TrimSpace(ctx.Description),
		NotebookContext: noNotebookContext,
		Goal:            strings.TrimSpace(ctx.Goal),
	}
	if ctx.CSV != nil && ctx.CSV.FileName != "" {
		data.DataFile = ctx.CSV.FileName
	}
	if data.Description == "" {
		data.Description = input.NoDescription
	}
	if ctx.Notebook != nil {
		data.NotebookContext = ctx.Notebook.Message()
	}
	if data.Goal == "" {
		data.Goal = DefaultGoal
	}

	var b strings.Builder
	if err := generationTemplate.ExecuteTemplate(&b, "prompt", data); err != nil {
		return "", fmt.Errorf("failed to build prompt: %w", err)
	}

	config.DebugLog("Prompt built: %d bytes, data file %s", b.Len(), data.DataFile)
	return b.String(), nil
}

// FormatCSVSummary renders a CSV summary as a markdown bullet list
func FormatCSVSummary(s *input.CSVSummary) string {
	if s == nil {
		return noCSVSummary
	}

	orNA := func(v string) string {
		if v == "" {
			return notAvailable
		}
		return v
	}

	parts := []string{
		fmt.Sprintf("- **File Name:** `%s`", orNA(s.FileName)),
		fmt.Sprintf("- **Shape:** %s (rows, columns)", s.Shape()),
		fmt.Sprintf("- **Columns:** %s", strings.Join(s.ColumnNames(), ", ")),
		fmt.Sprintf("- **Data Types Summary:**\n```\n%s\n```", orNA(s.DtypesSummary)),
		fmt.Sprintf("- **Data Preview (First few rows):**\n```\n%s\n```", orNA(s.HeadPreview)),
		fmt.Sprintf("- **Descriptive Statistics:**\n```\n%s\n```", orNA(s.DescriptionStats)),
		fmt.Sprintf("- **Missing Values Summary:**\n```\n%s\n```", orNA(s.MissingValuesSummary)),
	}
	return strings.Join(parts, "\n")
}
