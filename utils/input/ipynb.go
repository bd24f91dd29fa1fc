package input

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mouncefik/nbgen/utils/config"
	"github.com/mouncefik/nbgen/utils/fileutil"
	"github.com/mouncefik/nbgen/utils/notebook"
)

const (
	// maxContextCells caps how many cells are quoted back to the model
	maxContextCells = 10
	// maxCellChars caps the characters quoted from any one cell
	maxCellChars = 500
)

// NotebookContext summarizes an existing notebook the user wants extended
type NotebookContext struct {
	FileName      string
	TotalCells    int
	MarkdownCells int
	CodeCells     int
	// Excerpt is the leading cells in tagged form, truncated
	Excerpt string
}

// Message renders the context as prompt text
func (c *NotebookContext) Message() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d cells in %s (%d markdown, %d code).",
		c.TotalCells, c.FileName, c.MarkdownCells, c.CodeCells)
	if c.Excerpt != "" {
		fmt.Fprintf(&b, " Leading cells:\n%s", c.Excerpt)
	}
	return b.String()
}

// InspectNotebook reads an .ipynb file and extracts context from it
func InspectNotebook(path string) (*NotebookContext, error) {
	config.VerboseLog("Processing IPYNB: %s", path)

	data, err := fileutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not process IPYNB: %w", err)
	}

	doc, err := notebook.Read(data)
	if err != nil {
		return nil, fmt.Errorf("could not process IPYNB %s: %w", path, err)
	}

	ctx := &NotebookContext{
		FileName:   filepath.Base(path),
		TotalCells: len(doc.Cells),
	}
	for _, c := range doc.Cells {
		switch c.Type {
		case notebook.MarkdownCell:
			ctx.MarkdownCells++
		case notebook.CodeCell:
			ctx.CodeCells++
		}
	}

	excerpt := &notebook.Document{}
	for _, c := range doc.Cells {
		if len(excerpt.Cells) == maxContextCells {
			break
		}
		if len(c.Source) > maxCellChars {
			c.Source = c.Source[:maxCellChars] + "\n..."
		}
		excerpt.Cells = append(excerpt.Cells, c)
	}
	ctx.Excerpt = excerpt.Tagged()

	config.DebugLog("Notebook %s: %d cells, excerpt of %d bytes", path, ctx.TotalCells, len(ctx.Excerpt))
	return ctx, nil
}
