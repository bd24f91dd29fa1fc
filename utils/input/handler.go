package input

import (
	"fmt"
	"os"
)

// InputType represents the type of input being processed
type InputType int

const (
	CSVInput InputType = iota
	PDFInput
	NotebookInput
)

func (t InputType) String() string {
	switch t {
	case CSVInput:
		return "CSV"
	case PDFInput:
		return "PDF"
	case NotebookInput:
		return "IPYNB"
	}
	return fmt.Sprintf("InputType(%d)", int(t))
}

// Input represents a processed file. Exactly one of CSV, Text or Notebook
// is set, according to Type.
type Input struct {
	Path     string
	Type     InputType
	CSV      *CSVSummary
	Text     string
	Notebook *NotebookContext
}

// Handler processes input files
type Handler struct {
	inputs      []*Input
	validator   *Validator
	previewRows int
}

// NewHandler creates a new input handler
func NewHandler() *Handler {
	return &Handler{
		inputs:      make([]*Input, 0),
		validator:   NewValidator(nil),
		previewRows: DefaultPreviewRows,
	}
}

// SetPreviewRows changes the CSV head preview length. Values below one keep
// DefaultPreviewRows.
func (h *Handler) SetPreviewRows(n int) {
	h.previewRows = n
}

// Process processes path as an input of type t
func (h *Handler) Process(t InputType, path string) error {
	if err := h.validator.ValidateFileExtension(t, path); err != nil {
		return err
	}

	fileInfo, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("error accessing path %s: %w", path, err)
	}
	if fileInfo.IsDir() {
		return fmt.Errorf("%s input %s is a directory", t, path)
	}

	in := &Input{Path: path, Type: t}
	switch t {
	case CSVInput:
		in.CSV, err = SummarizeCSV(path, h.previewRows)
	case PDFInput:
		in.Text, err = ExtractPDFText(path)
	case NotebookInput:
		in.Notebook, err = InspectNotebook(path)
	}
	if err != nil {
		return err
	}

	h.inputs = append(h.inputs, in)
	return nil
}

// Get returns the most recently processed input of type t, or nil
func (h *Handler) Get(t InputType) *Input {
	for i := len(h.inputs) - 1; i >= 0; i-- {
		if h.inputs[i].Type == t {
			return h.inputs[i]
		}
	}
	return nil
}
