package input

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Accepted extensions per input type
var (
	CSVExtensions      = []string{".csv"}
	PDFExtensions      = []string{".pdf"}
	NotebookExtensions = []string{".ipynb"}
)

// Validator validates input paths
type Validator struct {
	allowedExtensions map[InputType][]string
}

// NewValidator creates a validator for the csv, pdf and ipynb inputs.
// additionalExtensions are accepted as CSV data (e.g. ".tsv" exports saved
// with a comma separator).
func NewValidator(additionalExtensions []string) *Validator {
	csv := append([]string{}, CSVExtensions...)
	csv = append(csv, additionalExtensions...)

	return &Validator{
		allowedExtensions: map[InputType][]string{
			CSVInput:      csv,
			PDFInput:      PDFExtensions,
			NotebookInput: NotebookExtensions,
		},
	}
}

// ValidateFileExtension checks that path carries an extension allowed for t
func (v *Validator) ValidateFileExtension(t InputType, path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return fmt.Errorf("file must have an extension")
	}

	for _, allowedExt := range v.allowedExtensions[t] {
		if ext == allowedExt {
			return nil
		}
	}

	return fmt.Errorf("file extension %s is not allowed for %s input", ext, t)
}
