package input

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const salesCSV = `region,units,price,returned
north,10,2.5,false
south,4,3.0,true
east,,1.25,false
`

const sampleNotebook = `{
 "cells": [
  {"cell_type": "markdown", "id": "a1", "metadata": {}, "source": ["# Sales\n", "Quarterly review"]},
  {"cell_type": "code", "execution_count": null, "id": "b2", "metadata": {}, "outputs": [], "source": ["import pandas as pd"]}
 ],
 "metadata": {},
 "nbformat": 4,
 "nbformat_minor": 5
}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create test file %s: %v", name, err)
	}
	return path
}

func TestProcess(t *testing.T) {
	tempDir := t.TempDir()

	csvPath := writeFile(t, tempDir, "sales.csv", salesCSV)
	nbPath := writeFile(t, tempDir, "prior.ipynb", sampleNotebook)
	writeFile(t, tempDir, "notes.txt", "plain text")
	if err := os.Mkdir(filepath.Join(tempDir, "data.csv"), 0755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}

	testCases := []struct {
		description string
		inputType   InputType
		path        string
		expectError bool
	}{
		{"CSV file", CSVInput, csvPath, false},
		{"notebook file", NotebookInput, nbPath, false},
		{"unsupported extension", CSVInput, filepath.Join(tempDir, "notes.txt"), true},
		{"missing file", CSVInput, filepath.Join(tempDir, "absent.csv"), true},
		{"directory with csv extension", CSVInput, filepath.Join(tempDir, "data.csv"), true},
		{"empty path", CSVInput, "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			handler := NewHandler()
			err := handler.Process(tc.inputType, tc.path)

			if tc.expectError {
				if err == nil {
					t.Errorf("Expected error for path %s, but got none", tc.path)
				}
				if handler.Get(tc.inputType) != nil {
					t.Error("Expected no input after error")
				}
				return
			}

			if err != nil {
				t.Fatalf("Failed to process path %s: %v", tc.path, err)
			}
			in := handler.Get(tc.inputType)
			if in == nil {
				t.Fatalf("Expected a %s input", tc.inputType)
			}
			if in.Path != tc.path {
				t.Errorf("Expected path %s, got %s", tc.path, in.Path)
			}
		})
	}
}

func TestHandlerGet(t *testing.T) {
	tempDir := t.TempDir()
	csvPath := writeFile(t, tempDir, "sales.csv", salesCSV)
	nbPath := writeFile(t, tempDir, "prior.ipynb", sampleNotebook)

	handler := NewHandler()
	if err := handler.Process(CSVInput, csvPath); err != nil {
		t.Fatalf("Failed to process CSV: %v", err)
	}
	if err := handler.Process(NotebookInput, nbPath); err != nil {
		t.Fatalf("Failed to process notebook: %v", err)
	}

	csvInput := handler.Get(CSVInput)
	if csvInput == nil || csvInput.CSV == nil {
		t.Fatal("Expected a CSV summary")
	}
	if csvInput.CSV.FileName != "sales.csv" {
		t.Errorf("Expected file name sales.csv, got %s", csvInput.CSV.FileName)
	}

	nbInput := handler.Get(NotebookInput)
	if nbInput == nil || nbInput.Notebook == nil {
		t.Fatal("Expected notebook context")
	}
	if handler.Get(PDFInput) != nil {
		t.Error("Expected no PDF input")
	}
}

func TestHandlerPreviewRows(t *testing.T) {
	csvPath := writeFile(t, t.TempDir(), "sales.csv", salesCSV)

	testCases := []struct {
		rows     int
		expected int
	}{
		{1, 2},
		{2, 3},
		{0, 4},
	}

	for _, tc := range testCases {
		handler := NewHandler()
		handler.SetPreviewRows(tc.rows)
		if err := handler.Process(CSVInput, csvPath); err != nil {
			t.Fatalf("Failed to process CSV: %v", err)
		}
		lines := strings.Split(handler.Get(CSVInput).CSV.HeadPreview, "\n")
		if len(lines) != tc.expected {
			t.Errorf("SetPreviewRows(%d): expected %d preview lines, got %d", tc.rows, tc.expected, len(lines))
		}
	}
}

func TestHandlerKeepsLatestInput(t *testing.T) {
	tempDir := t.TempDir()
	first := writeFile(t, tempDir, "first.csv", salesCSV)
	second := writeFile(t, tempDir, "second.csv", "a,b\n1,2\n")

	handler := NewHandler()
	for _, path := range []string{first, second} {
		if err := handler.Process(CSVInput, path); err != nil {
			t.Fatalf("Failed to process %s: %v", path, err)
		}
	}
	if got := handler.Get(CSVInput).CSV.FileName; got != "second.csv" {
		t.Errorf("Expected the latest CSV, got %s", got)
	}
}

func TestProcessRejectsMismatchedType(t *testing.T) {
	tempDir := t.TempDir()
	csvPath := writeFile(t, tempDir, "sales.csv", salesCSV)

	handler := NewHandler()
	err := handler.Process(PDFInput, csvPath)
	if err == nil {
		t.Fatal("Expected error processing a CSV as PDF")
	}
	if !strings.Contains(err.Error(), "not allowed for PDF input") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestValidator(t *testing.T) {
	v := NewValidator([]string{".tsv"})

	testCases := []struct {
		path      string
		inputType InputType
		valid     bool
	}{
		{"data.csv", CSVInput, true},
		{"DATA.CSV", CSVInput, true},
		{"data.tsv", CSVInput, true},
		{"desc.pdf", PDFInput, true},
		{"desc.PDF", PDFInput, true},
		{"nb.ipynb", NotebookInput, true},
		{"data.csv", PDFInput, false},
		{"desc.pdf", NotebookInput, false},
		{"noext", CSVInput, false},
	}

	for _, tc := range testCases {
		err := v.ValidateFileExtension(tc.inputType, tc.path)
		if tc.valid && err != nil {
			t.Errorf("ValidateFileExtension(%s, %q) unexpected error: %v", tc.inputType, tc.path, err)
		}
		if !tc.valid && err == nil {
			t.Errorf("ValidateFileExtension(%s, %q) expected error", tc.inputType, tc.path)
		}
	}
}
