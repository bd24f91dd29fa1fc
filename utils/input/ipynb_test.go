package input

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInspectNotebook(t *testing.T) {
	path := writeFile(t, t.TempDir(), "prior.ipynb", sampleNotebook)

	ctx, err := InspectNotebook(path)
	require.NoError(t, err)

	assert.Equal(t, "prior.ipynb", ctx.FileName)
	assert.Equal(t, 2, ctx.TotalCells)
	assert.Equal(t, 1, ctx.MarkdownCells)
	assert.Equal(t, 1, ctx.CodeCells)
	assert.Equal(t, "[MARKDOWN]\n# Sales\nQuarterly review\n[CODE]\nimport pandas as pd", ctx.Excerpt)
	assert.True(t, strings.HasPrefix(ctx.Message(), "Found 2 cells in prior.ipynb (1 markdown, 1 code)."))
}

func TestInspectNotebookTruncates(t *testing.T) {
	var cells []string
	for i := 0; i < maxContextCells+5; i++ {
		cells = append(cells, fmt.Sprintf(`{"cell_type": "code", "metadata": {}, "outputs": [], "source": %q}`, strings.Repeat("x", maxCellChars+50)))
	}
	data := fmt.Sprintf(`{"cells": [%s], "metadata": {}, "nbformat": 4, "nbformat_minor": 5}`, strings.Join(cells, ","))
	path := writeFile(t, t.TempDir(), "long.ipynb", data)

	ctx, err := InspectNotebook(path)
	require.NoError(t, err)

	assert.Equal(t, maxContextCells+5, ctx.TotalCells)
	assert.Equal(t, maxContextCells, strings.Count(ctx.Excerpt, "[CODE]"))
	assert.NotContains(t, ctx.Excerpt, strings.Repeat("x", maxCellChars+1))
}

func TestInspectNotebookErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := InspectNotebook(filepath.Join(dir, "missing.ipynb"))
	assert.Error(t, err)

	path := writeFile(t, dir, "broken.ipynb", "{not json")
	_, err = InspectNotebook(path)
	assert.ErrorContains(t, err, "could not process IPYNB")
}
