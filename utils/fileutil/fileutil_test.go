package fileutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b\n1,2\n"), 0644))

	f, size, err := Open(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, int64(8), size)

	_, _, err = Open(filepath.Join(dir, "missing.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, _, err = Open(dir)
	assert.ErrorContains(t, err, "is a directory")
}

func TestOpenTooLarge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "huge.csv")
	f, err := os.Create(path)
	require.NoError(t, err)
	// sparse file, no data is written
	require.NoError(t, f.Truncate(MaxFileSize+1))
	require.NoError(t, f.Close())

	_, _, err = Open(path)
	var tooLarge *TooLargeError
	require.ErrorAs(t, err, &tooLarge)
	assert.Equal(t, int64(MaxFileSize+1), tooLarge.Size)

	_, err = ReadFile(path)
	assert.ErrorAs(t, err, &tooLarge)
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.ipynb")
	require.NoError(t, os.WriteFile(path, []byte(`{"cells":[]}`), 0644))

	data, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"cells":[]}`, string(data))
}
