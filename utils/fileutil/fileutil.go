// Package fileutil guards reads of user supplied input files.
package fileutil

import (
	"fmt"
	"io"
	"os"
)

// MaxFileSize is the largest input file that will be read (100MB)
const MaxFileSize = 100 * 1024 * 1024

// TooLargeError reports an input file over MaxFileSize
type TooLargeError struct {
	Path  string
	Size  int64
	Limit int64
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("file %s is %d bytes, exceeding the maximum of %d bytes", e.Path, e.Size, e.Limit)
}

func check(path string, info os.FileInfo) error {
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > MaxFileSize {
		return &TooLargeError{Path: path, Size: info.Size(), Limit: MaxFileSize}
	}
	return nil
}

// Open opens path for reading and returns its size, which PDF parsing
// needs up front. Directories and files over MaxFileSize are refused.
func Open(path string) (*os.File, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("error opening file: %w", err)
	}
	info, err := f.Stat()
	if err == nil {
		err = check(path, info)
	}
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return f, info.Size(), nil
}

// ReadFile reads the whole file at path with the same checks as Open
func ReadFile(path string) ([]byte, error) {
	f, _, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}
	return data, nil
}
