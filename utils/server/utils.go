package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/mouncefik/nbgen/utils/config"
	"github.com/mouncefik/nbgen/utils/pipeline"
)

// Multipart form fields accepted by the generate endpoints
const (
	fieldCSV      = "csv_file"
	fieldPDF      = "pdf_file"
	fieldNotebook = "ipynb_file"
	fieldGoal     = "goal"
	fieldModel    = "model"
)

// maskToken masks a token for secure logging by showing only first and last 4 characters
func maskToken(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "****" + token[len(token)-4:]
}

// truncateString returns a truncated string with ellipsis if it exceeds maxLen runes
func truncateString(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen-3]) + "..."
}

// uploadPath returns where an uploaded file named name is stored inside dir.
// Only the base name of the client supplied name is kept.
func uploadPath(dir, name string) (string, error) {
	base := filepath.Base(filepath.FromSlash(strings.ReplaceAll(name, "\\", "/")))
	if base == "" || base == "." || base == ".." || base == string(filepath.Separator) {
		return "", fmt.Errorf("invalid upload file name %q", name)
	}

	fullPath := filepath.Join(dir, base)
	rel, err := filepath.Rel(dir, fullPath)
	if err != nil || rel != base {
		return "", fmt.Errorf("upload file name %q escapes the upload directory", name)
	}
	return fullPath, nil
}

// saveUpload copies the multipart file in field to dir. A missing optional
// field yields an empty path.
func saveUpload(r *http.Request, field, role, dir string, required bool) (string, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		if required {
			return "", &pipeline.MissingInputError{Role: role, Path: field, Err: err}
		}
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("error reading %s upload: %w", role, err)
	}
	defer file.Close()

	// Each field gets its own directory so uploads with the same name cannot collide
	fieldDir := filepath.Join(dir, field)
	if err := os.MkdirAll(fieldDir, 0700); err != nil {
		return "", fmt.Errorf("error creating upload directory: %w", err)
	}
	path, err := uploadPath(fieldDir, header.Filename)
	if err != nil {
		return "", &pipeline.InputError{Role: role, Path: header.Filename, Err: err}
	}
	if err := writeUpload(path, file); err != nil {
		return "", err
	}
	config.DebugLog("Saved %s upload %s (%d bytes)", role, filepath.Base(path), header.Size)
	return path, nil
}

func writeUpload(path string, src multipart.File) error {
	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return fmt.Errorf("error creating upload file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("error saving upload: %w", err)
	}
	return dst.Close()
}
