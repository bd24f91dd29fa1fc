package input

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/mouncefik/nbgen/utils/config"
	"github.com/mouncefik/nbgen/utils/fileutil"
)

// NoDescription is used when a PDF yields no extractable text
const NoDescription = "No data description provided."

// ExtractPDFText returns the plain text of every page of the PDF at path.
// Scanned documents with no text layer return an empty string.
func ExtractPDFText(path string) (text string, err error) {
	config.VerboseLog("Processing PDF: %s", path)

	f, size, err := fileutil.Open(path)
	if err != nil {
		return "", fmt.Errorf("error processing %s: %w", path, err)
	}
	defer f.Close()

	// the reader panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("error processing %s: malformed PDF: %v", path, r)
		}
	}()

	reader, err := pdf.NewReader(f, size)
	if err != nil {
		return "", fmt.Errorf("error processing %s: %w", path, err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("error extracting text from %s: %w", path, err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("error extracting text from %s: %w", path, err)
	}

	text = strings.TrimSpace(buf.String())
	config.VerboseLog("Extracted %d characters from %d PDF pages", len(text), reader.NumPage())
	if text == "" {
		config.Logger().Warnf("PDF %s has no extractable text", path)
	}
	return text, nil
}
