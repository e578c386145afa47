// Package extract converts document files into plain text for ingestion.
// Supported formats: PDF, plain text, and RTF, dispatched by file extension.
package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrNotFound indicates the document file does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrUnsupported indicates the file extension is not a supported format.
	ErrUnsupported = errors.New("unsupported document format")

	// ErrExtraction indicates the file exists but its content could not be parsed.
	ErrExtraction = errors.New("text extraction failed")
)

// SupportedExtensions lists the file extensions the extractor accepts,
// lowercase with leading dot.
var SupportedExtensions = []string{".pdf", ".txt", ".rtf"}

// Supported reports whether the file at path has a supported extension.
func Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, s := range SupportedExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

// File reads the document at path and returns its plain text content.
// The format is chosen by extension, case-insensitively.
func File(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return Bytes(filepath.Base(path), data)
}

// Bytes extracts plain text from raw document content. name is used only to
// pick the parser by extension and to label errors.
func Bytes(name string, data []byte) (string, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		text, err := pdfText(data)
		if err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrExtraction, name, err)
		}
		return text, nil
	case ".txt":
		// Lossy decode: invalid UTF-8 bytes are dropped rather than failing
		// the whole document.
		return strings.ToValidUTF8(string(data), ""), nil
	case ".rtf":
		return rtfText(string(data)), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupported, name)
	}
}
