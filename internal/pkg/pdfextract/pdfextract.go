// Package pdfextract pulls plain text out of uploaded PDF files.
package pdfextract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// DefaultMaxSize bounds how much of an upload is read.
const DefaultMaxSize = 20 << 20

var (
	ErrEmpty    = errors.New("pdf is empty")
	ErrTooLarge = errors.New("pdf exceeds size limit")
	ErrInvalid  = errors.New("invalid pdf")
)

// ExtractText reads at most maxSize bytes of r and extracts plain text from the PDF.
// A maxSize <= 0 uses DefaultMaxSize. Returns an empty string and nil error if
// the PDF has no extractable text.
func ExtractText(r io.Reader, maxSize int64) (string, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	b, err := io.ReadAll(io.LimitReader(r, maxSize+1))
	if err != nil {
		return "", fmt.Errorf("read pdf failed: %w", err)
	}
	if len(b) == 0 {
		return "", ErrEmpty
	}
	if int64(len(b)) > maxSize {
		return "", ErrTooLarge
	}

	pdfReader, err := pdf.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	plainReader, err := pdfReader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	out, err := io.ReadAll(plainReader)
	if err != nil {
		return "", fmt.Errorf("read pdf text failed: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}
