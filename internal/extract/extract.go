// Package extract turns uploaded files into plain text.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

var (
	// ErrNoText is returned when a file yields no extractable text.
	ErrNoText = errors.New("could not extract text")
	// ErrUnsupported is returned for file types without an extractor.
	ErrUnsupported = errors.New("unsupported file type")
)

// FromFile extracts text from a .txt, .md or .pdf file.
func FromFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return FromBytes(filepath.Base(path), data)
}

// FromBytes extracts text from an uploaded file's content, choosing the
// extractor by filename extension.
func FromBytes(filename string, data []byte) (string, error) {
	var (
		text string
		err  error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".md":
		text = string(data)
	case ".pdf":
		text, err = pdfText(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return "", fmt.Errorf("%s: %w", filename, err)
		}
	default:
		return "", fmt.Errorf("%s: %w", filename, ErrUnsupported)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%s: %w", filename, ErrNoText)
	}
	return text, nil
}

// pdfText joins the plain text of every readable page with newlines.
// Unreadable pages are skipped. The parser panics on some malformed
// files, which is reported as an error.
func pdfText(r io.ReaderAt, size int64) (text string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("failed to parse PDF: %v", p)
		}
	}()
	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return "", fmt.Errorf("failed to parse PDF: %w", err)
	}
	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, perr := page.GetPlainText(nil)
		if perr != nil {
			continue
		}
		b.WriteString(pageText)
		b.WriteString("\n")
	}
	return b.String(), nil
}
