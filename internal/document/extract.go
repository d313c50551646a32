// Package document reads text out of uploaded PDFs and writes summary PDFs.
package document

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	fitz "github.com/gen2brain/go-fitz"
	"github.com/ledongthuc/pdf"
)

// ErrNoText means the PDF could not be parsed or none of its pages held
// extractable text (scanned images, empty pages).
var ErrNoText = errors.New("document: no extractable text")

// Extractor pulls plain text out of PDF bytes.
type Extractor interface {
	Extract(data []byte) (string, error)
}

// NewExtractor returns the backend named by kind: "pure" or "mupdf".
func NewExtractor(kind string) (Extractor, error) {
	switch kind {
	case "", "pure":
		return PureExtractor{}, nil
	case "mupdf":
		return MuPDFExtractor{}, nil
	default:
		return nil, fmt.Errorf("document: unknown extractor %q", kind)
	}
}

// ExtractFile reads the PDF at path and extracts it with ex.
func ExtractFile(ex Extractor, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("document: reading %s: %w", path, err)
	}
	return ex.Extract(data)
}

// PureExtractor is the pure-Go backend.
type PureExtractor struct{}

// Extract concatenates the text of every page that has any.
func (PureExtractor) Extract(data []byte) (text string, err error) {
	// The parser panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("%w: parser panic: %v", ErrNoText, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoText, err)
	}

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(pageText)
	}
	return nonEmpty(sb.String())
}

// MuPDFExtractor uses MuPDF through cgo. It copes with more damaged files
// and complex layouts than the pure-Go parser.
type MuPDFExtractor struct{}

// Extract concatenates the text of every page that has any.
func (MuPDFExtractor) Extract(data []byte) (string, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoText, err)
	}
	defer doc.Close()

	var sb strings.Builder
	for n := 0; n < doc.NumPage(); n++ {
		pageText, err := doc.Text(n)
		if err != nil {
			continue
		}
		sb.WriteString(pageText)
	}
	return nonEmpty(sb.String())
}

func nonEmpty(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrNoText
	}
	return text, nil
}
