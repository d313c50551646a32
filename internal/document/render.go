package document

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"
)

// Render writes a single-font A4 PDF containing text, wrapped to the page
// width. Pages are added as the text flows.
func Render(w io.Writer, text string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "", 12)

	// Core fonts are cp1252; translate so accented Latin text survives.
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.MultiCell(0, 10, tr(text), "", "", false)

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("document: rendering PDF: %w", err)
	}
	return nil
}
