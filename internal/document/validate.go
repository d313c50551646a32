package document

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ErrInvalidPDF wraps structural validation failures.
var ErrInvalidPDF = errors.New("document: invalid PDF")

// Validate checks the PDF structure in relaxed mode and returns its page
// count.
func Validate(data []byte) (int, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	if err := api.Validate(bytes.NewReader(data), conf); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}

	pages, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		return 0, fmt.Errorf("%w: counting pages: %v", ErrInvalidPDF, err)
	}
	return pages, nil
}
