package pdftext

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPDF is returned when the data is not a readable PDF document.
	ErrInvalidPDF = errors.New("invalid or corrupted PDF document")

	// ErrNoText is returned when neither the text layer nor OCR produced any text.
	ErrNoText = errors.New("document contains no readable text")

	// ErrRasterize is returned when a page cannot be rendered to an image.
	ErrRasterize = errors.New("failed to render PDF page")
)

// PDFError wraps errors with the operation and details of a PDF failure.
type PDFError struct {
	Op      string
	Err     error
	Details string
}

func (e *PDFError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("pdftext: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("pdftext: %s failed: %v", e.Op, e.Err)
}

func (e *PDFError) Unwrap() error {
	return e.Err
}

func (e *PDFError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// WrapPDFError wraps err as a PDFError unless it already is one.
func WrapPDFError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var pdfErr *PDFError
	if errors.As(err, &pdfErr) {
		return err
	}

	return &PDFError{Op: op, Err: err, Details: details}
}
