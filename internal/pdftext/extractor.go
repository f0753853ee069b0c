// Package pdftext turns PDF bytes into per-page text.
//
// The embedded text layer is read first. When every page comes back blank
// (a scanned or photographed form) and a fallback recognizer is configured,
// the pages are rendered to PNG and passed through OCR instead.
package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/gen2brain/go-fitz"
	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/rs/zerolog"

	"reimburse/internal/logger"
	"reimburse/internal/ocr"
)

const (
	// DefaultDPI is the render resolution used for the OCR fallback.
	DefaultDPI = 200

	// DefaultMaxOCRPages caps how many pages are sent to OCR per document.
	DefaultMaxOCRPages = 5
)

// ExtractorConfig tunes the OCR fallback.
type ExtractorConfig struct {
	DPI         float64
	MaxOCRPages int
}

// Extractor reads page text from PDF documents.
type Extractor struct {
	fallback ocr.Recognizer
	config   ExtractorConfig
	log      zerolog.Logger
}

// NewExtractor creates an Extractor. fallback may be nil, which disables OCR
// of image-only documents.
func NewExtractor(config ExtractorConfig, fallback ocr.Recognizer) *Extractor {
	if config.DPI <= 0 {
		config.DPI = DefaultDPI
	}
	if config.MaxOCRPages <= 0 {
		config.MaxOCRPages = DefaultMaxOCRPages
	}
	return &Extractor{
		fallback: fallback,
		config:   config,
		log:      logger.WithComponent("pdftext"),
	}
}

// ExtractPages returns one string per page, in page order. Pages without
// text are returned as empty strings. ErrNoText is returned when the OCR
// fallback ran and found no text either.
func (e *Extractor) ExtractPages(ctx context.Context, data []byte) ([]string, error) {
	const op = "ExtractPages"

	if !bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\r\n "), []byte("%PDF")) {
		return nil, WrapPDFError(op, ErrInvalidPDF, "missing PDF header")
	}

	if n, err := Validate(data); err != nil {
		e.log.Warn().Err(err).Msg("PDF failed structural validation, trying text extraction anyway")
	} else {
		e.log.Debug().Int("pages", n).Msg("PDF validated")
	}

	pages, err := TextPages(data)
	if err != nil {
		return nil, WrapPDFError(op, ErrInvalidPDF, err.Error())
	}

	if !allBlank(pages) || e.fallback == nil {
		return pages, nil
	}

	e.log.Info().
		Int("pages", len(pages)).
		Msg("PDF has no text layer, falling back to OCR")

	ocrPages, err := e.ocrPages(ctx, data)
	if err != nil {
		return nil, WrapPDFError(op, err, "OCR fallback failed")
	}
	if allBlank(ocrPages) {
		return nil, WrapPDFError(op, ErrNoText, fmt.Sprintf("OCR found no text on %d pages", len(ocrPages)))
	}
	return ocrPages, nil
}

func (e *Extractor) ocrPages(ctx context.Context, data []byte) ([]string, error) {
	images, err := Rasterize(data, e.config.DPI, e.config.MaxOCRPages)
	if err != nil {
		return nil, err
	}

	pages := make([]string, 0, len(images))
	for i, img := range images {
		text, err := e.fallback.RecognizeText(ctx, img)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		pages = append(pages, text)
	}
	return pages, nil
}

// Validate checks the document structure and returns its page count.
func Validate(data []byte) (int, error) {
	const op = "Validate"

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	if err := api.Validate(bytes.NewReader(data), conf); err != nil {
		return 0, WrapPDFError(op, ErrInvalidPDF, err.Error())
	}
	n, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		return 0, WrapPDFError(op, ErrInvalidPDF, err.Error())
	}
	return n, nil
}

// TextPages reads the embedded text layer, one string per page with rows
// separated by newlines.
func TextPages(data []byte) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	total := r.NumPage()
	pages = make([]string, 0, total)
	for i := 1; i <= total; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}

		rows, err := p.GetTextByRow()
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}

		var sb strings.Builder
		for _, row := range rows {
			var line strings.Builder
			for _, word := range row.Content {
				appendWord(&line, word.S)
			}
			if strings.TrimSpace(line.String()) == "" {
				continue
			}
			sb.WriteString(line.String())
			sb.WriteString("\n")
		}
		pages = append(pages, sb.String())
	}
	return pages, nil
}

// appendWord joins text runs of one row, separating runs that would
// otherwise touch.
func appendWord(line *strings.Builder, s string) {
	if s == "" {
		return
	}
	cur := line.String()
	if cur != "" {
		last, _ := lastRune(cur)
		first := []rune(s)[0]
		if !unicode.IsSpace(last) && !unicode.IsSpace(first) {
			line.WriteByte(' ')
		}
	}
	line.WriteString(s)
}

func lastRune(s string) (rune, bool) {
	r := []rune(s)
	if len(r) == 0 {
		return 0, false
	}
	return r[len(r)-1], true
}

// Rasterize renders up to maxPages pages as PNG images at dpi.
func Rasterize(data []byte, dpi float64, maxPages int) ([][]byte, error) {
	const op = "Rasterize"

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, WrapPDFError(op, ErrInvalidPDF, err.Error())
	}
	defer doc.Close()

	n := doc.NumPage()
	if maxPages > 0 && n > maxPages {
		n = maxPages
	}

	images := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		img, err := doc.ImagePNG(i, dpi)
		if err != nil {
			return nil, WrapPDFError(op, ErrRasterize, fmt.Sprintf("page %d: %v", i+1, err))
		}
		images = append(images, img)
	}
	return images, nil
}

func allBlank(pages []string) bool {
	for _, p := range pages {
		if strings.TrimSpace(p) != "" {
			return false
		}
	}
	return true
}
