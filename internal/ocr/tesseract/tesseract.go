// Package tesseract runs receipt OCR locally through libtesseract.
package tesseract

import (
	"context"
	"strings"

	"github.com/otiai10/gosseract/v2"
	"github.com/rs/zerolog"

	"reimburse/internal/logger"
	"reimburse/internal/ocr"
)

// DefaultLanguages covers Indonesian receipts with English labels.
var DefaultLanguages = []string{"ind", "eng"}

// Recognizer implements ocr.Recognizer with a local Tesseract install.
type Recognizer struct {
	dataPath  string
	languages []string
	log       zerolog.Logger
}

// New creates a recognizer. An empty dataPath uses the tessdata location
// compiled into libtesseract; nil languages select DefaultLanguages.
func New(dataPath string, languages []string) *Recognizer {
	if len(languages) == 0 {
		languages = DefaultLanguages
	}
	return &Recognizer{
		dataPath:  dataPath,
		languages: languages,
		log:       logger.WithComponent("ocr-tesseract"),
	}
}

// RecognizeText implements ocr.Recognizer. A fresh client is used per call
// since gosseract clients are not safe for concurrent use.
func (r *Recognizer) RecognizeText(ctx context.Context, image []byte) (string, error) {
	const op = "RecognizeText"

	if len(image) == 0 {
		return "", ocr.WrapOCRError(op, ocr.ErrEmptyImage, "")
	}
	if err := ctx.Err(); err != nil {
		return "", ocr.WrapOCRError(op, ocr.ErrContextCanceled, err.Error())
	}

	client := gosseract.NewClient()
	defer client.Close()

	if r.dataPath != "" {
		client.SetTessdataPrefix(r.dataPath)
	}
	if err := client.SetLanguage(r.languages...); err != nil {
		return "", ocr.WrapOCRError(op, ocr.ErrInvalidConfiguration, err.Error())
	}
	if err := client.SetImageFromBytes(image); err != nil {
		return "", ocr.WrapOCRError(op, ocr.ErrOCRFailed, "failed to set image: "+err.Error())
	}

	text, err := client.Text()
	if err != nil {
		return "", ocr.WrapOCRError(op, ocr.ErrOCRFailed, err.Error())
	}

	r.log.Debug().
		Strs("languages", r.languages).
		Int("text_length", len(text)).
		Msg("Tesseract OCR completed")

	return strings.TrimSpace(text), nil
}

// Close implements ocr.Recognizer.
func (r *Recognizer) Close() error {
	return nil
}
