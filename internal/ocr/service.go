// Package ocr recognizes the text printed on receipt photos and scanned pages.
//
// Backends:
//   - Google Cloud Vision (DOCUMENT_TEXT_DETECTION on a single image)
//   - Google Document AI (OCR processor, raw image document)
//   - OpenAI vision models (verbatim transcription prompt)
//   - Tesseract, in the tesseract subpackage
//
// Every backend returns the recognized text as one string. An image without
// text yields an empty string and no error; amount detection decides what an
// empty receipt means.
package ocr

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/api/option"
)

const (
	// MaxImageSizeBytes is the largest image accepted for synchronous OCR (20MB).
	MaxImageSizeBytes = 20 * 1024 * 1024
)

// Recognizer extracts text from one image.
type Recognizer interface {
	// RecognizeText returns all text found in image, in reading order.
	RecognizeText(ctx context.Context, image []byte) (string, error)

	// Close releases backend resources.
	Close() error
}

// GoogleCredentials selects how Google backends authenticate. The first
// non-empty field wins; with none set, application default credentials are used.
type GoogleCredentials struct {
	APIKey          string
	CredentialsJSON string
	CredentialsFile string
}

func (c GoogleCredentials) clientOptions() []option.ClientOption {
	switch {
	case c.APIKey != "":
		return []option.ClientOption{option.WithAPIKey(c.APIKey)}
	case c.CredentialsJSON != "":
		return []option.ClientOption{option.WithCredentialsJSON([]byte(c.CredentialsJSON))}
	case c.CredentialsFile != "":
		return []option.ClientOption{option.WithCredentialsFile(c.CredentialsFile)}
	default:
		return nil
	}
}

// checkImage validates image before it is sent to a backend.
func checkImage(op string, image []byte) error {
	if len(image) == 0 {
		return WrapOCRError(op, ErrEmptyImage, "")
	}
	if len(image) > MaxImageSizeBytes {
		return WrapOCRError(op, ErrImageTooLarge, fmt.Sprintf("image size: %d bytes", len(image)))
	}
	return nil
}

// DetectImageMime sniffs the MIME type of image, defaulting to image/jpeg.
func DetectImageMime(image []byte) string {
	if len(image) >= 4 {
		head := string(image[:4])
		if head == "II*\x00" || head == "MM\x00*" {
			return "image/tiff"
		}
	}
	mt := http.DetectContentType(image)
	if strings.HasPrefix(mt, "image/") {
		return mt
	}
	return "image/jpeg"
}

// contextError maps context failures onto ErrContextCanceled.
func contextError(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		return WrapOCRError(op, ErrContextCanceled, ctx.Err().Error())
	}
	return WrapOCRError(op, ErrOCRFailed, err.Error())
}
