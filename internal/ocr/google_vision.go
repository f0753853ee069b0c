package ocr

import (
	"context"
	"fmt"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/rs/zerolog"

	"reimburse/internal/logger"
)

// DefaultLanguageHints bias Vision towards Indonesian and English receipts.
var DefaultLanguageHints = []string{"id", "en"}

// VisionRecognizer implements Recognizer using Google Cloud Vision.
type VisionRecognizer struct {
	client *vision.ImageAnnotatorClient
	hints  []string
	log    zerolog.Logger
}

// NewVisionRecognizer creates a Vision client with the given credentials.
func NewVisionRecognizer(ctx context.Context, creds GoogleCredentials) (*VisionRecognizer, error) {
	const op = "NewVisionRecognizer"

	opts := creds.clientOptions()
	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		if len(opts) == 0 {
			return nil, WrapOCRError(op, ErrMissingCredentials, "no API key or credentials configured")
		}
		return nil, WrapOCRError(op, err, "failed to create Vision client")
	}

	return NewVisionRecognizerWithClient(client), nil
}

// NewVisionRecognizerWithClient wraps an existing Vision client.
func NewVisionRecognizerWithClient(client *vision.ImageAnnotatorClient) *VisionRecognizer {
	return &VisionRecognizer{
		client: client,
		hints:  DefaultLanguageHints,
		log:    logger.WithComponent("ocr-vision"),
	}
}

// RecognizeText implements Recognizer.
func (v *VisionRecognizer) RecognizeText(ctx context.Context, image []byte) (string, error) {
	const op = "RecognizeText"

	if err := checkImage(op, image); err != nil {
		return "", err
	}

	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image: &visionpb.Image{Content: image},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
				},
				ImageContext: &visionpb.ImageContext{LanguageHints: v.hints},
			},
		},
	}

	resp, err := v.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return "", contextError(ctx, op, fmt.Errorf("Vision API call failed: %w", err))
	}
	if len(resp.Responses) == 0 {
		return "", WrapOCRError(op, ErrOCRFailed, "no response from Vision API")
	}

	text, err := visionText(resp.Responses[0])
	if err != nil {
		return "", WrapOCRError(op, ErrOCRFailed, err.Error())
	}

	v.log.Debug().
		Int("image_bytes", len(image)).
		Int("text_length", len(text)).
		Msg("Vision OCR completed")

	return text, nil
}

// visionText picks the full document text, falling back to the first plain
// text annotation.
func visionText(r *visionpb.AnnotateImageResponse) (string, error) {
	if r.GetError() != nil && r.GetError().GetMessage() != "" {
		return "", fmt.Errorf("Vision API error: %s", r.GetError().GetMessage())
	}
	if t := r.GetFullTextAnnotation().GetText(); t != "" {
		return t, nil
	}
	if anns := r.GetTextAnnotations(); len(anns) > 0 {
		return anns[0].GetDescription(), nil
	}
	return "", nil
}

// Close closes the underlying Vision client.
func (v *VisionRecognizer) Close() error {
	if v.client != nil {
		return v.client.Close()
	}
	return nil
}
