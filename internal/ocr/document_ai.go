package ocr

import (
	"context"
	"fmt"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"reimburse/internal/logger"
)

// DocumentAIConfig identifies the Document AI OCR processor.
type DocumentAIConfig struct {
	ProjectID   string
	Location    string
	ProcessorID string
	Timeout     time.Duration
	Credentials GoogleCredentials
}

// ProcessorName returns the fully qualified processor resource name.
func (c DocumentAIConfig) ProcessorName() string {
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s", c.ProjectID, c.Location, c.ProcessorID)
}

// DocumentAIRecognizer implements Recognizer using a Document AI OCR processor.
type DocumentAIRecognizer struct {
	client *documentai.DocumentProcessorClient
	config DocumentAIConfig
	log    zerolog.Logger
}

// NewDocumentAIRecognizer creates a Document AI client for config.
func NewDocumentAIRecognizer(ctx context.Context, config DocumentAIConfig) (*DocumentAIRecognizer, error) {
	const op = "NewDocumentAIRecognizer"

	if config.ProjectID == "" || config.ProcessorID == "" {
		return nil, WrapOCRError(op, ErrInvalidConfiguration, "project ID and processor ID are required")
	}
	if config.Location == "" {
		config.Location = "us"
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}

	var opts []option.ClientOption
	if config.Location != "us" {
		opts = append(opts, option.WithEndpoint(fmt.Sprintf("%s-documentai.googleapis.com:443", config.Location)))
	}
	opts = append(opts, config.Credentials.clientOptions()...)

	client, err := documentai.NewDocumentProcessorClient(ctx, opts...)
	if err != nil {
		return nil, WrapOCRError(op, err, fmt.Sprintf("failed to create Document AI client for location: %s", config.Location))
	}

	return NewDocumentAIRecognizerWithClient(config, client), nil
}

// NewDocumentAIRecognizerWithClient wraps an existing Document AI client.
func NewDocumentAIRecognizerWithClient(config DocumentAIConfig, client *documentai.DocumentProcessorClient) *DocumentAIRecognizer {
	return &DocumentAIRecognizer{
		client: client,
		config: config,
		log:    logger.WithComponent("ocr-document-ai"),
	}
}

// RecognizeText implements Recognizer.
func (p *DocumentAIRecognizer) RecognizeText(ctx context.Context, image []byte) (string, error) {
	const op = "RecognizeText"

	if err := checkImage(op, image); err != nil {
		return "", err
	}

	processCtx := ctx
	if p.config.Timeout > 0 {
		var cancel context.CancelFunc
		processCtx, cancel = context.WithTimeout(ctx, p.config.Timeout)
		defer cancel()
	}

	req := &documentaipb.ProcessRequest{
		Name: p.config.ProcessorName(),
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  image,
				MimeType: DetectImageMime(image),
			},
		},
	}

	resp, err := p.client.ProcessDocument(processCtx, req)
	if err != nil {
		return "", p.handleProcessingError(ctx, op, err)
	}
	if resp.GetDocument() == nil {
		return "", WrapOCRError(op, ErrOCRFailed, "no document in response")
	}

	text := resp.GetDocument().GetText()
	p.log.Debug().
		Str("processor", p.config.ProcessorID).
		Int("text_length", len(text)).
		Msg("Document AI OCR completed")

	return text, nil
}

func (p *DocumentAIRecognizer) handleProcessingError(ctx context.Context, op string, err error) error {
	errStr := err.Error()

	switch {
	case strings.Contains(errStr, "PERMISSION_DENIED"), strings.Contains(errStr, "PermissionDenied"):
		return WrapOCRError(op, ErrMissingCredentials, "insufficient permissions for Document AI")
	case strings.Contains(errStr, "NOT_FOUND"), strings.Contains(errStr, "NotFound"):
		return WrapOCRError(op, ErrInvalidConfiguration, fmt.Sprintf("processor not found: %s", p.config.ProcessorID))
	default:
		return contextError(ctx, op, fmt.Errorf("Document AI error: %w", err))
	}
}

// Close closes the underlying Document AI client.
func (p *DocumentAIRecognizer) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}
