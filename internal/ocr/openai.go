package ocr

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"reimburse/internal/logger"
)

const transcribePrompt = `Transcribe every piece of text visible in this image exactly as printed, ` +
	`line by line, keeping numbers, currency symbols, dots and commas unchanged. ` +
	`Do not summarize, translate or add commentary. Reply with the text only.`

// OpenAIRecognizer implements Recognizer with an OpenAI vision model.
type OpenAIRecognizer struct {
	client *openai.Client
	model  string
	log    zerolog.Logger
}

// NewOpenAIRecognizer creates a recognizer using apiKey. An empty model
// selects gpt-4o-mini.
func NewOpenAIRecognizer(apiKey, model string) (*OpenAIRecognizer, error) {
	const op = "NewOpenAIRecognizer"

	if apiKey == "" {
		return nil, WrapOCRError(op, ErrMissingCredentials, "OpenAI API key is required")
	}
	return NewOpenAIRecognizerWithClient(openai.NewClient(apiKey), model), nil
}

// NewOpenAIRecognizerWithClient wraps an existing OpenAI client.
func NewOpenAIRecognizerWithClient(client *openai.Client, model string) *OpenAIRecognizer {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIRecognizer{
		client: client,
		model:  model,
		log:    logger.WithComponent("ocr-openai"),
	}
}

// RecognizeText implements Recognizer.
func (o *OpenAIRecognizer) RecognizeText(ctx context.Context, image []byte) (string, error) {
	const op = "RecognizeText"

	if err := checkImage(op, image); err != nil {
		return "", err
	}

	dataURI := fmt.Sprintf("data:%s;base64,%s", DetectImageMime(image), base64.StdEncoding.EncodeToString(image))

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		MaxTokens:   2048,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: transcribePrompt,
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    dataURI,
							Detail: openai.ImageURLDetailHigh,
						},
					},
				},
			},
		},
	})
	if err != nil {
		return "", contextError(ctx, op, fmt.Errorf("OpenAI API call failed: %w", err))
	}
	if len(resp.Choices) == 0 {
		return "", WrapOCRError(op, ErrOCRFailed, "no choices in OpenAI response")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	o.log.Debug().
		Str("model", o.model).
		Int("tokens", resp.Usage.TotalTokens).
		Int("text_length", len(text)).
		Msg("OpenAI OCR completed")

	return text, nil
}

// Close is a no-op; the OpenAI client holds no connections of its own.
func (o *OpenAIRecognizer) Close() error {
	return nil
}
