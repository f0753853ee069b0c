package ocr

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestOCRErrorWrapping(t *testing.T) {
	err := WrapOCRError("RecognizeText", ErrOCRFailed, "quota exceeded")

	assert.True(t, errors.Is(err, ErrOCRFailed))
	assert.Equal(t, "ocr: RecognizeText failed: quota exceeded: OCR processing failed", err.Error())

	again := WrapOCRError("Outer", err, "ignored")
	assert.Same(t, err, again)

	assert.Nil(t, WrapOCRError("noop", nil, ""))
	assert.Equal(t, "ocr: X failed: image is empty", NewOCRError("X", ErrEmptyImage, "").Error())
}

func TestCheckImage(t *testing.T) {
	assert.True(t, errors.Is(checkImage("op", nil), ErrEmptyImage))
	assert.True(t, errors.Is(checkImage("op", make([]byte, MaxImageSizeBytes+1)), ErrImageTooLarge))
	assert.NoError(t, checkImage("op", pngHeader))
}

func TestDetectImageMime(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"png", pngHeader, "image/png"},
		{"jpeg", []byte("\xff\xd8\xff\xe0\x00\x10JFIF"), "image/jpeg"},
		{"tiff", []byte("II*\x00rest"), "image/tiff"},
		{"unknown", []byte("plain text"), "image/jpeg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectImageMime(tt.data))
		})
	}
}

func TestGoogleCredentialsOptions(t *testing.T) {
	assert.Len(t, GoogleCredentials{APIKey: "k", CredentialsFile: "f"}.clientOptions(), 1)
	assert.Len(t, GoogleCredentials{CredentialsJSON: "{}"}.clientOptions(), 1)
	assert.Empty(t, GoogleCredentials{}.clientOptions())
}

func TestDocumentAIProcessorName(t *testing.T) {
	cfg := DocumentAIConfig{ProjectID: "p", Location: "eu", ProcessorID: "abc"}
	assert.Equal(t, "projects/p/locations/eu/processors/abc", cfg.ProcessorName())

	_, err := NewDocumentAIRecognizer(context.Background(), DocumentAIConfig{ProjectID: "p"})
	assert.True(t, errors.Is(err, ErrInvalidConfiguration))
}

func TestNewOpenAIRecognizerRequiresKey(t *testing.T) {
	_, err := NewOpenAIRecognizer("", "")
	assert.True(t, errors.Is(err, ErrMissingCredentials))
}

func TestOpenAIRecognizeText(t *testing.T) {
	var gotModel, gotImage string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)

		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Content []struct {
					Type     string `json:"type"`
					ImageURL *struct {
						URL string `json:"url"`
					} `json:"image_url"`
				} `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotModel = body.Model
		for _, part := range body.Messages[0].Content {
			if part.ImageURL != nil {
				gotImage = part.ImageURL.URL
			}
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "  TOKO MAJU\nTOTAL Rp 50.000\n"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 5, "completion_tokens": 5, "total_tokens": 10}
		}`))
	}))
	defer srv.Close()

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	rec := NewOpenAIRecognizerWithClient(openai.NewClientWithConfig(cfg), "")

	text, err := rec.RecognizeText(context.Background(), pngHeader)

	require.NoError(t, err)
	assert.Equal(t, "TOKO MAJU\nTOTAL Rp 50.000", text)
	assert.Equal(t, openai.GPT4oMini, gotModel)
	assert.True(t, strings.HasPrefix(gotImage, "data:image/png;base64,"))
	assert.NoError(t, rec.Close())
}

func TestOpenAIRecognizeTextAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "rate limited", "type": "requests"}}`))
	}))
	defer srv.Close()

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	rec := NewOpenAIRecognizerWithClient(openai.NewClientWithConfig(cfg), "gpt-4o")

	_, err := rec.RecognizeText(context.Background(), pngHeader)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOCRFailed))
}
