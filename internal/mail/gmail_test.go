package mail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

func b64(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func newTestGmail(t *testing.T) *GmailClient {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/gmail/v1/users/me/messages", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "subject:reimbursement", r.URL.Query().Get("q"))
		assert.Equal(t, "5", r.URL.Query().Get("maxResults"))
		writeJSON(w, map[string]any{
			"messages": []map[string]string{{"id": "m1", "threadId": "t1"}},
		})
	})
	mux.HandleFunc("/gmail/v1/users/me/messages/m1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"id":      "m1",
			"snippet": "Mohon diproses",
			"payload": map[string]any{
				"mimeType": "multipart/mixed",
				"headers": []map[string]string{
					{"name": "Subject", "value": "Reimbursement Agustus"},
					{"name": "From", "value": "budi@example.com"},
					{"name": "Date", "value": "Mon, 4 Aug 2025 09:00:00 +0700"},
				},
				"parts": []map[string]any{
					{"partId": "0", "mimeType": "text/plain", "body": map[string]any{"data": b64("Halo tim finance"), "size": 16}},
					{"partId": "1", "mimeType": "application/pdf", "filename": "form.pdf", "body": map[string]any{"attachmentId": "a1", "size": 100}},
				},
			},
		})
	})
	mux.HandleFunc("/gmail/v1/users/me/messages/m1/attachments/a1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"data": b64("%PDF-1.4 test"), "size": 13})
	})
	mux.HandleFunc("/gmail/v1/users/me/messages/gone", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":404,"message":"Requested entity was not found."}}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	svc, err := gmail.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	return NewGmailClientWithService(svc)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestGmailListMessages(t *testing.T) {
	c := newTestGmail(t)

	list, err := c.ListMessages(context.Background(), "subject:reimbursement", 5)

	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "m1", list[0].ID)
	assert.Equal(t, "Reimbursement Agustus", list[0].Subject)
	assert.Equal(t, "budi@example.com", list[0].From)
	assert.Equal(t, "Mohon diproses", list[0].Snippet)
}

func TestGmailGetMessage(t *testing.T) {
	c := newTestGmail(t)

	msg, err := c.GetMessage(context.Background(), "m1")

	require.NoError(t, err)
	assert.Equal(t, "Reimbursement Agustus", msg.Subject)
	assert.Equal(t, "Halo tim finance", FirstText(msg.Payload))
	atts := CollectAttachments(msg.Payload)
	require.Len(t, atts, 1)
	assert.Equal(t, "a1", atts[0].AttachmentID)
	assert.Equal(t, int64(100), atts[0].Size)
}

func TestGmailGetMessageNotFound(t *testing.T) {
	c := newTestGmail(t)

	_, err := c.GetMessage(context.Background(), "gone")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestGmailDownloadAttachment(t *testing.T) {
	c := newTestGmail(t)

	data, err := c.DownloadAttachment(context.Background(), "m1", "a1")

	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 test", string(data))
}

func TestParseTokenFile(t *testing.T) {
	data := []byte(`{
		"token": "ya29.access",
		"refresh_token": "1//refresh",
		"token_uri": "https://oauth2.googleapis.com/token",
		"client_id": "client.apps.googleusercontent.com",
		"client_secret": "secret",
		"scopes": ["https://www.googleapis.com/auth/gmail.readonly"],
		"expiry": "2025-08-04T10:00:00.123456Z"
	}`)

	cfg, tok, err := parseTokenFile(data)

	require.NoError(t, err)
	assert.Equal(t, "client.apps.googleusercontent.com", cfg.ClientID)
	assert.Equal(t, "https://oauth2.googleapis.com/token", cfg.Endpoint.TokenURL)
	assert.Equal(t, []string{gmail.GmailReadonlyScope}, cfg.Scopes)
	assert.Equal(t, "ya29.access", tok.AccessToken)
	assert.Equal(t, "1//refresh", tok.RefreshToken)
	assert.Equal(t, 2025, tok.Expiry.Year())
}

func TestParseTokenFileWithoutExpiryForcesRefresh(t *testing.T) {
	_, tok, err := parseTokenFile([]byte(`{"refresh_token":"r","client_id":"c","client_secret":"s"}`))

	require.NoError(t, err)
	assert.True(t, tok.Expiry.Before(time.Now()))
}

func TestParseTokenFileRejectsGarbage(t *testing.T) {
	_, _, err := parseTokenFile([]byte(`not json`))
	assert.True(t, errors.Is(err, ErrInvalidToken))

	_, _, err = parseTokenFile([]byte(`{"client_id":"c"}`))
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestDecodeBase64URL(t *testing.T) {
	for _, in := range []string{
		base64.URLEncoding.EncodeToString([]byte("ab?>")),
		base64.RawURLEncoding.EncodeToString([]byte("ab?>")),
	} {
		out, err := decodeBase64URL(in)
		require.NoError(t, err)
		assert.Equal(t, "ab?>", string(out))
	}
}
