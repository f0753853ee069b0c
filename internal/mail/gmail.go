package mail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"reimburse/internal/logger"
	"reimburse/pkg/models"
)

const gmailUser = "me"

// GmailClient implements Mailbox on top of the Gmail REST API.
type GmailClient struct {
	svc *gmail.Service
	log zerolog.Logger
}

// authorizedUser is the token file written by the Google OAuth installed-app
// flow ("authorized_user" credentials).
type authorizedUser struct {
	Token        string   `json:"token"`
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	TokenURI     string   `json:"token_uri"`
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	Scopes       []string `json:"scopes"`
	Expiry       string   `json:"expiry"`
}

// NewGmailClient creates a read-only Gmail client from an OAuth token file.
func NewGmailClient(ctx context.Context, tokenPath string) (*GmailClient, error) {
	const op = "NewGmailClient"

	data, err := os.ReadFile(tokenPath)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read token file: %w", op, err)
	}

	cfg, tok, err := parseTokenFile(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	svc, err := gmail.NewService(ctx, option.WithHTTPClient(cfg.Client(ctx, tok)))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create gmail service: %w", op, err)
	}

	return NewGmailClientWithService(svc), nil
}

// NewGmailClientWithService wraps an existing Gmail service.
func NewGmailClientWithService(svc *gmail.Service) *GmailClient {
	return &GmailClient{
		svc: svc,
		log: logger.WithComponent("gmail"),
	}
}

func parseTokenFile(data []byte) (*oauth2.Config, *oauth2.Token, error) {
	var au authorizedUser
	if err := json.Unmarshal(data, &au); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	access := au.Token
	if access == "" {
		access = au.AccessToken
	}
	if access == "" && au.RefreshToken == "" {
		return nil, nil, fmt.Errorf("%w: neither access nor refresh token present", ErrInvalidToken)
	}

	scopes := au.Scopes
	if len(scopes) == 0 {
		scopes = []string{gmail.GmailReadonlyScope}
	}

	endpoint := google.Endpoint
	if au.TokenURI != "" {
		endpoint.TokenURL = au.TokenURI
	}

	cfg := &oauth2.Config{
		ClientID:     au.ClientID,
		ClientSecret: au.ClientSecret,
		Endpoint:     endpoint,
		Scopes:       scopes,
	}

	tok := &oauth2.Token{
		AccessToken:  access,
		RefreshToken: au.RefreshToken,
		TokenType:    "Bearer",
	}
	if au.Expiry != "" {
		if expiry, err := time.Parse(time.RFC3339, au.Expiry); err == nil {
			tok.Expiry = expiry
		}
	}
	if tok.Expiry.IsZero() && au.RefreshToken != "" {
		// Unknown expiry: force a refresh on first use.
		tok.Expiry = time.Unix(1, 0)
	}

	return cfg, tok, nil
}

// ListMessages implements Mailbox.
func (c *GmailClient) ListMessages(ctx context.Context, query string, max int64) ([]models.EmailSummary, error) {
	const op = "ListMessages"

	call := c.svc.Users.Messages.List(gmailUser).Context(ctx)
	if query != "" {
		call = call.Q(query)
	}
	if max > 0 {
		call = call.MaxResults(max)
	}
	resp, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list messages: %w", op, translateError(err))
	}

	summaries := make([]models.EmailSummary, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		msg, err := c.svc.Users.Messages.Get(gmailUser, m.Id).
			Format("metadata").
			MetadataHeaders("Subject", "From", "Date").
			Context(ctx).
			Do()
		if err != nil {
			return nil, fmt.Errorf("%s: failed to get message %s: %w", op, m.Id, translateError(err))
		}
		summaries = append(summaries, models.EmailSummary{
			ID:      m.Id,
			Subject: header(msg.Payload, "Subject"),
			From:    header(msg.Payload, "From"),
			Date:    header(msg.Payload, "Date"),
			Snippet: msg.Snippet,
		})
	}

	c.log.Debug().
		Str("query", query).
		Int("count", len(summaries)).
		Msg("Listed messages")

	return summaries, nil
}

// GetMessage implements Mailbox.
func (c *GmailClient) GetMessage(ctx context.Context, id string) (*Message, error) {
	const op = "GetMessage"

	msg, err := c.svc.Users.Messages.Get(gmailUser, id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get message %s: %w", op, id, translateError(err))
	}

	payload, err := convertPayload(msg.Payload)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Message{
		ID:      msg.Id,
		Subject: header(msg.Payload, "Subject"),
		From:    header(msg.Payload, "From"),
		Date:    header(msg.Payload, "Date"),
		Snippet: msg.Snippet,
		Payload: payload,
	}, nil
}

// DownloadAttachment implements Mailbox.
func (c *GmailClient) DownloadAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error) {
	const op = "DownloadAttachment"

	body, err := c.svc.Users.Messages.Attachments.Get(gmailUser, messageID, attachmentID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, translateError(err))
	}

	data, err := decodeBase64URL(body.Data)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to decode attachment: %w", op, err)
	}

	c.log.Debug().
		Str("message_id", messageID).
		Int("bytes", len(data)).
		Msg("Downloaded attachment")

	return data, nil
}

// convertPayload maps a Gmail payload onto a Part tree.
func convertPayload(root *gmail.MessagePart) (*Part, error) {
	if root == nil {
		return nil, nil
	}

	type pending struct {
		src *gmail.MessagePart
		dst *Part
	}

	out := &Part{}
	stack := []pending{{src: root, dst: out}}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		cur.dst.MimeType = cur.src.MimeType
		cur.dst.Filename = cur.src.Filename
		if b := cur.src.Body; b != nil {
			cur.dst.AttachmentID = b.AttachmentId
			cur.dst.Size = b.Size
			if b.Data != "" {
				data, err := decodeBase64URL(b.Data)
				if err != nil {
					return nil, fmt.Errorf("failed to decode part %q: %w", cur.src.PartId, err)
				}
				cur.dst.Body = data
			}
		}

		cur.dst.Children = make([]*Part, len(cur.src.Parts))
		for i, child := range cur.src.Parts {
			cur.dst.Children[i] = &Part{}
			stack = append(stack, pending{src: child, dst: cur.dst.Children[i]})
		}
	}
	return out, nil
}

func header(p *gmail.MessagePart, name string) string {
	if p == nil {
		return ""
	}
	for _, h := range p.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// decodeBase64URL accepts URL-safe base64 with or without padding.
func decodeBase64URL(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
}

func translateError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}
