package mail

import (
	"context"
	"errors"
	"fmt"

	"reimburse/pkg/models"
)

var (
	// ErrNotFound is returned when the mailbox has no message or attachment with the given ID.
	ErrNotFound = errors.New("message or attachment not found")

	// ErrInvalidToken is returned when the stored OAuth token cannot be used.
	ErrInvalidToken = errors.New("invalid OAuth token file")
)

// Message is a fetched email with its headers and MIME tree.
type Message struct {
	ID      string
	Subject string
	From    string
	Date    string
	Snippet string
	Payload *Part
}

// Mailbox is the read-only mail collaborator used by the auditor.
type Mailbox interface {
	// ListMessages returns up to max messages matching a provider search query.
	ListMessages(ctx context.Context, query string, max int64) ([]models.EmailSummary, error)

	// GetMessage fetches a full message including its MIME tree.
	GetMessage(ctx context.Context, id string) (*Message, error)

	// DownloadAttachment returns the raw bytes of one attachment.
	DownloadAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error)
}

// ListAttachments returns the downloadable attachments of a message.
func ListAttachments(ctx context.Context, mb Mailbox, messageID string) ([]models.AttachmentDescriptor, error) {
	const op = "ListAttachments"

	msg, err := mb.GetMessage(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return CollectAttachments(msg.Payload), nil
}

// GetMessageText returns the body text of a message as a single page.
func GetMessageText(ctx context.Context, mb Mailbox, messageID string) ([]string, error) {
	const op = "GetMessageText"

	msg, err := mb.GetMessage(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	text := FirstText(msg.Payload)
	if text == "" {
		return []string{}, nil
	}
	return []string{text}, nil
}
