package mail

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reimburse/pkg/models"
)

func sampleTree() *Part {
	return &Part{
		MimeType: "multipart/mixed",
		Children: []*Part{
			{
				MimeType: "multipart/alternative",
				Children: []*Part{
					{MimeType: "text/plain", Body: []byte("  \n")},
					{MimeType: "text/html", Body: []byte("<p>Mohon diproses</p>")},
					{
						MimeType: "multipart/related",
						Children: []*Part{
							{MimeType: "text/plain; charset=UTF-8", Body: []byte("Mohon diproses")},
							{MimeType: "image/png", Filename: "logo.png", AttachmentID: "att-logo", Size: 10},
						},
					},
				},
			},
			{MimeType: "application/pdf", Filename: "form.pdf", AttachmentID: "att-form", Size: 2048},
			{MimeType: "image/jpeg", Filename: "struk.jpg", AttachmentID: "att-struk", Size: 512},
			{MimeType: "image/jpeg", Filename: "", AttachmentID: "att-anon"},
		},
	}
}

func TestCollectAttachmentsDocumentOrder(t *testing.T) {
	atts := CollectAttachments(sampleTree())

	require.Len(t, atts, 3)
	assert.Equal(t, "logo.png", atts[0].Filename)
	assert.Equal(t, models.AttachmentDescriptor{
		AttachmentID: "att-form",
		Filename:     "form.pdf",
		MimeType:     "application/pdf",
		Size:         2048,
	}, atts[1])
	assert.Equal(t, "struk.jpg", atts[2].Filename)
}

func TestCollectAttachmentsNil(t *testing.T) {
	assert.Empty(t, CollectAttachments(nil))
}

func TestFirstTextDocumentOrder(t *testing.T) {
	assert.Equal(t, "<p>Mohon diproses</p>", FirstText(sampleTree()))
}

func TestFirstTextEarlierHTMLWinsOverLaterPlain(t *testing.T) {
	root := &Part{
		MimeType: "multipart/mixed",
		Children: []*Part{
			{
				MimeType: "multipart/related",
				Children: []*Part{{MimeType: "text/html", Body: []byte("<p>nested html</p>")}},
			},
			{MimeType: "text/plain", Body: []byte("later plain")},
		},
	}

	assert.Equal(t, "<p>nested html</p>", FirstText(root))
}

func TestFirstTextPlainBeforeHTML(t *testing.T) {
	root := &Part{
		MimeType: "multipart/alternative",
		Children: []*Part{
			{MimeType: "text/plain", Body: []byte("plain")},
			{MimeType: "text/html", Body: []byte("<p>html</p>")},
		},
	}

	assert.Equal(t, "plain", FirstText(root))
}

func TestFirstTextHTMLOnly(t *testing.T) {
	root := &Part{
		MimeType: "multipart/alternative",
		Children: []*Part{
			{MimeType: "text/html", Body: []byte("<b>first</b>")},
			{MimeType: "text/html", Body: []byte("<b>second</b>")},
		},
	}

	assert.Equal(t, "<b>first</b>", FirstText(root))
}

func TestFirstTextSinglePart(t *testing.T) {
	assert.Equal(t, "hello", FirstText(&Part{MimeType: "text/plain", Body: []byte("hello")}))
	assert.Equal(t, "", FirstText(&Part{MimeType: "image/png", Body: []byte{0x89}}))
	assert.Equal(t, "", FirstText(nil))
}

func TestFirstTextSkipsTextAttachments(t *testing.T) {
	root := &Part{
		MimeType: "multipart/mixed",
		Children: []*Part{
			{MimeType: "text/plain", Filename: "notes.txt", Body: []byte("attachment")},
			{MimeType: "text/plain", Body: []byte("body")},
		},
	}

	assert.Equal(t, "body", FirstText(root))
}

func TestDeepTreeDoesNotRecurse(t *testing.T) {
	root := &Part{MimeType: "multipart/mixed"}
	cur := root
	for i := 0; i < 100000; i++ {
		next := &Part{MimeType: "multipart/mixed"}
		cur.Children = []*Part{next}
		cur = next
	}
	cur.Children = []*Part{{MimeType: "text/plain", Body: []byte("deep")}}

	assert.Equal(t, "deep", FirstText(root))
}

type stubMailbox struct {
	msg *Message
	err error
}

func (s stubMailbox) ListMessages(context.Context, string, int64) ([]models.EmailSummary, error) {
	return nil, nil
}

func (s stubMailbox) GetMessage(context.Context, string) (*Message, error) {
	return s.msg, s.err
}

func (s stubMailbox) DownloadAttachment(context.Context, string, string) ([]byte, error) {
	return nil, nil
}

func TestListAttachmentsAndText(t *testing.T) {
	mb := stubMailbox{msg: &Message{ID: "m1", Payload: sampleTree()}}

	atts, err := ListAttachments(context.Background(), mb, "m1")
	require.NoError(t, err)
	assert.Len(t, atts, 3)

	pages, err := GetMessageText(context.Background(), mb, "m1")
	require.NoError(t, err)
	assert.Equal(t, []string{"<p>Mohon diproses</p>"}, pages)
}

func TestListAttachmentsPropagatesError(t *testing.T) {
	mb := stubMailbox{err: ErrNotFound}

	_, err := ListAttachments(context.Background(), mb, "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}
