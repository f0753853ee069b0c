// Package audit runs the end-to-end reimbursement check for one email or a
// batch of emails.
package audit

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"reimburse/internal/attachment"
	"reimburse/internal/form"
	"reimburse/internal/logger"
	"reimburse/internal/mail"
	"reimburse/internal/receipt"
	"reimburse/internal/reconciliation"
	"reimburse/pkg/models"
)

// PageExtractor returns the per-page text of a PDF document.
type PageExtractor interface {
	ExtractPages(ctx context.Context, data []byte) ([]string, error)
}

// TextRecognizer returns the text printed on an image.
type TextRecognizer interface {
	RecognizeText(ctx context.Context, image []byte) (string, error)
}

// Analyzer composes mail access, form extraction, receipt OCR and
// reconciliation. It holds no per-analysis state and is safe for concurrent use
// when its collaborators are.
type Analyzer struct {
	mailbox mail.Mailbox
	pages   PageExtractor
	ocr     TextRecognizer
	log     zerolog.Logger
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(mailbox mail.Mailbox, pages PageExtractor, ocr TextRecognizer) *Analyzer {
	return &Analyzer{
		mailbox: mailbox,
		pages:   pages,
		ocr:     ocr,
		log:     logger.WithComponent("audit"),
	}
}

// ListMessages returns summaries of messages matching query.
func (a *Analyzer) ListMessages(ctx context.Context, query string, max int64) ([]models.EmailSummary, error) {
	const op = "ListMessages"

	summaries, err := a.mailbox.ListMessages(ctx, query, max)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrFetchFailed, err)
	}
	return summaries, nil
}

// Attachments returns the downloadable attachments of message id.
func (a *Analyzer) Attachments(ctx context.Context, id string) ([]models.AttachmentDescriptor, error) {
	attachments, err := mail.ListAttachments(ctx, a.mailbox, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	return attachments, nil
}

// MessageText returns the body text of message id, one entry per text page.
func (a *Analyzer) MessageText(ctx context.Context, id string) ([]string, error) {
	pages, err := mail.GetMessageText(ctx, a.mailbox, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	return pages, nil
}

// Analyze audits the reimbursement request in message id.
//
// A non-nil result is always returned. When the analysis stops early,
// result.Error describes why; the Go error is non-nil only for fetch failures
// (ErrFetchFailed) and unreadable forms (ErrFormUnreadable).
func (a *Analyzer) Analyze(ctx context.Context, id string) (*models.AnalysisResult, error) {
	const op = "Analyze"

	log := a.log.With().Str("message_id", id).Logger()
	result := &models.AnalysisResult{MessageID: id}

	msg, err := a.mailbox.GetMessage(ctx, id)
	if err != nil {
		result.Error = fmt.Sprintf("failed to fetch message: %v", err)
		return result, fmt.Errorf("%s: %w: %w", op, ErrFetchFailed, err)
	}
	result.Subject = msg.Subject

	attachments := mail.CollectAttachments(msg.Payload)
	if len(attachments) == 0 {
		log.Info().Msg("Message has no attachments")
		result.Error = MsgNoAttachments
		result.Attachments = attachments
		return result, nil
	}

	cls := attachment.Classify(attachments)
	if cls.FormCandidate == nil {
		log.Info().Int("attachments", len(attachments)).Msg("Message has no PDF form")
		result.Error = MsgNoFormPDF
		result.Attachments = attachments
		return result, nil
	}
	formAtt := *cls.FormCandidate

	log.Debug().
		Str("form", formAtt.Filename).
		Int("receipts", len(cls.ReceiptCandidates)).
		Msg("Classified attachments")

	formBytes, err := a.mailbox.DownloadAttachment(ctx, id, formAtt.AttachmentID)
	if err != nil {
		result.Error = fmt.Sprintf("failed to download form %s: %v", formAtt.Filename, err)
		result.Attachments = attachments
		return result, fmt.Errorf("%s: %w: %w", op, ErrFetchFailed, err)
	}

	record, err := a.readForm(ctx, formBytes)
	if err != nil {
		result.Error = fmt.Sprintf("failed to read form %s: %v", formAtt.Filename, err)
		result.Attachments = attachments
		return result, fmt.Errorf("%s: %w: %w", op, ErrFormUnreadable, err)
	}
	record.SourceEmailID = id
	record.SourceAttachmentName = formAtt.Filename
	result.FormData = record

	receipts, err := a.readReceipts(ctx, id, cls.ReceiptCandidates)
	if err != nil {
		result.Error = err.Error()
		return result, fmt.Errorf("%s: %w", op, err)
	}
	result.Receipts = receipts

	recon := reconciliation.Reconcile(*record, receipts)
	result.Reconciliation = &recon

	log.Info().
		Str("status", string(recon.OverallStatus)).
		Int("items", len(recon.Items)).
		Int("receipts", len(receipts)).
		Int64("sum_receipts", recon.SumReceiptAmounts).
		Msg("Analysis completed")

	return result, nil
}

func (a *Analyzer) readForm(ctx context.Context, data []byte) (*models.FormRecord, error) {
	pages, err := a.pages.ExtractPages(ctx, data)
	if err != nil {
		return nil, err
	}
	return form.Parse(pages)
}

// readReceipts downloads and recognizes each receipt in order. Per-receipt
// failures are recorded on the receipt; only cancellation aborts the loop.
func (a *Analyzer) readReceipts(ctx context.Context, id string, candidates []models.AttachmentDescriptor) ([]models.ReceiptResult, error) {
	receipts := make([]models.ReceiptResult, 0, len(candidates))
	for _, att := range candidates {
		if err := ctx.Err(); err != nil {
			return receipts, err
		}

		data, err := a.mailbox.DownloadAttachment(ctx, id, att.AttachmentID)
		if err != nil {
			a.log.Warn().Err(err).Str("receipt", att.Filename).Msg("Failed to download receipt")
			receipts = append(receipts, receipt.Build(att.Filename, "", fmt.Errorf("download failed: %w", err)))
			continue
		}

		text, err := a.ocr.RecognizeText(ctx, data)
		if err != nil {
			a.log.Warn().Err(err).Str("receipt", att.Filename).Msg("Failed to recognize receipt")
		}
		receipts = append(receipts, receipt.Build(att.Filename, text, err))
	}
	return receipts, nil
}
