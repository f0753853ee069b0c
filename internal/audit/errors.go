package audit

import "errors"

// Analysis outcome errors. Missing evidence (no attachments, no form PDF) is
// reported only through AnalysisResult.Error and never as a Go error.
var (
	// ErrFetchFailed is returned when the message or form attachment cannot be fetched.
	ErrFetchFailed = errors.New("failed to fetch from mailbox")

	// ErrFormUnreadable is returned when the form PDF yields no usable text.
	ErrFormUnreadable = errors.New("form PDF could not be read")
)

// Messages stored in AnalysisResult.Error.
const (
	MsgNoAttachments = "no attachments found on message"
	MsgNoFormPDF     = "no PDF form attachment found"
)
