package models

// Amounts are whole Rupiah. Fractional sub-units are truncated during
// extraction, never rounded.

// LineItem is one row of the reimbursement form's item table.
type LineItem struct {
	Description string `json:"description"`
	UnitPrice   *int64 `json:"unit_price"`
	Quantity    *int64 `json:"quantity"`
	Subtotal    *int64 `json:"subtotal"`
}

// BankAccount holds the transfer destination printed on the form.
type BankAccount struct {
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
	AccountHolder string `json:"account_holder"`
}

// FormRecord is the structured content of one reimbursement form PDF.
type FormRecord struct {
	SubmissionDate       string      `json:"submission_date"` // Free-form, not validated
	Items                []LineItem  `json:"items"`
	Total                *int64      `json:"total"`
	Bank                 BankAccount `json:"bank"`
	SourceEmailID        string      `json:"source_email_id"`
	SourceAttachmentName string      `json:"source_attachment_name"`
}

// AttachmentDescriptor is an opaque handle to a mail attachment.
type AttachmentDescriptor struct {
	AttachmentID string `json:"attachment_id"`
	Filename     string `json:"filename"`
	MimeType     string `json:"mime_type"`
	Size         int64  `json:"size,omitempty"` // Reported by the mail store, informational only
}

// ReceiptResult is the outcome of reading one receipt image.
// Error and the amount fields are mutually exclusive.
type ReceiptResult struct {
	Filename         string  `json:"filename"`
	CandidateAmounts []int64 `json:"candidate_amounts,omitempty"` // Ascending, unique
	SelectedAmount   *int64  `json:"selected_amount,omitempty"`
	OCRTextPreview   string  `json:"ocr_text_preview,omitempty"`
	Error            string  `json:"error,omitempty"`
}

// HasAmount reports whether the receipt can take part in matching.
func (r ReceiptResult) HasAmount() bool {
	return r.Error == "" && r.SelectedAmount != nil
}

// OverallStatus is the verdict of a reconciliation.
type OverallStatus string

const (
	StatusOK       OverallStatus = "OK"
	StatusMismatch OverallStatus = "MISMATCH"
)

// ItemStatus is the matching outcome of a single form line item.
type ItemStatus string

const (
	ItemMatch          ItemStatus = "MATCH"
	ItemMissingReceipt ItemStatus = "MISSING_RECEIPT"
)

// ItemReconciliation records how one form line item was matched.
type ItemReconciliation struct {
	Description     string     `json:"description"`
	Subtotal        *int64     `json:"subtotal"`
	Status          ItemStatus `json:"status"`
	ReceiptFilename *string    `json:"receipt_filename"`
}

// ReconciliationResult is the audit verdict for one form against its receipts.
type ReconciliationResult struct {
	OverallStatus     OverallStatus        `json:"overall_status"`
	Items             []ItemReconciliation `json:"items"`
	UnmatchedReceipts []ReceiptResult      `json:"unmatched_receipts"`
	FormTotal         *int64               `json:"form_total"`
	SumReceiptAmounts int64                `json:"sum_receipt_amounts"`
	Notes             []string             `json:"notes"`
}

// AnalysisResult is the end-to-end audit of one email.
// When Error is set the analysis stopped early and Attachments lists what was
// discovered on the message.
type AnalysisResult struct {
	MessageID      string                 `json:"message_id"`
	Subject        string                 `json:"subject"`
	FormData       *FormRecord            `json:"form_data,omitempty"`
	Receipts       []ReceiptResult        `json:"receipts,omitempty"`
	Reconciliation *ReconciliationResult  `json:"reconciliation,omitempty"`
	Error          string                 `json:"error,omitempty"`
	Attachments    []AttachmentDescriptor `json:"attachments,omitempty"`
}

// EmailSummary is a lightweight listing entry for a mailbox message.
type EmailSummary struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
	From    string `json:"from"`
	Date    string `json:"date"`
	Snippet string `json:"snippet"`
}

// Int64 returns a pointer to v.
func Int64(v int64) *int64 {
	return &v
}
