// Package receipt turns the OCR text of a receipt image into a ReceiptResult.
package receipt

import (
	"reimburse/internal/amount"
	"reimburse/pkg/models"
)

const (
	// PreviewLength is the number of characters of OCR text kept in the result.
	PreviewLength = 300

	previewEllipsis = "..."
)

// Build creates the ReceiptResult for filename. When ocrErr is non-nil the
// text is ignored and only the error is recorded.
//
// The selected amount is the largest candidate: receipts commonly print
// subtotals, fees and change below or beside the grand total.
func Build(filename, text string, ocrErr error) models.ReceiptResult {
	if ocrErr != nil {
		return models.ReceiptResult{
			Filename: filename,
			Error:    ocrErr.Error(),
		}
	}

	candidates := amount.ParseAmounts(text)
	result := models.ReceiptResult{
		Filename:         filename,
		CandidateAmounts: candidates,
		OCRTextPreview:   Preview(text),
	}
	if best, ok := amount.Max(candidates); ok {
		result.SelectedAmount = models.Int64(best)
	}
	return result
}

// Preview truncates text to PreviewLength characters, marking truncation.
func Preview(text string) string {
	runes := []rune(text)
	if len(runes) <= PreviewLength {
		return text
	}
	return string(runes[:PreviewLength]) + previewEllipsis
}
