// Package attachment splits a message's attachments into the reimbursement
// form candidate and the receipt images.
package attachment

import (
	"path/filepath"
	"sort"
	"strings"

	"reimburse/pkg/models"
)

// Keyword tables used by Score. Matching is case-insensitive on the filename.
var (
	FormKeywords = []string{
		"reimburse", "reimbursement", "form", "formulir", "pengajuan",
		"klaim", "claim", "approval", "persetujuan",
	}
	ReceiptKeywords = []string{
		"receipt", "invoice", "struk", "kwitansi", "nota",
		"bukti", "transfer", "payment", "pembayaran",
	}
	ImageExtensions = []string{
		".jpg", ".jpeg", ".png", ".gif", ".bmp", ".webp", ".heic", ".tif", ".tiff",
	}
)

const (
	formKeywordBonus    = 10
	receiptKeywordMalus = 5
)

// Classification is the result of Classify.
type Classification struct {
	// FormCandidate is the best scoring PDF, nil when the message has no PDF.
	FormCandidate *models.AttachmentDescriptor `json:"form_candidate"`

	// FormCandidates lists every PDF, highest score first, ties in input order.
	FormCandidates []models.AttachmentDescriptor `json:"form_candidates"`

	// ReceiptCandidates lists every image attachment in input order.
	ReceiptCandidates []models.AttachmentDescriptor `json:"receipt_candidates"`
}

// Classify partitions attachments into form and receipt candidates.
func Classify(attachments []models.AttachmentDescriptor) Classification {
	var result Classification

	type scored struct {
		att   models.AttachmentDescriptor
		score int
	}
	var pdfs []scored
	for _, att := range attachments {
		if IsPDF(att) {
			pdfs = append(pdfs, scored{att: att, score: Score(att.Filename)})
		}
		if IsImage(att) {
			result.ReceiptCandidates = append(result.ReceiptCandidates, att)
		}
	}

	sort.SliceStable(pdfs, func(i, j int) bool { return pdfs[i].score > pdfs[j].score })
	for _, p := range pdfs {
		result.FormCandidates = append(result.FormCandidates, p.att)
	}
	if len(result.FormCandidates) > 0 {
		best := result.FormCandidates[0]
		result.FormCandidate = &best
	}

	return result
}

// Score rates how likely filename is the reimbursement form.
func Score(filename string) int {
	name := strings.ToLower(filename)
	score := 0
	if containsAny(name, FormKeywords) {
		score += formKeywordBonus
	}
	if containsAny(name, ReceiptKeywords) {
		score -= receiptKeywordMalus
	}
	return score
}

// IsPDF reports whether the attachment looks like a PDF document.
func IsPDF(att models.AttachmentDescriptor) bool {
	return strings.Contains(strings.ToLower(att.MimeType), "pdf") ||
		strings.HasSuffix(strings.ToLower(att.Filename), ".pdf")
}

// IsImage reports whether the attachment looks like a receipt photo or scan.
func IsImage(att models.AttachmentDescriptor) bool {
	if strings.HasPrefix(strings.ToLower(att.MimeType), "image/") {
		return true
	}
	ext := strings.ToLower(filepath.Ext(att.Filename))
	for _, e := range ImageExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
