package attachment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reimburse/pkg/models"
)

func att(name, mime string) models.AttachmentDescriptor {
	return models.AttachmentDescriptor{AttachmentID: "id-" + name, Filename: name, MimeType: mime}
}

func TestClassifyPrefersUnpenalizedPDF(t *testing.T) {
	result := Classify([]models.AttachmentDescriptor{
		att("a.pdf", "application/pdf"),
		att("receipt_b.pdf", "application/pdf"),
	})

	require.NotNil(t, result.FormCandidate)
	assert.Equal(t, "a.pdf", result.FormCandidate.Filename)
	assert.Equal(t, []string{"a.pdf", "receipt_b.pdf"}, filenames(result.FormCandidates))
	assert.Empty(t, result.ReceiptCandidates)
}

func TestClassifyRanksFormKeywordsFirst(t *testing.T) {
	result := Classify([]models.AttachmentDescriptor{
		att("scan.pdf", "application/pdf"),
		att("invoice_hotel.pdf", "application/pdf"),
		att("Form_Reimbursement_Agustus.PDF", "application/octet-stream"),
		att("struk1.jpg", "image/jpeg"),
	})

	require.NotNil(t, result.FormCandidate)
	assert.Equal(t, "Form_Reimbursement_Agustus.PDF", result.FormCandidate.Filename)
	assert.Equal(t,
		[]string{"Form_Reimbursement_Agustus.PDF", "scan.pdf", "invoice_hotel.pdf"},
		filenames(result.FormCandidates))
	assert.Equal(t, []string{"struk1.jpg"}, filenames(result.ReceiptCandidates))
}

func TestClassifyTiesKeepInputOrder(t *testing.T) {
	result := Classify([]models.AttachmentDescriptor{
		att("one.pdf", "application/pdf"),
		att("two.pdf", "application/pdf"),
	})

	require.NotNil(t, result.FormCandidate)
	assert.Equal(t, "one.pdf", result.FormCandidate.Filename)
}

func TestClassifyKeepsAllReceipts(t *testing.T) {
	result := Classify([]models.AttachmentDescriptor{
		att("IMG_0001.JPG", ""),
		att("photo", "image/png"),
		att("notes.txt", "text/plain"),
		att("bukti_transfer.heic", "application/octet-stream"),
	})

	assert.Nil(t, result.FormCandidate)
	assert.Empty(t, result.FormCandidates)
	assert.Equal(t, []string{"IMG_0001.JPG", "photo", "bukti_transfer.heic"}, filenames(result.ReceiptCandidates))
}

func TestClassifyEmpty(t *testing.T) {
	result := Classify(nil)
	assert.Nil(t, result.FormCandidate)
	assert.Empty(t, result.FormCandidates)
	assert.Empty(t, result.ReceiptCandidates)
}

func TestScore(t *testing.T) {
	tests := []struct {
		filename string
		want     int
	}{
		{"a.pdf", 0},
		{"Reimbursement.pdf", 10},
		{"receipt_b.pdf", -5},
		{"form_with_invoice.pdf", 5},
		{"KLAIM-perjalanan.pdf", 10},
		{"Kwitansi.pdf", -5},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.filename))
		})
	}
}

func filenames(atts []models.AttachmentDescriptor) []string {
	var out []string
	for _, a := range atts {
		out = append(out, a.Filename)
	}
	return out
}
