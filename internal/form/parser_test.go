package form

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reimburse/pkg/models"
)

const samplePage = `
FORMULIR REIMBURSEMENT
Nama Karyawan : Budi Santoso
Tanggal Pengajuan : 12 Agustus 2025

No Description Harga Qty Subtotal
1 Taksi ke bandara
Rp 150.000 2
Rp 300.000

Nama Bank : BCA
Nomor Rekening : 1234567890
Nama Pemilik Rekening : Budi Santoso
`

func TestParseSampleForm(t *testing.T) {
	record, err := Parse([]string{samplePage})
	require.NoError(t, err)

	assert.Equal(t, "12 Agustus 2025", record.SubmissionDate)
	assert.Equal(t, models.BankAccount{
		BankName:      "BCA",
		AccountNumber: "1234567890",
		AccountHolder: "Budi Santoso",
	}, record.Bank)

	require.Len(t, record.Items, 1)
	item := record.Items[0]
	assert.Equal(t, "Taksi ke bandara", item.Description)
	require.NotNil(t, item.UnitPrice)
	assert.Equal(t, int64(150000), *item.UnitPrice)
	require.NotNil(t, item.Quantity)
	assert.Equal(t, int64(2), *item.Quantity)
	require.NotNil(t, item.Subtotal)
	assert.Equal(t, int64(300000), *item.Subtotal)
	require.NotNil(t, record.Total)
	assert.Equal(t, int64(300000), *record.Total)
}

func TestParseJoinsPagesInOrder(t *testing.T) {
	first := "Tanggal Pengajuan: 01/09/2025\nNo Description Harga Qty Subtotal"
	second := "1 Makan siang klien IDR 85.000 1 IDR 85.000\nNama Bank: Mandiri"

	record, err := Parse([]string{first, second})
	require.NoError(t, err)

	assert.Equal(t, "01/09/2025", record.SubmissionDate)
	assert.Equal(t, "Mandiri", record.Bank.BankName)
	require.Len(t, record.Items, 1)
	assert.Equal(t, "Makan siang klien", record.Items[0].Description)
	assert.Equal(t, int64(85000), *record.Items[0].Subtotal)
	assert.Equal(t, int64(1), *record.Items[0].Quantity)
}

func TestParseMissingFieldsDegrade(t *testing.T) {
	record, err := Parse([]string{"Some unrelated document\nwith two lines"})
	require.NoError(t, err)

	assert.Empty(t, record.SubmissionDate)
	assert.Empty(t, record.Bank.BankName)
	assert.Empty(t, record.Items)
	assert.Nil(t, record.Total)
}

func TestParseLabelWithoutColon(t *testing.T) {
	record, err := Parse([]string{"Tanggal Pengajuan 12-08-2025\nNama Bank - BNI"})
	require.NoError(t, err)

	assert.Empty(t, record.SubmissionDate)
	assert.Empty(t, record.Bank.BankName)
}

func TestParseHeaderWithoutRow(t *testing.T) {
	record, err := Parse([]string{"No Description Harga Qty Subtotal"})
	require.NoError(t, err)

	require.Len(t, record.Items, 1)
	assert.Empty(t, record.Items[0].Description)
	assert.Nil(t, record.Items[0].UnitPrice)
	assert.Nil(t, record.Items[0].Quantity)
	assert.Nil(t, record.Items[0].Subtotal)
	assert.Nil(t, record.Total)
}

func TestParseReadsOnlyFirstRow(t *testing.T) {
	page := `No Description Harga Qty Subtotal
1 Parkir Rp 10.000 1 Rp 10.000
-
-
No Description Harga Qty Subtotal
2 Tol Rp 20.000 1 Rp 20.000`

	record, err := Parse([]string{page})
	require.NoError(t, err)

	require.Len(t, record.Items, 1)
	assert.Equal(t, "Parkir", record.Items[0].Description)
	assert.Equal(t, int64(10000), *record.Total)
}

func TestParseEmptyInput(t *testing.T) {
	tests := []struct {
		name  string
		pages []string
	}{
		{name: "no pages", pages: nil},
		{name: "blank pages", pages: []string{"", "   \n\t\n"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, err := Parse(tt.pages)
			assert.Nil(t, record)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrEmptyForm))

			var parseErr *ParseError
			assert.True(t, errors.As(err, &parseErr))
			assert.Equal(t, "Parse", parseErr.Op)
		})
	}
}

func TestHasPrefixFold(t *testing.T) {
	tests := []struct {
		name   string
		s      string
		prefix string
		want   bool
	}{
		{name: "case differs", s: "TANGGAL PENGAJUAN : 1 Mei", prefix: "Tanggal Pengajuan", want: true},
		{name: "shorter than prefix", s: "Tanggal", prefix: "Tanggal Pengajuan", want: false},
		{name: "kelvin sign folds to k", s: "\u212Aode Pos: 40115", prefix: "kode", want: true},
		{name: "multi-byte at boundary", s: "Namé Bank: BCA", prefix: "Name", want: false},
		{name: "different text", s: "Nomor Rekening: 1", prefix: "Nama Bank", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, hasPrefixFold(tt.s, tt.prefix))
		})
	}
}
