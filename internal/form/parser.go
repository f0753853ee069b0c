// Package form extracts a FormRecord from the text of the reimbursement form.
//
// The extractor targets one known layout: labelled header fields, a bank
// section, and an item table introduced by a "No Description" header whose
// single item row is spread over the next three text lines. Other layouts are
// out of scope; fields that cannot be located come back empty or nil.
package form

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"reimburse/internal/amount"
	"reimburse/pkg/models"
)

// Labels of the known form layout.
const (
	DateLabel          = "Tanggal Pengajuan"
	BankNameLabel      = "Nama Bank"
	AccountNumberLabel = "Nomor Rekening"
	AccountHolderLabel = "Nama Pemilik Rekening"
	TableHeaderPrefix  = "No Description"

	// RowWindowSize is how many lines after the table header make up the item row.
	RowWindowSize = 3
)

var (
	descriptionPattern = regexp.MustCompile(`(?i)^\s*\d+\s+(.+?)\s+(?:Rp|IDR)`)
	groupedPattern     = regexp.MustCompile(`\b\d{1,3}(?:[.,]\d{3})+\b`)
	quantityPattern    = regexp.MustCompile(`(?i)(?:Rp|IDR)\.?\s*[\d.,]+\s+(\d{1,3})\s+(?:Rp|IDR)`)
)

// Parse builds a FormRecord from the page texts of the form PDF, in page order.
func Parse(pages []string) (*models.FormRecord, error) {
	const op = "Parse"

	lines := nonBlankLines(pages)
	if len(lines) == 0 {
		return nil, NewParseError(op, ErrEmptyForm, fmt.Sprintf("%d page(s) without text", len(pages)))
	}

	record := &models.FormRecord{
		SubmissionDate: labelledValue(lines, DateLabel),
		Items:          []models.LineItem{},
		Bank: models.BankAccount{
			BankName:      labelledValue(lines, BankNameLabel),
			AccountNumber: labelledValue(lines, AccountNumberLabel),
			AccountHolder: labelledValue(lines, AccountHolderLabel),
		},
	}

	for i, line := range lines {
		if !hasPrefixFold(line, TableHeaderPrefix) {
			continue
		}
		item, total := parseRow(rowWindow(lines, i+1))
		record.Items = append(record.Items, item)
		record.Total = total
		// Only the first item row is read.
		break
	}

	return record, nil
}

func nonBlankLines(pages []string) []string {
	var lines []string
	for _, raw := range strings.Split(strings.Join(pages, "\n"), "\n") {
		if line := strings.TrimSpace(raw); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// labelledValue returns the text after the first ':' of the first line that
// starts with label, or "" when no such line exists.
func labelledValue(lines []string, label string) string {
	for _, line := range lines {
		if !hasPrefixFold(line, label) {
			continue
		}
		_, value, found := strings.Cut(line, ":")
		if !found {
			return ""
		}
		return strings.TrimSpace(value)
	}
	return ""
}

func rowWindow(lines []string, start int) string {
	if start >= len(lines) {
		return ""
	}
	end := min(start+RowWindowSize, len(lines))
	return strings.Join(lines[start:end], " ")
}

// parseRow reads one item row. The subtotal is the last grouped numeral of
// the row and the form total is taken from the same position.
func parseRow(window string) (models.LineItem, *int64) {
	var item models.LineItem

	if m := descriptionPattern.FindStringSubmatch(window); m != nil {
		item.Description = strings.TrimSpace(m[1])
	}

	var values []int64
	for _, token := range groupedPattern.FindAllString(window, -1) {
		if v, ok := amount.ParseGroupedNumeral(token); ok {
			values = append(values, v)
		}
	}
	var total *int64
	if len(values) > 0 {
		item.UnitPrice = models.Int64(values[0])
		item.Subtotal = models.Int64(values[len(values)-1])
		total = models.Int64(values[len(values)-1])
	}

	if m := quantityPattern.FindStringSubmatch(window); m != nil {
		if q, err := strconv.ParseInt(m[1], 10, 64); err == nil {
			item.Quantity = models.Int64(q)
		}
	}

	return item, total
}

func hasPrefixFold(s, prefix string) bool {
	return strings.HasPrefix(strings.ToLower(s), strings.ToLower(prefix))
}
