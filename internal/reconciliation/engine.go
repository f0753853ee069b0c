// Package reconciliation matches form line items against receipt amounts.
//
// Matching is greedy and first-fit: items are taken in document order and
// each one consumes the earliest unused receipt whose selected amount equals
// the item subtotal. No attempt is made to find a globally better pairing;
// duplicate round amounts are common and a stable, explainable choice is
// preferred over a clever one.
package reconciliation

import (
	"fmt"

	"reimburse/internal/amount"
	"reimburse/pkg/models"
)

// Reconcile audits form against receipts. It is deterministic, has no side
// effects and never fails.
func Reconcile(form models.FormRecord, receipts []models.ReceiptResult) models.ReconciliationResult {
	used := make([]bool, len(receipts))

	var pool []int
	var sum int64
	for i, r := range receipts {
		if r.HasAmount() {
			pool = append(pool, i)
			sum += *r.SelectedAmount
		}
	}

	items := make([]models.ItemReconciliation, 0, len(form.Items))
	missing := 0
	for _, item := range form.Items {
		entry := models.ItemReconciliation{
			Description: item.Description,
			Subtotal:    copyInt64(item.Subtotal),
			Status:      models.ItemMissingReceipt,
		}
		if item.Subtotal != nil {
			for _, idx := range pool {
				if used[idx] || *receipts[idx].SelectedAmount != *item.Subtotal {
					continue
				}
				used[idx] = true
				filename := receipts[idx].Filename
				entry.Status = models.ItemMatch
				entry.ReceiptFilename = &filename
				break
			}
		}
		if entry.Status != models.ItemMatch {
			missing++
		}
		items = append(items, entry)
	}

	unmatched := make([]models.ReceiptResult, 0)
	for i, r := range receipts {
		if !used[i] {
			unmatched = append(unmatched, r)
		}
	}

	result := models.ReconciliationResult{
		OverallStatus:     models.StatusOK,
		Items:             items,
		UnmatchedReceipts: unmatched,
		FormTotal:         copyInt64(form.Total),
		SumReceiptAmounts: sum,
		Notes:             make([]string, 0),
	}

	if form.Total != nil && *form.Total != sum {
		result.OverallStatus = models.StatusMismatch
		result.Notes = append(result.Notes, TotalMismatchNote(*form.Total, sum))
	}
	if missing > 0 {
		result.OverallStatus = models.StatusMismatch
		result.Notes = append(result.Notes, MissingReceiptNote(missing))
	}
	if len(unmatched) > 0 {
		result.Notes = append(result.Notes, UnusedReceiptsNote(len(unmatched)))
	}

	return result
}

// TotalMismatchNote explains a form total that differs from the receipt sum.
func TotalMismatchNote(formTotal, receiptSum int64) string {
	return fmt.Sprintf("form total %s does not equal sum of receipt amounts %s",
		amount.FormatRupiah(formTotal), amount.FormatRupiah(receiptSum))
}

// MissingReceiptNote explains items left without a matching receipt.
func MissingReceiptNote(count int) string {
	return fmt.Sprintf("%d form item(s) have no receipt with a matching amount", count)
}

// UnusedReceiptsNote explains receipts that no item consumed.
func UnusedReceiptsNote(count int) string {
	return fmt.Sprintf("%d receipt(s) were not matched to any form item", count)
}

func copyInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	return models.Int64(*v)
}
