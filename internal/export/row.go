// Package export writes audit outcomes to reporting sinks.
package export

import (
	"context"
	"errors"
	"strings"
	"time"

	"reimburse/internal/audit"
	"reimburse/pkg/models"
)

// TimeLayout formats Row.ProcessedAt in tabular sinks.
const TimeLayout = "2006-01-02 15:04:05"

// Headers are the column titles of a Row, in Values order.
var Headers = []string{
	"Message ID", "Subject", "Status", "Submission Date", "Form Total",
	"Receipt Sum", "Items", "Matched", "Missing", "Receipts",
	"Unmatched Receipts", "Bank", "Account Number", "Account Holder",
	"Notes", "Error", "Processed At",
}

// Row is the flat audit record of one analyzed email.
type Row struct {
	MessageID         string
	Subject           string
	Status            string
	SubmissionDate    string
	FormTotal         *int64
	SumReceipts       int64
	Items             int
	Matched           int
	Missing           int
	Receipts          int
	UnmatchedReceipts int
	BankName          string
	AccountNumber     string
	AccountHolder     string
	Notes             string
	Error             string
	ProcessedAt       time.Time

	// Result is the full analysis, kept by document sinks.
	Result *models.AnalysisResult
}

// Values returns the row cells in Headers order.
func (r Row) Values() []interface{} {
	var total interface{} = ""
	if r.FormTotal != nil {
		total = *r.FormTotal
	}
	return []interface{}{
		r.MessageID,
		r.Subject,
		r.Status,
		r.SubmissionDate,
		total,
		r.SumReceipts,
		r.Items,
		r.Matched,
		r.Missing,
		r.Receipts,
		r.UnmatchedReceipts,
		r.BankName,
		r.AccountNumber,
		r.AccountHolder,
		r.Notes,
		r.Error,
		r.ProcessedAt.Format(TimeLayout),
	}
}

// RowFromResult flattens one analysis. status is the batch classification.
func RowFromResult(result *models.AnalysisResult, status audit.BatchStatus, errText string, at time.Time) Row {
	row := Row{
		Status:      string(status),
		Error:       errText,
		ProcessedAt: at,
		Result:      result,
	}
	if result == nil {
		return row
	}

	row.MessageID = result.MessageID
	row.Subject = result.Subject
	row.Receipts = len(result.Receipts)
	if row.Error == "" {
		row.Error = result.Error
	}

	if f := result.FormData; f != nil {
		row.SubmissionDate = f.SubmissionDate
		row.FormTotal = f.Total
		row.BankName = f.Bank.BankName
		row.AccountNumber = f.Bank.AccountNumber
		row.AccountHolder = f.Bank.AccountHolder
	}

	if rec := result.Reconciliation; rec != nil {
		row.SumReceipts = rec.SumReceiptAmounts
		row.Items = len(rec.Items)
		for _, item := range rec.Items {
			if item.Status == models.ItemMatch {
				row.Matched++
			} else {
				row.Missing++
			}
		}
		row.UnmatchedReceipts = len(rec.UnmatchedReceipts)
		row.Notes = strings.Join(rec.Notes, "; ")
	}

	return row
}

// RowsFromReport flattens every entry of a batch report.
func RowsFromReport(report *audit.BatchReport) []Row {
	rows := make([]Row, 0, len(report.Entries))
	for _, e := range report.Entries {
		row := RowFromResult(e.Result, e.Status, e.Error, report.FinishedAt)
		if row.MessageID == "" {
			row.MessageID = e.Email.ID
		}
		if row.Subject == "" {
			row.Subject = e.Email.Subject
		}
		rows = append(rows, row)
	}
	return rows
}

// Sink stores audit rows.
type Sink interface {
	Write(ctx context.Context, rows []Row) error
	Close() error
}

// MultiSink writes to every sink, continuing past failures.
type MultiSink []Sink

// Write implements Sink.
func (m MultiSink) Write(ctx context.Context, rows []Row) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, rows); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close implements Sink.
func (m MultiSink) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
