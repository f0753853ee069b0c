package services

import (
	"context"

	"reimburse/internal/audit"
	"reimburse/pkg/models"
)

// AuditService defines the operations exposed to outer callers such as the
// HTTP server or an agent tool layer.
type AuditService interface {
	// ListMessages returns summaries of mailbox messages matching query
	ListMessages(ctx context.Context, query string, max int64) ([]models.EmailSummary, error)

	// Analyze audits the reimbursement request carried by one message
	Analyze(ctx context.Context, messageID string) (*models.AnalysisResult, error)

	// RunBatch analyzes every message matching query and classifies each one
	RunBatch(ctx context.Context, query string, max int64, workers int, progress audit.ProgressFunc) (*audit.BatchReport, error)
}

var _ AuditService = (*audit.Analyzer)(nil)
