package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"reimburse/pkg/models"
)

// BatchStatus classifies one email in a batch run.
type BatchStatus string

const (
	BatchOK         BatchStatus = "OK"
	BatchMismatch   BatchStatus = "MISMATCH"
	BatchNoEvidence BatchStatus = "NO_EVIDENCE"
	BatchError      BatchStatus = "ERROR"
)

// DefaultWorkers is the batch concurrency used when none is given.
const DefaultWorkers = 4

// BatchEntry is the outcome for one email of a batch.
type BatchEntry struct {
	Email  models.EmailSummary    `json:"email"`
	Status BatchStatus            `json:"status"`
	Result *models.AnalysisResult `json:"result"`
	Error  string                 `json:"error,omitempty"`
}

// BatchReport is the result of RunBatch. Entries keep the listing order.
type BatchReport struct {
	Query      string              `json:"query"`
	Entries    []BatchEntry        `json:"entries"`
	Counts     map[BatchStatus]int `json:"counts"`
	StartedAt  time.Time           `json:"started_at"`
	FinishedAt time.Time           `json:"finished_at"`
}

// ProgressFunc is called after each email completes. Calls are serialized.
type ProgressFunc func(done, total int, entry BatchEntry)

type batchJob struct {
	Index int
	Email models.EmailSummary
}

// RunBatch lists up to max messages for query and analyzes them with a
// bounded pool of workers. A failing email is recorded as BatchError and
// never stops the batch; only a failed listing returns an error.
func (a *Analyzer) RunBatch(ctx context.Context, query string, max int64, workers int, progress ProgressFunc) (*BatchReport, error) {
	const op = "RunBatch"

	report := &BatchReport{
		Query:     query,
		Counts:    make(map[BatchStatus]int),
		StartedAt: time.Now(),
	}

	emails, err := a.ListMessages(ctx, query, max)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if workers <= 0 {
		workers = DefaultWorkers
	}
	if workers > len(emails) {
		workers = len(emails)
	}

	a.log.Info().
		Str("query", query).
		Int("emails", len(emails)).
		Int("workers", workers).
		Msg("Starting batch analysis")

	jobs := make(chan batchJob, len(emails))
	entries := make([]BatchEntry, len(emails))

	var done int
	var mu sync.Mutex

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			for job := range jobs {
				a.log.Debug().
					Int("worker", workerID).
					Str("message_id", job.Email.ID).
					Int("index", job.Index+1).
					Msg("Worker analyzing email")

				entry := a.analyzeEntry(ctx, job.Email)
				entries[job.Index] = entry

				mu.Lock()
				done++
				if progress != nil {
					progress(done, len(emails), entry)
				}
				mu.Unlock()
			}
		}(w)
	}

	for i, email := range emails {
		jobs <- batchJob{Index: i, Email: email}
	}
	close(jobs)

	wg.Wait()

	for _, e := range entries {
		report.Counts[e.Status]++
	}
	report.Entries = entries
	report.FinishedAt = time.Now()

	a.log.Info().
		Int("ok", report.Counts[BatchOK]).
		Int("mismatch", report.Counts[BatchMismatch]).
		Int("no_evidence", report.Counts[BatchNoEvidence]).
		Int("error", report.Counts[BatchError]).
		Dur("duration", report.FinishedAt.Sub(report.StartedAt)).
		Msg("Batch analysis completed")

	return report, nil
}

func (a *Analyzer) analyzeEntry(ctx context.Context, email models.EmailSummary) BatchEntry {
	entry := BatchEntry{Email: email}

	result, err := a.Analyze(ctx, email.ID)
	entry.Result = result
	entry.Status = ClassifyResult(result, err)
	if err != nil {
		entry.Error = err.Error()
	}
	return entry
}

// ClassifyResult maps the outcome of Analyze onto a BatchStatus.
func ClassifyResult(result *models.AnalysisResult, err error) BatchStatus {
	switch {
	case err != nil, result == nil:
		return BatchError
	case result.Reconciliation == nil:
		return BatchNoEvidence
	case result.Reconciliation.OverallStatus == models.StatusOK:
		return BatchOK
	default:
		return BatchMismatch
	}
}
