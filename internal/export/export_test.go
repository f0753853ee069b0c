package export

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"reimburse/internal/audit"
	"reimburse/pkg/models"
)

var processedAt = time.Date(2025, 8, 12, 9, 30, 0, 0, time.UTC)

func mismatchResult() *models.AnalysisResult {
	name := "struk.jpg"
	return &models.AnalysisResult{
		MessageID: "m1",
		Subject:   "Reimbursement Agustus",
		FormData: &models.FormRecord{
			SubmissionDate: "12 Agustus 2025",
			Total:          models.Int64(450000),
			Bank:           models.BankAccount{BankName: "BCA", AccountNumber: "123", AccountHolder: "Budi"},
		},
		Receipts: []models.ReceiptResult{{Filename: name, SelectedAmount: models.Int64(300000)}},
		Reconciliation: &models.ReconciliationResult{
			OverallStatus: models.StatusMismatch,
			Items: []models.ItemReconciliation{
				{Description: "Taksi", Status: models.ItemMatch, ReceiptFilename: &name},
				{Description: "Hotel", Status: models.ItemMissingReceipt},
			},
			UnmatchedReceipts: []models.ReceiptResult{},
			FormTotal:         models.Int64(450000),
			SumReceiptAmounts: 300000,
			Notes:             []string{"note one", "note two"},
		},
	}
}

func TestRowFromResult(t *testing.T) {
	row := RowFromResult(mismatchResult(), audit.BatchMismatch, "", processedAt)

	assert.Equal(t, "m1", row.MessageID)
	assert.Equal(t, "MISMATCH", row.Status)
	assert.Equal(t, int64(450000), *row.FormTotal)
	assert.Equal(t, int64(300000), row.SumReceipts)
	assert.Equal(t, 2, row.Items)
	assert.Equal(t, 1, row.Matched)
	assert.Equal(t, 1, row.Missing)
	assert.Equal(t, 1, row.Receipts)
	assert.Equal(t, "BCA", row.BankName)
	assert.Equal(t, "note one; note two", row.Notes)

	values := row.Values()
	require.Len(t, values, len(Headers))
	assert.Equal(t, int64(450000), values[4])
	assert.Equal(t, "2025-08-12 09:30:00", values[16])
}

func TestRowFromResultWithoutReconciliation(t *testing.T) {
	row := RowFromResult(&models.AnalysisResult{MessageID: "m2", Error: audit.MsgNoFormPDF}, audit.BatchNoEvidence, "", processedAt)

	assert.Equal(t, audit.MsgNoFormPDF, row.Error)
	assert.Nil(t, row.FormTotal)
	assert.Equal(t, "", row.Values()[4])

	errRow := RowFromResult(nil, audit.BatchError, "boom", processedAt)
	assert.Equal(t, "boom", errRow.Error)
}

func TestRowsFromReportFallsBackToListing(t *testing.T) {
	report := &audit.BatchReport{
		FinishedAt: processedAt,
		Entries: []audit.BatchEntry{
			{Email: models.EmailSummary{ID: "x", Subject: "Klaim"}, Status: audit.BatchError, Error: "fetch failed"},
			{Email: models.EmailSummary{ID: "m1"}, Status: audit.BatchMismatch, Result: mismatchResult()},
		},
	}

	rows := RowsFromReport(report)

	require.Len(t, rows, 2)
	assert.Equal(t, "x", rows[0].MessageID)
	assert.Equal(t, "Klaim", rows[0].Subject)
	assert.Equal(t, "fetch failed", rows[0].Error)
	assert.Equal(t, "Reimbursement Agustus", rows[1].Subject)
	assert.Equal(t, processedAt, rows[1].ProcessedAt)
}

func TestXLSXSinkAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.xlsx")
	sink := NewXLSXSink(path, "")

	require.NoError(t, sink.Write(context.Background(), []Row{RowFromResult(mismatchResult(), audit.BatchMismatch, "", processedAt)}))
	require.NoError(t, sink.Write(context.Background(), []Row{{MessageID: "m2", Status: "OK", ProcessedAt: processedAt}}))
	require.NoError(t, sink.Close())

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(DefaultSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Headers[0], rows[0][0])
	assert.Equal(t, "m1", rows[1][0])
	assert.Equal(t, "MISMATCH", rows[1][2])
	assert.Equal(t, "450000", rows[1][4])
	assert.Equal(t, "m2", rows[2][0])
}

func TestXLSXSinkConcurrentWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.xlsx")
	sink := NewXLSXSink(path, "")

	const writers = 50
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- sink.Write(context.Background(), []Row{{MessageID: fmt.Sprintf("m%d", i), Status: "OK", ProcessedAt: processedAt}})
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(DefaultSheet)
	require.NoError(t, err)
	require.Len(t, rows, writers+1)

	seen := make(map[string]bool)
	for _, row := range rows[1:] {
		seen[row[0]] = true
	}
	assert.Len(t, seen, writers)
}

func TestSQLiteSinkRoundTrip(t *testing.T) {
	sink, err := NewSQLiteSink(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	defer sink.Close()

	ctx := context.Background()
	require.NoError(t, sink.Write(ctx, []Row{
		RowFromResult(mismatchResult(), audit.BatchMismatch, "", processedAt),
		{MessageID: "m2", Status: "NO_EVIDENCE", Error: audit.MsgNoAttachments, ProcessedAt: processedAt.Add(time.Minute)},
	}))

	rows, err := sink.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "m2", rows[0].MessageID)
	assert.Nil(t, rows[0].FormTotal)
	assert.Equal(t, audit.MsgNoAttachments, rows[0].Error)
	assert.Equal(t, "m1", rows[1].MessageID)
	assert.Equal(t, int64(450000), *rows[1].FormTotal)
	assert.Equal(t, 1, rows[1].Missing)
	assert.True(t, processedAt.Equal(rows[1].ProcessedAt))

	var stored string
	require.NoError(t, sink.db.QueryRow(`SELECT result_json FROM audit_results WHERE message_id = 'm1'`).Scan(&stored))
	assert.Contains(t, stored, `"overall_status":"MISMATCH"`)
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	args := m.Called(ctx, document)
	res, _ := args.Get(0).(*mongo.InsertOneResult)
	return res, args.Error(1)
}

func TestMongoSinkInsertsDocuments(t *testing.T) {
	store := &mockStore{}
	store.On("InsertOne", mock.Anything, mock.MatchedBy(func(doc auditDocument) bool {
		return doc.MessageID == "m1" && doc.Status == "MISMATCH" && doc.Result != nil && doc.Missing == 1
	})).Return(&mongo.InsertOneResult{InsertedID: "x"}, nil).Once()

	sink := NewMongoSink(store)
	err := sink.Write(context.Background(), []Row{RowFromResult(mismatchResult(), audit.BatchMismatch, "", processedAt)})

	require.NoError(t, err)
	store.AssertExpectations(t)
	assert.NoError(t, sink.Close())
}

func TestMongoSinkError(t *testing.T) {
	store := &mockStore{}
	store.On("InsertOne", mock.Anything, mock.Anything).Return(nil, errors.New("not primary"))

	err := NewMongoSink(store).Write(context.Background(), []Row{{MessageID: "m1"}})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to insert m1")
}

type failingSink struct{ err error }

func (f failingSink) Write(context.Context, []Row) error { return f.err }
func (f failingSink) Close() error                       { return nil }

func TestMultiSinkContinuesPastFailures(t *testing.T) {
	store := &mockStore{}
	store.On("InsertOne", mock.Anything, mock.Anything).Return(&mongo.InsertOneResult{}, nil)
	boom := errors.New("sheet quota")

	err := MultiSink{failingSink{boom}, NewMongoSink(store)}.Write(context.Background(), []Row{{MessageID: "m1"}})

	assert.ErrorIs(t, err, boom)
	store.AssertNumberOfCalls(t, "InsertOne", 1)
}
