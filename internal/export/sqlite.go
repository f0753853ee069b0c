package export

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"reimburse/internal/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS audit_results (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	message_id         TEXT NOT NULL,
	subject            TEXT NOT NULL DEFAULT '',
	status             TEXT NOT NULL,
	submission_date    TEXT NOT NULL DEFAULT '',
	form_total         INTEGER,
	sum_receipts       INTEGER NOT NULL DEFAULT 0,
	items              INTEGER NOT NULL DEFAULT 0,
	matched            INTEGER NOT NULL DEFAULT 0,
	missing            INTEGER NOT NULL DEFAULT 0,
	receipts           INTEGER NOT NULL DEFAULT 0,
	unmatched_receipts INTEGER NOT NULL DEFAULT 0,
	bank_name          TEXT NOT NULL DEFAULT '',
	account_number     TEXT NOT NULL DEFAULT '',
	account_holder     TEXT NOT NULL DEFAULT '',
	notes              TEXT NOT NULL DEFAULT '',
	error              TEXT NOT NULL DEFAULT '',
	result_json        TEXT,
	processed_at       DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_results_message ON audit_results(message_id);
`

// SQLiteSink keeps an append-only audit log in a SQLite database.
type SQLiteSink struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewSQLiteSink opens (and migrates) the database at path.
func NewSQLiteSink(path string) (*SQLiteSink, error) {
	const op = "NewSQLiteSink"

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to open database: %w", op, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: failed to ping database: %w", op, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: failed to apply schema: %w", op, err)
	}

	log := logger.WithComponent("export-sqlite")
	log.Debug().Str("path", path).Msg("Audit database ready")

	return &SQLiteSink{db: db, log: log}, nil
}

// Write implements Sink. All rows are inserted in one transaction.
func (s *SQLiteSink) Write(ctx context.Context, rows []Row) error {
	const op = "SQLiteSink.Write"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO audit_results (
			message_id, subject, status, submission_date, form_total, sum_receipts,
			items, matched, missing, receipts, unmatched_receipts,
			bank_name, account_number, account_holder, notes, error,
			result_json, processed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("%s: failed to prepare insert: %w", op, err)
	}
	defer stmt.Close()

	for _, r := range rows {
		var resultJSON sql.NullString
		if r.Result != nil {
			data, err := json.Marshal(r.Result)
			if err != nil {
				return fmt.Errorf("%s: failed to encode result %s: %w", op, r.MessageID, err)
			}
			resultJSON = sql.NullString{String: string(data), Valid: true}
		}

		var formTotal sql.NullInt64
		if r.FormTotal != nil {
			formTotal = sql.NullInt64{Int64: *r.FormTotal, Valid: true}
		}

		if _, err := stmt.ExecContext(ctx,
			r.MessageID, r.Subject, r.Status, r.SubmissionDate, formTotal, r.SumReceipts,
			r.Items, r.Matched, r.Missing, r.Receipts, r.UnmatchedReceipts,
			r.BankName, r.AccountNumber, r.AccountHolder, r.Notes, r.Error,
			resultJSON, r.ProcessedAt.UTC(),
		); err != nil {
			return fmt.Errorf("%s: failed to insert %s: %w", op, r.MessageID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: failed to commit: %w", op, err)
	}

	s.log.Info().Int("rows", len(rows)).Msg("Stored audit rows")
	return nil
}

// Recent returns the newest rows, newest first. Result is not populated.
func (s *SQLiteSink) Recent(ctx context.Context, limit int) ([]Row, error) {
	const op = "SQLiteSink.Recent"

	rows, err := s.db.QueryContext(ctx, `
		SELECT message_id, subject, status, submission_date, form_total, sum_receipts,
			items, matched, missing, receipts, unmatched_receipts,
			bank_name, account_number, account_holder, notes, error, processed_at
		FROM audit_results ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		var formTotal sql.NullInt64
		var processedAt time.Time
		if err := rows.Scan(
			&r.MessageID, &r.Subject, &r.Status, &r.SubmissionDate, &formTotal, &r.SumReceipts,
			&r.Items, &r.Matched, &r.Missing, &r.Receipts, &r.UnmatchedReceipts,
			&r.BankName, &r.AccountNumber, &r.AccountHolder, &r.Notes, &r.Error, &processedAt,
		); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if formTotal.Valid {
			v := formTotal.Int64
			r.FormTotal = &v
		}
		r.ProcessedAt = processedAt
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// Close implements Sink.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}
