package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"reimburse/internal/logger"
)

// DefaultSheet is the worksheet used when none is configured.
const DefaultSheet = "Audit"

// XLSXSink appends rows to a local workbook, creating it on first write.
// Writes are serialized; each one rewrites the whole file.
type XLSXSink struct {
	mu    sync.Mutex
	path  string
	sheet string
	log   zerolog.Logger
}

// NewXLSXSink creates a sink writing to path.
func NewXLSXSink(path, sheet string) *XLSXSink {
	if sheet == "" {
		sheet = DefaultSheet
	}
	return &XLSXSink{
		path:  path,
		sheet: sheet,
		log:   logger.WithComponent("export-xlsx"),
	}
}

// Write implements Sink.
func (s *XLSXSink) Write(ctx context.Context, rows []Row) error {
	const op = "XLSXSink.Write"

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.open()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer f.Close()

	existing, err := f.GetRows(s.sheet)
	if err != nil {
		return fmt.Errorf("%s: failed to read sheet %s: %w", op, s.sheet, err)
	}

	next := len(existing) + 1
	if len(existing) == 0 {
		if err := s.writeHeaders(f); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		next = 2
	}

	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		cell, err := excelize.CoordinatesToCellName(1, next+i)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		values := row.Values()
		if err := f.SetSheetRow(s.sheet, cell, &values); err != nil {
			return fmt.Errorf("%s: failed to write row %d: %w", op, next+i, err)
		}
	}

	if err := f.SaveAs(s.path); err != nil {
		return fmt.Errorf("%s: failed to save %s: %w", op, s.path, err)
	}

	s.log.Info().
		Str("path", s.path).
		Int("rows", len(rows)).
		Msg("Wrote audit rows to workbook")

	return nil
}

func (s *XLSXSink) open() (*excelize.File, error) {
	f, err := excelize.OpenFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		f = excelize.NewFile()
		if err := f.SetSheetName("Sheet1", s.sheet); err != nil {
			return nil, fmt.Errorf("failed to name sheet: %w", err)
		}
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", s.path, err)
	}

	idx, err := f.GetSheetIndex(s.sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to look up sheet: %w", err)
	}
	if idx == -1 {
		if _, err := f.NewSheet(s.sheet); err != nil {
			return nil, fmt.Errorf("failed to create sheet: %w", err)
		}
	}
	return f, nil
}

func (s *XLSXSink) writeHeaders(f *excelize.File) error {
	headers := make([]interface{}, len(Headers))
	for i, h := range Headers {
		headers[i] = h
	}
	if err := f.SetSheetRow(s.sheet, "A1", &headers); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"E6E6E6"}},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(Headers), 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(s.sheet, "A1", last, style)
}

// Close implements Sink.
func (s *XLSXSink) Close() error {
	return nil
}
