package cmd

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reimburse/internal/export"
)

type liveContextSink struct {
	rows []export.Row
}

func (s *liveContextSink) Write(ctx context.Context, rows []export.Row) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.rows = append(s.rows, rows...)
	return nil
}

func (s *liveContextSink) Close() error { return nil }

func TestWriteRowsAfterCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sink := &liveContextSink{}

	writeRows(ctx, sink, []export.Row{{MessageID: "m1", Status: "ERROR"}}, zerolog.Nop())

	require.Len(t, sink.rows, 1)
	assert.Equal(t, "ERROR", sink.rows[0].Status)
}

func TestWriteRowsWithoutSink(t *testing.T) {
	assert.NotPanics(t, func() {
		writeRows(context.Background(), nil, []export.Row{{MessageID: "m1"}}, zerolog.Nop())
	})
}
