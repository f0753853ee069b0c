package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"reimburse/internal/audit"
	"reimburse/internal/export"
	"reimburse/internal/logger"
	"reimburse/internal/mail"
	"reimburse/pkg/services"
)

// ExportTimeout bounds one write to the export sinks.
const ExportTimeout = 30 * time.Second

// Handlers contains all HTTP request handlers
type Handlers struct {
	config Config
	svc    services.AuditService
	sink   export.Sink
	log    zerolog.Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(config Config, svc services.AuditService, sink export.Sink) *Handlers {
	return &Handlers{
		config: config,
		svc:    svc,
		sink:   sink,
		log:    logger.WithComponent("handlers"),
	}
}

// Response is the envelope of every JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ListEmailsRequest holds the query parameters of GET /api/v1/emails
type ListEmailsRequest struct {
	Query string `form:"query"`
	Max   int64  `form:"max"`
}

// SummaryRequest is the body of POST /api/v1/summary
type SummaryRequest struct {
	Query   string `json:"query"`
	Max     int64  `json:"max"`
	Workers int    `json:"workers"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: gin.H{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// ListEmails handles GET /api/v1/emails
func (h *Handlers) ListEmails(c *gin.Context) {
	var req ListEmailsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Error: "invalid query parameters"})
		return
	}
	query, max := h.listParams(req.Query, req.Max)

	emails, err := h.svc.ListMessages(c.Request.Context(), query, max)
	if err != nil {
		h.log.Error().Err(err).Str("query", query).Msg("Failed to list emails")
		c.JSON(statusFor(err), Response{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: emails})
}

// AnalyzeEmail handles POST /api/v1/emails/:id/analyze
func (h *Handlers) AnalyzeEmail(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, Response{Error: "message id is required"})
		return
	}

	ctx, cancel := h.withTimeout(c.Request.Context())
	defer cancel()

	result, err := h.svc.Analyze(ctx, id)
	row := export.RowFromResult(result, audit.ClassifyResult(result, err), errorText(err), time.Now())
	if row.MessageID == "" {
		row.MessageID = id
	}
	h.export(ctx, row)

	if err != nil {
		h.log.Warn().Err(err).Str("message_id", id).Msg("Analysis failed")
		c.JSON(statusFor(err), Response{Data: result, Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

// Summary handles POST /api/v1/summary
func (h *Handlers) Summary(c *gin.Context) {
	var req SummaryRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, Response{Error: "invalid request body"})
			return
		}
	}
	query, max := h.listParams(req.Query, req.Max)
	workers := req.Workers
	if workers <= 0 {
		workers = h.config.Workers
	}

	report, err := h.svc.RunBatch(c.Request.Context(), query, max, workers, nil)
	if err != nil {
		h.log.Error().Err(err).Str("query", query).Msg("Batch analysis failed")
		c.JSON(statusFor(err), Response{Error: err.Error()})
		return
	}
	h.export(c.Request.Context(), export.RowsFromReport(report)...)

	c.JSON(http.StatusOK, Response{Success: true, Data: report})
}

func (h *Handlers) listParams(query string, max int64) (string, int64) {
	if query == "" {
		query = h.config.DefaultQuery
	}
	if max <= 0 {
		max = h.config.DefaultMax
	}
	return query, max
}

func (h *Handlers) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.config.AnalyzeTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, h.config.AnalyzeTimeout)
}

// export writes rows to the configured sink. It runs detached from the
// request deadline so rows of timed-out analyses are still recorded. Export
// failures are logged and never change the response.
func (h *Handlers) export(ctx context.Context, rows ...export.Row) {
	if h.sink == nil || len(rows) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ExportTimeout)
	defer cancel()

	if err := h.sink.Write(ctx, rows); err != nil {
		h.log.Error().Err(err).Int("rows", len(rows)).Msg("Failed to export audit rows")
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, mail.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, audit.ErrFormUnreadable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, audit.ErrFetchFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
