// Package server exposes the audit operations over HTTP so an outer agent
// can call them as tools.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"reimburse/internal/export"
	"reimburse/internal/logger"
	"reimburse/pkg/services"
)

// Config holds HTTP server configuration
type Config struct {
	Addr           string
	Mode           string
	AnalyzeTimeout time.Duration
	DefaultQuery   string
	DefaultMax     int64
	Workers        int
}

// Server is the HTTP adapter in front of an AuditService.
type Server struct {
	config     Config
	router     *gin.Engine
	httpServer *http.Server
	handlers   *Handlers
	log        zerolog.Logger
}

// New creates a server. sink may be nil.
func New(config Config, svc services.AuditService, sink export.Sink) *Server {
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}

	s := &Server{
		config:   config,
		router:   gin.New(),
		handlers: NewHandlers(config, svc, sink),
		log:      logger.WithComponent("server"),
	}

	s.router.Use(gin.Recovery())
	s.router.Use(s.requestLogger())
	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handlers.HealthCheck)

	api := s.router.Group("/api/v1")
	{
		api.GET("/emails", s.handlers.ListEmails)
		api.POST("/emails/:id/analyze", s.handlers.AnalyzeEmail)
		api.POST("/summary", s.handlers.Summary)
	}
}

// requestLogger tags each request with an ID and logs its outcome.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-ID", requestID)

		c.Next()

		log := logger.WithRequestID(requestID)
		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("HTTP request")
	}
}

// Start serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	const op = "Start"

	s.httpServer = &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.log.Info().Str("address", s.config.Addr).Msg("Starting HTTP server")

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.log.Info().Msg("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down HTTP server: %w", err)
	}
	s.log.Info().Msg("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router
func (s *Server) Router() *gin.Engine {
	return s.router
}
