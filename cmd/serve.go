package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"reimburse/internal/export"
	"reimburse/internal/logger"
	"reimburse/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the audit operations over HTTP",
	Long: `Start an HTTP server exposing:

  GET  /health
  GET  /api/v1/emails?query=&max=
  POST /api/v1/emails/:id/analyze
  POST /api/v1/summary   {"query": "...", "max": 10, "workers": 4}`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "Listen address (default: SERVER_ADDR)")
	serveCmd.Flags().Bool("no-export", false, "Do not write results to the configured sinks")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("serve")

	addr, _ := cmd.Flags().GetString("addr")
	noExport, _ := cmd.Flags().GetBool("no-export")
	if addr == "" {
		addr = cfg.ServerAddr
	}

	ctx, cancel := commandContext(0, log)
	defer cancel()

	analyzer, closeAnalyzer, err := newAnalyzer(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeAnalyzer()

	var sink export.Sink
	if !noExport {
		s, err := buildSinks(ctx, cfg, log)
		if err != nil {
			return fmt.Errorf("failed to open export sinks: %w", err)
		}
		if s != nil {
			defer s.Close()
			sink = s
		}
	}

	srv := server.New(server.Config{
		Addr:           addr,
		Mode:           cfg.GinMode,
		AnalyzeTimeout: cfg.AnalyzeTimeout,
		DefaultQuery:   cfg.GmailQuery,
		DefaultMax:     cfg.GmailMaxResults,
		Workers:        cfg.Workers,
	}, analyzer, sink)

	return srv.Start(ctx)
}
