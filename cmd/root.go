package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"reimburse/internal/config"
	"reimburse/internal/logger"
)

var version = "1.0.0"

// cfg is loaded once in PersistentPreRunE and read-only afterwards.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "reimburse",
	Short: "Audit reimbursement emails against their receipts",
	Long: `reimburse reads reimbursement requests from a Gmail mailbox, extracts the
line items from the attached PDF form, reads the amounts printed on the
attached receipt images and reports whether every claimed item is backed
by a receipt.

Configuration is read from the environment (a .env file is loaded when
present) and optionally from a YAML file passed with --config.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")

		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		if err := logger.Setup(loaded.GetLoggerConfig()); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		cfg = loaded
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML configuration file")
	rootCmd.PersistentFlags().Duration("timeout", 0, "Overall timeout for the command (0 = none)")
}

// commandContext returns a context canceled on SIGINT/SIGTERM and, when
// timeout is positive, after timeout.
func commandContext(timeout time.Duration, log zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	if timeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, timeout)
		parent := cancel
		cancel = func() {
			cancelTimeout()
			parent()
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, canceling")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// timeoutFlag returns --timeout, or fallback when the flag is not set.
func timeoutFlag(cmd *cobra.Command, fallback time.Duration) time.Duration {
	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout > 0 {
		return timeout
	}
	return fallback
}
