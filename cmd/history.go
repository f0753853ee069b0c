package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"reimburse/internal/amount"
	"reimburse/internal/export"
	"reimburse/internal/logger"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the most recent audits from the SQLite audit log",
	Long: `Print the newest rows of the SQLite audit log (SQLITE_PATH), newest
first. Every analyze, summary and serve run writes to it when SQLITE_PATH
is set.`,
	Example: `  reimburse history
  reimburse history --limit 50 --json`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().Int("limit", 20, "Number of rows to show")
	historyCmd.Flags().Bool("json", false, "Output as JSON")
}

func runHistory(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("history")

	limit, _ := cmd.Flags().GetInt("limit")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	if cfg.SQLitePath == "" {
		return fmt.Errorf("SQLITE_PATH is required for history")
	}
	if limit <= 0 {
		limit = 20
	}

	ctx, cancel := commandContext(timeoutFlag(cmd, 0), log)
	defer cancel()

	store, err := export.NewSQLiteSink(cfg.SQLitePath)
	if err != nil {
		return err
	}
	defer store.Close()

	rows, err := store.Recent(ctx, limit)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	if len(rows) == 0 {
		fmt.Println("No audits recorded yet.")
		return nil
	}

	fmt.Printf("%-19s  %-11s  %-18s  %15s  %15s  %s\n", "Processed", "Status", "Message", "Form Total", "Receipt Sum", "Subject")
	fmt.Println(strings.Repeat("-", 100))
	for _, r := range rows {
		total := "-"
		if r.FormTotal != nil {
			total = amount.FormatRupiah(*r.FormTotal)
		}
		fmt.Printf("%-19s  %-11s  %-18s  %15s  %15s  %s\n",
			r.ProcessedAt.Local().Format(export.TimeLayout),
			r.Status,
			r.MessageID,
			total,
			amount.FormatRupiah(r.SumReceipts),
			r.Subject,
		)
		if r.Error != "" {
			fmt.Printf("    error: %s\n", r.Error)
		}
	}
	return nil
}
