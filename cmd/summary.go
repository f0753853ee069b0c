package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"reimburse/internal/audit"
	"reimburse/internal/export"
	"reimburse/internal/logger"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Audit every email matching a query and print a summary",
	Long: `List the emails matching a Gmail query, audit each one with a pool of
parallel workers, and classify every email as OK, MISMATCH, NO_EVIDENCE
or ERROR. One failing email never stops the batch.`,
	Example: `  reimburse summary
  reimburse summary --query "label:claims newer_than:7d" --max 50 --workers 8`,
	Args: cobra.NoArgs,
	RunE: runSummary,
}

func init() {
	rootCmd.AddCommand(summaryCmd)

	summaryCmd.Flags().String("query", "", "Gmail search query (default: GMAIL_QUERY)")
	summaryCmd.Flags().Int64("max", 0, "Maximum number of messages (default: GMAIL_MAX_RESULTS)")
	summaryCmd.Flags().Int("workers", 0, "Number of parallel workers (default: WORKERS)")
	summaryCmd.Flags().Bool("json", false, "Output the full report as JSON")
	summaryCmd.Flags().Bool("no-export", false, "Do not write results to the configured sinks")
}

func runSummary(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("summary")

	query, _ := cmd.Flags().GetString("query")
	max, _ := cmd.Flags().GetInt64("max")
	workers, _ := cmd.Flags().GetInt("workers")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	noExport, _ := cmd.Flags().GetBool("no-export")
	if query == "" {
		query = cfg.GmailQuery
	}
	if max <= 0 {
		max = cfg.GmailMaxResults
	}
	if workers <= 0 {
		workers = cfg.Workers
	}

	ctx, cancel := commandContext(timeoutFlag(cmd, 0), log)
	defer cancel()

	analyzer, closeAnalyzer, err := newAnalyzer(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeAnalyzer()

	var sink export.Sink
	if !noExport {
		if sink, err = buildSinks(ctx, cfg, log); err != nil {
			return fmt.Errorf("failed to open export sinks: %w", err)
		}
		if sink != nil {
			defer sink.Close()
		}
	}

	var progress audit.ProgressFunc
	if !jsonOutput {
		fmt.Println(strings.Repeat("=", 70))
		fmt.Println("                    REIMBURSEMENT SUMMARY")
		fmt.Println(strings.Repeat("=", 70))
		fmt.Printf("Query:   %s\n", query)
		fmt.Printf("Max:     %d\n", max)
		fmt.Printf("Workers: %d\n", workers)
		fmt.Println()

		progress = func(done, total int, entry audit.BatchEntry) {
			fmt.Printf("[%d/%d] %s - %s", done, total, entry.Email.ID, entry.Status)
			if entry.Error != "" {
				fmt.Printf(" (%s)", entry.Error)
			} else if entry.Result != nil && entry.Result.Error != "" {
				fmt.Printf(" (%s)", entry.Result.Error)
			}
			fmt.Println()
		}
	}

	report, err := analyzer.RunBatch(ctx, query, max, workers, progress)
	if err != nil {
		return err
	}

	writeRows(ctx, sink, export.RowsFromReport(report), log)

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	fmt.Println()
	fmt.Println(strings.Repeat("=", 50))
	fmt.Println("                 RESULT")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Printf("Emails:      %d\n", len(report.Entries))
	for _, status := range []audit.BatchStatus{audit.BatchOK, audit.BatchMismatch, audit.BatchNoEvidence, audit.BatchError} {
		fmt.Printf("%-12s %d\n", string(status)+":", report.Counts[status])
	}
	fmt.Printf("Duration:    %s\n", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
	fmt.Println(strings.Repeat("=", 70))

	return nil
}
