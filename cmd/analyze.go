package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"reimburse/internal/amount"
	"reimburse/internal/audit"
	"reimburse/internal/export"
	"reimburse/internal/logger"
	"reimburse/pkg/models"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [message-id]",
	Short: "Audit one reimbursement email",
	Long: `Fetch one email, read the reimbursement form PDF and the receipt images
attached to it, and match every claimed line item against a receipt.

The result is exported to every configured sink (Google Sheet, XLSX,
SQLite, MongoDB).`,
	Example: `  reimburse analyze 18c2f0a1b2c3d4e5
  reimburse analyze 18c2f0a1b2c3d4e5 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().Bool("json", false, "Output as JSON")
	analyzeCmd.Flags().Bool("no-export", false, "Do not write the result to the configured sinks")
	analyzeCmd.Flags().Bool("body", false, "Also print the email body text")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	log := logger.WithMessageID("analyze", args[0])

	jsonOutput, _ := cmd.Flags().GetBool("json")
	noExport, _ := cmd.Flags().GetBool("no-export")
	showBody, _ := cmd.Flags().GetBool("body")

	ctx, cancel := commandContext(timeoutFlag(cmd, cfg.AnalyzeTimeout), log)
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

	result, analyzeErr := analyzer.Analyze(ctx, args[0])
	status := audit.ClassifyResult(result, analyzeErr)

	row := export.RowFromResult(result, status, errorText(analyzeErr), time.Now())
	if row.MessageID == "" {
		row.MessageID = args[0]
	}
	writeRows(ctx, sink, []export.Row{row}, log)

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	} else if result != nil {
		printAnalysis(result, status)
	}

	if showBody && analyzeErr == nil {
		pages, err := analyzer.MessageText(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, strings.Repeat("-", 70))
		for _, page := range pages {
			fmt.Fprintln(os.Stderr, page)
		}
	}

	return analyzeErr
}

func printAnalysis(result *models.AnalysisResult, status audit.BatchStatus) {
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Message: %s\n", result.MessageID)
	fmt.Printf("Subject: %s\n", result.Subject)
	fmt.Printf("Status:  %s\n", status)
	fmt.Println(strings.Repeat("=", 70))

	if result.Error != "" {
		fmt.Printf("Error: %s\n", result.Error)
		for _, a := range result.Attachments {
			fmt.Printf("  - %s (%s)\n", a.Filename, a.MimeType)
		}
		return
	}

	if f := result.FormData; f != nil {
		fmt.Printf("Submitted: %s\n", f.SubmissionDate)
		fmt.Printf("Bank:      %s %s a/n %s\n", f.Bank.BankName, f.Bank.AccountNumber, f.Bank.AccountHolder)
	}

	rec := result.Reconciliation
	if rec == nil {
		return
	}

	fmt.Println()
	fmt.Println("Items:")
	for _, item := range rec.Items {
		line := fmt.Sprintf("  [%-15s] %s", item.Status, item.Description)
		if item.Subtotal != nil {
			line += " " + amount.FormatRupiah(*item.Subtotal)
		}
		if item.ReceiptFilename != nil {
			line += " <- " + *item.ReceiptFilename
		}
		fmt.Println(line)
	}

	if len(rec.UnmatchedReceipts) > 0 {
		fmt.Println()
		fmt.Println("Unmatched receipts:")
		for _, r := range rec.UnmatchedReceipts {
			fmt.Printf("  %s\n", receiptLine(r))
		}
	}

	fmt.Println()
	if rec.FormTotal != nil {
		fmt.Printf("Form total:   %s\n", amount.FormatRupiah(*rec.FormTotal))
	}
	fmt.Printf("Receipts sum: %s\n", amount.FormatRupiah(rec.SumReceiptAmounts))
	for _, note := range rec.Notes {
		fmt.Printf("Note: %s\n", note)
	}
}

func receiptLine(r models.ReceiptResult) string {
	switch {
	case r.Error != "":
		return fmt.Sprintf("%s (error: %s)", r.Filename, r.Error)
	case r.SelectedAmount != nil:
		return fmt.Sprintf("%s %s", r.Filename, amount.FormatRupiah(*r.SelectedAmount))
	default:
		return fmt.Sprintf("%s (no amount found)", r.Filename)
	}
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
