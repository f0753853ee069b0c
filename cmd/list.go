package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"reimburse/internal/logger"
	"reimburse/internal/mail"
	"reimburse/pkg/models"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent emails matching a Gmail query",
	Example: `  # List the default reimbursement query
  reimburse list

  # List the last 20 messages from one sender
  reimburse list --query "from:budi@example.com" --max 20`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().String("query", "", "Gmail search query (default: GMAIL_QUERY)")
	listCmd.Flags().Int64("max", 0, "Maximum number of messages (default: GMAIL_MAX_RESULTS)")
	listCmd.Flags().Bool("json", false, "Output as JSON")
	listCmd.Flags().Bool("attachments", false, "Also list the attachments of every message")
}

func runList(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("list")

	query, _ := cmd.Flags().GetString("query")
	max, _ := cmd.Flags().GetInt64("max")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	withAttachments, _ := cmd.Flags().GetBool("attachments")
	if query == "" {
		query = cfg.GmailQuery
	}
	if max <= 0 {
		max = cfg.GmailMaxResults
	}

	ctx, cancel := commandContext(timeoutFlag(cmd, 0), log)
	defer cancel()

	mailbox, err := newMailbox(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create mail client: %w", err)
	}

	emails, err := mailbox.ListMessages(ctx, query, max)
	if err != nil {
		return err
	}

	attachments := make(map[string][]models.AttachmentDescriptor)
	if withAttachments {
		for _, e := range emails {
			atts, err := mail.ListAttachments(ctx, mailbox, e.ID)
			if err != nil {
				log.Warn().Err(err).Str("message_id", e.ID).Msg("Failed to list attachments")
				continue
			}
			attachments[e.ID] = atts
		}
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if !withAttachments {
			return enc.Encode(emails)
		}
		type listedEmail struct {
			models.EmailSummary
			Attachments []models.AttachmentDescriptor `json:"attachments"`
		}
		out := make([]listedEmail, len(emails))
		for i, e := range emails {
			out[i] = listedEmail{EmailSummary: e, Attachments: attachments[e.ID]}
		}
		return enc.Encode(out)
	}

	if len(emails) == 0 {
		fmt.Println("No messages found.")
		return nil
	}
	for _, e := range emails {
		fmt.Printf("%s  %s\n", e.ID, e.Subject)
		fmt.Printf("    From: %s\n    Date: %s\n", e.From, e.Date)
		if snippet := strings.TrimSpace(e.Snippet); snippet != "" {
			fmt.Printf("    %s\n", snippet)
		}
		for _, a := range attachments[e.ID] {
			fmt.Printf("    - %s (%s)\n", a.Filename, a.MimeType)
		}
	}
	return nil
}
