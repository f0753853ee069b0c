package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"reimburse/internal/form"
	"reimburse/internal/logger"
	"reimburse/internal/ocr"
)

var formCmd = &cobra.Command{
	Use:   "form [pdf-file]",
	Short: "Extract the structured record from a reimbursement form PDF",
	Long: `Read the text of a reimbursement form PDF and print the extracted record:
submission date, line items, total and bank details.

Image-only PDFs are rasterized and read with the configured OCR backend
unless PDF_OCR_FALLBACK=false or --no-ocr is given.`,
	Example: `  reimburse form form_reimburse.pdf
  reimburse form form_reimburse.pdf --pages`,
	Args: cobra.ExactArgs(1),
	RunE: runForm,
}

func init() {
	rootCmd.AddCommand(formCmd)

	formCmd.Flags().Bool("pages", false, "Also print the raw text of every page")
	formCmd.Flags().Bool("no-ocr", false, "Disable the OCR fallback for image-only PDFs")
}

func runForm(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("form")

	showPages, _ := cmd.Flags().GetBool("pages")
	noOCR, _ := cmd.Flags().GetBool("no-ocr")
	pdfPath := args[0]

	data, err := readInputFile(pdfPath, log)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(timeoutFlag(cmd, cfg.AnalyzeTimeout), log)
	defer cancel()

	var recognizer ocr.Recognizer
	if !noOCR && cfg.PDFOCRFallback {
		if recognizer, err = newRecognizer(ctx, cfg, log); err != nil {
			log.Warn().Err(err).Msg("OCR backend unavailable, reading the text layer only")
			recognizer = nil
		} else {
			defer recognizer.Close()
		}
	}

	pages, err := newExtractor(cfg, recognizer).ExtractPages(ctx, data)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filepath.Base(pdfPath), err)
	}

	record, err := form.Parse(pages)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", filepath.Base(pdfPath), err)
	}
	record.SourceAttachmentName = filepath.Base(pdfPath)

	log.Info().
		Str("file", pdfPath).
		Int("pages", len(pages)).
		Int("items", len(record.Items)).
		Msg("Form extracted")

	if showPages {
		for i, page := range pages {
			fmt.Fprintf(os.Stderr, "--- page %d ---\n%s\n", i+1, page)
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(record)
}
