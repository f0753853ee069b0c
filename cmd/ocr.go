package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"reimburse/internal/amount"
	"reimburse/internal/logger"
	"reimburse/internal/ocr"
	"reimburse/internal/receipt"
)

var ocrCmd = &cobra.Command{
	Use:   "ocr [image-file]",
	Short: "Read a receipt image and show the amounts found on it",
	Long: `Run the configured OCR backend (OCR_BACKEND) on one receipt image and print
the recognized text, every candidate amount and the amount that would be
selected for reconciliation.

Backends:
  vision      Google Cloud Vision (GOOGLE_VISION_API_KEY or service account)
  documentai  Google Document AI (GOOGLE_CLOUD_PROJECT, DOCUMENT_AI_PROCESSOR_ID)
  openai      OpenAI vision model (OPENAI_API_KEY)
  tesseract   Local Tesseract (TESSERACT_DATA_PATH, TESSERACT_LANGUAGES)`,
	Example: `  reimburse ocr struk.jpg
  OCR_BACKEND=tesseract reimburse ocr struk.png --json`,
	Args: cobra.ExactArgs(1),
	RunE: runOCR,
}

// OCROutput represents the JSON output structure when --json flag is used
type OCROutput struct {
	FileName           string  `json:"file_name"`
	FileSize           int64   `json:"file_size"`
	MimeType           string  `json:"mime_type"`
	Backend            string  `json:"backend"`
	Text               string  `json:"text"`
	CandidateAmounts   []int64 `json:"candidate_amounts"`
	SelectedAmount     *int64  `json:"selected_amount,omitempty"`
	ProcessingDuration string  `json:"processing_duration"`
}

func init() {
	rootCmd.AddCommand(ocrCmd)

	ocrCmd.Flags().Bool("json", false, "Output as JSON")
}

func runOCR(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("ocr")

	jsonOutput, _ := cmd.Flags().GetBool("json")
	imagePath := args[0]

	image, err := readInputFile(imagePath, log)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(timeoutFlag(cmd, cfg.AnalyzeTimeout), log)
	defer cancel()

	recognizer, err := newRecognizer(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create OCR backend: %w", err)
	}
	defer recognizer.Close()

	start := time.Now()
	text, err := recognizer.RecognizeText(ctx, image)
	if err != nil {
		return handleOCRError(err, log)
	}

	result := receipt.Build(filepath.Base(imagePath), text, nil)
	out := OCROutput{
		FileName:           filepath.Base(imagePath),
		FileSize:           int64(len(image)),
		MimeType:           ocr.DetectImageMime(image),
		Backend:            cfg.OCRBackend,
		Text:               text,
		CandidateAmounts:   result.CandidateAmounts,
		SelectedAmount:     result.SelectedAmount,
		ProcessingDuration: time.Since(start).String(),
	}

	log.Info().
		Str("file", imagePath).
		Int("text_length", len(text)).
		Int("candidates", len(out.CandidateAmounts)).
		Dur("duration", time.Since(start)).
		Msg("OCR completed")

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("File:    %s (%s, %d bytes)\n", out.FileName, out.MimeType, out.FileSize)
	fmt.Printf("Backend: %s\n", out.Backend)
	fmt.Println(strings.Repeat("=", 70))
	fmt.Println(text)
	fmt.Println(strings.Repeat("-", 70))
	if len(out.CandidateAmounts) == 0 {
		fmt.Println("No amounts found.")
		return nil
	}
	candidates := make([]string, len(out.CandidateAmounts))
	for i, v := range out.CandidateAmounts {
		candidates[i] = amount.FormatRupiah(v)
	}
	fmt.Printf("Candidates: %s\n", strings.Join(candidates, ", "))
	fmt.Printf("Selected:   %s\n", amount.FormatRupiah(*out.SelectedAmount))
	return nil
}

// readInputFile checks that path is a readable, non-empty regular file and
// returns its content.
func readInputFile(path string, log zerolog.Logger) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s", path)
		}
		if os.IsPermission(err) {
			return nil, fmt.Errorf("permission denied accessing file: %s", path)
		}
		return nil, fmt.Errorf("error accessing file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("path is not a regular file: %s", path)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("file is empty: %s", path)
	}

	log.Debug().Str("file", path).Int64("size", info.Size()).Msg("Reading input file")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

// handleOCRError turns backend errors into actionable messages.
func handleOCRError(err error, log zerolog.Logger) error {
	log.Error().Err(err).Msg("OCR failed")

	switch {
	case errors.Is(err, ocr.ErrMissingCredentials):
		return fmt.Errorf("OCR credentials are missing for backend %q: %w", cfg.OCRBackend, err)
	case errors.Is(err, ocr.ErrImageTooLarge):
		return fmt.Errorf("image exceeds the %d MB limit: %w", ocr.MaxImageSizeBytes/(1024*1024), err)
	case errors.Is(err, ocr.ErrContextCanceled):
		return fmt.Errorf("OCR was canceled or timed out: %w", err)
	default:
		return err
	}
}
