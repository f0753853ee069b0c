package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"reimburse/internal/audit"
	"reimburse/internal/config"
	"reimburse/internal/export"
	"reimburse/internal/mail"
	"reimburse/internal/ocr"
	"reimburse/internal/ocr/tesseract"
	"reimburse/internal/pdftext"
	"reimburse/internal/server"
	"reimburse/internal/sheets"
)

func googleCredentials(c *config.Config) ocr.GoogleCredentials {
	return ocr.GoogleCredentials{
		APIKey:          c.GoogleVisionAPIKey,
		CredentialsJSON: c.GoogleCredentials,
		CredentialsFile: c.GoogleCredentialsFile,
	}
}

// newRecognizer creates the OCR backend selected by OCR_BACKEND.
func newRecognizer(ctx context.Context, c *config.Config, log zerolog.Logger) (ocr.Recognizer, error) {
	if err := c.ValidateOCR(); err != nil {
		return nil, err
	}

	log.Debug().Str("backend", c.OCRBackend).Msg("Creating OCR backend")

	switch c.OCRBackend {
	case config.OCRBackendDocumentAI:
		return ocr.NewDocumentAIRecognizer(ctx, ocr.DocumentAIConfig{
			ProjectID:   c.GoogleCloudProject,
			Location:    c.GoogleCloudLocation,
			ProcessorID: c.DocumentAIProcessorID,
			Credentials: googleCredentials(c),
		})
	case config.OCRBackendOpenAI:
		return ocr.NewOpenAIRecognizer(c.OpenAIAPIKey, c.OpenAIModel)
	case config.OCRBackendTesseract:
		return tesseract.New(c.TesseractDataPath, c.TesseractLanguages), nil
	default:
		return ocr.NewVisionRecognizer(ctx, googleCredentials(c))
	}
}

// newExtractor creates the PDF page reader. The OCR fallback for image-only
// forms is disabled with PDF_OCR_FALLBACK=false.
func newExtractor(c *config.Config, recognizer ocr.Recognizer) *pdftext.Extractor {
	var fallback ocr.Recognizer
	if c.PDFOCRFallback {
		fallback = recognizer
	}
	return pdftext.NewExtractor(pdftext.ExtractorConfig{
		DPI:         c.PDFRenderDPI,
		MaxOCRPages: c.PDFMaxOCRPages,
	}, fallback)
}

func newMailbox(ctx context.Context, c *config.Config) (*mail.GmailClient, error) {
	if err := c.ValidateMail(); err != nil {
		return nil, err
	}
	return mail.NewGmailClient(ctx, c.GmailTokenPath)
}

// newAnalyzer wires the mailbox, PDF reader and OCR backend. The returned
// close function releases the OCR backend.
func newAnalyzer(ctx context.Context, c *config.Config, log zerolog.Logger) (*audit.Analyzer, func(), error) {
	mailbox, err := newMailbox(ctx, c)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create mail client: %w", err)
	}

	recognizer, err := newRecognizer(ctx, c, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create OCR backend: %w", err)
	}
	closeFn := func() {
		if err := recognizer.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close OCR backend")
		}
	}

	return audit.NewAnalyzer(mailbox, newExtractor(c, recognizer), recognizer), closeFn, nil
}

// buildSinks opens every configured export target. It returns nil when
// nothing is configured.
func buildSinks(ctx context.Context, c *config.Config, log zerolog.Logger) (export.Sink, error) {
	var sinks export.MultiSink

	closeAll := func() {
		if err := sinks.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close export sinks")
		}
	}

	if c.GoogleSheetURL != "" {
		svc, err := sheets.NewSheetsService(ctx, c.GoogleSheetURL, c.GoogleSheetWorksheet, sheets.Credentials{
			JSON: c.GoogleCredentials,
			File: c.GoogleCredentialsFile,
		})
		if err != nil {
			closeAll()
			return nil, err
		}
		sinks = append(sinks, svc)
	}

	if c.XLSXPath != "" {
		sinks = append(sinks, export.NewXLSXSink(c.XLSXPath, c.GoogleSheetWorksheet))
	}

	if c.SQLitePath != "" {
		sink, err := export.NewSQLiteSink(c.SQLitePath)
		if err != nil {
			closeAll()
			return nil, err
		}
		sinks = append(sinks, sink)
	}

	if c.MongoURI != "" {
		sink, err := export.ConnectMongo(ctx, c.MongoURI, c.MongoDatabase, c.MongoCollection)
		if err != nil {
			closeAll()
			return nil, err
		}
		sinks = append(sinks, sink)
	}

	if len(sinks) == 0 {
		return nil, nil
	}

	log.Info().Int("sinks", len(sinks)).Msg("Export enabled")
	return sinks, nil
}

// writeRows exports rows when a sink is configured. It ignores cancellation
// of ctx so the row of a timed-out analysis is still stored. Failures are
// logged.
func writeRows(ctx context.Context, sink export.Sink, rows []export.Row, log zerolog.Logger) {
	if sink == nil || len(rows) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), server.ExportTimeout)
	defer cancel()

	if err := sink.Write(ctx, rows); err != nil {
		log.Error().Err(err).Int("rows", len(rows)).Msg("Failed to export audit rows")
		return
	}
	log.Info().Int("rows", len(rows)).Msg("Exported audit rows")
}
