package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"reimburse/internal/logger"
)

// OCR backends.
const (
	OCRBackendVision     = "vision"
	OCRBackendDocumentAI = "documentai"
	OCRBackendOpenAI     = "openai"
	OCRBackendTesseract  = "tesseract"
)

// Config is read once at startup and treated as read-only afterwards.
// Every key can be set as an upper-case environment variable (OCR_BACKEND)
// or as a lower-case key in the optional YAML file (ocr_backend).
type Config struct {
	// Gmail
	GmailTokenPath  string `mapstructure:"gmail_token_path"`
	GmailQuery      string `mapstructure:"gmail_query"`
	GmailMaxResults int64  `mapstructure:"gmail_max_results"`

	// OCR
	OCRBackend            string   `mapstructure:"ocr_backend"`
	GoogleVisionAPIKey    string   `mapstructure:"google_vision_api_key"`
	GoogleCredentials     string   `mapstructure:"google_credentials"`
	GoogleCredentialsFile string   `mapstructure:"google_application_credentials"`
	GoogleCloudProject    string   `mapstructure:"google_cloud_project"`
	GoogleCloudLocation   string   `mapstructure:"google_cloud_location"`
	DocumentAIProcessorID string   `mapstructure:"document_ai_processor_id"`
	OpenAIAPIKey          string   `mapstructure:"openai_api_key"`
	OpenAIModel           string   `mapstructure:"openai_model"`
	TesseractDataPath     string   `mapstructure:"tesseract_data_path"`
	TesseractLanguages    []string `mapstructure:"tesseract_languages"`

	// PDF
	PDFOCRFallback bool    `mapstructure:"pdf_ocr_fallback"`
	PDFRenderDPI   float64 `mapstructure:"pdf_render_dpi"`
	PDFMaxOCRPages int     `mapstructure:"pdf_max_ocr_pages"`

	// Batch and timeouts
	Workers        int           `mapstructure:"workers"`
	AnalyzeTimeout time.Duration `mapstructure:"analyze_timeout"`

	// Export
	GoogleSheetURL       string `mapstructure:"google_sheet_url"`
	GoogleSheetWorksheet string `mapstructure:"google_sheet_worksheet"`
	XLSXPath             string `mapstructure:"xlsx_path"`
	SQLitePath           string `mapstructure:"sqlite_path"`
	MongoURI             string `mapstructure:"mongo_uri"`
	MongoDatabase        string `mapstructure:"mongo_database"`
	MongoCollection      string `mapstructure:"mongo_collection"`

	// HTTP server
	ServerAddr string `mapstructure:"server_addr"`
	GinMode    string `mapstructure:"gin_mode"`

	// Logging
	LogLevel      string `mapstructure:"log_level"`
	LogFormat     string `mapstructure:"log_format"`
	LogTimeFormat string `mapstructure:"log_time_format"`
	LogOutput     string `mapstructure:"log_output"`
}

var defaults = map[string]interface{}{
	"gmail_token_path":  "token.json",
	"gmail_query":       "subject:reimbursement OR subject:claim",
	"gmail_max_results": 10,

	"ocr_backend":                    OCRBackendVision,
	"google_vision_api_key":          "",
	"google_credentials":             "",
	"google_application_credentials": "",
	"google_cloud_project":           "",
	"google_cloud_location":          "us",
	"document_ai_processor_id":       "",
	"openai_api_key":                 "",
	"openai_model":                   "gpt-4o-mini",
	"tesseract_data_path":            "",
	"tesseract_languages":            []string{"ind", "eng"},

	"pdf_ocr_fallback":  true,
	"pdf_render_dpi":    200.0,
	"pdf_max_ocr_pages": 5,

	"workers":         4,
	"analyze_timeout": 2 * time.Minute,

	"google_sheet_url":       "",
	"google_sheet_worksheet": "Audit",
	"xlsx_path":              "",
	"sqlite_path":            "",
	"mongo_uri":              "",
	"mongo_database":         "reimburse",
	"mongo_collection":       "audits",

	"server_addr": ":8080",
	"gin_mode":    "release",

	"log_level":       "info",
	"log_format":      "console",
	"log_time_format": "2006-01-02T15:04:05Z07:00",
	"log_output":      "stdout",
}

// Load reads configuration from the environment and, when path is not
// empty, from a YAML file. Environment variables take precedence.
func Load(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.OCRBackend = strings.ToLower(strings.TrimSpace(cfg.OCRBackend))

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.OCRBackend {
	case OCRBackendVision, OCRBackendDocumentAI, OCRBackendOpenAI, OCRBackendTesseract:
	default:
		return fmt.Errorf("OCR_BACKEND must be one of vision, documentai, openai, tesseract; got %q", c.OCRBackend)
	}
	if c.Workers < 1 {
		return fmt.Errorf("WORKERS must be at least 1")
	}
	if c.GmailMaxResults < 1 {
		return fmt.Errorf("GMAIL_MAX_RESULTS must be at least 1")
	}
	return nil
}

// ValidateMail checks the settings needed to read the mailbox.
func (c *Config) ValidateMail() error {
	if c.GmailTokenPath == "" {
		return fmt.Errorf("GMAIL_TOKEN_PATH is required")
	}
	return nil
}

// ValidateOCR checks the settings of the selected OCR backend.
func (c *Config) ValidateOCR() error {
	switch c.OCRBackend {
	case OCRBackendDocumentAI:
		if c.GoogleCloudProject == "" {
			return fmt.Errorf("GOOGLE_CLOUD_PROJECT is required for the documentai backend")
		}
		if c.DocumentAIProcessorID == "" {
			return fmt.Errorf("DOCUMENT_AI_PROCESSOR_ID is required for the documentai backend")
		}
	case OCRBackendOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for the openai backend")
		}
	}
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}
