// Package config loads campus settings from the environment. Values can be
// placed in a .env file; variables already set in the process win.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/abhisek/campus/internal/llm"
)

// Config is the full runtime configuration.
type Config struct {
	// LogMode is "dev" (console) or "prod" (JSON).
	LogMode  string
	LogLevel string

	// DBPath is the SQLite file. Empty means store.DefaultDBPath.
	DBPath string

	// UserID identifies the local learner for CLI and TUI commands.
	UserID string

	// HTTPAddr is where `campus serve` listens.
	HTTPAddr string

	Relay  RelayConfig
	Ingest IngestConfig
	LLM    llm.Config
}

// RelayConfig configures the chat relay.
type RelayConfig struct {
	// WebhookURL, when set, sends chat turns to an external webhook instead
	// of the configured LLM provider.
	WebhookURL string

	// Retries is how many times a transient failure is retried.
	Retries int

	// InitialWait doubles on every retry.
	InitialWait time.Duration

	// Timeout bounds one upstream call.
	Timeout time.Duration
}

// IngestConfig configures document ingestion.
type IngestConfig struct {
	UploadDir     string
	MaxTextLength int
	MaxFileSize   int64

	PineconeHost      string
	PineconeAPIKey    string
	PineconeNamespace string
}

// Default returns a Config with defaults for every field.
func Default() Config {
	return Config{
		LogMode:  "dev",
		LogLevel: "info",
		UserID:   "local",
		HTTPAddr: ":8080",
		Relay: RelayConfig{
			Retries:     3,
			InitialWait: time.Second,
			Timeout:     30 * time.Second,
		},
		Ingest: IngestConfig{
			MaxTextLength:     8000,
			MaxFileSize:       10 << 20,
			PineconeNamespace: "campus",
		},
		LLM: llm.DefaultConfig(),
	}
}

// LoadEnvFile loads variables from path without overriding the process
// environment. A missing file is only an error when required is true.
func LoadEnvFile(path string, required bool) error {
	if path == "" {
		path = ".env"
	}
	err := godotenv.Load(path)
	if err == nil {
		return nil
	}
	if !required && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load env file %s: %w", path, err)
}

// FromEnv builds a Config from CAMPUS_* variables on top of Default.
func FromEnv() Config {
	cfg := Default()

	cfg.LogMode = envString("CAMPUS_LOG_MODE", cfg.LogMode)
	cfg.LogLevel = envString("CAMPUS_LOG_LEVEL", cfg.LogLevel)
	cfg.DBPath = envString("CAMPUS_DB", cfg.DBPath)
	cfg.UserID = envString("CAMPUS_USER", cfg.UserID)
	cfg.HTTPAddr = envString("CAMPUS_HTTP_ADDR", cfg.HTTPAddr)

	cfg.Relay.WebhookURL = envString("CAMPUS_CHAT_WEBHOOK_URL", cfg.Relay.WebhookURL)
	cfg.Relay.Retries = envInt("CAMPUS_CHAT_RETRIES", cfg.Relay.Retries)
	cfg.Relay.InitialWait = envDuration("CAMPUS_CHAT_RETRY_WAIT", cfg.Relay.InitialWait)
	cfg.Relay.Timeout = envDuration("CAMPUS_CHAT_TIMEOUT", cfg.Relay.Timeout)

	cfg.Ingest.UploadDir = envString("CAMPUS_UPLOAD_DIR", cfg.Ingest.UploadDir)
	cfg.Ingest.MaxTextLength = envInt("CAMPUS_MAX_TEXT_LENGTH", cfg.Ingest.MaxTextLength)
	cfg.Ingest.MaxFileSize = int64(envInt("CAMPUS_MAX_FILE_SIZE", int(cfg.Ingest.MaxFileSize)))
	cfg.Ingest.PineconeHost = envString("CAMPUS_PINECONE_HOST", cfg.Ingest.PineconeHost)
	cfg.Ingest.PineconeAPIKey = envString("CAMPUS_PINECONE_API_KEY", cfg.Ingest.PineconeAPIKey)
	cfg.Ingest.PineconeNamespace = envString("CAMPUS_PINECONE_NAMESPACE", cfg.Ingest.PineconeNamespace)

	cfg.LLM = llm.ConfigFromEnv()
	return cfg
}

// Validate checks the settings every command relies on. Provider keys are
// checked by the commands that need a provider.
func (c Config) Validate() error {
	var errs []error
	switch c.LogMode {
	case "dev", "prod":
	default:
		errs = append(errs, fmt.Errorf("CAMPUS_LOG_MODE must be dev or prod, got %q", c.LogMode))
	}
	if strings.TrimSpace(c.UserID) == "" {
		errs = append(errs, errors.New("CAMPUS_USER must not be empty"))
	}
	if c.Relay.Retries < 0 {
		errs = append(errs, fmt.Errorf("CAMPUS_CHAT_RETRIES must be >= 0, got %d", c.Relay.Retries))
	}
	if c.Relay.WebhookURL != "" {
		u, err := url.Parse(c.Relay.WebhookURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("CAMPUS_CHAT_WEBHOOK_URL is not an http(s) URL: %q", c.Relay.WebhookURL))
		}
	}
	if c.Ingest.MaxTextLength <= 0 {
		errs = append(errs, fmt.Errorf("CAMPUS_MAX_TEXT_LENGTH must be positive, got %d", c.Ingest.MaxTextLength))
	}
	if c.Ingest.MaxFileSize <= 0 {
		errs = append(errs, fmt.Errorf("CAMPUS_MAX_FILE_SIZE must be positive, got %d", c.Ingest.MaxFileSize))
	}
	if (c.Ingest.PineconeHost == "") != (c.Ingest.PineconeAPIKey == "") {
		errs = append(errs, errors.New("CAMPUS_PINECONE_HOST and CAMPUS_PINECONE_API_KEY must be set together"))
	}
	return errors.Join(errs...)
}

func envString(name, def string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	return def
}

func envInt(name string, def int) int {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

// envDuration accepts Go durations ("1500ms") or whole seconds ("2").
func envDuration(name string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if s, err := strconv.Atoi(v); err == nil {
		return time.Duration(s) * time.Second
	}
	return def
}
