package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Valid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 8000, cfg.Ingest.MaxTextLength)
	assert.Equal(t, 3, cfg.Relay.Retries)
	assert.Equal(t, time.Second, cfg.Relay.InitialWait)
}

func TestFromEnv(t *testing.T) {
	t.Setenv("CAMPUS_USER", "ada")
	t.Setenv("CAMPUS_DB", "/tmp/campus-test.db")
	t.Setenv("CAMPUS_LOG_MODE", "prod")
	t.Setenv("CAMPUS_CHAT_RETRIES", "5")
	t.Setenv("CAMPUS_CHAT_RETRY_WAIT", "250ms")
	t.Setenv("CAMPUS_CHAT_TIMEOUT", "7")
	t.Setenv("CAMPUS_MAX_TEXT_LENGTH", "120")
	t.Setenv("CAMPUS_LLM_PROVIDER", "mock")

	cfg := FromEnv()
	assert.Equal(t, "ada", cfg.UserID)
	assert.Equal(t, "/tmp/campus-test.db", cfg.DBPath)
	assert.Equal(t, "prod", cfg.LogMode)
	assert.Equal(t, 5, cfg.Relay.Retries)
	assert.Equal(t, 250*time.Millisecond, cfg.Relay.InitialWait)
	assert.Equal(t, 7*time.Second, cfg.Relay.Timeout)
	assert.Equal(t, 120, cfg.Ingest.MaxTextLength)
	assert.Equal(t, "mock", cfg.LLM.Provider)
	require.NoError(t, cfg.Validate())
}

func TestFromEnv_BadNumbersFallBack(t *testing.T) {
	t.Setenv("CAMPUS_CHAT_RETRIES", "lots")
	t.Setenv("CAMPUS_CHAT_RETRY_WAIT", "soon")

	cfg := FromEnv()
	assert.Equal(t, 3, cfg.Relay.Retries)
	assert.Equal(t, time.Second, cfg.Relay.InitialWait)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"log mode", func(c *Config) { c.LogMode = "verbose" }},
		{"blank user", func(c *Config) { c.UserID = "  " }},
		{"negative retries", func(c *Config) { c.Relay.Retries = -1 }},
		{"webhook scheme", func(c *Config) { c.Relay.WebhookURL = "ftp://hooks.example.com/chat" }},
		{"webhook host", func(c *Config) { c.Relay.WebhookURL = "https://" }},
		{"text length", func(c *Config) { c.Ingest.MaxTextLength = 0 }},
		{"file size", func(c *Config) { c.Ingest.MaxFileSize = -1 }},
		{"pinecone half set", func(c *Config) { c.Ingest.PineconeHost = "idx.svc.pinecone.io" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "campus.env")
	require.NoError(t, os.WriteFile(path, []byte("CAMPUS_TEST_FROM_FILE=yes\nCAMPUS_TEST_PRESET=file\n"), 0o600))

	t.Setenv("CAMPUS_TEST_PRESET", "process")
	t.Cleanup(func() { os.Unsetenv("CAMPUS_TEST_FROM_FILE") })

	require.NoError(t, LoadEnvFile(path, true))
	assert.Equal(t, "yes", os.Getenv("CAMPUS_TEST_FROM_FILE"))
	assert.Equal(t, "process", os.Getenv("CAMPUS_TEST_PRESET"), "process environment wins")
}

func TestLoadEnvFile_Missing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.env")
	assert.NoError(t, LoadEnvFile(missing, false))
	assert.Error(t, LoadEnvFile(missing, true))
}
