package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSanitizeKVs(t *testing.T) {
	got := sanitizeKVs([]any{"user", "u1", "api_key", "sk-123", "Authorization", "Bearer x", "dangling"})
	assert.Equal(t, []any{"user", "u1", "api_key", "[REDACTED]", "Authorization", "[REDACTED]", "dangling"}, got)
}

func TestLoggerRedactsFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := &Logger{SugaredLogger: zap.New(core).Sugar()}

	l.With("pinecone_api_key", "pc-1").Info("upsert", "namespace", "docs")

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "[REDACTED]", fields["pinecone_api_key"])
	assert.Equal(t, "docs", fields["namespace"])
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New("dev", Options{Level: "loud"})
	assert.Error(t, err)

	l, err := New("prod", Options{Level: "warn", OutputPaths: []string{t.TempDir() + "/campus.log"}})
	require.NoError(t, err)
	l.Warn("ok")
	l.Sync()
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Info("ignored", "k", "v")
	l.With("a", 1).Error("ignored")
}
