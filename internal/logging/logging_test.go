package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in).Level(), in)
	}
}

func TestNewLoggerToJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "warn", "json")

	logger.Info("hidden")
	logger.Warn("payment confirmed", "payment_id", "01J")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "payment confirmed", entry["msg"])
	assert.Equal(t, "01J", entry["payment_id"])
	assert.Equal(t, "ai-bot", entry["app"])
}

func TestNewLoggerToText(t *testing.T) {
	var buf bytes.Buffer
	NewLoggerTo(&buf, "debug", "text").Debug("quota checked", "service", "chat")
	assert.Contains(t, buf.String(), "msg=\"quota checked\"")
	assert.Contains(t, buf.String(), "service=chat")
}
