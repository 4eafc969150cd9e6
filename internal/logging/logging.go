package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// NewLogger initialises a text slog.Logger on stdout with the provided level string.
func NewLogger(levelStr string) *slog.Logger {
	return NewLoggerTo(os.Stdout, levelStr, "text")
}

// NewLoggerTo writes to w. format is "json" or "text"; anything else means text.
func NewLoggerTo(w io.Writer, levelStr, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(levelStr)}
	var handler slog.Handler
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler).With("app", "ai-bot")
}

func parseLevel(levelStr string) slog.Leveler {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
