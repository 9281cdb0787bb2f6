// Package logger provides structured logging configuration using log/slog.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config holds logger configuration.
type Config struct {
	Level  slog.Level
	Format string // "text" or "json"

	// Output defaults to os.Stderr when nil
	Output io.Writer
}

// NewLogger creates a configured slog.Logger.
func NewLogger(cfg Config) *slog.Logger {
	var handler slog.Handler

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level: cfg.Level,
		// Add a source location for debug and error levels
		AddSource: cfg.Level <= slog.LevelDebug,
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	return slog.New(handler)
}

// ParseLevel maps a level name onto a slog level.
// Valid values: DEBUG, INFO, WARN, WARNING, ERROR. Anything else yields fallback.
func ParseLevel(name string, fallback slog.Level) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return fallback
	}
}

// DefaultConfig returns the default logger configuration.
// TUNECORE_LOG_LEVEL sets the level (default INFO) and
// TUNECORE_LOG_FORMAT selects "text" or "json" (default text).
func DefaultConfig() Config {
	format := "text"
	if strings.EqualFold(os.Getenv("TUNECORE_LOG_FORMAT"), "json") {
		format = "json"
	}

	return Config{
		Level:  ParseLevel(os.Getenv("TUNECORE_LOG_LEVEL"), slog.LevelInfo),
		Format: format,
	}
}
