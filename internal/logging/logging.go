// Package logging provides structured JSON logging for capgenie.
// It uses the standard library log/slog package for structured logging, with
// an optional size-rotated log file.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation settings for the log file.
const (
	MaxFileSizeMB = 20
	MaxBackups    = 3
	MaxAgeDays    = 28
)

// ParseLevel maps a level name to a slog level. Unknown names mean info.
// Supported levels: debug, info, warn, error
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// NewLogger creates a new structured JSON logger writing to stderr with the
// specified log level. Stdout is left to command output.
func NewLogger(level string) *slog.Logger {
	return New(os.Stderr, level)
}

// New creates a JSON logger writing to w.
func New(w io.Writer, level string) *slog.Logger {
	lvl := ParseLevel(level)
	opts := &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl == slog.LevelDebug,
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// NewLoggerWithFile logs to stderr and to a rotating file at path. The
// returned closer flushes and closes the file.
func NewLoggerWithFile(level, path string) (*slog.Logger, io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, nil, err
	}
	file := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    MaxFileSizeMB,
		MaxBackups: MaxBackups,
		MaxAge:     MaxAgeDays,
		Compress:   true,
	}
	return New(io.MultiWriter(os.Stderr, file), level), file, nil
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// OrDiscard returns logger, or a discarding logger when it is nil.
func OrDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return Discard()
	}
	return logger
}

// WithRequestID returns a logger with request_id attribute
func WithRequestID(logger *slog.Logger, requestID string) *slog.Logger {
	return logger.With("request_id", requestID)
}

// WithComponent returns a logger with component attribute
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	return logger.With("component", component)
}

// WithProject returns a logger with the project directory, home-relative.
func WithProject(logger *slog.Logger, dir string) *slog.Logger {
	return logger.With("project", SanitizePath(dir))
}

// SanitizeToken masks a token for safe logging.
// Shows first 4 and last 4 characters only.
// Returns "****" for tokens shorter than 8 characters.
func SanitizeToken(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

// SanitizePath replaces the home directory prefix with ~.
func SanitizePath(path string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	if path == home || strings.HasPrefix(path, home+string(filepath.Separator)) {
		return "~" + path[len(home):]
	}
	return path
}
