package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/m-mizutani/clog"
	slogmulti "github.com/samber/slog-multi"
)

// ParseLevel converts a LOG_LEVEL value to slog.Level. Unknown values map to
// info.
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

// SetupLogger builds the process logger from LOG_FORMAT, LOG_LEVEL and
// LOG_FILE. The returned cleanup closes the log file, if one was opened.
func SetupLogger(cfg *Config, out io.Writer) (*slog.Logger, func() error, error) {
	level := ParseLevel(cfg.LogLevel)
	primary := newHandler(cfg.LogFormat, out, level)

	if cfg.LogFile == "" {
		return slog.New(primary), func() error { return nil }, nil
	}

	file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return NewFanoutLogger(primary, file, level), file.Close, nil
}

// NewFanoutLogger sends every record to primary and, as JSON, to w.
func NewFanoutLogger(primary slog.Handler, w io.Writer, level slog.Level) *slog.Logger {
	fileHandler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(slogmulti.Fanout(primary, fileHandler))
}

func newHandler(format string, w io.Writer, level slog.Level) slog.Handler {
	if strings.EqualFold(format, "console") {
		return clog.New(
			clog.WithWriter(w),
			clog.WithLevel(level),
			clog.WithTimeFmt("15:04:05"),
			clog.WithSource(false),
		)
	}
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
}
