package mylog

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

type Logger = slog.Logger

func ToLogLevel(logLevel string) slog.Level {
	switch logLevel {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func NewLogger(logLevel string, logHandler string) *Logger {
	slogLevel := ToLogLevel(logLevel)

	var handler slog.Handler
	switch logHandler {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			AddSource: true,
			Level:     slogLevel,
		})
	default:
		handler = newHandler(slogLevel, os.Stderr)
	}

	return slog.New(handler)
}

func newHandler(level slog.Level, w io.Writer) slog.Handler {
	return tint.NewHandler(w, &tint.Options{
		AddSource:  level <= slog.LevelDebug,
		Level:      level,
		TimeFormat: time.Kitchen,
	})
}

// Err is the attribute used for errors across the module.
func Err(err error) slog.Attr {
	return tint.Err(err)
}

// OrDefault returns logger, or slog.Default() when it is nil.
func OrDefault(logger *Logger) *Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

// Discard is a logger that drops everything. Tests use it to keep output quiet.
func Discard() *Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
