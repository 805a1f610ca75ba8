package logger

import (
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

var current atomic.Pointer[slog.Logger]

func init() {
	current.Store(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))
}

// Init replaces the process logger with one filtering at the given level.
func Init(level slog.Level) {
	current.Store(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}

// ParseLevel maps a level name to a slog.Level, defaulting to info.
func ParseLevel(value string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
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

func Debug(msg string, args ...any) { current.Load().Debug(msg, args...) }

func Info(msg string, args ...any) { current.Load().Info(msg, args...) }

func Warn(msg string, args ...any) { current.Load().Warn(msg, args...) }

func Error(msg string, args ...any) { current.Load().Error(msg, args...) }
