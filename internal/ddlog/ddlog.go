// Package ddlog is the ambient structured logger for the scan engine.
// It has no GUI sink; embedding shells are expected to capture stderr
// or install their own slog handler via SetHandler.
package ddlog

import (
	"log/slog"
	"os"
	"strings"
)

// Log is the global logger instance.
var Log *slog.Logger

// level is the dynamic log level, changeable at runtime via SetLevel.
var level slog.LevelVar

func init() {
	Log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: &level,
	}))
}

// SetLevel changes the log level at runtime. Valid values: debug, info,
// warn, error. Invalid values fall back to info.
func SetLevel(levelStr string) {
	var lvl slog.Level
	switch strings.ToLower(levelStr) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	level.Set(lvl)
}

// SetHandler lets an embedding shell redirect log output to its own
// slog.Handler (e.g. to route into a GUI's own log viewer).
func SetHandler(h slog.Handler) {
	Log = slog.New(h)
}

func Debug(msg string, args ...any) {
	if Log != nil {
		Log.Debug(msg, args...)
	}
}

func Info(msg string, args ...any) {
	if Log != nil {
		Log.Info(msg, args...)
	}
}

func Warn(msg string, args ...any) {
	if Log != nil {
		Log.Warn(msg, args...)
	}
}

func Error(msg string, args ...any) {
	if Log != nil {
		Log.Error(msg, args...)
	}
}
