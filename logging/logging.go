// Package logging configures the process-wide structured logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Init builds a JSON slog logger at the given level ("debug", "info",
// "warn", "error"; anything else falls back to info), installs it as the
// default and returns it.
func Init(levelStr string) *slog.Logger {
	return InitWriter(os.Stderr, levelStr)
}

// InitWriter is Init with an explicit destination, for tests.
func InitWriter(w io.Writer, levelStr string) *slog.Logger {
	level, ok := parseLevel(levelStr)

	log := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)
	if !ok {
		log.Warn("unknown log level, using info", "configured", levelStr)
	}
	return log
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}
