// Package logging configures the process-wide slog logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Init configures the global slog default with the given level and format.
// If w is nil, os.Stderr is used. Format is "text" or "json".
func Init(level slog.Level, format string, w ...io.Writer) {
	var writer io.Writer = os.Stderr
	if len(w) > 0 && w[0] != nil {
		writer = w[0]
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(writer, opts)
	default:
		handler = slog.NewTextHandler(writer, opts)
	}

	slog.SetDefault(slog.New(handler))
}

// New returns a logger with a "component" attribute.
func New(component string) *slog.Logger {
	return slog.Default().With(slog.String("component", component))
}

// ParseLevel accepts debug, info, warn and error (any case).
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// FileConfig describes a rotating log file.
type FileConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	Compress   bool
}

// RotatingFile returns a size-rotated writer for long batch runs. Sizes of
// zero fall back to 50 MB and three backups.
func RotatingFile(cfg FileConfig) io.WriteCloser {
	size, backups := cfg.MaxSizeMB, cfg.MaxBackups
	if size <= 0 {
		size = 50
	}
	if backups <= 0 {
		backups = 3
	}
	return &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    size,
		MaxBackups: backups,
		Compress:   cfg.Compress,
	}
}
