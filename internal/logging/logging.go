// Package logging configures structured JSON logging with size-based
// file rotation.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config controls log output.
type Config struct {
	// Level is the minimum level to emit: debug, info, warn, error.
	Level string

	// FilePath is the log file location. Empty means DefaultLogPath().
	FilePath string

	// MaxSizeMB is the file size threshold for rotation.
	MaxSizeMB int

	// MaxFiles is the number of rotated files to keep.
	MaxFiles int

	// WriteToStderr mirrors log output to stderr in addition to the
	// file. Useful under `serve` in a terminal; off for piped use.
	WriteToStderr bool
}

// DefaultConfig returns the standard logging configuration.
func DefaultConfig() Config {
	return Config{
		Level:     "info",
		FilePath:  DefaultLogPath(),
		MaxSizeMB: 10,
		MaxFiles:  5,
	}
}

// DebugConfig returns a configuration with debug level and stderr
// mirroring enabled.
func DebugConfig() Config {
	cfg := DefaultConfig()
	cfg.Level = "debug"
	cfg.WriteToStderr = true
	return cfg
}

// Setup initializes the global slog logger from cfg. It returns the
// logger and a cleanup function that flushes and closes the log file.
func Setup(cfg Config) (*slog.Logger, func(), error) {
	path := cfg.FilePath
	if path == "" {
		path = DefaultLogPath()
	}

	rotating, err := NewRotatingWriter(path, cfg.MaxSizeMB, cfg.MaxFiles)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create log writer: %w", err)
	}

	var w io.Writer = rotating
	if cfg.WriteToStderr {
		w = io.MultiWriter(rotating, os.Stderr)
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	cleanup := func() {
		_ = rotating.Sync()
		_ = rotating.Close()
	}
	return logger, cleanup, nil
}

// SetupDefault initializes logging with the default configuration.
func SetupDefault() (*slog.Logger, func(), error) {
	return Setup(DefaultConfig())
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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
