// Package logging configures the process-wide structured logger: plain-text
// slog records to stdout and, when a path is given, the same records
// appended to a log file in the app data directory.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

type Config struct {
	Debug   bool
	LogFile string
}

// New builds the root logger. The returned closer flushes and closes the
// log file, if any; it is safe to call on a nil-file logger.
func New(cfg Config) (*slog.Logger, func() error, error) {
	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}

	var w io.Writer = os.Stdout
	closer := func() error { return nil }

	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w = io.MultiWriter(os.Stdout, f)
		closer = f.Close
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(handler), closer, nil
}
