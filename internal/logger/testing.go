// Package logger provides test helpers for structured logging.
package logger

import (
	"io"
	"log/slog"
	"os"
)

// NewTestLogger creates a logger for tests.
// Fault-injection tests log storage warnings on purpose, so output is
// discarded unless TEST_DEBUG is set, which enables debug logging to stdout.
func NewTestLogger() *slog.Logger {
	if os.Getenv("TEST_DEBUG") == "" {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	opts := &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
