// Package logger constructs the process-wide structured logger.
package logger

import (
	"log/slog"
	"os"
)

// New returns a JSON slog logger writing to stdout.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}

// NewDiscard returns a logger that drops everything; handy in tests.
func NewDiscard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
