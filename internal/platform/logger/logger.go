package logger

import (
	"log/slog"
	"os"
)

// New returns a structured text logger writing to stdout.
func New() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}
