package logger

import (
	"log/slog"
	"os"
)

// New returns a JSON slog logger writing to stdout. Components derive their
// own loggers with With("component", ...).
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}
