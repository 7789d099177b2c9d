package testutil

import (
	"io"
	"log/slog"
)

// Logger returns a quiet logger for tests (warnings and above only).
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn}))
}
