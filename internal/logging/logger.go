package logging

import (
	"log/slog"
	"os"
)

// Setup initializes the global slog logger with JSON output to stdout.
func Setup() {
	slog.SetDefault(slog.New(stdoutHandler()))
}

// WithDB fans ERROR+ records into system_logs next to stdout. The caller owns
// h and stops it on shutdown.
func WithDB(h *DBHandler) {
	slog.SetDefault(slog.New(NewMultiHandler(stdoutHandler(), h)))
}

func stdoutHandler() slog.Handler {
	return slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
}
