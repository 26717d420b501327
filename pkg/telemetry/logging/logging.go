package logging

import (
	"io"
	"log/slog"
	"os"
)

// New builds a JSON slog.Logger at the given level ("debug", "info",
// "warn", "error"; unrecognized values fall back to info) and installs
// it via slog.SetDefault. w defaults to os.Stdout when nil.
func New(level string, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: parseLevel(level),
	}))
	slog.SetDefault(logger)
	return logger
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
