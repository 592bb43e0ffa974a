package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Setup installs the global JSON logger. Boot logs go straight to stdout;
// main later swaps in a MultiHandler once the database sink is ready.
func Setup() {
	slog.SetDefault(slog.New(StdoutHandler()))
}

// StdoutHandler is the JSON stdout handler shared by Setup and the
// post-boot MultiHandler configuration.
func StdoutHandler() slog.Handler {
	return slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: levelFromEnv(),
	})
}

func levelFromEnv() slog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
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
