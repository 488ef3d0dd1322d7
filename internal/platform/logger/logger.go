// Package logger sets up the process-wide slog handler and provides small
// attribute helpers used across services.
package logger

import (
	"log/slog"
	"os"
)

const (
	envDevelopment = "development"
	envProduction  = "production"
)

// New returns a logger tuned for the environment: text at debug level while
// developing, JSON at info level in production.
func New(env string) *slog.Logger {
	switch env {
	case envProduction:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	case envDevelopment:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
}

// Err creates a slog.Attr with the given error.
func Err(err error) slog.Attr {
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}
