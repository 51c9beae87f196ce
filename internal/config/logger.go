package config

import (
	"io"
	"log/slog"
	"os"
)

const serviceName = "emojify"

func NewLogger(env string) *slog.Logger {
	return newLogger(os.Stdout, env)
}

// newLogger writes JSON at info level in production and text at debug level
// elsewhere. Every record carries the service name.
func newLogger(w io.Writer, env string) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		AddSource: env == "development",
	}

	if env == "production" {
		opts.Level = slog.LevelInfo
		handler = slog.NewJSONHandler(w, opts)
	} else {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler).With(slog.String("service", serviceName))
}
