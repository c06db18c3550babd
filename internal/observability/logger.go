package observability

import (
	"io"
	"log/slog"
	"os"
)

// NewLogger returns the process logger: human-readable debug output in dev,
// JSON at info level everywhere else. Every record carries service and env,
// plus trace ids when the context holds a span.
func NewLogger(env, service string) *slog.Logger {
	return newLogger(os.Stdout, env, service)
}

func newLogger(w io.Writer, env, service string) *slog.Logger {
	var handler slog.Handler
	if env == "dev" {
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug, AddSource: true})
	} else {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	}

	return slog.New(NewTraceHandler(handler)).With(
		slog.String("service", service),
		slog.String("env", env),
	)
}
