// Package obs wraps log/slog with the request-scoped conventions used
// throughout the HTTP and store layers: structured fields, never an
// interpolated error string.
package obs

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

type ctxKey struct{}

// New builds the process-wide base logger from LOG_LEVEL/LOG_PRETTY.
func New(level string, pretty bool) *slog.Logger {
	var lvl slog.Level
	switch strings.ToUpper(level) {
	case "DEBUG":
		lvl = slog.LevelDebug
	case "WARN":
		lvl = slog.LevelWarn
	case "ERROR":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if pretty {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

// WithRequestID returns a context carrying a logger annotated with the
// given request id, so downstream log calls always include it.
func WithRequestID(ctx context.Context, base *slog.Logger, requestID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, base.With("request_id", requestID))
}

// FromContext returns the request-scoped logger, falling back to the
// default logger if none was attached.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}
