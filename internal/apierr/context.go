package apierr

import (
	"context"
	"net/http"
	"time"
)

type requestIDKey struct{}
type startTimeKey struct{}

// WithRequestID attaches a request id to the context (set by reqctx's
// request-id middleware, the first middleware in the chain).
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// WithStartTime attaches the time the request began being handled, used
// to compute meta.durationMs.
func WithStartTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, startTimeKey{}, t)
}

// RequestIDFromRequest reads the request id out of the request's context.
func RequestIDFromRequest(r *http.Request) string {
	if id, ok := r.Context().Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// DurationMsFromRequest computes elapsed milliseconds since WithStartTime,
// or zero if no start time was recorded.
func DurationMsFromRequest(r *http.Request) int64 {
	if start, ok := r.Context().Value(startTimeKey{}).(time.Time); ok {
		return time.Since(start).Milliseconds()
	}
	return 0
}
