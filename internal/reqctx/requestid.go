// Package reqctx provides the request envelope machinery that sits outside
// the core (§6 of the design): request id assignment, per-IP rate limiting for
// auth endpoints, and the request-scoped principal used by internal/authn.
// Grounded on core/pkg/auth/requestid.go and core/pkg/api/middleware.go.
package reqctx

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/fleetintel/core/internal/apierr"
	"github.com/fleetintel/core/internal/obs"
)

// RequestID is the outermost middleware: it must run before any handler
// that calls apierr.Write*, since those read the request id back out of
// the context.
func RequestID(baseLogger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := uuid.NewString()
			ctx := apierr.WithRequestID(r.Context(), id)
			ctx = apierr.WithStartTime(ctx, time.Now())
			ctx = obs.WithRequestID(ctx, baseLogger, id)
			w.Header().Set("X-Request-Id", id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
