package httpapi

import (
	"net/http"

	"github.com/fleetintel/core/internal/apierr"
	"github.com/fleetintel/core/internal/reqctx"
)

// requireRole rejects a request whose resolved principal doesn't meet
// min, after authn.Resolver.Middleware has already run (so
// PrincipalFromContext is always non-nil here).
func requireRole(min reqctx.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := reqctx.PrincipalFromContext(r.Context())
			if p == nil || !p.Role.AtLeast(min) {
				apierr.WriteErrorCode(w, r, apierr.InsufficientRank,
					"this operation requires at least "+min.String()+" rank", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// principal is a small convenience wrapper — every authenticated
// handler needs the caller's userID, and PrincipalFromContext is never
// nil past authn.Resolver.Middleware + requireRole.
func principal(r *http.Request) *reqctx.Principal {
	return reqctx.PrincipalFromContext(r.Context())
}
