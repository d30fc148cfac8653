package authn

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/fleetintel/core/internal/apierr"
	"github.com/fleetintel/core/internal/reqctx"
)

// Resolver runs the three-way identity resolution order from the design
// §4.7: a bearer admin token short-circuits straight to an admiral
// Principal; otherwise an opaque session token is resolved through the
// App pool; otherwise a legacy invite-tenant token resolves to a
// read-only lieutenant; a request matching none of the three is
// unauthenticated.
type Resolver struct {
	sessions   *SessionsStore
	users      *UsersStore
	invites    *InviteTokensStore
	adminToken string
}

func NewResolver(sessions *SessionsStore, users *UsersStore, invites *InviteTokensStore, adminToken string) *Resolver {
	return &Resolver{sessions: sessions, users: users, invites: invites, adminToken: adminToken}
}

// sessionCookieName is the cookie a browser session carries once
// internal/httpapi's login handler sets it (§8's worked
// example shows it flowing this way for the web client; API clients
// use the Authorization header instead).
const sessionCookieName = "majel_session"

// bearerToken extracts the caller's token from the Authorization header,
// falling back to the majel_session cookie when no header is present —
// the same opaque session-token format either way, just carried over a
// different transport for a browser client that can't set headers on a
// top-level navigation.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" && parts[1] != "" {
			return parts[1], true
		}
		return "", false
	}
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value, true
	}
	return "", false
}

// isAdminToken compares in constant time to avoid a timing side-channel
// on the shared operator secret.
func (res *Resolver) isAdminToken(candidate string) bool {
	if res.adminToken == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(res.adminToken)) == 1
}

// Middleware attaches a *reqctx.Principal to every request that
// successfully resolves, and fails closed (401) otherwise — callers that
// want to allow unauthenticated paths (signup, login) must route around
// this middleware rather than special-case it inside Resolve.
func (res *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			apierr.WriteErrorCode(w, r, apierr.Unauthorized, "missing or malformed Authorization header", nil)
			return
		}

		principal, err := res.resolve(r, token)
		if err != nil {
			switch err {
			case errEmailNotVerified:
				apierr.WriteErrorCode(w, r, apierr.EmailNotVerified, "email address is not verified", nil)
			case errAccountLocked:
				apierr.WriteErrorCode(w, r, apierr.AccountLocked, "account is locked", nil)
			default:
				apierr.WriteErrorCode(w, r, apierr.Unauthorized, "invalid or expired credentials", nil)
			}
			return
		}

		ctx := reqctx.WithPrincipal(r.Context(), principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

var (
	errEmailNotVerified = errUnverified{}
	errAccountLocked    = errLocked{}
)

type errUnverified struct{}

func (errUnverified) Error() string { return "authn: email not verified" }

type errLocked struct{}

func (errLocked) Error() string { return "authn: account locked" }

// resolve runs the three-way order: admin bearer token, then opaque
// session token, then legacy invite-tenant token. First match wins.
func (res *Resolver) resolve(r *http.Request, token string) (*reqctx.Principal, error) {
	if res.isAdminToken(token) {
		return &reqctx.Principal{
			UserID:        "admin",
			Role:          reqctx.RoleAdmiral,
			EmailVerified: true,
			ViaAdminToken: true,
		}, nil
	}

	if sess, err := res.sessions.Resolve(r.Context(), token); err == nil {
		return res.principalForUser(r, sess.UserID, reqctx.Role(-1))
	}

	if userID, err := res.invites.resolve(r.Context(), token); err == nil {
		return res.principalForUser(r, userID, reqctx.RoleLieutenant)
	}

	return nil, ErrInvalidToken
}

// principalForUser applies the shared verified-email and account-lock
// gates. capAtMost, when >= 0, clamps the resolved role down to it — the
// legacy invite leg grants read-only lieutenant access regardless of the
// user's stored role (§4.7).
func (res *Resolver) principalForUser(r *http.Request, userID string, capAtMost reqctx.Role) (*reqctx.Principal, error) {
	user, err := res.users.GetByID(r.Context(), userID)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if user.LockedAt != nil {
		return nil, errAccountLocked
	}
	if !user.EmailVerified {
		return nil, errEmailNotVerified
	}

	role := reqctx.ParseRole(user.Role)
	if capAtMost >= 0 && role > capAtMost {
		role = capAtMost
	}

	return &reqctx.Principal{
		UserID:        user.ID,
		Role:          role,
		EmailVerified: user.EmailVerified,
	}, nil
}
