package authn

import "time"

// User is the root identity entity (§3). passwordHash is never
// serialized to any API boundary — callers must construct a separate view
// type for responses.
type User struct {
	ID            string
	Email         string
	DisplayName   string
	Role          string
	EmailVerified bool
	LockedAt      *time.Time
	PasswordHash  string
	CreatedAt     time.Time
}

// Session is a UserSession row (§3): an opaque bearer token bound
// to a user, touched on every resolve.
type Session struct {
	Token     string
	UserID    string
	CreatedAt time.Time
	LastSeen  time.Time
	ExpiresAt time.Time
	IP        string
	UserAgent string
}

// TokenKind distinguishes VerifyToken from ResetToken rows sharing a
// table shape in §3.
type TokenKind string

const (
	TokenVerify TokenKind = "verify"
	TokenReset  TokenKind = "reset"
)

// OneShotToken is a VerifyToken/ResetToken row: single-use, TTL-bound.
type OneShotToken struct {
	Token      string
	Kind       TokenKind
	UserID     string
	ConsumedAt *time.Time
	ExpiresAt  time.Time
}
