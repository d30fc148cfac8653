package authn

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fleetintel/core/internal/dbpool"
)

// ErrInvalidToken is returned for any malformed or unresolvable session
// token — deliberately opaque, never distinguishing "wrong shape" from
// "not found" from "expired", so a caller can't use error text to probe
// which sessions exist (§4.7 fail-closed identity resolution).
var ErrInvalidToken = errors.New("authn: invalid session token")

const sessionSecretBytes = 16

// SessionsStore issues and resolves opaque session tokens shaped
// <base64url(userID)>.<hex-secret>. The prefix lets a resolver route
// straight to WithUserScope(userID, ...) without a privileged lookup —
// every session row lives behind the same RLS policy as every other
// per-user table, so there is no admin-pool carve-out for identity
// resolution (see DESIGN.md, "session-token routing under RLS"). The
// random suffix, never the prefix, is what actually authenticates: it is
// stored hashed and compared only after the RLS-scoped row is fetched.
type SessionsStore struct {
	pools *dbpool.Pools
}

func NewSessionsStore(pools *dbpool.Pools) *SessionsStore {
	return &SessionsStore{pools: pools}
}

// splitToken extracts the routing userID from a session token without
// trusting it — the caller must still verify the secret against the
// stored hash before treating the session as authenticated.
func splitToken(token string) (userID, secret string, err error) {
	parts := strings.SplitN(token, ".", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", ErrInvalidToken
	}
	raw, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return "", "", ErrInvalidToken
	}
	return string(raw), parts[1], nil
}

func hashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// Issue creates a new session row for userID and returns the bearer
// token to hand back to the client. The token itself is never stored;
// only its secret-half hash is.
func (s *SessionsStore) Issue(ctx context.Context, userID, ip, userAgent string, ttl time.Duration) (string, error) {
	secretBytes := make([]byte, sessionSecretBytes)
	if _, err := rand.Read(secretBytes); err != nil {
		return "", fmt.Errorf("authn: generate session secret: %w", err)
	}
	secret := hex.EncodeToString(secretBytes)
	now := time.Now().UTC()
	expiresAt := now.Add(ttl)

	err := s.pools.WithUserScope(ctx, userID, func(tx *dbpool.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO user_sessions (token, user_id, created_at, last_seen_at, expires_at, ip, user_agent)
			VALUES ($1, $2, $3, $3, $4, $5, $6)`,
			hashSecret(secret), userID, now, expiresAt, ip, userAgent)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("authn: issue session: %w", err)
	}

	prefix := base64.RawURLEncoding.EncodeToString([]byte(userID))
	return prefix + "." + secret, nil
}

// Resolve validates token and, on success, touches last_seen_at and
// returns the bound Session. Every failure mode — malformed token,
// unknown userID, wrong secret, expired row — collapses to
// ErrInvalidToken.
func (s *SessionsStore) Resolve(ctx context.Context, token string) (*Session, error) {
	userID, secret, err := splitToken(token)
	if err != nil {
		return nil, err
	}

	var sess Session
	err = s.pools.WithUserScope(ctx, userID, func(tx *dbpool.Tx) error {
		row := tx.QueryRowContext(ctx, `
			SELECT token, user_id, created_at, last_seen_at, expires_at, ip, user_agent
			FROM user_sessions WHERE user_id = $1 AND token = $2`,
			userID, hashSecret(secret))

		var storedHash string
		if scanErr := row.Scan(&storedHash, &sess.UserID, &sess.CreatedAt, &sess.LastSeen, &sess.ExpiresAt, &sess.IP, &sess.UserAgent); scanErr != nil {
			return ErrInvalidToken
		}
		if time.Now().UTC().After(sess.ExpiresAt) {
			return ErrInvalidToken
		}

		_, err := tx.ExecContext(ctx, `UPDATE user_sessions SET last_seen_at = $1 WHERE user_id = $2 AND token = $3`,
			time.Now().UTC(), userID, storedHash)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("authn: resolve session: %w", err)
	}
	sess.Token = token
	return &sess, nil
}

// Destroy revokes a single session (logout).
func (s *SessionsStore) Destroy(ctx context.Context, token string) error {
	userID, secret, err := splitToken(token)
	if err != nil {
		return err
	}
	return s.pools.WithUserScope(ctx, userID, func(tx *dbpool.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM user_sessions WHERE user_id = $1 AND token = $2`,
			userID, hashSecret(secret))
		return err
	})
}

// DestroyAll revokes every session for userID (logout-all, password
// change, account lock).
func (s *SessionsStore) DestroyAll(ctx context.Context, userID string) error {
	return s.pools.WithUserScope(ctx, userID, func(tx *dbpool.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM user_sessions WHERE user_id = $1`, userID)
		return err
	})
}
