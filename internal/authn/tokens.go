package authn

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/fleetintel/core/internal/dbpool"
)

// ErrTokenConsumed is returned when a one-shot token has already been used
// or has expired — callers treat it identically to "not found" to avoid
// leaking which case applies.
var ErrTokenConsumed = errors.New("authn: token already consumed or expired")

const oneShotTokenBytes = 24

// TokensStore manages VerifyToken and ResetToken rows. They share a shape
// (§3) but live in separate tables, verify_tokens and
// reset_tokens; Kind picks which table a call routes to.
type TokensStore struct {
	pools *dbpool.Pools
}

func NewTokensStore(pools *dbpool.Pools) *TokensStore {
	return &TokensStore{pools: pools}
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func tableForKind(kind TokenKind) (string, error) {
	switch kind {
	case TokenVerify:
		return "verify_tokens", nil
	case TokenReset:
		return "reset_tokens", nil
	default:
		return "", fmt.Errorf("authn: unknown token kind %q", kind)
	}
}

// Issue mints a new one-shot token of kind for userID and returns the raw
// token to deliver out of band (email link). Only its hash is persisted.
func (s *TokensStore) Issue(ctx context.Context, userID string, kind TokenKind, ttl time.Duration) (string, error) {
	table, err := tableForKind(kind)
	if err != nil {
		return "", err
	}

	raw := make([]byte, oneShotTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("authn: generate token: %w", err)
	}
	token := hex.EncodeToString(raw)
	expiresAt := time.Now().UTC().Add(ttl)

	err = s.pools.WithUserScope(ctx, userID, func(tx *dbpool.Tx) error {
		var execErr error
		if kind == TokenVerify {
			_, execErr = tx.ExecContext(ctx, `
				INSERT INTO verify_tokens (token, user_id, type, expires_at)
				VALUES ($1, $2, $3, $4)`,
				hashToken(token), userID, "email", expiresAt)
		} else {
			_, execErr = tx.ExecContext(ctx, `
				INSERT INTO reset_tokens (token, user_id, expires_at)
				VALUES ($1, $2, $3)`,
				hashToken(token), userID, expiresAt)
		}
		return execErr
	})
	if err != nil {
		return "", fmt.Errorf("authn: issue %s token (%s): %w", kind, table, err)
	}
	return token, nil
}

// Consume looks up token scoped to userID and kind, verifies it is
// unconsumed and unexpired, marks it consumed, and returns the resolved
// OneShotToken. The caller must already know userID — these tokens are
// delivered via a link carrying the routing userID, the same way session
// tokens do.
func (s *TokensStore) Consume(ctx context.Context, userID, token string, kind TokenKind) (*OneShotToken, error) {
	table, err := tableForKind(kind)
	if err != nil {
		return nil, err
	}

	var ost OneShotToken
	ost.Kind = kind
	err = s.pools.WithUserScope(ctx, userID, func(tx *dbpool.Tx) error {
		row := tx.QueryRowContext(ctx,
			fmt.Sprintf(`SELECT token, user_id, consumed_at, expires_at FROM %s WHERE user_id = $1 AND token = $2`, table),
			userID, hashToken(token))

		var consumedAt *time.Time
		if scanErr := row.Scan(&ost.Token, &ost.UserID, &consumedAt, &ost.ExpiresAt); scanErr != nil {
			return ErrTokenConsumed
		}
		if consumedAt != nil {
			return ErrTokenConsumed
		}
		if time.Now().UTC().After(ost.ExpiresAt) {
			return ErrTokenConsumed
		}

		now := time.Now().UTC()
		ost.ConsumedAt = &now
		_, execErr := tx.ExecContext(ctx,
			fmt.Sprintf(`UPDATE %s SET consumed_at = $1 WHERE user_id = $2 AND token = $3`, table),
			now, userID, hashToken(token))
		return execErr
	})
	if err != nil {
		if errors.Is(err, ErrTokenConsumed) {
			return nil, ErrTokenConsumed
		}
		return nil, fmt.Errorf("authn: consume %s token: %w", kind, err)
	}
	return &ost, nil
}
