package authn

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/fleetintel/core/internal/dbpool"
)

const inviteTokenBytes = 16

// InviteTokensStore backs the legacy invite-tenant auth leg (the design
// §4.7, resolution order (c)): a pre-signup bootstrap credential that
// resolves to a read-only lieutenant principal for the bound user until
// it expires. Unlike VerifyToken/ResetToken it is not single-use.
type InviteTokensStore struct {
	pools *dbpool.Pools
}

func NewInviteTokensStore(pools *dbpool.Pools) *InviteTokensStore {
	return &InviteTokensStore{pools: pools}
}

// Issue mints a new invite token bound to userID, valid until ttl elapses.
func (s *InviteTokensStore) Issue(ctx context.Context, userID string, ttl time.Duration) (string, error) {
	raw := make([]byte, inviteTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("authn: generate invite token: %w", err)
	}
	token := hex.EncodeToString(raw)
	expiresAt := time.Now().UTC().Add(ttl)

	err := s.pools.WithUserScope(ctx, userID, func(tx *dbpool.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO invite_tokens (token, user_id, expires_at) VALUES ($1, $2, $3)`,
			hashToken(token), userID, expiresAt)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("authn: issue invite token: %w", err)
	}
	return token, nil
}

// resolve looks up userID for token without knowing it in advance — the
// legacy leg is presented bare (no routing prefix), so the owning user
// can't be scoped to ahead of time the way a session token's prefix
// allows. Rather than give the App pool BYPASSRLS outright, the lookup
// goes through resolve_invite_token, a SECURITY DEFINER function
// (installed by EnsureSchema) that is the one narrow, auditable
// exception to "App never bypasses RLS" — see DESIGN.md.
func (s *InviteTokensStore) resolve(ctx context.Context, token string) (string, error) {
	row := s.pools.App.QueryRowContext(ctx, `SELECT user_id, expires_at FROM resolve_invite_token($1)`, hashToken(token))

	var userID string
	var expiresAt time.Time
	if err := row.Scan(&userID, &expiresAt); err != nil {
		return "", ErrInvalidToken
	}
	if time.Now().UTC().After(expiresAt) {
		return "", ErrInvalidToken
	}
	return userID, nil
}
