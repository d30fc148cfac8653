package trustpolicy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fleetintel/core/internal/dbpool"
)

// ErrNotFound marks a missing user_settings row.
var ErrNotFound = errors.New("trustpolicy: setting not found")

// SettingsStore reads and writes the generic per-user key/value
// settings table (§4.6's "setting key fleet.trust"): Get for the
// engine's override lookup, Set for the trust settings endpoint.
type SettingsStore struct {
	pools *dbpool.Pools
}

func NewSettingsStore(pools *dbpool.Pools) *SettingsStore {
	return &SettingsStore{pools: pools}
}

// Get returns the raw JSON value and provenance for (userID, key).
func (s *SettingsStore) Get(ctx context.Context, userID, key string) (valueJSON []byte, provenance string, err error) {
	err = s.pools.WithUserRead(ctx, userID, func(tx *dbpool.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT value_json, provenance FROM user_settings WHERE user_id = $1 AND key = $2`, userID, key)
		scanErr := row.Scan(&valueJSON, &provenance)
		if scanErr != nil {
			if errors.Is(scanErr, sql.ErrNoRows) {
				return ErrNotFound
			}
			return scanErr
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("trustpolicy: get setting %s: %w", key, err)
	}
	return valueJSON, provenance, nil
}

// Set upserts a setting, always with "user" provenance — the only write
// path this package needs, used by the settings endpoint to record a
// trust override (§6 "PUT fleet.trust").
func (s *SettingsStore) Set(ctx context.Context, userID, key string, valueJSON []byte) error {
	return s.pools.WithUserScope(ctx, userID, func(tx *dbpool.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO user_settings (user_id, key, value_json, provenance, updated_at)
			VALUES ($1, $2, $3, $4, now())
			ON CONFLICT (user_id, key) DO UPDATE SET
				value_json = excluded.value_json,
				provenance = excluded.provenance,
				updated_at = now()`,
			userID, key, valueJSON, ProvenanceUser)
		return err
	})
}
