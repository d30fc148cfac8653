package composition

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fleetintel/core/internal/dbpool"
	"github.com/google/uuid"
)

// LoadoutVariantStore manages LoadoutVariant rows.
type LoadoutVariantStore struct {
	pools   *dbpool.Pools
	receipt ReceiptWriter
}

func NewLoadoutVariantStore(pools *dbpool.Pools, receipt ReceiptWriter) *LoadoutVariantStore {
	return &LoadoutVariantStore{pools: pools, receipt: receipt}
}

// baseLoadoutOwnedBy enforces §3's "LoadoutVariant.baseLoadoutId
// must point to a Loadout owned by the same user" — a plain ownership
// check against the already-RLS-scoped loadouts table, so a variant
// can never be built to shadow another user's loadout even if the
// caller supplies a foreign id.
func baseLoadoutOwnedBy(ctx context.Context, tx *dbpool.Tx, userID, loadoutID string) (bool, error) {
	var exists bool
	err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM loadouts WHERE user_id = $1 AND id = $2)`, userID, loadoutID).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (s *LoadoutVariantStore) Create(ctx context.Context, v *LoadoutVariant) (*LoadoutVariant, error) {
	var created *LoadoutVariant
	err := s.pools.WithUserScope(ctx, v.UserID, func(tx *dbpool.Tx) error {
		var createErr error
		created, createErr = s.CreateTx(ctx, tx, v)
		return createErr
	})
	if err != nil {
		return nil, fmt.Errorf("composition: create loadout variant: %w", err)
	}
	return created, nil
}

func (s *LoadoutVariantStore) CreateTx(ctx context.Context, tx *dbpool.Tx, v *LoadoutVariant) (*LoadoutVariant, error) {
	owned, err := baseLoadoutOwnedBy(ctx, tx, v.UserID, v.BaseLoadoutID)
	if err != nil {
		return nil, err
	}
	if !owned {
		return nil, &ErrInvalidReference{Reason: fmt.Sprintf("baseLoadoutId %q is not owned by this user", v.BaseLoadoutID)}
	}
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	patch, err := json.Marshal(v.Patch)
	if err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO loadout_variants (id, user_id, base_loadout_id, patch)
		VALUES ($1, $2, $3, $4)`, v.ID, v.UserID, v.BaseLoadoutID, patch)
	if err != nil {
		return nil, err
	}
	return s.GetTx(ctx, tx, v.UserID, v.ID)
}

func (s *LoadoutVariantStore) Get(ctx context.Context, userID, id string) (*LoadoutVariant, error) {
	var v *LoadoutVariant
	err := s.pools.WithUserRead(ctx, userID, func(tx *dbpool.Tx) error {
		var getErr error
		v, getErr = s.GetTx(ctx, tx, userID, id)
		return getErr
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("composition: get loadout variant: %w", err)
	}
	return v, nil
}

func (s *LoadoutVariantStore) GetTx(ctx context.Context, tx *dbpool.Tx, userID, id string) (*LoadoutVariant, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT id, user_id, base_loadout_id, patch FROM loadout_variants WHERE user_id = $1 AND id = $2`, userID, id)
	v := &LoadoutVariant{}
	var patch []byte
	if err := row.Scan(&v.ID, &v.UserID, &v.BaseLoadoutID, &patch); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("composition: scan loadout variant: %w", err)
	}
	if len(patch) > 0 {
		if err := json.Unmarshal(patch, &v.Patch); err != nil {
			return nil, fmt.Errorf("composition: unmarshal patch: %w", err)
		}
	}
	return v, nil
}

func (s *LoadoutVariantStore) ListByBase(ctx context.Context, userID, baseLoadoutID string) ([]*LoadoutVariant, error) {
	var out []*LoadoutVariant
	err := s.pools.WithUserRead(ctx, userID, func(tx *dbpool.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT id, user_id, base_loadout_id, patch FROM loadout_variants
			WHERE user_id = $1 AND base_loadout_id = $2`, userID, baseLoadoutID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			v := &LoadoutVariant{}
			var patch []byte
			if err := rows.Scan(&v.ID, &v.UserID, &v.BaseLoadoutID, &patch); err != nil {
				return err
			}
			_ = json.Unmarshal(patch, &v.Patch)
			out = append(out, v)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("composition: list loadout variants: %w", err)
	}
	return out, nil
}

func (s *LoadoutVariantStore) UpdateTx(ctx context.Context, tx *dbpool.Tx, userID, id string, patch LoadoutVariantPatch) (*LoadoutVariant, error) {
	encoded, err := json.Marshal(patch)
	if err != nil {
		return nil, err
	}
	res, err := tx.ExecContext(ctx, `UPDATE loadout_variants SET patch = $1 WHERE user_id = $2 AND id = $3`, encoded, userID, id)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.GetTx(ctx, tx, userID, id)
}

func (s *LoadoutVariantStore) Update(ctx context.Context, userID, id string, patch LoadoutVariantPatch) (*LoadoutVariant, string, error) {
	var updated *LoadoutVariant
	var receiptID string
	err := s.pools.WithUserScope(ctx, userID, func(tx *dbpool.Tx) error {
		before, err := s.GetTx(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		after, err := s.UpdateTx(ctx, tx, userID, id, patch)
		if err != nil {
			return err
		}
		updated = after
		if s.receipt != nil {
			rid, err := s.receipt.WriteOverlayReceipt(ctx, tx, userID, LayerComposition,
				map[string]any{"loadoutVariantId": id, "patch": patch}, before)
			if err != nil {
				return err
			}
			receiptID = rid
		}
		return nil
	})
	if err != nil {
		return nil, "", fmt.Errorf("composition: update loadout variant: %w", err)
	}
	return updated, receiptID, nil
}

func (s *LoadoutVariantStore) Delete(ctx context.Context, userID, id string) (string, error) {
	var receiptID string
	err := s.pools.WithUserScope(ctx, userID, func(tx *dbpool.Tx) error {
		before, err := s.GetTx(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM loadout_variants WHERE user_id = $1 AND id = $2`, userID, id); err != nil {
			return err
		}
		if s.receipt != nil {
			rid, err := s.receipt.WriteOverlayReceipt(ctx, tx, userID, LayerComposition,
				map[string]any{"deletedLoadoutVariantId": id}, before)
			if err != nil {
				return err
			}
			receiptID = rid
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("composition: delete loadout variant: %w", err)
	}
	return receiptID, nil
}
