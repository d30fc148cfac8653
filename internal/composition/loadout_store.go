package composition

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fleetintel/core/internal/catalog"
	"github.com/fleetintel/core/internal/dbpool"
	"github.com/google/uuid"
)

// LoadoutStore manages Loadout rows.
type LoadoutStore struct {
	pools   *dbpool.Pools
	receipt ReceiptWriter
}

func NewLoadoutStore(pools *dbpool.Pools, receipt ReceiptWriter) *LoadoutStore {
	return &LoadoutStore{pools: pools, receipt: receipt}
}

// Create inserts a new Loadout, returning the stored row.
func (s *LoadoutStore) Create(ctx context.Context, l *Loadout) (*Loadout, error) {
	var created *Loadout
	err := s.pools.WithUserScope(ctx, l.UserID, func(tx *dbpool.Tx) error {
		var createErr error
		created, createErr = s.CreateTx(ctx, tx, l)
		return createErr
	})
	if err != nil {
		return nil, fmt.Errorf("composition: create loadout: %w", err)
	}
	return created, nil
}

// CreateTx is Create's tx-scoped counterpart, used by the create_loadout
// Apply handler in internal/tools; toolruntime writes the enclosing
// receipt in the same transaction.
func (s *LoadoutStore) CreateTx(ctx context.Context, tx *dbpool.Tx, l *Loadout) (*Loadout, error) {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	intentKeys, err := json.Marshal(l.IntentKeys)
	if err != nil {
		return nil, err
	}
	tags, err := json.Marshal(l.Tags)
	if err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO loadouts (id, user_id, ship_ref_id, name, priority, is_active, intent_keys, tags, bridge_core_id, below_deck_policy_id, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now())`,
		l.ID, l.UserID, l.ShipRefID, l.Name, l.Priority, l.IsActive, intentKeys, tags, l.BridgeCoreID, l.BelowDeckPolicyID, l.Notes)
	if err != nil {
		return nil, err
	}
	return s.GetTx(ctx, tx, l.UserID, l.ID)
}

// Get returns the loadout for (userID, id), or ErrNotFound.
func (s *LoadoutStore) Get(ctx context.Context, userID, id string) (*Loadout, error) {
	var l *Loadout
	err := s.pools.WithUserRead(ctx, userID, func(tx *dbpool.Tx) error {
		var getErr error
		l, getErr = s.GetTx(ctx, tx, userID, id)
		return getErr
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("composition: get loadout: %w", err)
	}
	return l, nil
}

// GetTx loads a loadout row inside a transaction the caller already
// owns — used for pre-mutation snapshots and read-then-write flows.
func (s *LoadoutStore) GetTx(ctx context.Context, tx *dbpool.Tx, userID, id string) (*Loadout, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT id, user_id, ship_ref_id, name, priority, is_active, intent_keys, tags, bridge_core_id, below_deck_policy_id, notes, created_at
		FROM loadouts WHERE user_id = $1 AND id = $2`, userID, id)
	return scanLoadout(row)
}

func scanLoadout(row *sql.Row) (*Loadout, error) {
	l := &Loadout{}
	var intentKeys, tags []byte
	err := row.Scan(&l.ID, &l.UserID, &l.ShipRefID, &l.Name, &l.Priority, &l.IsActive, &intentKeys, &tags,
		&l.BridgeCoreID, &l.BelowDeckPolicyID, &l.Notes, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("composition: scan loadout: %w", err)
	}
	if len(intentKeys) > 0 {
		if err := json.Unmarshal(intentKeys, &l.IntentKeys); err != nil {
			return nil, fmt.Errorf("composition: unmarshal intent keys: %w", err)
		}
	}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &l.Tags); err != nil {
			return nil, fmt.Errorf("composition: unmarshal tags: %w", err)
		}
	}
	return l, nil
}

// List returns every loadout owned by userID, ordered by priority desc
// then name.
func (s *LoadoutStore) List(ctx context.Context, userID string) ([]*Loadout, error) {
	var out []*Loadout
	err := s.pools.WithUserRead(ctx, userID, func(tx *dbpool.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT id, user_id, ship_ref_id, name, priority, is_active, intent_keys, tags, bridge_core_id, below_deck_policy_id, notes, created_at
			FROM loadouts WHERE user_id = $1 ORDER BY priority DESC, name`, userID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			l := &Loadout{}
			var intentKeys, tags []byte
			if err := rows.Scan(&l.ID, &l.UserID, &l.ShipRefID, &l.Name, &l.Priority, &l.IsActive, &intentKeys, &tags,
				&l.BridgeCoreID, &l.BelowDeckPolicyID, &l.Notes, &l.CreatedAt); err != nil {
				return err
			}
			_ = json.Unmarshal(intentKeys, &l.IntentKeys)
			_ = json.Unmarshal(tags, &l.Tags)
			out = append(out, l)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("composition: list loadouts: %w", err)
	}
	return out, nil
}

// UpdateTx applies patch to the loadout id inside a transaction the
// caller already owns, returning the updated row. Fields absent from
// patch are left unchanged (catalog.Patch's three-state semantics,
// reused here rather than re-implemented).
func (s *LoadoutStore) UpdateTx(ctx context.Context, tx *dbpool.Tx, userID, id string, patch catalog.Patch) (*Loadout, error) {
	raw, err := json.Marshal(patch)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}

	existing, err := s.GetTx(ctx, tx, userID, id)
	if err != nil {
		return nil, err
	}

	applyStringField(fields, "name", &existing.Name)
	applyIntField(fields, "priority", &existing.Priority)
	applyBoolField(fields, "isActive", &existing.IsActive)
	applyStringSliceField(fields, "intentKeys", &existing.IntentKeys)
	applyStringSliceField(fields, "tags", &existing.Tags)
	applyStringPtrField(fields, "bridgeCoreId", &existing.BridgeCoreID)
	applyStringPtrField(fields, "belowDeckPolicyId", &existing.BelowDeckPolicyID)
	applyStringPtrField(fields, "notes", &existing.Notes)

	intentKeys, err := json.Marshal(existing.IntentKeys)
	if err != nil {
		return nil, err
	}
	tags, err := json.Marshal(existing.Tags)
	if err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE loadouts SET name = $1, priority = $2, is_active = $3, intent_keys = $4, tags = $5,
			bridge_core_id = $6, below_deck_policy_id = $7, notes = $8
		WHERE user_id = $9 AND id = $10`,
		existing.Name, existing.Priority, existing.IsActive, intentKeys, tags,
		existing.BridgeCoreID, existing.BelowDeckPolicyID, existing.Notes, userID, id)
	if err != nil {
		return nil, err
	}
	return existing, nil
}

// Update applies patch outside a caller-owned transaction, writing a
// composition-layer receipt when a receipt writer is configured.
func (s *LoadoutStore) Update(ctx context.Context, userID, id string, patch catalog.Patch) (*Loadout, string, error) {
	var updated *Loadout
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
			id, err := s.receipt.WriteOverlayReceipt(ctx, tx, userID, LayerComposition,
				map[string]any{"loadoutId": id, "patch": patch}, before)
			if err != nil {
				return err
			}
			receiptID = id
		}
		return nil
	})
	if err != nil {
		return nil, "", fmt.Errorf("composition: update loadout: %w", err)
	}
	return updated, receiptID, nil
}

// DeleteTx removes a loadout inside a transaction the caller already
// owns, returning the pre-delete row for inverse capture.
func (s *LoadoutStore) DeleteTx(ctx context.Context, tx *dbpool.Tx, userID, id string) (*Loadout, error) {
	before, err := s.GetTx(ctx, tx, userID, id)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM loadouts WHERE user_id = $1 AND id = $2`, userID, id); err != nil {
		return nil, err
	}
	return before, nil
}

// Delete removes a loadout, writing a composition-layer receipt whose
// inverse is the deleted row (so undo can recreate it).
func (s *LoadoutStore) Delete(ctx context.Context, userID, id string) (string, error) {
	var receiptID string
	err := s.pools.WithUserScope(ctx, userID, func(tx *dbpool.Tx) error {
		before, err := s.DeleteTx(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		if s.receipt != nil {
			rid, err := s.receipt.WriteOverlayReceipt(ctx, tx, userID, LayerComposition,
				map[string]any{"deletedLoadoutId": id}, before)
			if err != nil {
				return err
			}
			receiptID = rid
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("composition: delete loadout: %w", err)
	}
	return receiptID, nil
}
