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

// BridgeCoreStore manages BridgeCore rows.
type BridgeCoreStore struct {
	pools   *dbpool.Pools
	receipt ReceiptWriter
}

func NewBridgeCoreStore(pools *dbpool.Pools, receipt ReceiptWriter) *BridgeCoreStore {
	return &BridgeCoreStore{pools: pools, receipt: receipt}
}

// officerExists checks reference_officers, the global (non-RLS) table
// catalog.OfficerStore owns, inside the caller's transaction — it's
// readable from the App pool the same as any other unscoped table
// (internal/dbpool/ddl.go's "non-owned tables" note).
func officerExists(ctx context.Context, tx *dbpool.Tx, refID string) (bool, error) {
	var exists bool
	err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM reference_officers WHERE ref_id = $1)`, refID).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// validateMembers enforces §3's "any BridgeCoreMember.officerRefId
// must resolve to an existing reference officer" and rejects duplicate
// slot assignments within the same core.
func validateMembers(ctx context.Context, tx *dbpool.Tx, members []BridgeCoreMember) error {
	seenSlots := make(map[BridgeSlot]bool, len(members))
	for _, m := range members {
		if seenSlots[m.Slot] {
			return &ErrInvalidReference{Reason: fmt.Sprintf("slot %q assigned more than once", m.Slot)}
		}
		seenSlots[m.Slot] = true

		ok, err := officerExists(ctx, tx, m.OfficerRefID)
		if err != nil {
			return err
		}
		if !ok {
			return &ErrInvalidReference{Reason: fmt.Sprintf("officerRefId %q does not exist", m.OfficerRefID)}
		}
	}
	return nil
}

func (s *BridgeCoreStore) Create(ctx context.Context, bc *BridgeCore) (*BridgeCore, error) {
	var created *BridgeCore
	err := s.pools.WithUserScope(ctx, bc.UserID, func(tx *dbpool.Tx) error {
		var createErr error
		created, createErr = s.CreateTx(ctx, tx, bc)
		return createErr
	})
	if err != nil {
		return nil, fmt.Errorf("composition: create bridge core: %w", err)
	}
	return created, nil
}

func (s *BridgeCoreStore) CreateTx(ctx context.Context, tx *dbpool.Tx, bc *BridgeCore) (*BridgeCore, error) {
	if err := validateMembers(ctx, tx, bc.Members); err != nil {
		return nil, err
	}
	if bc.ID == "" {
		bc.ID = uuid.NewString()
	}
	members, err := json.Marshal(bc.Members)
	if err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO bridge_cores (id, user_id, name, members)
		VALUES ($1, $2, $3, $4)`, bc.ID, bc.UserID, bc.Name, members)
	if err != nil {
		return nil, err
	}
	return s.GetTx(ctx, tx, bc.UserID, bc.ID)
}

func (s *BridgeCoreStore) Get(ctx context.Context, userID, id string) (*BridgeCore, error) {
	var bc *BridgeCore
	err := s.pools.WithUserRead(ctx, userID, func(tx *dbpool.Tx) error {
		var getErr error
		bc, getErr = s.GetTx(ctx, tx, userID, id)
		return getErr
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("composition: get bridge core: %w", err)
	}
	return bc, nil
}

func (s *BridgeCoreStore) GetTx(ctx context.Context, tx *dbpool.Tx, userID, id string) (*BridgeCore, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT id, user_id, name, members FROM bridge_cores WHERE user_id = $1 AND id = $2`, userID, id)
	bc := &BridgeCore{}
	var members []byte
	if err := row.Scan(&bc.ID, &bc.UserID, &bc.Name, &members); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("composition: scan bridge core: %w", err)
	}
	if len(members) > 0 {
		if err := json.Unmarshal(members, &bc.Members); err != nil {
			return nil, fmt.Errorf("composition: unmarshal members: %w", err)
		}
	}
	return bc, nil
}

func (s *BridgeCoreStore) List(ctx context.Context, userID string) ([]*BridgeCore, error) {
	var out []*BridgeCore
	err := s.pools.WithUserRead(ctx, userID, func(tx *dbpool.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT id, user_id, name, members FROM bridge_cores WHERE user_id = $1 ORDER BY name`, userID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			bc := &BridgeCore{}
			var members []byte
			if err := rows.Scan(&bc.ID, &bc.UserID, &bc.Name, &members); err != nil {
				return err
			}
			_ = json.Unmarshal(members, &bc.Members)
			out = append(out, bc)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("composition: list bridge cores: %w", err)
	}
	return out, nil
}

// UpdateTx replaces name/members wholesale — a BridgeCore's member list
// is small (three slots) so there's no partial-patch semantics here,
// unlike Loadout.
func (s *BridgeCoreStore) UpdateTx(ctx context.Context, tx *dbpool.Tx, userID, id, name string, members []BridgeCoreMember) (*BridgeCore, error) {
	if err := validateMembers(ctx, tx, members); err != nil {
		return nil, err
	}
	encoded, err := json.Marshal(members)
	if err != nil {
		return nil, err
	}
	res, err := tx.ExecContext(ctx, `UPDATE bridge_cores SET name = $1, members = $2 WHERE user_id = $3 AND id = $4`,
		name, encoded, userID, id)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.GetTx(ctx, tx, userID, id)
}

func (s *BridgeCoreStore) Update(ctx context.Context, userID, id, name string, members []BridgeCoreMember) (*BridgeCore, string, error) {
	var updated *BridgeCore
	var receiptID string
	err := s.pools.WithUserScope(ctx, userID, func(tx *dbpool.Tx) error {
		before, err := s.GetTx(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		after, err := s.UpdateTx(ctx, tx, userID, id, name, members)
		if err != nil {
			return err
		}
		updated = after
		if s.receipt != nil {
			rid, err := s.receipt.WriteOverlayReceipt(ctx, tx, userID, LayerComposition,
				map[string]any{"bridgeCoreId": id, "name": name, "members": members}, before)
			if err != nil {
				return err
			}
			receiptID = rid
		}
		return nil
	})
	if err != nil {
		return nil, "", fmt.Errorf("composition: update bridge core: %w", err)
	}
	return updated, receiptID, nil
}

func (s *BridgeCoreStore) Delete(ctx context.Context, userID, id string) (string, error) {
	var receiptID string
	err := s.pools.WithUserScope(ctx, userID, func(tx *dbpool.Tx) error {
		before, err := s.GetTx(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM bridge_cores WHERE user_id = $1 AND id = $2`, userID, id); err != nil {
			return err
		}
		if s.receipt != nil {
			rid, err := s.receipt.WriteOverlayReceipt(ctx, tx, userID, LayerComposition,
				map[string]any{"deletedBridgeCoreId": id}, before)
			if err != nil {
				return err
			}
			receiptID = rid
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("composition: delete bridge core: %w", err)
	}
	return receiptID, nil
}
