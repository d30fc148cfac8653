package composition

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fleetintel/core/internal/dbpool"
	"github.com/google/uuid"
)

// TargetStore manages Target rows.
type TargetStore struct {
	pools   *dbpool.Pools
	receipt ReceiptWriter
}

func NewTargetStore(pools *dbpool.Pools, receipt ReceiptWriter) *TargetStore {
	return &TargetStore{pools: pools, receipt: receipt}
}

func (s *TargetStore) Create(ctx context.Context, t *Target) (*Target, error) {
	var created *Target
	err := s.pools.WithUserScope(ctx, t.UserID, func(tx *dbpool.Tx) error {
		var createErr error
		created, createErr = s.CreateTx(ctx, tx, t)
		return createErr
	})
	if err != nil {
		return nil, fmt.Errorf("composition: create target: %w", err)
	}
	return created, nil
}

func (s *TargetStore) CreateTx(ctx context.Context, tx *dbpool.Tx, t *Target) (*Target, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = TargetStatusActive
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO targets (id, user_id, target_type, ref_id, loadout_id, target_tier, target_rank, target_level, priority, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		t.ID, t.UserID, t.TargetType, t.RefID, t.LoadoutID, t.TargetTier, t.TargetRank, t.TargetLevel, t.Priority, t.Status)
	if err != nil {
		return nil, err
	}
	return s.GetTx(ctx, tx, t.UserID, t.ID)
}

func (s *TargetStore) Get(ctx context.Context, userID, id string) (*Target, error) {
	var t *Target
	err := s.pools.WithUserRead(ctx, userID, func(tx *dbpool.Tx) error {
		var getErr error
		t, getErr = s.GetTx(ctx, tx, userID, id)
		return getErr
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("composition: get target: %w", err)
	}
	return t, nil
}

func (s *TargetStore) GetTx(ctx context.Context, tx *dbpool.Tx, userID, id string) (*Target, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT id, user_id, target_type, ref_id, loadout_id, target_tier, target_rank, target_level, priority, status
		FROM targets WHERE user_id = $1 AND id = $2`, userID, id)
	return scanTarget(row)
}

func scanTarget(row *sql.Row) (*Target, error) {
	t := &Target{}
	err := row.Scan(&t.ID, &t.UserID, &t.TargetType, &t.RefID, &t.LoadoutID, &t.TargetTier, &t.TargetRank, &t.TargetLevel, &t.Priority, &t.Status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("composition: scan target: %w", err)
	}
	return t, nil
}

// ListByStatus returns every target in the given status, ordered by
// priority asc (priority 1 is the most urgent — §3).
func (s *TargetStore) ListByStatus(ctx context.Context, userID string, status TargetStatus) ([]*Target, error) {
	var out []*Target
	err := s.pools.WithUserRead(ctx, userID, func(tx *dbpool.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT id, user_id, target_type, ref_id, loadout_id, target_tier, target_rank, target_level, priority, status
			FROM targets WHERE user_id = $1 AND status = $2 ORDER BY priority ASC`, userID, status)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			t := &Target{}
			if err := rows.Scan(&t.ID, &t.UserID, &t.TargetType, &t.RefID, &t.LoadoutID, &t.TargetTier, &t.TargetRank, &t.TargetLevel, &t.Priority, &t.Status); err != nil {
				return err
			}
			out = append(out, t)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("composition: list targets by status: %w", err)
	}
	return out, nil
}

// SetStatusTx transitions a target's status (e.g. active -> achieved),
// inside a caller-owned transaction.
func (s *TargetStore) SetStatusTx(ctx context.Context, tx *dbpool.Tx, userID, id string, status TargetStatus) (*Target, error) {
	res, err := tx.ExecContext(ctx, `UPDATE targets SET status = $1 WHERE user_id = $2 AND id = $3`, status, userID, id)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.GetTx(ctx, tx, userID, id)
}

func (s *TargetStore) SetStatus(ctx context.Context, userID, id string, status TargetStatus) (*Target, string, error) {
	var updated *Target
	var receiptID string
	err := s.pools.WithUserScope(ctx, userID, func(tx *dbpool.Tx) error {
		before, err := s.GetTx(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		after, err := s.SetStatusTx(ctx, tx, userID, id, status)
		if err != nil {
			return err
		}
		updated = after
		if s.receipt != nil {
			rid, err := s.receipt.WriteOverlayReceipt(ctx, tx, userID, LayerComposition,
				map[string]any{"targetId": id, "status": status}, before)
			if err != nil {
				return err
			}
			receiptID = rid
		}
		return nil
	})
	if err != nil {
		return nil, "", fmt.Errorf("composition: set target status: %w", err)
	}
	return updated, receiptID, nil
}

// DeleteTx removes a target inside a transaction the caller already
// owns, returning the pre-delete row for inverse capture — the shape
// toolruntime's delete_target Apply handler runs in.
func (s *TargetStore) DeleteTx(ctx context.Context, tx *dbpool.Tx, userID, id string) (*Target, error) {
	before, err := s.GetTx(ctx, tx, userID, id)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM targets WHERE user_id = $1 AND id = $2`, userID, id); err != nil {
		return nil, err
	}
	return before, nil
}

func (s *TargetStore) Delete(ctx context.Context, userID, id string) (string, error) {
	var receiptID string
	err := s.pools.WithUserScope(ctx, userID, func(tx *dbpool.Tx) error {
		before, err := s.DeleteTx(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		if s.receipt != nil {
			rid, err := s.receipt.WriteOverlayReceipt(ctx, tx, userID, LayerComposition,
				map[string]any{"deletedTargetId": id}, before)
			if err != nil {
				return err
			}
			receiptID = rid
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("composition: delete target: %w", err)
	}
	return receiptID, nil
}
