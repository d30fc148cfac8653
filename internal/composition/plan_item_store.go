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

// PlanItemStore manages PlanItem rows.
type PlanItemStore struct {
	pools   *dbpool.Pools
	receipt ReceiptWriter
}

func NewPlanItemStore(pools *dbpool.Pools, receipt ReceiptWriter) *PlanItemStore {
	return &PlanItemStore{pools: pools, receipt: receipt}
}

func (s *PlanItemStore) Create(ctx context.Context, p *PlanItem) (*PlanItem, error) {
	var created *PlanItem
	err := s.pools.WithUserScope(ctx, p.UserID, func(tx *dbpool.Tx) error {
		var createErr error
		created, createErr = s.CreateTx(ctx, tx, p)
		return createErr
	})
	if err != nil {
		return nil, fmt.Errorf("composition: create plan item: %w", err)
	}
	return created, nil
}

func (s *PlanItemStore) CreateTx(ctx context.Context, tx *dbpool.Tx, p *PlanItem) (*PlanItem, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Source == "" {
		p.Source = PlanSourceManual
	}
	awayOfficers, err := json.Marshal(p.AwayOfficers)
	if err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO plan_items (id, user_id, intent_key, loadout_id, variant_id, dock_number, away_officers, priority, is_active, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, p.UserID, p.IntentKey, p.LoadoutID, p.VariantID, p.DockNumber, awayOfficers, p.Priority, p.IsActive, p.Source)
	if err != nil {
		return nil, err
	}
	return s.GetTx(ctx, tx, p.UserID, p.ID)
}

func (s *PlanItemStore) Get(ctx context.Context, userID, id string) (*PlanItem, error) {
	var p *PlanItem
	err := s.pools.WithUserRead(ctx, userID, func(tx *dbpool.Tx) error {
		var getErr error
		p, getErr = s.GetTx(ctx, tx, userID, id)
		return getErr
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("composition: get plan item: %w", err)
	}
	return p, nil
}

func (s *PlanItemStore) GetTx(ctx context.Context, tx *dbpool.Tx, userID, id string) (*PlanItem, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT id, user_id, intent_key, loadout_id, variant_id, dock_number, away_officers, priority, is_active, source
		FROM plan_items WHERE user_id = $1 AND id = $2`, userID, id)
	return scanPlanItem(row)
}

func scanPlanItem(row *sql.Row) (*PlanItem, error) {
	p := &PlanItem{}
	var awayOfficers []byte
	err := row.Scan(&p.ID, &p.UserID, &p.IntentKey, &p.LoadoutID, &p.VariantID, &p.DockNumber, &awayOfficers, &p.Priority, &p.IsActive, &p.Source)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("composition: scan plan item: %w", err)
	}
	if len(awayOfficers) > 0 {
		if err := json.Unmarshal(awayOfficers, &p.AwayOfficers); err != nil {
			return nil, fmt.Errorf("composition: unmarshal away officers: %w", err)
		}
	}
	return p, nil
}

// ListActive returns every active plan item for userID, ordered by
// priority desc — the order the tool runtime's plan-resolution reads
// them in.
func (s *PlanItemStore) ListActive(ctx context.Context, userID string) ([]*PlanItem, error) {
	var out []*PlanItem
	err := s.pools.WithUserRead(ctx, userID, func(tx *dbpool.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT id, user_id, intent_key, loadout_id, variant_id, dock_number, away_officers, priority, is_active, source
			FROM plan_items WHERE user_id = $1 AND is_active = true ORDER BY priority DESC`, userID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			p := &PlanItem{}
			var awayOfficers []byte
			if err := rows.Scan(&p.ID, &p.UserID, &p.IntentKey, &p.LoadoutID, &p.VariantID, &p.DockNumber, &awayOfficers, &p.Priority, &p.IsActive, &p.Source); err != nil {
				return err
			}
			_ = json.Unmarshal(awayOfficers, &p.AwayOfficers)
			out = append(out, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("composition: list active plan items: %w", err)
	}
	return out, nil
}

func (s *PlanItemStore) UpdateTx(ctx context.Context, tx *dbpool.Tx, userID, id string, patch map[string]json.RawMessage) (*PlanItem, error) {
	existing, err := s.GetTx(ctx, tx, userID, id)
	if err != nil {
		return nil, err
	}
	applyStringPtrField(patch, "intentKey", &existing.IntentKey)
	applyStringPtrField(patch, "loadoutId", &existing.LoadoutID)
	applyStringPtrField(patch, "variantId", &existing.VariantID)
	applyIntPtrField(patch, "dockNumber", &existing.DockNumber)
	applyStringSliceField(patch, "awayOfficers", &existing.AwayOfficers)
	applyIntField(patch, "priority", &existing.Priority)
	applyBoolField(patch, "isActive", &existing.IsActive)

	awayOfficers, err := json.Marshal(existing.AwayOfficers)
	if err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE plan_items SET intent_key = $1, loadout_id = $2, variant_id = $3, dock_number = $4,
			away_officers = $5, priority = $6, is_active = $7
		WHERE user_id = $8 AND id = $9`,
		existing.IntentKey, existing.LoadoutID, existing.VariantID, existing.DockNumber,
		awayOfficers, existing.Priority, existing.IsActive, userID, id)
	if err != nil {
		return nil, err
	}
	return existing, nil
}

func (s *PlanItemStore) Update(ctx context.Context, userID, id string, patch map[string]json.RawMessage) (*PlanItem, string, error) {
	var updated *PlanItem
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
				map[string]any{"planItemId": id, "patch": patch}, before)
			if err != nil {
				return err
			}
			receiptID = rid
		}
		return nil
	})
	if err != nil {
		return nil, "", fmt.Errorf("composition: update plan item: %w", err)
	}
	return updated, receiptID, nil
}

// DeleteTx removes a plan item inside a transaction the caller already
// owns, returning the pre-delete row for inverse capture — the shape
// toolruntime's remove_plan_item Apply handler runs in.
func (s *PlanItemStore) DeleteTx(ctx context.Context, tx *dbpool.Tx, userID, id string) (*PlanItem, error) {
	before, err := s.GetTx(ctx, tx, userID, id)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM plan_items WHERE user_id = $1 AND id = $2`, userID, id); err != nil {
		return nil, err
	}
	return before, nil
}

func (s *PlanItemStore) Delete(ctx context.Context, userID, id string) (string, error) {
	var receiptID string
	err := s.pools.WithUserScope(ctx, userID, func(tx *dbpool.Tx) error {
		before, err := s.DeleteTx(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		if s.receipt != nil {
			rid, err := s.receipt.WriteOverlayReceipt(ctx, tx, userID, LayerComposition,
				map[string]any{"deletedPlanItemId": id}, before)
			if err != nil {
				return err
			}
			receiptID = rid
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("composition: delete plan item: %w", err)
	}
	return receiptID, nil
}
