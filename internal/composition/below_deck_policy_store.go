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

// BelowDeckPolicyStore manages BelowDeckPolicy rows.
type BelowDeckPolicyStore struct {
	pools   *dbpool.Pools
	receipt ReceiptWriter
}

func NewBelowDeckPolicyStore(pools *dbpool.Pools, receipt ReceiptWriter) *BelowDeckPolicyStore {
	return &BelowDeckPolicyStore{pools: pools, receipt: receipt}
}

func (s *BelowDeckPolicyStore) Create(ctx context.Context, p *BelowDeckPolicy) (*BelowDeckPolicy, error) {
	var created *BelowDeckPolicy
	err := s.pools.WithUserScope(ctx, p.UserID, func(tx *dbpool.Tx) error {
		var createErr error
		created, createErr = s.CreateTx(ctx, tx, p)
		return createErr
	})
	if err != nil {
		return nil, fmt.Errorf("composition: create below deck policy: %w", err)
	}
	return created, nil
}

func (s *BelowDeckPolicyStore) CreateTx(ctx context.Context, tx *dbpool.Tx, p *BelowDeckPolicy) (*BelowDeckPolicy, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	spec, err := json.Marshal(p.Spec)
	if err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO below_deck_policies (id, user_id, name, mode, spec)
		VALUES ($1, $2, $3, $4, $5)`, p.ID, p.UserID, p.Name, p.Mode, spec)
	if err != nil {
		return nil, err
	}
	return s.GetTx(ctx, tx, p.UserID, p.ID)
}

func (s *BelowDeckPolicyStore) Get(ctx context.Context, userID, id string) (*BelowDeckPolicy, error) {
	var p *BelowDeckPolicy
	err := s.pools.WithUserRead(ctx, userID, func(tx *dbpool.Tx) error {
		var getErr error
		p, getErr = s.GetTx(ctx, tx, userID, id)
		return getErr
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("composition: get below deck policy: %w", err)
	}
	return p, nil
}

func (s *BelowDeckPolicyStore) GetTx(ctx context.Context, tx *dbpool.Tx, userID, id string) (*BelowDeckPolicy, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT id, user_id, name, mode, spec FROM below_deck_policies WHERE user_id = $1 AND id = $2`, userID, id)
	p := &BelowDeckPolicy{}
	var spec []byte
	if err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.Mode, &spec); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("composition: scan below deck policy: %w", err)
	}
	if len(spec) > 0 {
		if err := json.Unmarshal(spec, &p.Spec); err != nil {
			return nil, fmt.Errorf("composition: unmarshal spec: %w", err)
		}
	}
	return p, nil
}

func (s *BelowDeckPolicyStore) List(ctx context.Context, userID string) ([]*BelowDeckPolicy, error) {
	var out []*BelowDeckPolicy
	err := s.pools.WithUserRead(ctx, userID, func(tx *dbpool.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT id, user_id, name, mode, spec FROM below_deck_policies WHERE user_id = $1 ORDER BY name`, userID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			p := &BelowDeckPolicy{}
			var spec []byte
			if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.Mode, &spec); err != nil {
				return err
			}
			_ = json.Unmarshal(spec, &p.Spec)
			out = append(out, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("composition: list below deck policies: %w", err)
	}
	return out, nil
}

func (s *BelowDeckPolicyStore) UpdateTx(ctx context.Context, tx *dbpool.Tx, userID, id, name string, mode BelowDeckMode, spec BelowDeckSpec) (*BelowDeckPolicy, error) {
	encoded, err := json.Marshal(spec)
	if err != nil {
		return nil, err
	}
	res, err := tx.ExecContext(ctx, `UPDATE below_deck_policies SET name = $1, mode = $2, spec = $3 WHERE user_id = $4 AND id = $5`,
		name, mode, encoded, userID, id)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.GetTx(ctx, tx, userID, id)
}

func (s *BelowDeckPolicyStore) Update(ctx context.Context, userID, id, name string, mode BelowDeckMode, spec BelowDeckSpec) (*BelowDeckPolicy, string, error) {
	var updated *BelowDeckPolicy
	var receiptID string
	err := s.pools.WithUserScope(ctx, userID, func(tx *dbpool.Tx) error {
		before, err := s.GetTx(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		after, err := s.UpdateTx(ctx, tx, userID, id, name, mode, spec)
		if err != nil {
			return err
		}
		updated = after
		if s.receipt != nil {
			rid, err := s.receipt.WriteOverlayReceipt(ctx, tx, userID, LayerComposition,
				map[string]any{"belowDeckPolicyId": id, "name": name, "mode": mode, "spec": spec}, before)
			if err != nil {
				return err
			}
			receiptID = rid
		}
		return nil
	})
	if err != nil {
		return nil, "", fmt.Errorf("composition: update below deck policy: %w", err)
	}
	return updated, receiptID, nil
}

func (s *BelowDeckPolicyStore) Delete(ctx context.Context, userID, id string) (string, error) {
	var receiptID string
	err := s.pools.WithUserScope(ctx, userID, func(tx *dbpool.Tx) error {
		before, err := s.GetTx(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM below_deck_policies WHERE user_id = $1 AND id = $2`, userID, id); err != nil {
			return err
		}
		if s.receipt != nil {
			rid, err := s.receipt.WriteOverlayReceipt(ctx, tx, userID, LayerComposition,
				map[string]any{"deletedBelowDeckPolicyId": id}, before)
			if err != nil {
				return err
			}
			receiptID = rid
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("composition: delete below deck policy: %w", err)
	}
	return receiptID, nil
}
