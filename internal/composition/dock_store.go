package composition

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fleetintel/core/internal/dbpool"
)

// DockStore manages Dock rows, keyed by (userID, dockNumber) rather
// than a generated id — a fleet has at most a handful of docks, and the
// dock number itself is the natural key (§3).
type DockStore struct {
	pools   *dbpool.Pools
	receipt ReceiptWriter
}

func NewDockStore(pools *dbpool.Pools, receipt ReceiptWriter) *DockStore {
	return &DockStore{pools: pools, receipt: receipt}
}

// UpsertTx inserts or overwrites the dock's label/notes for dockNumber.
func (s *DockStore) UpsertTx(ctx context.Context, tx *dbpool.Tx, d *Dock) (*Dock, error) {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO docks (user_id, dock_number, label, notes)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, dock_number) DO UPDATE SET label = excluded.label, notes = excluded.notes`,
		d.UserID, d.DockNumber, d.Label, d.Notes)
	if err != nil {
		return nil, err
	}
	return s.GetTx(ctx, tx, d.UserID, d.DockNumber)
}

func (s *DockStore) Upsert(ctx context.Context, d *Dock) (*Dock, string, error) {
	var updated *Dock
	var receiptID string
	err := s.pools.WithUserScope(ctx, d.UserID, func(tx *dbpool.Tx) error {
		before, _ := s.GetTx(ctx, tx, d.UserID, d.DockNumber)
		after, err := s.UpsertTx(ctx, tx, d)
		if err != nil {
			return err
		}
		updated = after
		if s.receipt != nil {
			rid, err := s.receipt.WriteOverlayReceipt(ctx, tx, d.UserID, LayerComposition,
				map[string]any{"dockNumber": d.DockNumber, "label": d.Label, "notes": d.Notes}, before)
			if err != nil {
				return err
			}
			receiptID = rid
		}
		return nil
	})
	if err != nil {
		return nil, "", fmt.Errorf("composition: upsert dock: %w", err)
	}
	return updated, receiptID, nil
}

func (s *DockStore) Get(ctx context.Context, userID string, dockNumber int) (*Dock, error) {
	var d *Dock
	err := s.pools.WithUserRead(ctx, userID, func(tx *dbpool.Tx) error {
		var getErr error
		d, getErr = s.GetTx(ctx, tx, userID, dockNumber)
		return getErr
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("composition: get dock: %w", err)
	}
	return d, nil
}

func (s *DockStore) GetTx(ctx context.Context, tx *dbpool.Tx, userID string, dockNumber int) (*Dock, error) {
	row := tx.QueryRowContext(ctx, `SELECT user_id, dock_number, label, notes FROM docks WHERE user_id = $1 AND dock_number = $2`, userID, dockNumber)
	d := &Dock{}
	if err := row.Scan(&d.UserID, &d.DockNumber, &d.Label, &d.Notes); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("composition: scan dock: %w", err)
	}
	return d, nil
}

func (s *DockStore) List(ctx context.Context, userID string) ([]*Dock, error) {
	var out []*Dock
	err := s.pools.WithUserRead(ctx, userID, func(tx *dbpool.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT user_id, dock_number, label, notes FROM docks WHERE user_id = $1 ORDER BY dock_number`, userID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			d := &Dock{}
			if err := rows.Scan(&d.UserID, &d.DockNumber, &d.Label, &d.Notes); err != nil {
				return err
			}
			out = append(out, d)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("composition: list docks: %w", err)
	}
	return out, nil
}

func (s *DockStore) Delete(ctx context.Context, userID string, dockNumber int) (string, error) {
	var receiptID string
	err := s.pools.WithUserScope(ctx, userID, func(tx *dbpool.Tx) error {
		before, err := s.GetTx(ctx, tx, userID, dockNumber)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM docks WHERE user_id = $1 AND dock_number = $2`, userID, dockNumber); err != nil {
			return err
		}
		if s.receipt != nil {
			rid, err := s.receipt.WriteOverlayReceipt(ctx, tx, userID, LayerComposition,
				map[string]any{"deletedDockNumber": dockNumber}, before)
			if err != nil {
				return err
			}
			receiptID = rid
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("composition: delete dock: %w", err)
	}
	return receiptID, nil
}
