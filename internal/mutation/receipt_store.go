package mutation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fleetintel/core/internal/dbpool"
	"github.com/google/uuid"
)

// ReceiptStore manages ImportReceipt rows — the single receipt shape
// shared by the translator's Apply stage (§4.3) and any other
// mutation that snapshots an inverse (bulk overlay patch, §4.2).
type ReceiptStore struct {
	pools *dbpool.Pools
}

func NewReceiptStore(pools *dbpool.Pools) *ReceiptStore {
	return &ReceiptStore{pools: pools}
}

// Write inserts a receipt inside tx, the same transaction as the
// mutation it documents (§4.4's atomicity invariant: "no
// receipt exists without a committed mutation").
func (s *ReceiptStore) Write(ctx context.Context, tx *dbpool.Tx, r *Receipt) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO import_receipts (id, user_id, source_type, source_meta, mapping, layer, changeset, inverse, unresolved, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())`,
		r.ID, r.UserID, r.SourceType, r.SourceMeta, r.Mapping, r.Layer, r.Changeset, r.Inverse, r.Unresolved)
	if err != nil {
		return fmt.Errorf("mutation: write receipt: %w", err)
	}
	return nil
}

// WriteOverlayReceipt implements catalog.ReceiptWriter: a bulk overlay
// patch writes a receipt tagged by layer with changeset/inverse supplied
// by the caller, source_type fixed to "overlay" (it did not come from an
// import pipeline run).
func (s *ReceiptStore) WriteOverlayReceipt(ctx context.Context, tx *dbpool.Tx, userID, layer string, changeset, inverse any) (string, error) {
	changesetJSON, err := json.Marshal(changeset)
	if err != nil {
		return "", fmt.Errorf("mutation: marshal overlay changeset: %w", err)
	}
	inverseJSON, err := json.Marshal(inverse)
	if err != nil {
		return "", fmt.Errorf("mutation: marshal overlay inverse: %w", err)
	}

	r := &Receipt{
		ID:         uuid.NewString(),
		UserID:     userID,
		SourceType: "overlay",
		Layer:      layer,
		Changeset:  changesetJSON,
		Inverse:    inverseJSON,
	}
	if err := s.Write(ctx, tx, r); err != nil {
		return "", err
	}
	return r.ID, nil
}

// Get returns a receipt for (userID, id), or ErrNotFound.
func (s *ReceiptStore) Get(ctx context.Context, userID, id string) (*Receipt, error) {
	var r *Receipt
	err := s.pools.WithUserRead(ctx, userID, func(tx *dbpool.Tx) error {
		row := tx.QueryRowContext(ctx, `
			SELECT id, user_id, source_type, source_meta, mapping, layer, changeset, inverse, unresolved, created_at
			FROM import_receipts WHERE user_id = $1 AND id = $2`, userID, id)
		var scanErr error
		r, scanErr = scanReceipt(row)
		return scanErr
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("mutation: get receipt: %w", err)
	}
	return r, nil
}

func scanReceipt(row *sql.Row) (*Receipt, error) {
	r := &Receipt{}
	err := row.Scan(&r.ID, &r.UserID, &r.SourceType, &r.SourceMeta, &r.Mapping, &r.Layer, &r.Changeset, &r.Inverse, &r.Unresolved, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("mutation: scan receipt: %w", err)
	}
	return r, nil
}

// List returns receipts for userID ordered by createdAt desc, optionally
// filtered to one layer (§4.3 "callers can list/undo by scope").
func (s *ReceiptStore) List(ctx context.Context, userID string, layer string, limit int) ([]*Receipt, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []*Receipt
	err := s.pools.WithUserRead(ctx, userID, func(tx *dbpool.Tx) error {
		var rows *sql.Rows
		var queryErr error
		if layer != "" {
			rows, queryErr = tx.QueryContext(ctx, `
				SELECT id, user_id, source_type, source_meta, mapping, layer, changeset, inverse, unresolved, created_at
				FROM import_receipts WHERE user_id = $1 AND layer = $2
				ORDER BY created_at DESC LIMIT $3`, userID, layer, limit)
		} else {
			rows, queryErr = tx.QueryContext(ctx, `
				SELECT id, user_id, source_type, source_meta, mapping, layer, changeset, inverse, unresolved, created_at
				FROM import_receipts WHERE user_id = $1
				ORDER BY created_at DESC LIMIT $2`, userID, limit)
		}
		if queryErr != nil {
			return queryErr
		}
		defer rows.Close()

		for rows.Next() {
			r := &Receipt{}
			if err := rows.Scan(&r.ID, &r.UserID, &r.SourceType, &r.SourceMeta, &r.Mapping, &r.Layer, &r.Changeset, &r.Inverse, &r.Unresolved, &r.CreatedAt); err != nil {
				return err
			}
			out = append(out, r)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("mutation: list receipts: %w", err)
	}
	return out, nil
}

// ResolveReceiptItems attaches later user decisions to unresolved rows
// on an already-written receipt (§4.3 "resolve-items
// follow-up"). It merges into the stored unresolved array by rowIndex
// and never touches inverse — undo must keep working off the original
// snapshot regardless of what gets resolved afterward.
func (s *ReceiptStore) ResolveReceiptItems(ctx context.Context, userID, receiptID string, decisions []ItemDecision) error {
	return s.pools.WithUserScope(ctx, userID, func(tx *dbpool.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT unresolved FROM import_receipts WHERE user_id = $1 AND id = $2 FOR UPDATE`, userID, receiptID)
		var raw []byte
		if err := row.Scan(&raw); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}

		var unresolved []UnresolvedItem
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &unresolved); err != nil {
				return fmt.Errorf("mutation: unmarshal unresolved: %w", err)
			}
		}

		byRow := make(map[int]ItemDecision, len(decisions))
		for _, d := range decisions {
			byRow[d.RowIndex] = d
		}
		for i := range unresolved {
			if d, ok := byRow[unresolved[i].RowIndex]; ok {
				unresolved[i].ResolvedRefID = &d.RefID
			}
		}

		merged, err := json.Marshal(unresolved)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `UPDATE import_receipts SET unresolved = $1 WHERE user_id = $2 AND id = $3`,
			merged, userID, receiptID)
		return err
	})
}

// ItemDecision is one user pick from a resolve-items follow-up call.
type ItemDecision struct {
	RowIndex int    `json:"rowIndex"`
	RefID    string `json:"refId"`
}

// UnresolvedItem is one row the resolve stage could not confidently
// match, stored in Receipt.Unresolved.
type UnresolvedItem struct {
	RowIndex      int      `json:"rowIndex"`
	Name          string   `json:"name"`
	Candidates    []string `json:"candidates,omitempty"`
	ResolvedRefID *string  `json:"resolvedRefId,omitempty"`
}
