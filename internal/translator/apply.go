package translator

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fleetintel/core/internal/catalog"
	"github.com/fleetintel/core/internal/dbpool"
	"github.com/fleetintel/core/internal/mutation"
	"github.com/google/uuid"
)

// officerOverlayWriter and shipOverlayWriter are the narrow,
// transaction-scoped surfaces Apply needs from internal/catalog's
// overlay stores.
type officerOverlayWriter interface {
	ApplyPatchTx(ctx context.Context, tx *dbpool.Tx, userID, refID string, patch catalog.Patch) error
	SnapshotTx(ctx context.Context, tx *dbpool.Tx, userID, refID string) (*catalog.OfficerOverlay, error)
}

type shipOverlayWriter interface {
	ApplyPatchTx(ctx context.Context, tx *dbpool.Tx, userID, refID string, patch catalog.Patch) error
	SnapshotTx(ctx context.Context, tx *dbpool.Tx, userID, refID string) (*catalog.ShipOverlay, error)
}

// receiptWriter is the tx-scoped surface Apply needs from
// internal/mutation.
type receiptWriter interface {
	Write(ctx context.Context, tx *dbpool.Tx, r *mutation.Receipt) error
}

// ApplyResult reports what the apply stage committed.
type ApplyResult struct {
	ReceiptID       string
	OfficersApplied int
	ShipsApplied    int
	OfficersSkipped int // rows left unresolved, not written
	ShipsSkipped    int
}

// Apply commits every confidently-resolved row from a ResolvedImport in
// one user-scoped transaction, snapshotting each touched overlay before
// patching it so the receipt's inverse can undo the whole run atomically
// (§4.3/§4.4: "no receipt exists without a committed mutation,
// and undo always restores exactly the prior state"). Rows left
// unresolved (no RefID) are recorded in the receipt's unresolved list
// for a later resolve-items follow-up rather than silently dropped.
//
// Docks are composition-layer entities with no overlay store yet wired
// here; dock rows pass through resolve untouched and are carried in the
// receipt's unresolved list so a later composition-aware apply path can
// pick them up without re-running translate/resolve.
func Apply(ctx context.Context, pools *dbpool.Pools, userID string, resolved *ResolvedImport,
	officers officerOverlayWriter, ships shipOverlayWriter, receipts receiptWriter,
	sourceType string, sourceMeta, mapping []byte) (*ApplyResult, error) {

	result := &ApplyResult{}
	changeset := map[string]any{}
	inverse := map[string]any{}
	var unresolved []mutation.UnresolvedItem

	err := pools.WithUserScope(ctx, userID, func(tx *dbpool.Tx) error {
		officerChanges := map[string]any{}
		officerInverse := map[string]any{}
		for _, row := range resolved.Officers {
			if row.RefID == "" {
				result.OfficersSkipped++
				unresolved = append(unresolved, unresolvedFromRow(row))
				continue
			}
			before, err := officers.SnapshotTx(ctx, tx, userID, row.RefID)
			if err != nil {
				return fmt.Errorf("translator: snapshot officer overlay %s: %w", row.RefID, err)
			}
			patch, err := catalog.NewPatchFromValues(row.Entity.Fields)
			if err != nil {
				return fmt.Errorf("translator: build patch for officer %s: %w", row.RefID, err)
			}
			if err := officers.ApplyPatchTx(ctx, tx, userID, row.RefID, patch); err != nil {
				return fmt.Errorf("translator: apply officer overlay %s: %w", row.RefID, err)
			}
			officerChanges[row.RefID] = row.Entity.Fields
			officerInverse[row.RefID] = before
			result.OfficersApplied++
		}
		if len(officerChanges) > 0 {
			changeset["officers"] = officerChanges
			inverse["officers"] = officerInverse
		}

		shipChanges := map[string]any{}
		shipInverse := map[string]any{}
		for _, row := range resolved.Ships {
			if row.RefID == "" {
				result.ShipsSkipped++
				unresolved = append(unresolved, unresolvedFromRow(row))
				continue
			}
			before, err := ships.SnapshotTx(ctx, tx, userID, row.RefID)
			if err != nil {
				return fmt.Errorf("translator: snapshot ship overlay %s: %w", row.RefID, err)
			}
			patch, err := catalog.NewPatchFromValues(row.Entity.Fields)
			if err != nil {
				return fmt.Errorf("translator: build patch for ship %s: %w", row.RefID, err)
			}
			if err := ships.ApplyPatchTx(ctx, tx, userID, row.RefID, patch); err != nil {
				return fmt.Errorf("translator: apply ship overlay %s: %w", row.RefID, err)
			}
			shipChanges[row.RefID] = row.Entity.Fields
			shipInverse[row.RefID] = before
			result.ShipsApplied++
		}
		if len(shipChanges) > 0 {
			changeset["ships"] = shipChanges
			inverse["ships"] = shipInverse
		}

		for _, row := range resolved.Docks {
			unresolved = append(unresolved, unresolvedFromRow(row))
		}

		changesetJSON, err := json.Marshal(changeset)
		if err != nil {
			return err
		}
		inverseJSON, err := json.Marshal(inverse)
		if err != nil {
			return err
		}
		unresolvedJSON, err := json.Marshal(unresolved)
		if err != nil {
			return err
		}

		receiptID := newReceiptID()
		r := &mutation.Receipt{
			ID:         receiptID,
			UserID:     userID,
			SourceType: sourceType,
			SourceMeta: sourceMeta,
			Mapping:    mapping,
			Layer:      mutation.LayerOwnership,
			Changeset:  changesetJSON,
			Inverse:    inverseJSON,
			Unresolved: unresolvedJSON,
		}
		if err := receipts.Write(ctx, tx, r); err != nil {
			return err
		}
		result.ReceiptID = receiptID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func newReceiptID() string { return uuid.NewString() }

func unresolvedFromRow(row ResolvedRow) mutation.UnresolvedItem {
	name, _ := row.Entity.Fields["name"].(string)
	candidates := make([]string, 0, len(row.Candidates))
	for _, c := range row.Candidates {
		candidates = append(candidates, c.RefID)
	}
	return mutation.UnresolvedItem{
		RowIndex:   row.RowIndex,
		Name:       name,
		Candidates: candidates,
	}
}
