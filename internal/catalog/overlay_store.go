package catalog

import (
	"context"
	"fmt"

	"github.com/fleetintel/core/internal/dbpool"
)

// LayerOwnership is the receipt layer tag the overlay tools in
// internal/tools (set_*_overlay, bulk_patch_*) write under (§4.2,
// §4.3 "layers").
const LayerOwnership = "ownership"

// ReceiptWriter is the narrow surface catalog needs from
// internal/mutation to record an import receipt inside the same
// transaction as a bulk overlay patch, without catalog importing
// mutation directly (mutation in turn never imports catalog — the
// dependency points one way, through this interface).
type ReceiptWriter interface {
	WriteOverlayReceipt(ctx context.Context, tx *dbpool.Tx, userID, layer string, changeset, inverse any) (receiptID string, err error)
}

// OfficerOverlayStore is the per-user half of the officer catalog,
// built on dbpool.Pools so every call runs inside WithUserScope/
// WithUserRead (§4.1).
type OfficerOverlayStore struct {
	pools   *dbpool.Pools
	receipt ReceiptWriter
}

func NewOfficerOverlayStore(pools *dbpool.Pools, receipt ReceiptWriter) *OfficerOverlayStore {
	return &OfficerOverlayStore{pools: pools, receipt: receipt}
}

// ListMerged returns every reference officer left-joined against this
// user's overlay; absent overlays default per §4.2.
func (s *OfficerOverlayStore) ListMerged(ctx context.Context, userID string) ([]*MergedOfficer, error) {
	var out []*MergedOfficer
	err := s.pools.WithUserRead(ctx, userID, func(tx *dbpool.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT r.ref_id, r.name, r.rarity, r.class, r.faction, r.abilities,
			       r.provenance_source, r.provenance_url, r.provenance_revision, r.updated_at,
			       COALESCE(o.ownership_state, 'unknown'), COALESCE(o.target, false),
			       o.user_level, o.user_rank, o.user_power, o.target_note, o.target_priority
			FROM reference_officers r
			LEFT JOIN officer_overlays o ON o.ref_id = r.ref_id AND o.user_id = $1
			ORDER BY r.name`, userID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			m := &MergedOfficer{}
			if err := rows.Scan(&m.RefID, &m.Name, &m.Rarity, &m.Class, &m.Faction, &m.Abilities,
				&m.ProvenanceSource, &m.ProvenanceURL, &m.ProvenanceRevision, &m.UpdatedAt,
				&m.OwnershipState, &m.Target, &m.UserLevel, &m.UserRank, &m.UserPower,
				&m.TargetNote, &m.TargetPriority); err != nil {
				return err
			}
			out = append(out, m)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: list merged officers: %w", err)
	}
	return out, nil
}

// SetOverlay creates or patches the overlay row for refID (§4.2's
// setOfficerOverlay). A field omitted from patch is left
// unchanged on an existing row, or defaulted on first touch.
func (s *OfficerOverlayStore) SetOverlay(ctx context.Context, userID, refID string, patch Patch) error {
	return s.pools.WithUserScope(ctx, userID, func(tx *dbpool.Tx) error {
		return upsertOfficerOverlay(ctx, tx, userID, refID, patch)
	})
}

func upsertOfficerOverlay(ctx context.Context, tx *dbpool.Tx, userID, refID string, patch Patch) error {
	ownership, ownershipPresent, err := patch.stringField("ownershipState")
	if err != nil {
		return err
	}
	target, targetPresent, err := patch.boolField("target")
	if err != nil {
		return err
	}
	level, levelPresent, err := patch.intField("userLevel")
	if err != nil {
		return err
	}
	rank, rankPresent, err := patch.intField("userRank")
	if err != nil {
		return err
	}
	power, powerPresent, err := patch.int64Field("userPower")
	if err != nil {
		return err
	}
	note, notePresent, err := patch.stringField("targetNote")
	if err != nil {
		return err
	}
	priority, priorityPresent, err := patch.intField("targetPriority")
	if err != nil {
		return err
	}

	ownershipVal := defaultOwnershipState
	if ownershipPresent && ownership != nil {
		ownershipVal = *ownership
	}
	targetVal := false
	if targetPresent && target != nil {
		targetVal = *target
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO officer_overlays (user_id, ref_id, ownership_state, target, user_level, user_rank, user_power, target_note, target_priority, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		ON CONFLICT (user_id, ref_id) DO UPDATE SET
			ownership_state = CASE WHEN $10 THEN $3 ELSE officer_overlays.ownership_state END,
			target = CASE WHEN $11 THEN $4 ELSE officer_overlays.target END,
			user_level = CASE WHEN $12 THEN $5 ELSE officer_overlays.user_level END,
			user_rank = CASE WHEN $13 THEN $6 ELSE officer_overlays.user_rank END,
			user_power = CASE WHEN $14 THEN $7 ELSE officer_overlays.user_power END,
			target_note = CASE WHEN $15 THEN $8 ELSE officer_overlays.target_note END,
			target_priority = CASE WHEN $16 THEN $9 ELSE officer_overlays.target_priority END,
			updated_at = now()`,
		userID, refID, ownershipVal, targetVal, level, rank, power, note, priority,
		ownershipPresent, targetPresent, levelPresent, rankPresent, powerPresent, notePresent, priorityPresent)
	return err
}

// ApplyPatchTx upserts refID's overlay inside a transaction the caller
// already owns — used by the translator's apply stage, which snapshots,
// patches, and writes one receipt for several refIds atomically.
func (s *OfficerOverlayStore) ApplyPatchTx(ctx context.Context, tx *dbpool.Tx, userID, refID string, patch Patch) error {
	return upsertOfficerOverlay(ctx, tx, userID, refID, patch)
}

// SnapshotTx returns the pre-patch overlay row (or nil on first touch)
// inside a transaction the caller already owns.
func (s *OfficerOverlayStore) SnapshotTx(ctx context.Context, tx *dbpool.Tx, userID, refID string) (*OfficerOverlay, error) {
	return getOfficerOverlayForUpdate(ctx, tx, userID, refID)
}

func getOfficerOverlayForUpdate(ctx context.Context, tx *dbpool.Tx, userID, refID string) (*OfficerOverlay, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT user_id, ref_id, ownership_state, target, user_level, user_rank, user_power, target_note, target_priority, updated_at
		FROM officer_overlays WHERE user_id = $1 AND ref_id = $2`, userID, refID)

	o := &OfficerOverlay{}
	err := row.Scan(&o.UserID, &o.RefID, &o.OwnershipState, &o.Target, &o.UserLevel, &o.UserRank, &o.UserPower, &o.TargetNote, &o.TargetPriority, &o.UpdatedAt)
	if err != nil {
		// No existing row: the inverse is "delete to defaults", represented
		// as a nil snapshot rather than an error — first-touch is not a
		// failure.
		return nil, nil //nolint:nilerr
	}
	return o, nil
}

// ShipOverlayStore is the ship-side equivalent of OfficerOverlayStore.
type ShipOverlayStore struct {
	pools   *dbpool.Pools
	receipt ReceiptWriter
}

func NewShipOverlayStore(pools *dbpool.Pools, receipt ReceiptWriter) *ShipOverlayStore {
	return &ShipOverlayStore{pools: pools, receipt: receipt}
}

func (s *ShipOverlayStore) ListMerged(ctx context.Context, userID string) ([]*MergedShip, error) {
	var out []*MergedShip
	err := s.pools.WithUserRead(ctx, userID, func(tx *dbpool.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT r.ref_id, r.name, r.rarity, r.class, r.tier, r.faction, r.abilities,
			       r.provenance_source, r.provenance_url, r.provenance_revision, r.updated_at,
			       COALESCE(o.ownership_state, 'unknown'), COALESCE(o.target, false),
			       o.user_level, o.user_tier, o.target_note, o.target_priority
			FROM reference_ships r
			LEFT JOIN ship_overlays o ON o.ref_id = r.ref_id AND o.user_id = $1
			ORDER BY r.name`, userID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			m := &MergedShip{}
			if err := rows.Scan(&m.RefID, &m.Name, &m.Rarity, &m.Class, &m.Tier, &m.Faction, &m.Abilities,
				&m.ProvenanceSource, &m.ProvenanceURL, &m.ProvenanceRevision, &m.UpdatedAt,
				&m.OwnershipState, &m.Target, &m.UserLevel, &m.UserTier, &m.TargetNote, &m.TargetPriority); err != nil {
				return err
			}
			out = append(out, m)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: list merged ships: %w", err)
	}
	return out, nil
}

func (s *ShipOverlayStore) SetOverlay(ctx context.Context, userID, refID string, patch Patch) error {
	return s.pools.WithUserScope(ctx, userID, func(tx *dbpool.Tx) error {
		return upsertShipOverlay(ctx, tx, userID, refID, patch)
	})
}

func upsertShipOverlay(ctx context.Context, tx *dbpool.Tx, userID, refID string, patch Patch) error {
	ownership, ownershipPresent, err := patch.stringField("ownershipState")
	if err != nil {
		return err
	}
	target, targetPresent, err := patch.boolField("target")
	if err != nil {
		return err
	}
	level, levelPresent, err := patch.intField("userLevel")
	if err != nil {
		return err
	}
	tier, tierPresent, err := patch.intField("userTier")
	if err != nil {
		return err
	}
	note, notePresent, err := patch.stringField("targetNote")
	if err != nil {
		return err
	}
	priority, priorityPresent, err := patch.intField("targetPriority")
	if err != nil {
		return err
	}

	ownershipVal := defaultOwnershipState
	if ownershipPresent && ownership != nil {
		ownershipVal = *ownership
	}
	targetVal := false
	if targetPresent && target != nil {
		targetVal = *target
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO ship_overlays (user_id, ref_id, ownership_state, target, user_level, user_tier, target_note, target_priority, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (user_id, ref_id) DO UPDATE SET
			ownership_state = CASE WHEN $9 THEN $3 ELSE ship_overlays.ownership_state END,
			target = CASE WHEN $10 THEN $4 ELSE ship_overlays.target END,
			user_level = CASE WHEN $11 THEN $5 ELSE ship_overlays.user_level END,
			user_tier = CASE WHEN $12 THEN $6 ELSE ship_overlays.user_tier END,
			target_note = CASE WHEN $13 THEN $7 ELSE ship_overlays.target_note END,
			target_priority = CASE WHEN $14 THEN $8 ELSE ship_overlays.target_priority END,
			updated_at = now()`,
		userID, refID, ownershipVal, targetVal, level, tier, note, priority,
		ownershipPresent, targetPresent, levelPresent, tierPresent, notePresent, priorityPresent)
	return err
}

// ApplyPatchTx is ShipOverlayStore's equivalent of
// OfficerOverlayStore.ApplyPatchTx.
func (s *ShipOverlayStore) ApplyPatchTx(ctx context.Context, tx *dbpool.Tx, userID, refID string, patch Patch) error {
	return upsertShipOverlay(ctx, tx, userID, refID, patch)
}

// SnapshotTx is ShipOverlayStore's equivalent of
// OfficerOverlayStore.SnapshotTx.
func (s *ShipOverlayStore) SnapshotTx(ctx context.Context, tx *dbpool.Tx, userID, refID string) (*ShipOverlay, error) {
	return getShipOverlayForUpdate(ctx, tx, userID, refID)
}

func getShipOverlayForUpdate(ctx context.Context, tx *dbpool.Tx, userID, refID string) (*ShipOverlay, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT user_id, ref_id, ownership_state, target, user_level, user_tier, target_note, target_priority, updated_at
		FROM ship_overlays WHERE user_id = $1 AND ref_id = $2`, userID, refID)

	o := &ShipOverlay{}
	err := row.Scan(&o.UserID, &o.RefID, &o.OwnershipState, &o.Target, &o.UserLevel, &o.UserTier, &o.TargetNote, &o.TargetPriority, &o.UpdatedAt)
	if err != nil {
		return nil, nil //nolint:nilerr
	}
	return o, nil
}
