package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotFound is returned by a lookup that finds no matching refId.
var ErrNotFound = errors.New("catalog: not found")

// OfficerStore manages ReferenceOfficer rows. Global data, so it runs
// directly against the Admin pool — never RLS-scoped, same as Users.
type OfficerStore struct {
	db *sql.DB
}

func NewOfficerStore(db *sql.DB) *OfficerStore {
	return &OfficerStore{db: db}
}

// UpsertOfficer is idempotent by RefID: overwrites provenance on
// re-ingest (§4.2).
func (s *OfficerStore) UpsertOfficer(ctx context.Context, o *Officer) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reference_officers
			(ref_id, name, rarity, class, faction, abilities, provenance_source, provenance_url, provenance_revision, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		ON CONFLICT (ref_id) DO UPDATE SET
			name = excluded.name,
			rarity = excluded.rarity,
			class = excluded.class,
			faction = excluded.faction,
			abilities = excluded.abilities,
			provenance_source = excluded.provenance_source,
			provenance_url = excluded.provenance_url,
			provenance_revision = excluded.provenance_revision,
			updated_at = now()`,
		o.RefID, o.Name, o.Rarity, o.Class, o.Faction, o.Abilities,
		o.ProvenanceSource, o.ProvenanceURL, o.ProvenanceRevision)
	if err != nil {
		return fmt.Errorf("catalog: upsert officer %s: %w", o.RefID, err)
	}
	return nil
}

func (s *OfficerStore) Get(ctx context.Context, refID string) (*Officer, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT ref_id, name, rarity, class, faction, abilities, provenance_source, provenance_url, provenance_revision, updated_at
		FROM reference_officers WHERE ref_id = $1`, refID)
	return scanOfficer(row)
}

func (s *OfficerStore) List(ctx context.Context) ([]*Officer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ref_id, name, rarity, class, faction, abilities, provenance_source, provenance_url, provenance_revision, updated_at
		FROM reference_officers ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("catalog: list officers: %w", err)
	}
	defer rows.Close()

	var out []*Officer
	for rows.Next() {
		o := &Officer{}
		if err := rows.Scan(&o.RefID, &o.Name, &o.Rarity, &o.Class, &o.Faction, &o.Abilities,
			&o.ProvenanceSource, &o.ProvenanceURL, &o.ProvenanceRevision, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("catalog: scan officer: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func scanOfficer(row *sql.Row) (*Officer, error) {
	o := &Officer{}
	err := row.Scan(&o.RefID, &o.Name, &o.Rarity, &o.Class, &o.Faction, &o.Abilities,
		&o.ProvenanceSource, &o.ProvenanceURL, &o.ProvenanceRevision, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("catalog: scan officer: %w", err)
	}
	return o, nil
}

// ShipStore manages ReferenceShip rows — identical shape and pool usage
// to OfficerStore, plus Tier.
type ShipStore struct {
	db *sql.DB
}

func NewShipStore(db *sql.DB) *ShipStore {
	return &ShipStore{db: db}
}

func (s *ShipStore) UpsertShip(ctx context.Context, sh *Ship) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reference_ships
			(ref_id, name, rarity, class, tier, faction, abilities, provenance_source, provenance_url, provenance_revision, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
		ON CONFLICT (ref_id) DO UPDATE SET
			name = excluded.name,
			rarity = excluded.rarity,
			class = excluded.class,
			tier = excluded.tier,
			faction = excluded.faction,
			abilities = excluded.abilities,
			provenance_source = excluded.provenance_source,
			provenance_url = excluded.provenance_url,
			provenance_revision = excluded.provenance_revision,
			updated_at = now()`,
		sh.RefID, sh.Name, sh.Rarity, sh.Class, sh.Tier, sh.Faction, sh.Abilities,
		sh.ProvenanceSource, sh.ProvenanceURL, sh.ProvenanceRevision)
	if err != nil {
		return fmt.Errorf("catalog: upsert ship %s: %w", sh.RefID, err)
	}
	return nil
}

func (s *ShipStore) Get(ctx context.Context, refID string) (*Ship, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT ref_id, name, rarity, class, tier, faction, abilities, provenance_source, provenance_url, provenance_revision, updated_at
		FROM reference_ships WHERE ref_id = $1`, refID)
	return scanShip(row)
}

func (s *ShipStore) List(ctx context.Context) ([]*Ship, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ref_id, name, rarity, class, tier, faction, abilities, provenance_source, provenance_url, provenance_revision, updated_at
		FROM reference_ships ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("catalog: list ships: %w", err)
	}
	defer rows.Close()

	var out []*Ship
	for rows.Next() {
		sh := &Ship{}
		if err := rows.Scan(&sh.RefID, &sh.Name, &sh.Rarity, &sh.Class, &sh.Tier, &sh.Faction, &sh.Abilities,
			&sh.ProvenanceSource, &sh.ProvenanceURL, &sh.ProvenanceRevision, &sh.UpdatedAt); err != nil {
			return nil, fmt.Errorf("catalog: scan ship: %w", err)
		}
		out = append(out, sh)
	}
	return out, rows.Err()
}

func scanShip(row *sql.Row) (*Ship, error) {
	sh := &Ship{}
	err := row.Scan(&sh.RefID, &sh.Name, &sh.Rarity, &sh.Class, &sh.Tier, &sh.Faction, &sh.Abilities,
		&sh.ProvenanceSource, &sh.ProvenanceURL, &sh.ProvenanceRevision, &sh.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("catalog: scan ship: %w", err)
	}
	return sh, nil
}
