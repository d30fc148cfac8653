// Package catalog holds the vendor-provided reference catalog of
// officers and ships (global, admin-pool backed) and the per-user
// overlay that annotates it with ownership, stats, and target flags
// (§4.2). Grounded on core/pkg/store/receipt_store.go for the
// Postgres CRUD idiom and core/pkg/mcp/catalog.go for the read-side
// shape of a reference catalog.
package catalog

import "time"

// Officer is a ReferenceOfficer row: global, vendor-sourced, overwritten
// on re-ingest by RefID.
type Officer struct {
	RefID              string
	Name               string
	Rarity             string
	Class              string
	Faction            string
	Abilities          []byte // raw JSON
	ProvenanceSource   string
	ProvenanceURL      string
	ProvenanceRevision string
	UpdatedAt          time.Time
}

// Ship is a ReferenceShip row; identical shape to Officer plus Tier.
type Ship struct {
	RefID              string
	Name               string
	Rarity             string
	Class              string
	Tier               string
	Faction            string
	Abilities          []byte
	ProvenanceSource   string
	ProvenanceURL      string
	ProvenanceRevision string
	UpdatedAt          time.Time
}

// OfficerOverlay is a per-user OfficerOverlay row (§3).
type OfficerOverlay struct {
	UserID         string
	RefID          string
	OwnershipState string // unknown | owned | unowned
	Target         bool
	UserLevel      *int
	UserRank       *int
	UserPower      *int64
	TargetNote     *string
	TargetPriority *int
	UpdatedAt      time.Time
}

// ShipOverlay is a per-user ShipOverlay row.
type ShipOverlay struct {
	UserID         string
	RefID          string
	OwnershipState string
	Target         bool
	UserLevel      *int
	UserTier       *int
	TargetNote     *string
	TargetPriority *int
	UpdatedAt      time.Time
}

// MergedOfficer is one flat row joining Officer with its (possibly
// absent) OfficerOverlay for the requesting user — the shape returned by
// every catalog list/get endpoint (§4.2 "merged-read").
type MergedOfficer struct {
	Officer
	OwnershipState string
	Target         bool
	UserLevel      *int
	UserRank       *int
	UserPower      *int64
	TargetNote     *string
	TargetPriority *int
}

// MergedShip is the ship-side equivalent of MergedOfficer.
type MergedShip struct {
	Ship
	OwnershipState string
	Target         bool
	UserLevel      *int
	UserTier       *int
	TargetNote     *string
	TargetPriority *int
}

// defaultOwnershipState is what a merged-read reports when no overlay
// row exists yet for a refId (§4.2).
const defaultOwnershipState = "unknown"
