// Package composition holds the per-user "crew on ship in slot"
// entities §3 groups as the scheduling layer over the catalog:
// Loadout, BridgeCore, BelowDeckPolicy, LoadoutVariant, Dock, PlanItem,
// and Target. Built on the same dbpool substrate and store-construction
// idiom as internal/catalog (New*Store(pools, ...) *Store,
// method-per-operation, catalog.Patch for partial updates) — no single
// teacher file owns this domain, so each store is new code following
// that idiom rather than a port.
package composition

import "time"

// BridgeSlot is where an officer sits on a BridgeCore.
type BridgeSlot string

const (
	SlotCaptain BridgeSlot = "captain"
	SlotBridge1 BridgeSlot = "bridge_1"
	SlotBridge2 BridgeSlot = "bridge_2"
)

// BridgeCoreMember is one officer assignment within a BridgeCore.
type BridgeCoreMember struct {
	OfficerRefID string     `json:"officerRefId"`
	Slot         BridgeSlot `json:"slot"`
}

// BelowDeckMode is how a BelowDeckPolicy selects crew to fill non-bridge
// slots.
type BelowDeckMode string

const (
	ModeStatsThenBDA BelowDeckMode = "stats_then_bda"
	ModePinnedOnly   BelowDeckMode = "pinned_only"
	ModeStatFillOnly BelowDeckMode = "stat_fill_only"
)

// BelowDeckSpec is the policy body (§3's "spec{pinned[],
// prefer_modifiers[], avoid_reserved, max_slots}").
type BelowDeckSpec struct {
	Pinned          []string `json:"pinned,omitempty"`
	PreferModifiers []string `json:"preferModifiers,omitempty"`
	AvoidReserved   bool     `json:"avoidReserved"`
	MaxSlots        int      `json:"maxSlots,omitempty"`
}

// Loadout is a Loadout row.
type Loadout struct {
	ID                string
	UserID            string
	ShipRefID         string
	Name              string
	Priority          int
	IsActive          bool
	IntentKeys        []string
	Tags              []string
	BridgeCoreID      *string
	BelowDeckPolicyID *string
	Notes             *string
	CreatedAt         time.Time
}

// BridgeCore is a BridgeCore row.
type BridgeCore struct {
	ID      string
	UserID  string
	Name    string
	Members []BridgeCoreMember
}

// BelowDeckPolicy is a BelowDeckPolicy row.
type BelowDeckPolicy struct {
	ID     string
	UserID string
	Name   string
	Mode   BelowDeckMode
	Spec   BelowDeckSpec
}

// LoadoutVariantPatch is the overlay a LoadoutVariant applies to its
// base Loadout — never promoted to a standalone Loadout (§3).
type LoadoutVariantPatch struct {
	Bridge        *string        `json:"bridge,omitempty"`
	BelowDeckID   *string        `json:"belowDeckPolicyId,omitempty"`
	BelowDeckSpec *BelowDeckSpec `json:"belowDeckSpec,omitempty"`
	IntentKeys    []string       `json:"intentKeys,omitempty"`
}

// LoadoutVariant is a LoadoutVariant row.
type LoadoutVariant struct {
	ID            string
	UserID        string
	BaseLoadoutID string
	Patch         LoadoutVariantPatch
}

// Dock is a Dock row. DockNumber is the primary key within a user's
// fleet (1..8, sparse — not every number needs a row).
type Dock struct {
	UserID     string
	DockNumber int
	Label      *string
	Notes      *string
}

// PlanItemSource is how a PlanItem came to exist.
type PlanItemSource string

const (
	PlanSourceManual PlanItemSource = "manual"
	PlanSourcePreset PlanItemSource = "preset"
)

// PlanItem is a PlanItem row — the scheduling layer over loadouts
// (§3).
type PlanItem struct {
	ID           string
	UserID       string
	IntentKey    *string
	LoadoutID    *string
	VariantID    *string
	DockNumber   *int
	AwayOfficers []string
	Priority     int
	IsActive     bool
	Source       PlanItemSource
}

// TargetType is what kind of entity a Target tracks progress toward.
type TargetType string

const (
	TargetOfficer TargetType = "officer"
	TargetShip    TargetType = "ship"
	TargetCrew    TargetType = "crew"
	TargetOps     TargetType = "ops"
)

// TargetStatus is a Target's lifecycle state.
type TargetStatus string

const (
	TargetStatusActive    TargetStatus = "active"
	TargetStatusAchieved  TargetStatus = "achieved"
	TargetStatusAbandoned TargetStatus = "abandoned"
)

// Target is a Target row.
type Target struct {
	ID          string
	UserID      string
	TargetType  TargetType
	RefID       *string
	LoadoutID   *string
	TargetTier  *int
	TargetRank  *int
	TargetLevel *int
	Priority    int
	Status      TargetStatus
}
