package trustpolicy

import (
	"context"
	"encoding/json"
)

// SettingsReader is the narrow surface Engine needs from SettingsStore —
// kept as an interface so tests can fake it without sqlmock.
type SettingsReader interface {
	Get(ctx context.Context, userID, key string) (valueJSON []byte, provenance string, err error)
}

// Engine is the policy decision point: Resolve(tool, user) -> Tier,
// grounded on core/pkg/pdp.PolicyDecisionPoint's Evaluate shape.
// Resolve is only meaningful for tools internal/toolruntime has already
// classified as mutating; it is never consulted for read-only tools.
type Engine struct {
	settings SettingsReader
	defaults map[string]Tier
}

// NewEngine builds an Engine over a per-user settings reader and the
// system default tier map (§4.6 step 2: "explicit, enumerated;
// extending the map is the only way to classify a new tool").
func NewEngine(settings SettingsReader, defaults map[string]Tier) *Engine {
	return &Engine{settings: settings, defaults: defaults}
}

// DefaultSystemTiers is the system's built-in trust classification
// (§4.6 step 2 and the §8 worked example: "activate_preset"
// defaults to block). Ambiguous or destructive actions default to the
// more conservative tier; routine per-entity ownership edits default to
// auto since they're trivially undoable via a receipt.
func DefaultSystemTiers() map[string]Tier {
	return map[string]Tier{
		"set_officer_overlay": TierAuto,
		"set_ship_overlay":    TierAuto,
		"bulk_patch_officers": TierApprove,
		"bulk_patch_ships":    TierApprove,
		"create_loadout":      TierAuto,
		"update_loadout":      TierAuto,
		"delete_loadout":      TierApprove,
		"assign_bridge_core":  TierAuto,
		"sync_below_deck":     TierApprove,
		"create_plan_item":    TierAuto,
		"complete_plan_item":  TierAuto,
		"remove_plan_item":    TierApprove,
		"activate_preset":     TierBlock,
		"delete_target":       TierApprove,
		"import_roster":       TierApprove,
	}
}

// Resolve implements §4.6's three-step order. Any failure at a
// step (a read error, a malformed override, an unparseable tier) falls
// through to the next step rather than propagating — the one tier
// Resolve never returns as a result of failure is auto.
func (e *Engine) Resolve(ctx context.Context, userID, tool string) Tier {
	if tier, ok := e.userOverride(ctx, userID, tool); ok {
		return tier
	}
	if e.defaults != nil {
		if tier, ok := e.defaults[tool]; ok {
			return tier
		}
	}
	// Step 3: unclassified mutating tools default to approve, never auto
	// (§4.6 step 3).
	return TierApprove
}

func (e *Engine) userOverride(ctx context.Context, userID, tool string) (Tier, bool) {
	if e.settings == nil {
		return "", false
	}
	// A missing row and a read failure both just mean "no override" here
	// (§4.6: "if any step throws, fall through to the next").
	raw, provenance, err := e.settings.Get(ctx, userID, SettingKey)
	if err != nil {
		return "", false
	}
	if provenance != ProvenanceUser {
		return "", false
	}

	var overrides map[string]string
	if err := json.Unmarshal(raw, &overrides); err != nil {
		return "", false
	}
	tierStr, ok := overrides[tool]
	if !ok {
		return "", false
	}
	tier, ok := parseTier(tierStr)
	if !ok {
		return "", false
	}
	return tier, true
}
