// Package trustpolicy implements the decision point that resolves, per
// (tool, user), whether a mutating tool call is auto, approve, or block
// (§4.6). Grounded directly on core/pkg/pdp/pdp.go's
// PolicyDecisionPoint interface (fail-closed, deterministic, backend-
// pluggable) and core/pkg/pdp/helm_pdp.go's map-backed default
// implementation, retyped from allow/deny to the three-tier vocabulary
// this domain needs.
package trustpolicy

// Tier is the closed trust-tier vocabulary (§4.6).
type Tier string

const (
	TierAuto    Tier = "auto"
	TierApprove Tier = "approve"
	TierBlock   Tier = "block"
)

// parseTier validates a tier string read from a user override, rejecting
// anything outside the closed vocabulary rather than trusting stored
// data blindly.
func parseTier(s string) (Tier, bool) {
	switch Tier(s) {
	case TierAuto, TierApprove, TierBlock:
		return Tier(s), true
	default:
		return "", false
	}
}

// SettingKey is the user_settings row trust overrides are read from
// (§4.6 step 1: "setting key fleet.trust").
const SettingKey = "fleet.trust"

// ProvenanceUser marks a setting the user actually wrote, the only
// provenance trust overrides honour.
const ProvenanceUser = "user"
