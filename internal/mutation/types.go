// Package mutation implements the proposal/receipt protocol that gates
// every mutating tool call behind an explicit confirmation (the design
// §4.4). Grounded on three teacher sources at once: core/pkg/runtime/
// obligation/engine.go (lease/state-machine shape, generalized from
// Pending→Active→Satisfied/Failed to proposed→applied|declined|expired),
// core/pkg/api/approve_handler.go (the approve/decline HTTP handler
// shape, with its Ed25519 signature verification dropped — proposals
// here are approved by trust-tier policy or explicit user action, not a
// cryptographic HITL signature), and core/pkg/api/postgres_idempotency.go
// (SQL-backed idempotency-by-key, generalized to idempotency-by-argsHash).
package mutation

import "time"

// Status is the proposal lifecycle state (§4.4): monotonic,
// proposed→{applied,declined,expired}.
type Status string

const (
	StatusProposed Status = "proposed"
	StatusApplied  Status = "applied"
	StatusDeclined Status = "declined"
	StatusExpired  Status = "expired"
)

// Proposal is a MutationProposal row.
type Proposal struct {
	ID               string
	UserID           string
	Tool             string
	ArgsJSON         []byte
	ArgsHash         string
	ProposalJSON     []byte
	BatchItems       []byte
	Status           Status
	CreatedAt        time.Time
	ExpiresAt        time.Time
	AppliedReceiptID *string
	AppliedAt        *time.Time
	DeclinedAt       *time.Time
	DeclineReason    *string
}

// Receipt is an ImportReceipt row — also reused as the general
// mutation receipt for bulk overlay and proposal-apply writes (the design
// §4.3/§4.4 share one receipt shape tagged by Layer).
type Receipt struct {
	ID         string
	UserID     string
	SourceType string
	SourceMeta []byte
	Mapping    []byte
	Layer      string
	Changeset  []byte
	Inverse    []byte
	Unresolved []byte
	CreatedAt  time.Time
}

// Layer tags (§4.3 "a receipt is tagged reference | ownership |
// composition").
const (
	LayerReference   = "reference"
	LayerOwnership   = "ownership"
	LayerComposition = "composition"
)
