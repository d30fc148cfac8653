// Package toolruntime dispatches tool calls by name, gating every
// mutating tool behind the trust-tier policy and the proposal/receipt
// protocol (§4.5). Grounded on core/pkg/agent/adapter.go's
// KernelBridge.Dispatch: actor context → classify → dispatch-by-name
// switch with a registry fallback — generalized here from a fixed
// switch over a handful of kernel tool names to an open map-based
// registry, since this domain's tool set (catalog overlays, loadouts,
// targets, imports) is plugged in by the caller rather than fixed at
// compile time.
package toolruntime

import (
	"context"
	"encoding/json"

	"github.com/fleetintel/core/internal/dbpool"
)

// ReadFunc executes a non-mutating (get_/list_/search_/read_) tool and
// returns its JSON result directly — no proposal, no receipt.
type ReadFunc func(ctx context.Context, userID string, args json.RawMessage) (resultJSON []byte, err error)

// PreviewFunc computes what a mutating tool *would* do without
// committing anything — the dry-run path behind an approve-tier
// proposal (§4.5: "call the tool in dry-run mode to produce
// proposalJson + batchItems").
type PreviewFunc func(ctx context.Context, userID string, args json.RawMessage) (previewJSON, batchItemsJSON []byte, err error)

// ApplyFunc commits a mutating tool's effect inside a transaction the
// Runtime already owns, returning the changeset/inverse pair the
// Runtime wraps into one receipt. Implementations call into
// internal/catalog's *Tx methods (ApplyPatchTx/SnapshotTx) or an
// equivalent tx-scoped store operation — never opening their own
// transaction, so the proposal transition, the mutation, and the
// receipt write commit or roll back together.
type ApplyFunc func(ctx context.Context, tx *dbpool.Tx, userID string, args json.RawMessage) (changesetJSON, inverseJSON []byte, err error)

// Tool is one registered tool (§4.5: "{ name, schema, handler,
// trust }" — trust itself is resolved per-call by trustpolicy, not
// stored per-tool).
type Tool struct {
	Name string
	// Mutating forces mutating classification even when the name
	// doesn't match a known prefix (§4.5: "in the known mutation
	// list OR its name begins with ..."). Leave false to classify purely
	// by name.
	Mutating bool
	Read     ReadFunc
	Preview  PreviewFunc
	Apply    ApplyFunc
	// Layer tags the mutation.Receipt an auto-tier Apply or a confirmed
	// approve-tier Apply gets wrapped in (mutation.LayerOwnership or
	// mutation.LayerComposition). Empty defaults to mutation.LayerOwnership.
	Layer string
}

// DispatchResult is what a Dispatch call returns — shaped differently
// depending on which path the trust tier sent the call down.
type DispatchResult struct {
	// Set on a non-mutating call.
	ResultJSON []byte
	// Set on an approve-tier call: the caller must present Preview and
	// let the user confirm via the proposal endpoints.
	ProposalID string
	ExpiresAt  string // RFC3339; empty unless ProposalID is set
	Preview    []byte
	// Set on an auto-tier call once the transaction commits.
	Applied   bool
	ReceiptID string
}
