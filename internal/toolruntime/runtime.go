package toolruntime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fleetintel/core/internal/dbpool"
	"github.com/fleetintel/core/internal/mutation"
	"github.com/fleetintel/core/internal/trustpolicy"
)

// policyEngine is the narrow surface Runtime needs from
// internal/trustpolicy.
type policyEngine interface {
	Resolve(ctx context.Context, userID, tool string) trustpolicy.Tier
}

// Runtime is the tool dispatch table: one registry of Tools, gated by a
// policyEngine and backed by internal/mutation's proposal/receipt
// stores.
type Runtime struct {
	pools      *dbpool.Pools
	policy     policyEngine
	proposals  *mutation.ProposalStore
	receipts   *mutation.ReceiptStore
	defaultTTL time.Duration

	mu    sync.RWMutex
	tools map[string]*Tool
}

// New builds a Runtime. defaultTTL is the proposal lifetime applied
// when a tool doesn't specify its own (§6's proposal TTL
// default).
func New(pools *dbpool.Pools, policy policyEngine, proposals *mutation.ProposalStore, receipts *mutation.ReceiptStore, defaultTTL time.Duration) *Runtime {
	return &Runtime{
		pools:      pools,
		policy:     policy,
		proposals:  proposals,
		receipts:   receipts,
		defaultTTL: defaultTTL,
		tools:      make(map[string]*Tool),
	}
}

// Register adds or replaces a tool by name.
func (r *Runtime) Register(t *Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name] = t
}

func (r *Runtime) lookup(name string) (*Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Dispatch runs toolName with args for userID, following the design
// §4.5's contract: read-only tools execute directly; mutating tools
// resolve a trust tier first, then block, stage a proposal, or apply
// immediately depending on that tier.
func (r *Runtime) Dispatch(ctx context.Context, userID, toolName string, args []byte) (*DispatchResult, error) {
	tool, ok := r.lookup(toolName)
	if !ok {
		return nil, &ErrUnknownTool{Tool: toolName}
	}

	if !isMutating(tool) {
		if tool.Read == nil {
			return nil, fmt.Errorf("toolruntime: %q is read-only but registered no Read handler", toolName)
		}
		resultJSON, err := tool.Read(ctx, userID, args)
		if err != nil {
			return nil, err
		}
		return &DispatchResult{ResultJSON: resultJSON}, nil
	}

	tier := r.policy.Resolve(ctx, userID, toolName)
	switch tier {
	case trustpolicy.TierBlock:
		return nil, &ErrBlocked{Tool: toolName}

	case trustpolicy.TierApprove:
		return r.dispatchApprove(ctx, userID, toolName, tool, args)

	case trustpolicy.TierAuto:
		return r.dispatchAuto(ctx, userID, toolName, tool, args)

	default:
		// Fail closed on an unrecognized tier — never treat it as auto.
		return nil, fmt.Errorf("toolruntime: unrecognized trust tier %q for %q", tier, toolName)
	}
}

func (r *Runtime) dispatchApprove(ctx context.Context, userID, toolName string, tool *Tool, args []byte) (*DispatchResult, error) {
	if tool.Preview == nil {
		return nil, fmt.Errorf("toolruntime: %q is approve-tier but registered no Preview handler", toolName)
	}
	preview, batchItems, err := tool.Preview(ctx, userID, args)
	if err != nil {
		return nil, err
	}
	proposal, err := r.proposals.Create(ctx, userID, toolName, args, preview, batchItems, r.defaultTTL)
	if err != nil {
		return nil, err
	}
	return &DispatchResult{
		ProposalID: proposal.ID,
		ExpiresAt:  proposal.ExpiresAt.UTC().Format(time.RFC3339),
		Preview:    preview,
	}, nil
}

// ConfirmApply executes an approve-tier proposal's Apply handler and
// transitions it to applied, all inside one user-scoped transaction
// (§4.4's Confirm step). actorUserID is the principal issuing
// the confirmation, which is usually userID but may differ when an
// operator confirms on a user's behalf; both are recorded in the audit
// trail via mutation.ProposalStore.Apply.
func (r *Runtime) ConfirmApply(ctx context.Context, userID, proposalID, actorUserID string) (*DispatchResult, error) {
	var receiptID string
	err := r.pools.WithUserScope(ctx, userID, func(tx *dbpool.Tx) error {
		proposal, err := r.proposals.GetForUpdate(ctx, tx, userID, proposalID)
		if err != nil {
			return err
		}
		if proposal.Status != mutation.StatusProposed {
			return &mutation.ErrWrongStatus{Status: proposal.Status}
		}
		if time.Now().UTC().After(proposal.ExpiresAt) {
			return &mutation.ErrExpired{ExpiresAt: proposal.ExpiresAt}
		}

		tool, ok := r.lookup(proposal.Tool)
		if !ok {
			return &ErrUnknownTool{Tool: proposal.Tool}
		}
		if tool.Apply == nil {
			return fmt.Errorf("toolruntime: %q has a Preview handler but no Apply handler to confirm", proposal.Tool)
		}

		changeset, inverse, err := tool.Apply(ctx, tx, userID, proposal.ArgsJSON)
		if err != nil {
			return err
		}

		receipt := &mutation.Receipt{
			UserID:     userID,
			SourceType: "tool",
			Layer:      receiptLayer(tool),
			Changeset:  changeset,
			Inverse:    inverse,
		}
		if err := r.receipts.Write(ctx, tx, receipt); err != nil {
			return err
		}
		receiptID = receipt.ID

		_, err = r.proposals.Apply(ctx, tx, userID, proposalID, receiptID, actorUserID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &DispatchResult{Applied: true, ReceiptID: receiptID, ProposalID: proposalID}, nil
}

// receiptLayer resolves the mutation.Receipt layer tag a tool's Apply
// writes under, defaulting to mutation.LayerOwnership for tools that
// don't set one (every tool registered before Layer existed).
func receiptLayer(tool *Tool) string {
	if tool.Layer != "" {
		return tool.Layer
	}
	return mutation.LayerOwnership
}

func (r *Runtime) dispatchAuto(ctx context.Context, userID, toolName string, tool *Tool, args []byte) (*DispatchResult, error) {
	if tool.Apply == nil {
		return nil, fmt.Errorf("toolruntime: %q is auto-tier but registered no Apply handler", toolName)
	}

	var receiptID string
	err := r.pools.WithUserScope(ctx, userID, func(tx *dbpool.Tx) error {
		proposal, err := r.proposals.CreateTx(ctx, tx, userID, toolName, args, args, nil, r.defaultTTL)
		if err != nil {
			return err
		}

		changeset, inverse, err := tool.Apply(ctx, tx, userID, args)
		if err != nil {
			return err
		}

		receipt := &mutation.Receipt{
			UserID:     userID,
			SourceType: "tool",
			Layer:      receiptLayer(tool),
			Changeset:  changeset,
			Inverse:    inverse,
		}
		if err := r.receipts.Write(ctx, tx, receipt); err != nil {
			return err
		}
		receiptID = receipt.ID

		_, err = r.proposals.Apply(ctx, tx, userID, proposal.ID, receiptID, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &DispatchResult{Applied: true, ReceiptID: receiptID}, nil
}
