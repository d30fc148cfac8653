// Package tools wires the 15 tool names trustpolicy.DefaultSystemTiers
// classifies into concrete toolruntime.Tool registrations — the Read/
// Preview/Apply handlers §4.5's dispatch protocol actually
// runs. Each handler is a thin adapter over an existing catalog/
// composition store's Tx-scoped methods; the stores own all schema and
// invariant knowledge, this package only owns argument decoding and
// changeset/inverse shaping.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fleetintel/core/internal/catalog"
	"github.com/fleetintel/core/internal/composition"
	"github.com/fleetintel/core/internal/dbpool"
	"github.com/fleetintel/core/internal/toolruntime"
)

// Deps are the stores every registered tool is built from. All fields
// are required except where noted.
type Deps struct {
	OfficerOverlays *catalog.OfficerOverlayStore
	ShipOverlays    *catalog.ShipOverlayStore
	Loadouts        *composition.LoadoutStore
	BelowDeckPolicies *composition.BelowDeckPolicyStore
	PlanItems       *composition.PlanItemStore
	Targets         *composition.TargetStore
}

// RegisterAll registers every implementable DefaultSystemTiers tool
// against rt. import_roster is deliberately left unregistered: its
// execution is the multi-entity translator pipeline (internal/
// translator.Apply), which owns its own transaction and receipt, so it
// is exposed as a dedicated /api/import/apply route rather than forced
// through the single-transaction ApplyFunc contract. Its trust tier
// still governs that route's gating; see internal/httpapi and
// DESIGN.md.
func RegisterAll(rt *toolruntime.Runtime, d Deps) {
	rt.Register(setOfficerOverlayTool(d.OfficerOverlays))
	rt.Register(setShipOverlayTool(d.ShipOverlays))
	rt.Register(bulkPatchOfficersTool(d.OfficerOverlays))
	rt.Register(bulkPatchShipsTool(d.ShipOverlays))
	rt.Register(createLoadoutTool(d.Loadouts))
	rt.Register(updateLoadoutTool(d.Loadouts))
	rt.Register(deleteLoadoutTool(d.Loadouts))
	rt.Register(assignBridgeCoreTool(d.Loadouts))
	rt.Register(syncBelowDeckTool(d.BelowDeckPolicies))
	rt.Register(createPlanItemTool(d.PlanItems))
	rt.Register(completePlanItemTool(d.PlanItems))
	rt.Register(removePlanItemTool(d.PlanItems))
	rt.Register(deleteTargetTool(d.Targets))
	// activate_preset has no implementation yet (the Open
	// Questions leave preset activation out of scope for this service);
	// registering it Mutating-only means it still resolves to
	// trustpolicy.TierBlock and fails closed with ErrBlocked instead of
	// ErrUnknownTool, matching a user who asks the assistant to do it.
	rt.Register(&toolruntime.Tool{Name: "activate_preset", Mutating: true})
}

// popString extracts and deletes a required string field from a raw
// JSON object map, the shape every tool's args decode into so the
// remaining fields can be re-marshaled into a catalog.Patch without the
// identifier field leaking into it.
func popString(raw map[string]json.RawMessage, key string) (string, error) {
	msg, ok := raw[key]
	if !ok {
		return "", fmt.Errorf("tools: missing required field %q", key)
	}
	delete(raw, key)
	var s string
	if err := json.Unmarshal(msg, &s); err != nil {
		return "", fmt.Errorf("tools: field %q: %w", key, err)
	}
	return s, nil
}

func popStringSlice(raw map[string]json.RawMessage, key string) ([]string, error) {
	msg, ok := raw[key]
	if !ok {
		return nil, fmt.Errorf("tools: missing required field %q", key)
	}
	delete(raw, key)
	var s []string
	if err := json.Unmarshal(msg, &s); err != nil {
		return nil, fmt.Errorf("tools: field %q: %w", key, err)
	}
	return s, nil
}

func decodeArgs(args json.RawMessage) (map[string]json.RawMessage, error) {
	raw := map[string]json.RawMessage{}
	if len(args) == 0 {
		return raw, nil
	}
	if err := json.Unmarshal(args, &raw); err != nil {
		return nil, fmt.Errorf("tools: decode args: %w", err)
	}
	return raw, nil
}

func patchFromRemaining(raw map[string]json.RawMessage) (catalog.Patch, error) {
	body, err := json.Marshal(raw)
	if err != nil {
		return catalog.Patch{}, err
	}
	return catalog.ParsePatch(body)
}

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		// Every value passed through here is a concrete struct or map this
		// package built itself; a marshal failure means a programming
		// error, not a runtime condition callers can recover from.
		panic(fmt.Sprintf("tools: marshal: %v", err))
	}
	return b
}

// --- officer / ship overlays -------------------------------------------------

func setOfficerOverlayTool(store *catalog.OfficerOverlayStore) *toolruntime.Tool {
	return &toolruntime.Tool{
		Name:  "set_officer_overlay",
		Layer: catalog.LayerOwnership,
		Apply: func(ctx context.Context, tx *dbpool.Tx, userID string, args json.RawMessage) ([]byte, []byte, error) {
			raw, err := decodeArgs(args)
			if err != nil {
				return nil, nil, err
			}
			refID, err := popString(raw, "refId")
			if err != nil {
				return nil, nil, err
			}
			patch, err := patchFromRemaining(raw)
			if err != nil {
				return nil, nil, err
			}
			before, err := store.SnapshotTx(ctx, tx, userID, refID)
			if err != nil {
				return nil, nil, err
			}
			if err := store.ApplyPatchTx(ctx, tx, userID, refID, patch); err != nil {
				return nil, nil, err
			}
			changeset := map[string]any{"refId": refID, "patch": patch}
			inverse := map[string]any{refID: before}
			return mustJSON(changeset), mustJSON(inverse), nil
		},
	}
}

func setShipOverlayTool(store *catalog.ShipOverlayStore) *toolruntime.Tool {
	return &toolruntime.Tool{
		Name:  "set_ship_overlay",
		Layer: catalog.LayerOwnership,
		Apply: func(ctx context.Context, tx *dbpool.Tx, userID string, args json.RawMessage) ([]byte, []byte, error) {
			raw, err := decodeArgs(args)
			if err != nil {
				return nil, nil, err
			}
			refID, err := popString(raw, "refId")
			if err != nil {
				return nil, nil, err
			}
			patch, err := patchFromRemaining(raw)
			if err != nil {
				return nil, nil, err
			}
			before, err := store.SnapshotTx(ctx, tx, userID, refID)
			if err != nil {
				return nil, nil, err
			}
			if err := store.ApplyPatchTx(ctx, tx, userID, refID, patch); err != nil {
				return nil, nil, err
			}
			changeset := map[string]any{"refId": refID, "patch": patch}
			inverse := map[string]any{refID: before}
			return mustJSON(changeset), mustJSON(inverse), nil
		},
	}
}

// bulkPatchPreview echoes the refIds and patch unchanged — the preview
// a reviewing user sees before approving is just "this patch will be
// applied to these refIds", since computing a richer dry-run diff would
// require the same snapshot reads Apply already does transactionally.
func bulkPatchPreview(args json.RawMessage) ([]byte, []byte, error) {
	raw, err := decodeArgs(args)
	if err != nil {
		return nil, nil, err
	}
	refIDs, err := popStringSlice(raw, "refIds")
	if err != nil {
		return nil, nil, err
	}
	patch, err := patchFromRemaining(raw)
	if err != nil {
		return nil, nil, err
	}
	preview := mustJSON(map[string]any{"refIds": refIDs, "patch": patch})
	batchItems := make([]map[string]any, len(refIDs))
	for i, id := range refIDs {
		batchItems[i] = map[string]any{"rowIndex": i, "refId": id}
	}
	return preview, mustJSON(batchItems), nil
}

func bulkPatchOfficersTool(store *catalog.OfficerOverlayStore) *toolruntime.Tool {
	return &toolruntime.Tool{
		Name:  "bulk_patch_officers",
		Layer: catalog.LayerOwnership,
		Preview: func(ctx context.Context, userID string, args json.RawMessage) ([]byte, []byte, error) {
			return bulkPatchPreview(args)
		},
		Apply: func(ctx context.Context, tx *dbpool.Tx, userID string, args json.RawMessage) ([]byte, []byte, error) {
			raw, err := decodeArgs(args)
			if err != nil {
				return nil, nil, err
			}
			refIDs, err := popStringSlice(raw, "refIds")
			if err != nil {
				return nil, nil, err
			}
			patch, err := patchFromRemaining(raw)
			if err != nil {
				return nil, nil, err
			}
			before := make(map[string]any, len(refIDs))
			for _, refID := range refIDs {
				snap, err := store.SnapshotTx(ctx, tx, userID, refID)
				if err != nil {
					return nil, nil, err
				}
				before[refID] = snap
			}
			for _, refID := range refIDs {
				if err := store.ApplyPatchTx(ctx, tx, userID, refID, patch); err != nil {
					return nil, nil, err
				}
			}
			changeset := map[string]any{"refIds": refIDs, "patch": patch}
			return mustJSON(changeset), mustJSON(before), nil
		},
	}
}

func bulkPatchShipsTool(store *catalog.ShipOverlayStore) *toolruntime.Tool {
	return &toolruntime.Tool{
		Name:  "bulk_patch_ships",
		Layer: catalog.LayerOwnership,
		Preview: func(ctx context.Context, userID string, args json.RawMessage) ([]byte, []byte, error) {
			return bulkPatchPreview(args)
		},
		Apply: func(ctx context.Context, tx *dbpool.Tx, userID string, args json.RawMessage) ([]byte, []byte, error) {
			raw, err := decodeArgs(args)
			if err != nil {
				return nil, nil, err
			}
			refIDs, err := popStringSlice(raw, "refIds")
			if err != nil {
				return nil, nil, err
			}
			patch, err := patchFromRemaining(raw)
			if err != nil {
				return nil, nil, err
			}
			before := make(map[string]any, len(refIDs))
			for _, refID := range refIDs {
				snap, err := store.SnapshotTx(ctx, tx, userID, refID)
				if err != nil {
					return nil, nil, err
				}
				before[refID] = snap
			}
			for _, refID := range refIDs {
				if err := store.ApplyPatchTx(ctx, tx, userID, refID, patch); err != nil {
					return nil, nil, err
				}
			}
			changeset := map[string]any{"refIds": refIDs, "patch": patch}
			return mustJSON(changeset), mustJSON(before), nil
		},
	}
}

// --- loadouts -----------------------------------------------------------

func createLoadoutTool(store *composition.LoadoutStore) *toolruntime.Tool {
	return &toolruntime.Tool{
		Name:  "create_loadout",
		Layer: composition.LayerComposition,
		Apply: func(ctx context.Context, tx *dbpool.Tx, userID string, args json.RawMessage) ([]byte, []byte, error) {
			l := &composition.Loadout{}
			if err := json.Unmarshal(args, l); err != nil {
				return nil, nil, fmt.Errorf("tools: decode create_loadout args: %w", err)
			}
			l.UserID = userID
			created, err := store.CreateTx(ctx, tx, l)
			if err != nil {
				return nil, nil, err
			}
			changeset := mustJSON(created)
			inverse := mustJSON(map[string]any{"action": "delete", "entity": "loadout", "id": created.ID})
			return changeset, inverse, nil
		},
	}
}

func updateLoadoutTool(store *composition.LoadoutStore) *toolruntime.Tool {
	return &toolruntime.Tool{
		Name:  "update_loadout",
		Layer: composition.LayerComposition,
		Apply: func(ctx context.Context, tx *dbpool.Tx, userID string, args json.RawMessage) ([]byte, []byte, error) {
			raw, err := decodeArgs(args)
			if err != nil {
				return nil, nil, err
			}
			id, err := popString(raw, "id")
			if err != nil {
				return nil, nil, err
			}
			patch, err := patchFromRemaining(raw)
			if err != nil {
				return nil, nil, err
			}
			before, err := store.GetTx(ctx, tx, userID, id)
			if err != nil {
				return nil, nil, err
			}
			after, err := store.UpdateTx(ctx, tx, userID, id, patch)
			if err != nil {
				return nil, nil, err
			}
			return mustJSON(after), mustJSON(before), nil
		},
	}
}

func deleteLoadoutTool(store *composition.LoadoutStore) *toolruntime.Tool {
	return &toolruntime.Tool{
		Name:  "delete_loadout",
		Layer: composition.LayerComposition,
		Preview: func(ctx context.Context, userID string, args json.RawMessage) ([]byte, []byte, error) {
			raw, err := decodeArgs(args)
			if err != nil {
				return nil, nil, err
			}
			id, err := popString(raw, "id")
			if err != nil {
				return nil, nil, err
			}
			existing, err := store.Get(ctx, userID, id)
			if err != nil {
				return nil, nil, err
			}
			return mustJSON(map[string]any{"wouldDelete": existing}), nil, nil
		},
		Apply: func(ctx context.Context, tx *dbpool.Tx, userID string, args json.RawMessage) ([]byte, []byte, error) {
			raw, err := decodeArgs(args)
			if err != nil {
				return nil, nil, err
			}
			id, err := popString(raw, "id")
			if err != nil {
				return nil, nil, err
			}
			before, err := store.DeleteTx(ctx, tx, userID, id)
			if err != nil {
				return nil, nil, err
			}
			changeset := mustJSON(map[string]any{"deletedLoadoutId": id})
			return changeset, mustJSON(before), nil
		},
	}
}

func assignBridgeCoreTool(store *composition.LoadoutStore) *toolruntime.Tool {
	return &toolruntime.Tool{
		Name:  "assign_bridge_core",
		Layer: composition.LayerComposition,
		Apply: func(ctx context.Context, tx *dbpool.Tx, userID string, args json.RawMessage) ([]byte, []byte, error) {
			raw, err := decodeArgs(args)
			if err != nil {
				return nil, nil, err
			}
			id, err := popString(raw, "id")
			if err != nil {
				return nil, nil, err
			}
			bridgeCoreID, err := popString(raw, "bridgeCoreId")
			if err != nil {
				return nil, nil, err
			}
			before, err := store.GetTx(ctx, tx, userID, id)
			if err != nil {
				return nil, nil, err
			}
			patch, err := catalog.NewPatchFromValues(map[string]any{"bridgeCoreId": bridgeCoreID})
			if err != nil {
				return nil, nil, err
			}
			after, err := store.UpdateTx(ctx, tx, userID, id, patch)
			if err != nil {
				return nil, nil, err
			}
			return mustJSON(after), mustJSON(before), nil
		},
	}
}

// --- below-deck policies -------------------------------------------------

type syncBelowDeckArgs struct {
	ID   string                    `json:"id"`
	Name string                    `json:"name"`
	Mode composition.BelowDeckMode `json:"mode"`
	Spec composition.BelowDeckSpec `json:"spec"`
}

func syncBelowDeckTool(store *composition.BelowDeckPolicyStore) *toolruntime.Tool {
	return &toolruntime.Tool{
		Name:  "sync_below_deck",
		Layer: composition.LayerComposition,
		Preview: func(ctx context.Context, userID string, args json.RawMessage) ([]byte, []byte, error) {
			var a syncBelowDeckArgs
			if err := json.Unmarshal(args, &a); err != nil {
				return nil, nil, fmt.Errorf("tools: decode sync_below_deck args: %w", err)
			}
			existing, err := store.Get(ctx, userID, a.ID)
			if err != nil {
				return nil, nil, err
			}
			return mustJSON(map[string]any{"current": existing, "proposed": a}), nil, nil
		},
		Apply: func(ctx context.Context, tx *dbpool.Tx, userID string, args json.RawMessage) ([]byte, []byte, error) {
			var a syncBelowDeckArgs
			if err := json.Unmarshal(args, &a); err != nil {
				return nil, nil, fmt.Errorf("tools: decode sync_below_deck args: %w", err)
			}
			before, err := store.GetTx(ctx, tx, userID, a.ID)
			if err != nil {
				return nil, nil, err
			}
			after, err := store.UpdateTx(ctx, tx, userID, a.ID, a.Name, a.Mode, a.Spec)
			if err != nil {
				return nil, nil, err
			}
			return mustJSON(after), mustJSON(before), nil
		},
	}
}

// --- plan items -----------------------------------------------------------

func createPlanItemTool(store *composition.PlanItemStore) *toolruntime.Tool {
	return &toolruntime.Tool{
		Name:  "create_plan_item",
		Layer: composition.LayerComposition,
		Apply: func(ctx context.Context, tx *dbpool.Tx, userID string, args json.RawMessage) ([]byte, []byte, error) {
			p := &composition.PlanItem{}
			if err := json.Unmarshal(args, p); err != nil {
				return nil, nil, fmt.Errorf("tools: decode create_plan_item args: %w", err)
			}
			p.UserID = userID
			created, err := store.CreateTx(ctx, tx, p)
			if err != nil {
				return nil, nil, err
			}
			changeset := mustJSON(created)
			inverse := mustJSON(map[string]any{"action": "delete", "entity": "planItem", "id": created.ID})
			return changeset, inverse, nil
		},
	}
}

func completePlanItemTool(store *composition.PlanItemStore) *toolruntime.Tool {
	return &toolruntime.Tool{
		Name:  "complete_plan_item",
		Layer: composition.LayerComposition,
		Apply: func(ctx context.Context, tx *dbpool.Tx, userID string, args json.RawMessage) ([]byte, []byte, error) {
			raw, err := decodeArgs(args)
			if err != nil {
				return nil, nil, err
			}
			id, err := popString(raw, "id")
			if err != nil {
				return nil, nil, err
			}
			before, err := store.GetTx(ctx, tx, userID, id)
			if err != nil {
				return nil, nil, err
			}
			after, err := store.UpdateTx(ctx, tx, userID, id, map[string]json.RawMessage{"isActive": json.RawMessage("false")})
			if err != nil {
				return nil, nil, err
			}
			return mustJSON(after), mustJSON(before), nil
		},
	}
}

func removePlanItemTool(store *composition.PlanItemStore) *toolruntime.Tool {
	return &toolruntime.Tool{
		Name:  "remove_plan_item",
		Layer: composition.LayerComposition,
		Preview: func(ctx context.Context, userID string, args json.RawMessage) ([]byte, []byte, error) {
			raw, err := decodeArgs(args)
			if err != nil {
				return nil, nil, err
			}
			id, err := popString(raw, "id")
			if err != nil {
				return nil, nil, err
			}
			existing, err := store.Get(ctx, userID, id)
			if err != nil {
				return nil, nil, err
			}
			return mustJSON(map[string]any{"wouldDelete": existing}), nil, nil
		},
		Apply: func(ctx context.Context, tx *dbpool.Tx, userID string, args json.RawMessage) ([]byte, []byte, error) {
			raw, err := decodeArgs(args)
			if err != nil {
				return nil, nil, err
			}
			id, err := popString(raw, "id")
			if err != nil {
				return nil, nil, err
			}
			before, err := store.DeleteTx(ctx, tx, userID, id)
			if err != nil {
				return nil, nil, err
			}
			changeset := mustJSON(map[string]any{"deletedPlanItemId": id})
			return changeset, mustJSON(before), nil
		},
	}
}

// --- targets -----------------------------------------------------------

func deleteTargetTool(store *composition.TargetStore) *toolruntime.Tool {
	return &toolruntime.Tool{
		Name:  "delete_target",
		Layer: composition.LayerComposition,
		Preview: func(ctx context.Context, userID string, args json.RawMessage) ([]byte, []byte, error) {
			raw, err := decodeArgs(args)
			if err != nil {
				return nil, nil, err
			}
			id, err := popString(raw, "id")
			if err != nil {
				return nil, nil, err
			}
			existing, err := store.Get(ctx, userID, id)
			if err != nil {
				return nil, nil, err
			}
			return mustJSON(map[string]any{"wouldDelete": existing}), nil, nil
		},
		Apply: func(ctx context.Context, tx *dbpool.Tx, userID string, args json.RawMessage) ([]byte, []byte, error) {
			raw, err := decodeArgs(args)
			if err != nil {
				return nil, nil, err
			}
			id, err := popString(raw, "id")
			if err != nil {
				return nil, nil, err
			}
			before, err := store.DeleteTx(ctx, tx, userID, id)
			if err != nil {
				return nil, nil, err
			}
			changeset := mustJSON(map[string]any{"deletedTargetId": id})
			return changeset, mustJSON(before), nil
		},
	}
}
