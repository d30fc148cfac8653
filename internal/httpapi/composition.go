package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/fleetintel/core/internal/apierr"
	"github.com/fleetintel/core/internal/composition"
)

// Loadout create/update/delete, assign_bridge_core/sync_below_deck,
// PlanItem create/complete/remove and Target delete are registered
// tools (internal/tools/register.go), so they route through
// dispatchTool and carry trust-tier gating. BridgeCore,
// BelowDeckPolicy, LoadoutVariant, Dock, and Target create/set-status
// have no matching tool registration — each store already writes its
// own mutation.Receipt through the ReceiptWriter it was built with, so
// these are plain REST routes that mutate directly and report the
// receiptId the store hands back, without a proposal step.

func (d *Dependencies) listLoadouts(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	items, err := d.Loadouts.List(r.Context(), p.UserID)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeCacheable(w, r, items)
}

func (d *Dependencies) getLoadout(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	item, err := d.Loadouts.Get(r.Context(), p.UserID, mux.Vars(r)["id"])
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeCacheable(w, r, item)
}

func (d *Dependencies) createLoadout(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	body, ok := readAllBody(w, r)
	if !ok {
		return
	}
	d.dispatchTool(w, r, p.UserID, "create_loadout", body)
}

func (d *Dependencies) updateLoadout(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	body, ok := rawPatchBody(w, r, mux.Vars(r)["id"])
	if !ok {
		return
	}
	d.dispatchTool(w, r, p.UserID, "update_loadout", withIDKey(body, "id"))
}

func (d *Dependencies) deleteLoadout(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	args, _ := json.Marshal(map[string]string{"id": mux.Vars(r)["id"]})
	d.dispatchTool(w, r, p.UserID, "delete_loadout", args)
}

func (d *Dependencies) assignBridgeCore(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	body, ok := rawPatchBody(w, r, mux.Vars(r)["id"])
	if !ok {
		return
	}
	d.dispatchTool(w, r, p.UserID, "assign_bridge_core", withIDKey(body, "id"))
}

func (d *Dependencies) syncBelowDeck(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	body, ok := readAllBody(w, r)
	if !ok {
		return
	}
	d.dispatchTool(w, r, p.UserID, "sync_below_deck", body)
}

// withIDKey re-keys a PATCH body's refId field, written by
// rawPatchBody for the catalog overlay routes, to the id key the
// composition tools' argument decoders expect.
func withIDKey(body []byte, key string) []byte {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return body
	}
	if v, ok := fields["refId"]; ok {
		fields[key] = v
		delete(fields, "refId")
	}
	out, err := json.Marshal(fields)
	if err != nil {
		return body
	}
	return out
}

// --- bridge cores (ungated) ---------------------------------------------

func (d *Dependencies) listBridgeCores(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	items, err := d.BridgeCores.List(r.Context(), p.UserID)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeCacheable(w, r, items)
}

func (d *Dependencies) createBridgeCore(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	var bc composition.BridgeCore
	if !decodeJSON(w, r, &bc) {
		return
	}
	bc.UserID = p.UserID
	created, err := d.BridgeCores.Create(r.Context(), &bc)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	apierr.WriteCreated(w, r, created)
}

func (d *Dependencies) updateBridgeCore(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	var req struct {
		Name    string                        `json:"name"`
		Members []composition.BridgeCoreMember `json:"members"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	updated, receiptID, err := d.BridgeCores.Update(r.Context(), p.UserID, mux.Vars(r)["id"], req.Name, req.Members)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	apierr.WriteOK(w, r, map[string]any{"bridgeCore": updated, "receiptId": receiptID})
}

func (d *Dependencies) deleteBridgeCore(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	receiptID, err := d.BridgeCores.Delete(r.Context(), p.UserID, mux.Vars(r)["id"])
	if err != nil {
		writeErr(w, r, err)
		return
	}
	apierr.WriteOK(w, r, map[string]any{"deleted": true, "receiptId": receiptID})
}

// --- below-deck policies (ungated CRUD; application is gated via syncBelowDeck) --

func (d *Dependencies) listBelowDeckPolicies(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	items, err := d.BelowDeckPolicies.List(r.Context(), p.UserID)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeCacheable(w, r, items)
}

func (d *Dependencies) createBelowDeckPolicy(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	var policy composition.BelowDeckPolicy
	if !decodeJSON(w, r, &policy) {
		return
	}
	policy.UserID = p.UserID
	created, err := d.BelowDeckPolicies.Create(r.Context(), &policy)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	apierr.WriteCreated(w, r, created)
}

func (d *Dependencies) updateBelowDeckPolicy(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	var req struct {
		Name string                    `json:"name"`
		Mode composition.BelowDeckMode `json:"mode"`
		Spec composition.BelowDeckSpec `json:"spec"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	updated, receiptID, err := d.BelowDeckPolicies.Update(r.Context(), p.UserID, mux.Vars(r)["id"], req.Name, req.Mode, req.Spec)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	apierr.WriteOK(w, r, map[string]any{"belowDeckPolicy": updated, "receiptId": receiptID})
}

func (d *Dependencies) deleteBelowDeckPolicy(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	receiptID, err := d.BelowDeckPolicies.Delete(r.Context(), p.UserID, mux.Vars(r)["id"])
	if err != nil {
		writeErr(w, r, err)
		return
	}
	apierr.WriteOK(w, r, map[string]any{"deleted": true, "receiptId": receiptID})
}

// --- loadout variants (ungated) -----------------------------------------

func (d *Dependencies) listLoadoutVariants(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	baseID := r.URL.Query().Get("baseLoadoutId")
	items, err := d.LoadoutVariants.ListByBase(r.Context(), p.UserID, baseID)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeCacheable(w, r, items)
}

func (d *Dependencies) createLoadoutVariant(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	var v composition.LoadoutVariant
	if !decodeJSON(w, r, &v) {
		return
	}
	v.UserID = p.UserID
	created, err := d.LoadoutVariants.Create(r.Context(), &v)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	apierr.WriteCreated(w, r, created)
}

func (d *Dependencies) updateLoadoutVariant(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	var patch composition.LoadoutVariantPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	updated, receiptID, err := d.LoadoutVariants.Update(r.Context(), p.UserID, mux.Vars(r)["id"], patch)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	apierr.WriteOK(w, r, map[string]any{"loadoutVariant": updated, "receiptId": receiptID})
}

func (d *Dependencies) deleteLoadoutVariant(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	receiptID, err := d.LoadoutVariants.Delete(r.Context(), p.UserID, mux.Vars(r)["id"])
	if err != nil {
		writeErr(w, r, err)
		return
	}
	apierr.WriteOK(w, r, map[string]any{"deleted": true, "receiptId": receiptID})
}

// --- docks (ungated, upsert-shaped) -------------------------------------

func (d *Dependencies) listDocks(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	items, err := d.Docks.List(r.Context(), p.UserID)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeCacheable(w, r, items)
}

func (d *Dependencies) upsertDock(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	dockNumber, err := strconv.Atoi(mux.Vars(r)["dockNumber"])
	if err != nil {
		apierr.WriteErrorCode(w, r, apierr.InvalidParam, "dockNumber must be an integer", nil)
		return
	}
	var req struct {
		Label *string `json:"label"`
		Notes *string `json:"notes"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	updated, receiptID, err := d.Docks.Upsert(r.Context(), &composition.Dock{
		UserID: p.UserID, DockNumber: dockNumber, Label: req.Label, Notes: req.Notes,
	})
	if err != nil {
		writeErr(w, r, err)
		return
	}
	apierr.WriteOK(w, r, map[string]any{"dock": updated, "receiptId": receiptID})
}

func (d *Dependencies) deleteDock(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	dockNumber, err := strconv.Atoi(mux.Vars(r)["dockNumber"])
	if err != nil {
		apierr.WriteErrorCode(w, r, apierr.InvalidParam, "dockNumber must be an integer", nil)
		return
	}
	receiptID, err := d.Docks.Delete(r.Context(), p.UserID, dockNumber)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	apierr.WriteOK(w, r, map[string]any{"deleted": true, "receiptId": receiptID})
}

// --- plan items -----------------------------------------------------------

func (d *Dependencies) listPlanItems(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	items, err := d.PlanItems.ListActive(r.Context(), p.UserID)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeCacheable(w, r, items)
}

func (d *Dependencies) createPlanItem(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	body, ok := readAllBody(w, r)
	if !ok {
		return
	}
	d.dispatchTool(w, r, p.UserID, "create_plan_item", body)
}

func (d *Dependencies) completePlanItem(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	args, _ := json.Marshal(map[string]string{"id": mux.Vars(r)["id"]})
	d.dispatchTool(w, r, p.UserID, "complete_plan_item", args)
}

func (d *Dependencies) removePlanItem(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	args, _ := json.Marshal(map[string]string{"id": mux.Vars(r)["id"]})
	d.dispatchTool(w, r, p.UserID, "remove_plan_item", args)
}

// --- targets ----------------------------------------------------------

func (d *Dependencies) listTargets(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	status := composition.TargetStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = composition.TargetStatusActive
	}
	items, err := d.Targets.ListByStatus(r.Context(), p.UserID, status)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeCacheable(w, r, items)
}

func (d *Dependencies) createTarget(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	var t composition.Target
	if !decodeJSON(w, r, &t) {
		return
	}
	t.UserID = p.UserID
	created, err := d.Targets.Create(r.Context(), &t)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	apierr.WriteCreated(w, r, created)
}

func (d *Dependencies) setTargetStatus(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	var req struct {
		Status composition.TargetStatus `json:"status"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	updated, receiptID, err := d.Targets.SetStatus(r.Context(), p.UserID, mux.Vars(r)["id"], req.Status)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	apierr.WriteOK(w, r, map[string]any{"target": updated, "receiptId": receiptID})
}

func (d *Dependencies) deleteTarget(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	args, _ := json.Marshal(map[string]string{"id": mux.Vars(r)["id"]})
	d.dispatchTool(w, r, p.UserID, "delete_target", args)
}
