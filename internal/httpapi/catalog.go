package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/fleetintel/core/internal/apierr"
	"github.com/fleetintel/core/internal/catalog"
)

// listOfficers serves the merged reference+overlay view of every
// officer known to the catalog, scoped to the caller's own ownership
// state (§4.2: "reference rows are global, overlay rows are
// per-user; reads always return the merge").
func (d *Dependencies) listOfficers(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	officers, err := d.OfficerOverlays.ListMerged(r.Context(), p.UserID)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeCacheable(w, r, officers)
}

func (d *Dependencies) listShips(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	ships, err := d.ShipOverlays.ListMerged(r.Context(), p.UserID)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeCacheable(w, r, ships)
}

// setOfficerOverlay and setShipOverlay always route through the tool
// runtime rather than calling OfficerOverlayStore.SetOverlay directly,
// so overlay writes carry the same proposal/receipt protocol as every
// other mutation (§4.5 — "mutating" is determined by name
// pattern, and set_*_overlay matches it).
func (d *Dependencies) setOfficerOverlay(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	refID := mux.Vars(r)["refId"]
	body, ok := rawPatchBody(w, r, refID)
	if !ok {
		return
	}
	d.dispatchTool(w, r, p.UserID, "set_officer_overlay", body)
}

func (d *Dependencies) setShipOverlay(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	refID := mux.Vars(r)["refId"]
	body, ok := rawPatchBody(w, r, refID)
	if !ok {
		return
	}
	d.dispatchTool(w, r, p.UserID, "set_ship_overlay", body)
}

func (d *Dependencies) bulkPatchOfficers(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	body, ok := readAllBody(w, r)
	if !ok {
		return
	}
	d.dispatchTool(w, r, p.UserID, "bulk_patch_officers", body)
}

func (d *Dependencies) bulkPatchShips(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	body, ok := readAllBody(w, r)
	if !ok {
		return
	}
	d.dispatchTool(w, r, p.UserID, "bulk_patch_ships", body)
}

// deleteOfficerOverlay clears a single overlay back to the catalog
// default by pushing a patch whose every field resolves to explicit
// null, which the underlying helpers treat as "clear to zero value"
// rather than "leave unchanged" (internal/composition/patch_helpers.go's
// three-state convention carries over to catalog.Patch).
func (d *Dependencies) deleteOfficerOverlay(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	refID := mux.Vars(r)["refId"]
	patch, err := catalog.NewPatchFromValues(map[string]any{
		"ownershipState": nil, "target": nil, "userLevel": nil,
		"userRank": nil, "userPower": nil, "targetNote": nil, "targetPriority": nil,
	})
	if err != nil {
		apierr.WriteInternal(w, r, err)
		return
	}
	if err := d.OfficerOverlays.SetOverlay(r.Context(), p.UserID, refID, patch); err != nil {
		writeErr(w, r, err)
		return
	}
	apierr.WriteOK(w, r, map[string]any{"cleared": true})
}

func (d *Dependencies) deleteShipOverlay(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	refID := mux.Vars(r)["refId"]
	patch, err := catalog.NewPatchFromValues(map[string]any{
		"ownershipState": nil, "target": nil, "userTier": nil,
		"targetNote": nil, "targetPriority": nil,
	})
	if err != nil {
		apierr.WriteInternal(w, r, err)
		return
	}
	if err := d.ShipOverlays.SetOverlay(r.Context(), p.UserID, refID, patch); err != nil {
		writeErr(w, r, err)
		return
	}
	apierr.WriteOK(w, r, map[string]any{"cleared": true})
}
