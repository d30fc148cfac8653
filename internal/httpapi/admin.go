package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/fleetintel/core/internal/apierr"
	"github.com/fleetintel/core/internal/catalog"
)

// validRoleNames are the only strings SetRole accepts — reqctx.ParseRole
// defaults unrecognized input to ensign rather than erroring, which is
// the right fail-closed behavior for resolving a caller's own token but
// wrong for validating an admin's request body, where a typo should
// reject loudly instead of silently demoting the target to ensign.
var validRoleNames = map[string]bool{
	"ensign": true, "lieutenant": true, "captain": true, "admiral": true,
}

// Admin user-management: the three mutations §3 names against
// User ("mutated by verify/role-change/lock") that aren't part of the
// self-service auth flow in auth.go — these act on a *different*
// user's row, so they're admiral-only rather than reachable by the
// authenticated caller acting on themselves.

type setUserRoleRequest struct {
	Role string `json:"role"`
}

func (d *Dependencies) handleSetUserRole(w http.ResponseWriter, r *http.Request) {
	var req setUserRoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !validRoleNames[req.Role] {
		apierr.WriteErrorCode(w, r, apierr.InvalidParam, "role must be one of ensign, lieutenant, captain, admiral", nil)
		return
	}
	userID := mux.Vars(r)["id"]
	if err := d.Users.SetRole(r.Context(), userID, req.Role); err != nil {
		apierr.WriteInternal(w, r, err)
		return
	}
	apierr.WriteOK(w, r, map[string]any{"id": userID, "role": req.Role})
}

func (d *Dependencies) handleLockUser(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]
	if err := d.Users.Lock(r.Context(), userID); err != nil {
		apierr.WriteInternal(w, r, err)
		return
	}
	// A locked account's outstanding sessions are still valid rows
	// until they expire — the account-lock gate in authn.Resolver
	// checks lockedAt on every resolve, so destroying sessions here
	// would be redundant, not protective.
	apierr.WriteOK(w, r, map[string]any{"id": userID, "locked": true})
}

func (d *Dependencies) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]
	if err := d.Users.Delete(r.Context(), userID); err != nil {
		apierr.WriteInternal(w, r, err)
		return
	}
	apierr.WriteOK(w, r, map[string]any{"id": userID, "deleted": true})
}

// Catalog ingest: the reference officer/ship rows themselves (as
// opposed to a user's per-user overlay on top of them) come from a
// vendor-maintained dataset, not the per-user import pipeline — §4.2's
// "overwrites provenance on re-ingest" describes exactly this
// upsert-by-refId operation. Admiral-only and distinct from
// /api/import/*, which only ever touches overlay rows.

type ingestOfficersRequest struct {
	Officers []*catalog.Officer `json:"officers"`
}

func (d *Dependencies) handleIngestOfficers(w http.ResponseWriter, r *http.Request) {
	var req ingestOfficersRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	for _, o := range req.Officers {
		if o.RefID == "" {
			apierr.WriteErrorCode(w, r, apierr.MissingParam, "every officer requires a refId", nil)
			return
		}
		if err := d.Officers.UpsertOfficer(r.Context(), o); err != nil {
			apierr.WriteInternal(w, r, err)
			return
		}
	}
	apierr.WriteOK(w, r, map[string]any{"ingested": len(req.Officers)})
}

type ingestShipsRequest struct {
	Ships []*catalog.Ship `json:"ships"`
}

func (d *Dependencies) handleIngestShips(w http.ResponseWriter, r *http.Request) {
	var req ingestShipsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	for _, sh := range req.Ships {
		if sh.RefID == "" {
			apierr.WriteErrorCode(w, r, apierr.MissingParam, "every ship requires a refId", nil)
			return
		}
		if err := d.Ships.UpsertShip(r.Context(), sh); err != nil {
			apierr.WriteInternal(w, r, err)
			return
		}
	}
	apierr.WriteOK(w, r, map[string]any{"ingested": len(req.Ships)})
}
