package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/fleetintel/core/internal/apierr"
	"github.com/fleetintel/core/internal/mutation"
)

type createProposalRequest struct {
	Tool string          `json:"tool"`
	Args json.RawMessage `json:"args"`
}

// createProposal is the single entry point for every tool call
// (§4.5) — the trust tier resolved for (userID, tool) decides
// whether this returns an approve-tier proposal or an already-applied
// result; the caller doesn't pick which.
func (d *Dependencies) createProposal(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	var req createProposalRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Tool == "" {
		apierr.WriteErrorCode(w, r, apierr.MissingParam, "tool is required", nil)
		return
	}
	d.dispatchTool(w, r, p.UserID, req.Tool, req.Args)
}

func (d *Dependencies) listProposals(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	var status *mutation.Status
	if s := r.URL.Query().Get("status"); s != "" {
		st := mutation.Status(s)
		status = &st
	}
	proposals, err := d.Proposals.List(r.Context(), p.UserID, status, 50)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeCacheable(w, r, proposals)
}

func (d *Dependencies) getProposal(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	proposal, err := d.Proposals.Get(r.Context(), p.UserID, mux.Vars(r)["id"])
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeCacheable(w, r, proposal)
}

func (d *Dependencies) applyProposal(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	result, err := d.Runtime.ConfirmApply(r.Context(), p.UserID, mux.Vars(r)["id"], p.UserID)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	apierr.WriteOK(w, r, map[string]any{"applied": true, "receiptId": result.ReceiptID})
}

type declineProposalRequest struct {
	Reason *string `json:"reason,omitempty"`
}

func (d *Dependencies) declineProposal(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	var req declineProposalRequest
	if r.ContentLength != 0 {
		if !decodeJSON(w, r, &req) {
			return
		}
	}
	if err := d.Proposals.Decline(r.Context(), p.UserID, mux.Vars(r)["id"], req.Reason, p.UserID); err != nil {
		writeErr(w, r, err)
		return
	}
	apierr.WriteOK(w, r, map[string]any{"declined": true})
}
