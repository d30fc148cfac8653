package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/fleetintel/core/internal/apierr"
)

// dispatchTool runs a tool call through the Runtime and writes whichever
// shape of DispatchResult comes back — a committed result, an
// approve-tier proposal awaiting confirmation, or (via writeErr) a
// mapped failure. Every handler that lets a tool name decide mutation
// gating goes through here instead of branching on the result itself.
func (d *Dependencies) dispatchTool(w http.ResponseWriter, r *http.Request, userID, tool string, args []byte) {
	result, err := d.Runtime.Dispatch(r.Context(), userID, tool, args)
	if err != nil {
		writeErr(w, r, err)
		return
	}

	if result.ProposalID != "" {
		apierr.WriteCreated(w, r, map[string]any{
			"proposalId": result.ProposalID,
			"expiresAt":  result.ExpiresAt,
			"preview":    json.RawMessage(result.Preview),
		})
		return
	}

	if result.Applied {
		apierr.WriteOK(w, r, map[string]any{
			"applied":   true,
			"receiptId": result.ReceiptID,
		})
		return
	}

	apierr.WriteOK(w, r, json.RawMessage(result.ResultJSON))
}
