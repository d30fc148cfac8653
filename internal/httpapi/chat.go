package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/fleetintel/core/internal/apierr"
	"github.com/fleetintel/core/internal/session"
)

type chatTurnRequest struct {
	SessionID string `json:"sessionId,omitempty"`
	Message   string `json:"message"`
}

// handleChatTurn runs one turn of the conversational session protocol
// (§5) through the shared Orchestrator. No MicroRunner is wired
// in here: this deployment has no prepare/validate/repair gate to run,
// so every turn takes the plain backend.Send passthrough the
// orchestrator already falls back to when runner is nil.
func (d *Dependencies) handleChatTurn(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	var req chatTurnRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Message == "" {
		apierr.WriteErrorCode(w, r, apierr.MissingParam, "message is required", nil)
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = session.DefaultSessionID
	}

	reply, err := d.Orchestrator.HandleTurn(r.Context(), p.UserID, sessionID, req.Message, nil)
	if err != nil {
		apierr.WriteInternal(w, r, err)
		return
	}
	apierr.WriteOK(w, r, map[string]any{"sessionId": sessionID, "reply": reply})
}

func (d *Dependencies) getChatSession(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	sessionID := mux.Vars(r)["id"]
	if sessionID == "" {
		sessionID = session.DefaultSessionID
	}
	sess, err := d.ChatSessions.Get(r.Context(), p.UserID, sessionID)
	if err != nil {
		apierr.WriteInternal(w, r, err)
		return
	}
	writeCacheable(w, r, sess)
}

func (d *Dependencies) deleteChatSession(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	sessionID := mux.Vars(r)["id"]
	if err := d.ChatSessions.Evict(r.Context(), p.UserID, sessionID); err != nil {
		apierr.WriteInternal(w, r, err)
		return
	}
	apierr.WriteOK(w, r, map[string]any{"deleted": true})
}
