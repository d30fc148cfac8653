package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/fleetintel/core/internal/reqctx"
)

// NewRouter wires the full route table §6 names over deps.
// Every route runs RequestID first so the error taxonomy and structured
// logs always have a request id to key on; auth-adjacent routes add the
// IP rate limiter ahead of it; everything past signup/signin runs
// through the session/bearer resolver, then a per-route rank floor.
func NewRouter(deps *Dependencies, baseLogger *slog.Logger) http.Handler {
	r := mux.NewRouter()
	r.Use(reqctx.RequestID(baseLogger))

	public := r.PathPrefix("/api/auth").Subrouter()
	public.Use(deps.RateLimiter.Middleware)
	public.HandleFunc("/signup", deps.handleSignup).Methods(http.MethodPost)
	public.HandleFunc("/verify-email", deps.handleVerifyEmail).Methods(http.MethodPost)
	public.HandleFunc("/signin", deps.handleSignin).Methods(http.MethodPost)
	public.HandleFunc("/forgot-password", deps.handleForgotPassword).Methods(http.MethodPost)
	public.HandleFunc("/reset-password", deps.handleResetPassword).Methods(http.MethodPost)

	authed := r.PathPrefix("/api").Subrouter()
	authed.Use(deps.Resolver.Middleware)

	authed.Handle("/auth/me", requireRole(reqctx.RoleEnsign)(http.HandlerFunc(deps.handleMe))).Methods(http.MethodGet)
	authed.Handle("/auth/logout", requireRole(reqctx.RoleEnsign)(http.HandlerFunc(deps.handleLogout))).Methods(http.MethodPost)
	authed.Handle("/auth/change-password", requireRole(reqctx.RoleEnsign)(http.HandlerFunc(deps.handleChangePassword))).Methods(http.MethodPost)

	lieutenant := requireRole(reqctx.RoleLieutenant)
	admiral := requireRole(reqctx.RoleAdmiral)

	authed.Handle("/catalog/officers", lieutenant(http.HandlerFunc(deps.listOfficers))).Methods(http.MethodGet)
	authed.Handle("/catalog/officers/{refId}/overlay", lieutenant(http.HandlerFunc(deps.setOfficerOverlay))).Methods(http.MethodPatch)
	authed.Handle("/catalog/officers/{refId}/overlay", lieutenant(http.HandlerFunc(deps.deleteOfficerOverlay))).Methods(http.MethodDelete)
	authed.Handle("/catalog/officers/bulk", lieutenant(http.HandlerFunc(deps.bulkPatchOfficers))).Methods(http.MethodPatch)
	authed.Handle("/catalog/ships", lieutenant(http.HandlerFunc(deps.listShips))).Methods(http.MethodGet)
	authed.Handle("/catalog/ships/{refId}/overlay", lieutenant(http.HandlerFunc(deps.setShipOverlay))).Methods(http.MethodPatch)
	authed.Handle("/catalog/ships/{refId}/overlay", lieutenant(http.HandlerFunc(deps.deleteShipOverlay))).Methods(http.MethodDelete)
	authed.Handle("/catalog/ships/bulk", lieutenant(http.HandlerFunc(deps.bulkPatchShips))).Methods(http.MethodPatch)

	authed.Handle("/loadouts", lieutenant(http.HandlerFunc(deps.listLoadouts))).Methods(http.MethodGet)
	authed.Handle("/loadouts", lieutenant(http.HandlerFunc(deps.createLoadout))).Methods(http.MethodPost)
	authed.Handle("/loadouts/{id}", lieutenant(http.HandlerFunc(deps.getLoadout))).Methods(http.MethodGet)
	authed.Handle("/loadouts/{id}", lieutenant(http.HandlerFunc(deps.updateLoadout))).Methods(http.MethodPatch)
	authed.Handle("/loadouts/{id}", lieutenant(http.HandlerFunc(deps.deleteLoadout))).Methods(http.MethodDelete)
	authed.Handle("/loadouts/{id}/bridge-core", lieutenant(http.HandlerFunc(deps.assignBridgeCore))).Methods(http.MethodPut)
	authed.Handle("/loadouts/{id}/below-deck", lieutenant(http.HandlerFunc(deps.syncBelowDeck))).Methods(http.MethodPut)

	authed.Handle("/bridge-cores", lieutenant(http.HandlerFunc(deps.listBridgeCores))).Methods(http.MethodGet)
	authed.Handle("/bridge-cores", lieutenant(http.HandlerFunc(deps.createBridgeCore))).Methods(http.MethodPost)
	authed.Handle("/bridge-cores/{id}", lieutenant(http.HandlerFunc(deps.updateBridgeCore))).Methods(http.MethodPatch)
	authed.Handle("/bridge-cores/{id}", lieutenant(http.HandlerFunc(deps.deleteBridgeCore))).Methods(http.MethodDelete)

	authed.Handle("/below-deck-policies", lieutenant(http.HandlerFunc(deps.listBelowDeckPolicies))).Methods(http.MethodGet)
	authed.Handle("/below-deck-policies", lieutenant(http.HandlerFunc(deps.createBelowDeckPolicy))).Methods(http.MethodPost)
	authed.Handle("/below-deck-policies/{id}", lieutenant(http.HandlerFunc(deps.updateBelowDeckPolicy))).Methods(http.MethodPatch)
	authed.Handle("/below-deck-policies/{id}", lieutenant(http.HandlerFunc(deps.deleteBelowDeckPolicy))).Methods(http.MethodDelete)

	authed.Handle("/loadouts/variants", lieutenant(http.HandlerFunc(deps.listLoadoutVariants))).Methods(http.MethodGet)
	authed.Handle("/loadouts/variants", lieutenant(http.HandlerFunc(deps.createLoadoutVariant))).Methods(http.MethodPost)
	authed.Handle("/loadouts/variants/{id}", lieutenant(http.HandlerFunc(deps.updateLoadoutVariant))).Methods(http.MethodPatch)
	authed.Handle("/loadouts/variants/{id}", lieutenant(http.HandlerFunc(deps.deleteLoadoutVariant))).Methods(http.MethodDelete)

	authed.Handle("/docks", lieutenant(http.HandlerFunc(deps.listDocks))).Methods(http.MethodGet)
	authed.Handle("/docks/{dockNumber}", lieutenant(http.HandlerFunc(deps.upsertDock))).Methods(http.MethodPut)
	authed.Handle("/docks/{dockNumber}", lieutenant(http.HandlerFunc(deps.deleteDock))).Methods(http.MethodDelete)

	authed.Handle("/plan-items", lieutenant(http.HandlerFunc(deps.listPlanItems))).Methods(http.MethodGet)
	authed.Handle("/plan-items", lieutenant(http.HandlerFunc(deps.createPlanItem))).Methods(http.MethodPost)
	authed.Handle("/plan-items/{id}/complete", lieutenant(http.HandlerFunc(deps.completePlanItem))).Methods(http.MethodPost)
	authed.Handle("/plan-items/{id}", lieutenant(http.HandlerFunc(deps.removePlanItem))).Methods(http.MethodDelete)

	authed.Handle("/targets", lieutenant(http.HandlerFunc(deps.listTargets))).Methods(http.MethodGet)
	authed.Handle("/targets", lieutenant(http.HandlerFunc(deps.createTarget))).Methods(http.MethodPost)
	authed.Handle("/targets/{id}/status", lieutenant(http.HandlerFunc(deps.setTargetStatus))).Methods(http.MethodPut)
	authed.Handle("/targets/{id}", lieutenant(http.HandlerFunc(deps.deleteTarget))).Methods(http.MethodDelete)

	authed.Handle("/import/parse", admiral(http.HandlerFunc(deps.handleImportParse))).Methods(http.MethodPost)
	authed.Handle("/import/translate", admiral(http.HandlerFunc(deps.handleImportTranslate))).Methods(http.MethodPost)
	authed.Handle("/import/resolve", admiral(http.HandlerFunc(deps.handleImportResolve))).Methods(http.MethodPost)
	authed.Handle("/import/apply", admiral(http.HandlerFunc(deps.handleImportApply))).Methods(http.MethodPost)

	authed.Handle("/import/receipts", lieutenant(http.HandlerFunc(deps.listReceipts))).Methods(http.MethodGet)
	authed.Handle("/import/receipts/{id}", lieutenant(http.HandlerFunc(deps.getReceipt))).Methods(http.MethodGet)
	authed.Handle("/import/receipts/{id}/undo", admiral(http.HandlerFunc(deps.undoReceipt))).Methods(http.MethodPost)
	authed.Handle("/import/receipts/{id}/resolve", admiral(http.HandlerFunc(deps.resolveReceipt))).Methods(http.MethodPost)

	authed.Handle("/trust-settings", lieutenant(http.HandlerFunc(deps.getTrustSettings))).Methods(http.MethodGet)
	authed.Handle("/trust-settings", admiral(http.HandlerFunc(deps.setTrustSettings))).Methods(http.MethodPut)

	authed.Handle("/behavior-rules", lieutenant(http.HandlerFunc(deps.listBehaviorRules))).Methods(http.MethodGet)
	authed.Handle("/behavior-rules", lieutenant(http.HandlerFunc(deps.createBehaviorRule))).Methods(http.MethodPost)
	authed.Handle("/behavior-rules/{id}", lieutenant(http.HandlerFunc(deps.getBehaviorRule))).Methods(http.MethodGet)
	authed.Handle("/behavior-rules/{id}/observe", lieutenant(http.HandlerFunc(deps.observeBehaviorRule))).Methods(http.MethodPost)
	authed.Handle("/behavior-rules/{id}", lieutenant(http.HandlerFunc(deps.deleteBehaviorRule))).Methods(http.MethodDelete)

	// Mutation-proposal creation is gated per-tool by the trust engine
	// inside Dispatch itself; the only rank floor here is lieutenant — a
	// lieutenant and an admiral hit the same route, and the tier resolved
	// for (user, tool) decides whether the call proposes or auto-applies.
	authed.Handle("/mutations/proposals", lieutenant(http.HandlerFunc(deps.createProposal))).Methods(http.MethodPost)
	authed.Handle("/mutations/proposals", lieutenant(http.HandlerFunc(deps.listProposals))).Methods(http.MethodGet)
	authed.Handle("/mutations/proposals/{id}", lieutenant(http.HandlerFunc(deps.getProposal))).Methods(http.MethodGet)
	authed.Handle("/mutations/proposals/{id}/apply", admiral(http.HandlerFunc(deps.applyProposal))).Methods(http.MethodPost)
	authed.Handle("/mutations/proposals/{id}/decline", admiral(http.HandlerFunc(deps.declineProposal))).Methods(http.MethodPost)

	authed.Handle("/chat", lieutenant(http.HandlerFunc(deps.handleChatTurn))).Methods(http.MethodPost)
	authed.Handle("/chat/sessions/{id}", lieutenant(http.HandlerFunc(deps.getChatSession))).Methods(http.MethodGet)
	authed.Handle("/chat/sessions/{id}", lieutenant(http.HandlerFunc(deps.deleteChatSession))).Methods(http.MethodDelete)

	// Acting on another user's account (role-change, lock, deletion —
	// §3's User row) is admiral-only and distinct from the
	// self-service routes above, which only ever touch the caller's own
	// identity.
	authed.Handle("/admin/users/{id}/role", admiral(http.HandlerFunc(deps.handleSetUserRole))).Methods(http.MethodPut)
	authed.Handle("/admin/users/{id}/lock", admiral(http.HandlerFunc(deps.handleLockUser))).Methods(http.MethodPost)
	authed.Handle("/admin/users/{id}", admiral(http.HandlerFunc(deps.handleDeleteUser))).Methods(http.MethodDelete)

	// Reference-catalog ingest (vendor officer/ship data, not a user's
	// overlay) — admiral-only, separate from /api/import/* which only
	// ever writes overlay rows.
	authed.Handle("/admin/catalog/officers", admiral(http.HandlerFunc(deps.handleIngestOfficers))).Methods(http.MethodPost)
	authed.Handle("/admin/catalog/ships", admiral(http.HandlerFunc(deps.handleIngestShips))).Methods(http.MethodPost)

	return r
}
