// Package httpapi wires every internal component behind the route
// table §6 names: one gorilla/mux router, a thin per-domain
// handler per file, and a shared envelope/error-mapping layer so no
// handler hand-rolls its own response shape. Grounded on
// core/pkg/api (handler-per-file, Dependencies-struct wiring,
// middleware chain built once in NewRouter), generalized from that
// package's fixed kernel surface to this system's full route table.
package httpapi

import (
	"time"

	"github.com/fleetintel/core/internal/authn"
	"github.com/fleetintel/core/internal/behaviorrule"
	"github.com/fleetintel/core/internal/catalog"
	"github.com/fleetintel/core/internal/composition"
	"github.com/fleetintel/core/internal/dbpool"
	"github.com/fleetintel/core/internal/mailer"
	"github.com/fleetintel/core/internal/mutation"
	"github.com/fleetintel/core/internal/reqctx"
	"github.com/fleetintel/core/internal/session"
	"github.com/fleetintel/core/internal/toolruntime"
	"github.com/fleetintel/core/internal/trustpolicy"
)

// Dependencies collects every store and service a route handler may
// need. cmd/fleetd builds one of these at startup and passes it to
// NewRouter; nothing in this package reaches for a process-wide
// global.
type Dependencies struct {
	Pools *dbpool.Pools

	BaseURL string

	Resolver   *authn.Resolver
	Users      *authn.UsersStore
	Sessions   *authn.SessionsStore
	Tokens     *authn.TokensStore
	Invites    *authn.InviteTokensStore
	Mailer     mailer.Mailer
	AdminToken string

	Officers        *catalog.OfficerStore
	Ships           *catalog.ShipStore
	OfficerOverlays *catalog.OfficerOverlayStore
	ShipOverlays    *catalog.ShipOverlayStore

	Loadouts          *composition.LoadoutStore
	BridgeCores       *composition.BridgeCoreStore
	BelowDeckPolicies *composition.BelowDeckPolicyStore
	LoadoutVariants   *composition.LoadoutVariantStore
	Docks             *composition.DockStore
	PlanItems         *composition.PlanItemStore
	Targets           *composition.TargetStore

	Proposals *mutation.ProposalStore
	Receipts  *mutation.ReceiptStore
	AuditLog  *mutation.AuditLogStore

	TrustSettings *trustpolicy.SettingsStore
	TrustEngine   *trustpolicy.Engine

	BehaviorRules *behaviorrule.Store

	Runtime *toolruntime.Runtime

	ChatSessions  session.Store
	Orchestrator  *session.Orchestrator

	RateLimiter *reqctx.IPRateLimiter

	ProposalTTLDefault time.Duration
}
