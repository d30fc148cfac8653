// Command fleetd runs the Fleet Intelligence API server: it loads
// configuration, opens the dual-role database pools, wires every store
// and service, and serves the route table over HTTP.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fleetintel/core/internal/authn"
	"github.com/fleetintel/core/internal/behaviorrule"
	"github.com/fleetintel/core/internal/catalog"
	"github.com/fleetintel/core/internal/chatbackend"
	"github.com/fleetintel/core/internal/composition"
	"github.com/fleetintel/core/internal/config"
	"github.com/fleetintel/core/internal/dbpool"
	"github.com/fleetintel/core/internal/httpapi"
	"github.com/fleetintel/core/internal/mailer"
	"github.com/fleetintel/core/internal/mutation"
	"github.com/fleetintel/core/internal/obs"
	"github.com/fleetintel/core/internal/reqctx"
	"github.com/fleetintel/core/internal/session"
	"github.com/fleetintel/core/internal/tools"
	"github.com/fleetintel/core/internal/toolruntime"
	"github.com/fleetintel/core/internal/trustpolicy"
)

func main() {
	cfg := config.Load()
	logger := obs.New(cfg.LogLevel, cfg.LogPretty)

	pools, err := dbpool.Open(dbpool.Config{
		AdminDSN: mustDSN(cfg.DatabaseURL, cfg.AdminDBRole),
		AppDSN:   mustDSN(cfg.DatabaseURL, cfg.AppDBRole),
	})
	if err != nil {
		logger.Error("open db pools", "error", err)
		os.Exit(1)
	}
	defer func() { _ = pools.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := pools.EnsureSchema(ctx, dbpool.CoreDDL); err != nil {
		logger.Error("ensure schema", "error", err)
		cancel()
		os.Exit(1)
	}
	cancel()

	deps := buildDependencies(cfg, pools)
	router := httpapi.NewRouter(deps, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("fleetd listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("listen and serve", "error", err)
			os.Exit(1)
		}
	}()

	reapCtx, stopReap := context.WithCancel(context.Background())
	go runProposalReaper(reapCtx, deps.Proposals, cfg.ProposalTTLDefault/4, logger)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	stopReap()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", "error", err)
	}
}

// runProposalReaper periodically sweeps proposals whose TTL has lapsed
// without a confirm/decline — the "proposed" rows §4.4 says must
// transition to "expired" on their own rather than linger forever. Runs
// at a quarter of the default proposal TTL so a proposal is never more
// than one sweep-interval stale past its deadline, mirroring
// internal/session.Registry's own ticker-driven reap loop.
func runProposalReaper(ctx context.Context, proposals *mutation.ProposalStore, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			n, err := proposals.ExpireStale(ctx)
			if err != nil {
				logger.Error("expire stale proposals", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("expired stale proposals", "count", n)
			}
		case <-ctx.Done():
			return
		}
	}
}

// mustDSN rewrites dsn's userinfo to role, so the Admin and App pools
// share one host/port/dbname while authenticating as distinct Postgres
// roles (config.Config's AppDBRole/AdminDBRole).
func mustDSN(dsn, role string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		panic(fmt.Sprintf("fleetd: invalid DATABASE_URL: %v", err))
	}
	u.User = url.User(role)
	return u.String()
}

func buildDependencies(cfg *config.Config, pools *dbpool.Pools) *httpapi.Dependencies {
	users := authn.NewUsersStore(pools.App)
	sessions := authn.NewSessionsStore(pools)
	tokens := authn.NewTokensStore(pools)
	invites := authn.NewInviteTokensStore(pools)
	resolver := authn.NewResolver(sessions, users, invites, cfg.AdminToken)

	officers := catalog.NewOfficerStore(pools.Admin)
	ships := catalog.NewShipStore(pools.Admin)

	receipts := mutation.NewReceiptStore(pools)
	auditLog := mutation.NewAuditLogStore(pools)
	proposals := mutation.NewProposalStore(pools, auditLog)

	officerOverlays := catalog.NewOfficerOverlayStore(pools, receipts)
	shipOverlays := catalog.NewShipOverlayStore(pools, receipts)

	loadouts := composition.NewLoadoutStore(pools, receipts)
	bridgeCores := composition.NewBridgeCoreStore(pools, receipts)
	belowDeckPolicies := composition.NewBelowDeckPolicyStore(pools, receipts)
	loadoutVariants := composition.NewLoadoutVariantStore(pools, receipts)
	docks := composition.NewDockStore(pools, receipts)
	planItems := composition.NewPlanItemStore(pools, receipts)
	targets := composition.NewTargetStore(pools, receipts)

	trustSettings := trustpolicy.NewSettingsStore(pools)
	trustEngine := trustpolicy.NewEngine(trustSettings, trustpolicy.DefaultSystemTiers())

	behaviorRules := behaviorrule.NewStore(pools)

	runtime := toolruntime.New(pools, trustEngine, proposals, receipts, cfg.ProposalTTLDefault)
	tools.RegisterAll(runtime, tools.Deps{
		OfficerOverlays:   officerOverlays,
		ShipOverlays:      shipOverlays,
		Loadouts:          loadouts,
		BelowDeckPolicies: belowDeckPolicies,
		PlanItems:         planItems,
		Targets:           targets,
	})

	var mail mailer.Mailer = mailer.NoopMailer{}
	if cfg.SMTPHost != "" {
		mail = mailer.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom)
	}

	var chatStore session.Store
	if cfg.SessionBackend == "redis" {
		chatStore = session.NewRedisRegistry(cfg.RedisAddr, "", 0, cfg.SessionTTL)
	} else {
		chatStore = session.NewRegistry(cfg.SessionTTL, cfg.SessionReapInterval)
	}
	chatClient := chatbackend.NewHTTPClient(cfg.ChatBackendURL, cfg.ChatBackendAPIKey, cfg.ChatBackendModel)
	orchestrator := session.NewOrchestrator(chatStore, chatbackend.NewSessionAdapter(chatClient))

	return &httpapi.Dependencies{
		Pools: pools,

		BaseURL: cfg.BaseURL,

		Resolver:   resolver,
		Users:      users,
		Sessions:   sessions,
		Tokens:     tokens,
		Invites:    invites,
		Mailer:     mail,
		AdminToken: cfg.AdminToken,

		Officers:        officers,
		Ships:           ships,
		OfficerOverlays: officerOverlays,
		ShipOverlays:    shipOverlays,

		Loadouts:          loadouts,
		BridgeCores:       bridgeCores,
		BelowDeckPolicies: belowDeckPolicies,
		LoadoutVariants:   loadoutVariants,
		Docks:             docks,
		PlanItems:         planItems,
		Targets:           targets,

		Proposals: proposals,
		Receipts:  receipts,
		AuditLog:  auditLog,

		TrustSettings: trustSettings,
		TrustEngine:   trustEngine,

		BehaviorRules: behaviorRules,

		Runtime: runtime,

		ChatSessions: chatStore,
		Orchestrator: orchestrator,

		RateLimiter: reqctx.NewIPRateLimiter(5, 10),

		ProposalTTLDefault: cfg.ProposalTTLDefault,
	}
}
