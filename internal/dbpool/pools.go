// Package dbpool implements the dual-role, per-user row-level-security
// substrate described in §4.1. It is grounded on
// core/pkg/database/multiregion.go (dual *sql.DB pools over lib/pq) and
// core/pkg/store/ledger/postgres_ledger.go (the tenant_id +
// current_setting RLS policy already used there for its own ledger
// table), generalized here to every per-user table in §3.
package dbpool

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// Pools holds the two long-lived connections to the one database:
// Admin (privileged, DDL-capable) and App (unprivileged DML only, no
// BYPASSRLS). These are the only process-wide long-lived resources
// (§5).
type Pools struct {
	Admin *sql.DB
	App   *sql.DB
}

// Config describes how to reach the single underlying database as two
// distinct roles.
type Config struct {
	// AdminDSN and AppDSN are complete connection strings, one per role
	// (cmd/fleetd builds both from DATABASE_URL).
	AdminDSN string
	AppDSN   string

	MaxOpenConnsAdmin int
	MaxOpenConnsApp   int
}

// Open establishes both pools. Neither pool is validated against the
// database here (sql.Open is lazy); callers should Ping during startup
// health checks.
func Open(cfg Config) (*Pools, error) {
	admin, err := sql.Open("postgres", cfg.AdminDSN)
	if err != nil {
		return nil, fmt.Errorf("dbpool: open admin pool: %w", err)
	}
	if cfg.MaxOpenConnsAdmin > 0 {
		admin.SetMaxOpenConns(cfg.MaxOpenConnsAdmin)
	}

	app, err := sql.Open("postgres", cfg.AppDSN)
	if err != nil {
		_ = admin.Close()
		return nil, fmt.Errorf("dbpool: open app pool: %w", err)
	}
	if cfg.MaxOpenConnsApp > 0 {
		app.SetMaxOpenConns(cfg.MaxOpenConnsApp)
	}

	return &Pools{Admin: admin, App: app}, nil
}

// Close releases both pools. Errors are joined, not swallowed.
func (p *Pools) Close() error {
	var errs []error
	if err := p.Admin.Close(); err != nil {
		errs = append(errs, fmt.Errorf("admin pool: %w", err))
	}
	if err := p.App.Close(); err != nil {
		errs = append(errs, fmt.Errorf("app pool: %w", err))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("dbpool: close errors: %v", errs)
}
