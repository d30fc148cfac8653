package dbpool

import (
	"context"
	"database/sql"
	"fmt"
)

// userScopedTables lists every per-user table named in §3. Each
// gets: user_id column, FORCE ROW LEVEL SECURITY, and the
// current_user_id policy. Schema is applied only through the Admin pool
// — no migration framework is introduced (§1 excludes the
// repository's schema migration driver as an external collaborator;
// core/pkg/store/ledger/postgres_ledger.go applies its own schema the
// same inline, idempotent way via an Admin-equivalent connection).
var userScopedTables = []string{
	"user_sessions",
	"verify_tokens",
	"reset_tokens",
	"invite_tokens",
	"officer_overlays",
	"ship_overlays",
	"loadouts",
	"bridge_cores",
	"below_deck_policies",
	"loadout_variants",
	"docks",
	"plan_items",
	"targets",
	"user_settings",
	"mutation_proposals",
	"import_receipts",
	"behavior_rules",
	"chat_frames",
	"proposal_audit_log",
}

const policyName = "user_isolation"

// EnsureSchema creates every table this service needs (if absent),
// enables and forces row-level security on each per-user table, and
// installs the isolation policy, all idempotently. Must run through the
// Admin pool — the App pool's role has no CREATE/ALTER grant and will
// fail loudly if this is ever pointed at it (tests assert that).
func (p *Pools) EnsureSchema(ctx context.Context, ddl []string) error {
	tx, err := p.Admin.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("dbpool: ensure schema: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range ddl {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("dbpool: ensure schema: exec: %w", err)
		}
	}

	for _, table := range userScopedTables {
		if err := forceRLS(ctx, tx, table); err != nil {
			return fmt.Errorf("dbpool: force rls on %s: %w", table, err)
		}
	}

	return tx.Commit()
}

// forceRLS enables and forces row-level security on table and installs
// the standard isolation policy:
//
//	USING (user_id = current_setting('app.current_user_id', true))
//	WITH CHECK (same)
//
// Installation is idempotent: CREATE POLICY is guarded by a pg_policies
// existence check, matching the DO $$ ... $$ guard in
// core/pkg/store/ledger/postgres_ledger.go.
func forceRLS(ctx context.Context, tx *sql.Tx, table string) error {
	stmts := []string{
		fmt.Sprintf(`ALTER TABLE %s ENABLE ROW LEVEL SECURITY`, table),
		fmt.Sprintf(`ALTER TABLE %s FORCE ROW LEVEL SECURITY`, table),
	}
	for _, s := range stmts {
		if _, err := tx.ExecContext(ctx, s); err != nil {
			return err
		}
	}

	guarded := fmt.Sprintf(`
DO $$
BEGIN
    IF NOT EXISTS (
        SELECT 1 FROM pg_policies WHERE schemaname = current_schema() AND tablename = '%s' AND policyname = '%s'
    ) THEN
        CREATE POLICY %s ON %s
        USING (user_id = current_setting('app.current_user_id', true))
        WITH CHECK (user_id = current_setting('app.current_user_id', true));
    END IF;
END
$$;`, table, policyName, policyName, table)

	_, err := tx.ExecContext(ctx, guarded)
	return err
}
