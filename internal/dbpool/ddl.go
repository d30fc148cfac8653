package dbpool

// CoreDDL is the full set of CREATE TABLE IF NOT EXISTS statements for
// every entity in §3, passed to EnsureSchema at boot. Global
// (non-owned) tables — users, reference_officers, reference_ships — carry
// no user_id column and are never RLS-protected; everything else is
// listed in userScopedTables and gets the policy applied automatically.
//
// Composite (user_id, ...) indexes are added for every listing query, per
// §6 ("Persisted state layout").
var CoreDDL = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'ensign',
		email_verified BOOLEAN NOT NULL DEFAULT false,
		locked_at TIMESTAMPTZ,
		password_hash TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS user_sessions (
		token TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		last_seen_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		expires_at TIMESTAMPTZ NOT NULL,
		ip TEXT,
		user_agent TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_user_sessions_user ON user_sessions (user_id, expires_at)`,

	`CREATE TABLE IF NOT EXISTS verify_tokens (
		token TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		type TEXT NOT NULL,
		consumed_at TIMESTAMPTZ,
		expires_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_verify_tokens_user ON verify_tokens (user_id)`,

	`CREATE TABLE IF NOT EXISTS reset_tokens (
		token TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		consumed_at TIMESTAMPTZ,
		expires_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reset_tokens_user ON reset_tokens (user_id)`,

	// invite_tokens backs the legacy invite-tenant auth leg (§4.7,
	// resolution order (c)): a pre-signup bootstrap credential, bound to a
	// single user, granting read-only lieutenant access until it expires.
	// Unlike verify/reset tokens it is not single-use — repeated resolves
	// are expected for as long as the invite window is open.
	`CREATE TABLE IF NOT EXISTS invite_tokens (
		token TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_invite_tokens_user ON invite_tokens (user_id)`,

	// resolve_invite_token and expire_stale_proposals are the two places
	// the service needs to act across users (§4.4's "safe to call
	// concurrently from multiple workers" sweep, and identity resolution
	// for a bare legacy token with no routing prefix). The Admin pool
	// serves only schema/DDL and the global reference catalog, never
	// per-user rows (§4.1), and the App role
	// deliberately carries no BYPASSRLS, so neither pool alone can express
	// these two operations. SECURITY DEFINER functions, owned by whichever
	// role runs EnsureSchema, give the App pool a narrow, auditable escape
	// hatch — exactly these two statements, nothing broader — instead of
	// granting BYPASSRLS outright.
	`CREATE OR REPLACE FUNCTION expire_stale_proposals() RETURNS bigint
		LANGUAGE sql SECURITY DEFINER AS $$
			WITH expired AS (
				UPDATE mutation_proposals SET status = 'expired'
				WHERE status = 'proposed' AND expires_at < now()
				RETURNING 1
			)
			SELECT count(*) FROM expired;
		$$`,
	`GRANT EXECUTE ON FUNCTION expire_stale_proposals() TO PUBLIC`,

	`CREATE OR REPLACE FUNCTION resolve_invite_token(p_token_hash text)
		RETURNS TABLE(user_id text, expires_at timestamptz)
		LANGUAGE sql SECURITY DEFINER AS $$
			SELECT invite_tokens.user_id, invite_tokens.expires_at
			FROM invite_tokens WHERE token = p_token_hash;
		$$`,
	`GRANT EXECUTE ON FUNCTION resolve_invite_token(text) TO PUBLIC`,

	`CREATE TABLE IF NOT EXISTS reference_officers (
		ref_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		rarity TEXT,
		class TEXT,
		faction TEXT,
		abilities JSONB,
		provenance_source TEXT,
		provenance_url TEXT,
		provenance_revision TEXT,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS reference_ships (
		ref_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		rarity TEXT,
		class TEXT,
		tier TEXT,
		faction TEXT,
		abilities JSONB,
		provenance_source TEXT,
		provenance_url TEXT,
		provenance_revision TEXT,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS officer_overlays (
		user_id TEXT NOT NULL,
		ref_id TEXT NOT NULL,
		ownership_state TEXT NOT NULL DEFAULT 'unknown',
		target BOOLEAN NOT NULL DEFAULT false,
		user_level INTEGER,
		user_rank INTEGER,
		user_power BIGINT,
		target_note TEXT,
		target_priority SMALLINT,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (user_id, ref_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_officer_overlays_user ON officer_overlays (user_id)`,

	`CREATE TABLE IF NOT EXISTS ship_overlays (
		user_id TEXT NOT NULL,
		ref_id TEXT NOT NULL,
		ownership_state TEXT NOT NULL DEFAULT 'unknown',
		target BOOLEAN NOT NULL DEFAULT false,
		user_level INTEGER,
		user_tier INTEGER,
		target_note TEXT,
		target_priority SMALLINT,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (user_id, ref_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ship_overlays_user ON ship_overlays (user_id)`,

	`CREATE TABLE IF NOT EXISTS loadouts (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		ship_ref_id TEXT NOT NULL,
		name TEXT NOT NULL,
		priority INTEGER NOT NULL DEFAULT 0,
		is_active BOOLEAN NOT NULL DEFAULT true,
		intent_keys JSONB,
		tags JSONB,
		bridge_core_id TEXT,
		below_deck_policy_id TEXT,
		notes TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_loadouts_user ON loadouts (user_id, ship_ref_id)`,

	`CREATE TABLE IF NOT EXISTS bridge_cores (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		members JSONB NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_bridge_cores_user ON bridge_cores (user_id)`,

	`CREATE TABLE IF NOT EXISTS below_deck_policies (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		mode TEXT NOT NULL,
		spec JSONB NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_below_deck_policies_user ON below_deck_policies (user_id)`,

	`CREATE TABLE IF NOT EXISTS loadout_variants (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		base_loadout_id TEXT NOT NULL,
		patch JSONB NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_loadout_variants_user ON loadout_variants (user_id, base_loadout_id)`,

	`CREATE TABLE IF NOT EXISTS docks (
		user_id TEXT NOT NULL,
		dock_number SMALLINT NOT NULL,
		label TEXT,
		notes TEXT,
		PRIMARY KEY (user_id, dock_number)
	)`,

	`CREATE TABLE IF NOT EXISTS plan_items (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		intent_key TEXT,
		loadout_id TEXT,
		variant_id TEXT,
		dock_number SMALLINT,
		away_officers JSONB,
		priority INTEGER NOT NULL DEFAULT 0,
		is_active BOOLEAN NOT NULL DEFAULT true,
		source TEXT NOT NULL DEFAULT 'manual'
	)`,
	`CREATE INDEX IF NOT EXISTS idx_plan_items_user ON plan_items (user_id)`,

	`CREATE TABLE IF NOT EXISTS targets (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		target_type TEXT NOT NULL,
		ref_id TEXT,
		loadout_id TEXT,
		target_tier INTEGER,
		target_rank INTEGER,
		target_level INTEGER,
		priority SMALLINT NOT NULL DEFAULT 2,
		status TEXT NOT NULL DEFAULT 'active'
	)`,
	`CREATE INDEX IF NOT EXISTS idx_targets_user ON targets (user_id, status)`,

	// user_settings is a generic per-user key/value store; the trust
	// policy engine reads the "fleet.trust" key from it (§4.6).
	// provenance distinguishes a value the user actually set ("user")
	// from a value seeded by the system ("default") — only "user"
	// provenance overrides the system trust defaults.
	`CREATE TABLE IF NOT EXISTS user_settings (
		user_id TEXT NOT NULL,
		key TEXT NOT NULL,
		value_json JSONB NOT NULL,
		provenance TEXT NOT NULL DEFAULT 'user',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (user_id, key)
	)`,

	`CREATE TABLE IF NOT EXISTS mutation_proposals (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		tool TEXT NOT NULL,
		args_json JSONB NOT NULL,
		args_hash TEXT NOT NULL,
		proposal_json JSONB NOT NULL,
		batch_items JSONB,
		status TEXT NOT NULL DEFAULT 'proposed',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		expires_at TIMESTAMPTZ NOT NULL,
		applied_receipt_id TEXT,
		applied_at TIMESTAMPTZ,
		declined_at TIMESTAMPTZ,
		decline_reason TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_mutation_proposals_user ON mutation_proposals (user_id, created_at DESC)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_mutation_proposals_pending_hash
		ON mutation_proposals (user_id, args_hash) WHERE status = 'proposed'`,

	`CREATE TABLE IF NOT EXISTS import_receipts (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		source_type TEXT NOT NULL,
		source_meta JSONB,
		mapping JSONB,
		layer TEXT NOT NULL,
		changeset JSONB NOT NULL,
		inverse JSONB NOT NULL,
		unresolved JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_import_receipts_user ON import_receipts (user_id, layer, created_at DESC)`,

	`CREATE TABLE IF NOT EXISTS behavior_rules (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		text TEXT NOT NULL,
		task_type TEXT,
		alpha DOUBLE PRECISION NOT NULL DEFAULT 2,
		beta DOUBLE PRECISION NOT NULL DEFAULT 5,
		observation_count INTEGER NOT NULL DEFAULT 0,
		severity TEXT NOT NULL DEFAULT 'should'
	)`,
	`CREATE INDEX IF NOT EXISTS idx_behavior_rules_user ON behavior_rules (user_id)`,

	`CREATE TABLE IF NOT EXISTS chat_frames (
		frame_id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		branch TEXT NOT NULL DEFAULT 'main',
		summary TEXT NOT NULL,
		keywords JSONB,
		ts TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_chat_frames_user ON chat_frames (user_id, ts DESC)`,

	`CREATE TABLE IF NOT EXISTS proposal_audit_log (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		proposal_id TEXT NOT NULL,
		from_status TEXT NOT NULL,
		to_status TEXT NOT NULL,
		actor_user_id TEXT NOT NULL,
		at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_proposal_audit_log_user ON proposal_audit_log (user_id, proposal_id)`,
}
