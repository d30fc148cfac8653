package mutation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fleetintel/core/internal/canon"
	"github.com/fleetintel/core/internal/dbpool"
	"github.com/google/uuid"
)

// ProposalStore manages MutationProposal rows.
type ProposalStore struct {
	pools    *dbpool.Pools
	auditLog *AuditLogStore
}

// NewProposalStore builds a ProposalStore. auditLog may be nil, in
// which case Apply/Decline skip writing an audit trail entry — tests
// that don't care about the audit log can omit it rather than stub a
// store they never assert against.
func NewProposalStore(pools *dbpool.Pools, auditLog *AuditLogStore) *ProposalStore {
	return &ProposalStore{pools: pools, auditLog: auditLog}
}

// Create stores a new proposal. If a `proposed` proposal with the same
// (userID, argsHash) already exists — a replay within the TTL window —
// the existing row is returned instead of erroring (§4.4
// idempotency): the INSERT uses ON CONFLICT DO NOTHING against the
// partial unique index on (user_id, args_hash) WHERE status = 'proposed',
// and a skipped insert is followed by a lookup of the existing row.
func (s *ProposalStore) Create(ctx context.Context, userID, tool string, argsJSON, proposalJSON, batchItems []byte, ttl time.Duration) (*Proposal, error) {
	var created *Proposal
	err := s.pools.WithUserScope(ctx, userID, func(tx *dbpool.Tx) error {
		p, createErr := s.CreateTx(ctx, tx, userID, tool, argsJSON, proposalJSON, batchItems, ttl)
		created = p
		return createErr
	})
	if err != nil {
		return nil, fmt.Errorf("mutation: create proposal: %w", err)
	}
	return created, nil
}

// CreateTx is Create's tx-scoped counterpart, for a caller (internal/
// toolruntime's auto-tier path) that must create the proposal and apply
// it in the same transaction (§4.5: "inside one user-scoped
// transaction").
func (s *ProposalStore) CreateTx(ctx context.Context, tx *dbpool.Tx, userID, tool string, argsJSON, proposalJSON, batchItems []byte, ttl time.Duration) (*Proposal, error) {
	argsHash, err := canon.ArgsHash(tool, json.RawMessage(argsJSON))
	if err != nil {
		return nil, fmt.Errorf("mutation: compute args hash: %w", err)
	}

	id := newOpaqueID()
	now := time.Now().UTC()
	expiresAt := now.Add(ttl)

	res, execErr := tx.ExecContext(ctx, `
		INSERT INTO mutation_proposals (id, user_id, tool, args_json, args_hash, proposal_json, batch_items, status, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (user_id, args_hash) WHERE status = 'proposed' DO NOTHING`,
		id, userID, tool, argsJSON, argsHash, proposalJSON, batchItems, string(StatusProposed), now, expiresAt)
	if execErr != nil {
		return nil, execErr
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if inserted == 0 {
		// A proposed row with this argsHash already exists.
		return getProposalByHash(ctx, tx, userID, argsHash)
	}

	return &Proposal{
		ID: id, UserID: userID, Tool: tool, ArgsJSON: argsJSON, ArgsHash: argsHash,
		ProposalJSON: proposalJSON, BatchItems: batchItems, Status: StatusProposed,
		CreatedAt: now, ExpiresAt: expiresAt,
	}, nil
}

func getProposalByHash(ctx context.Context, tx *dbpool.Tx, userID, argsHash string) (*Proposal, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT id, user_id, tool, args_json, args_hash, proposal_json, batch_items, status,
		       created_at, expires_at, applied_receipt_id, applied_at, declined_at, decline_reason
		FROM mutation_proposals WHERE user_id = $1 AND args_hash = $2 AND status = $3`,
		userID, argsHash, string(StatusProposed))
	return scanProposal(row)
}

// Get returns the proposal for (userID, id), or ErrNotFound.
func (s *ProposalStore) Get(ctx context.Context, userID, id string) (*Proposal, error) {
	var p *Proposal
	err := s.pools.WithUserRead(ctx, userID, func(tx *dbpool.Tx) error {
		row := tx.QueryRowContext(ctx, `
			SELECT id, user_id, tool, args_json, args_hash, proposal_json, batch_items, status,
			       created_at, expires_at, applied_receipt_id, applied_at, declined_at, decline_reason
			FROM mutation_proposals WHERE user_id = $1 AND id = $2`, userID, id)
		var getErr error
		p, getErr = scanProposal(row)
		return getErr
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("mutation: get proposal: %w", err)
	}
	return p, nil
}

// GetForUpdate loads the proposal row inside an already-open
// user-scoped transaction — used by Apply, which must read and
// transition the row in the same transaction the caller commits.
func (s *ProposalStore) GetForUpdate(ctx context.Context, tx *dbpool.Tx, userID, id string) (*Proposal, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT id, user_id, tool, args_json, args_hash, proposal_json, batch_items, status,
		       created_at, expires_at, applied_receipt_id, applied_at, declined_at, decline_reason
		FROM mutation_proposals WHERE user_id = $1 AND id = $2 FOR UPDATE`, userID, id)
	return scanProposal(row)
}

func scanProposal(row *sql.Row) (*Proposal, error) {
	p := &Proposal{}
	var status string
	err := row.Scan(&p.ID, &p.UserID, &p.Tool, &p.ArgsJSON, &p.ArgsHash, &p.ProposalJSON, &p.BatchItems, &status,
		&p.CreatedAt, &p.ExpiresAt, &p.AppliedReceiptID, &p.AppliedAt, &p.DeclinedAt, &p.DeclineReason)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("mutation: scan proposal: %w", err)
	}
	p.Status = Status(status)
	return p, nil
}

// Apply transitions a proposed proposal to applied within tx — the
// caller (toolruntime) owns the transaction and also performs the
// actual entity mutation and receipt insert inside it, so all three
// writes commit or roll back together (§4.4). actorUserID is
// usually userID; they can differ if a future caller applies a
// proposal on a user's behalf (e.g. an operator action), which is why
// the audit row carries both.
func (s *ProposalStore) Apply(ctx context.Context, tx *dbpool.Tx, userID, id, receiptID, actorUserID string) (*Proposal, error) {
	p, err := s.GetForUpdate(ctx, tx, userID, id)
	if err != nil {
		return nil, err
	}
	if p.Status != StatusProposed {
		return nil, &ErrWrongStatus{Status: p.Status}
	}
	now := time.Now().UTC()
	if now.After(p.ExpiresAt) {
		if _, execErr := tx.ExecContext(ctx, `UPDATE mutation_proposals SET status = $1 WHERE user_id = $2 AND id = $3`,
			string(StatusExpired), userID, id); execErr != nil {
			return nil, execErr
		}
		if s.auditLog != nil {
			if auditErr := s.auditLog.WriteTx(ctx, tx, userID, id, StatusProposed, StatusExpired, actorUserID); auditErr != nil {
				return nil, auditErr
			}
		}
		return nil, &ErrExpired{ExpiresAt: p.ExpiresAt}
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE mutation_proposals SET status = $1, applied_at = $2, applied_receipt_id = $3
		WHERE user_id = $4 AND id = $5`,
		string(StatusApplied), now, receiptID, userID, id)
	if err != nil {
		return nil, err
	}
	if s.auditLog != nil {
		if err := s.auditLog.WriteTx(ctx, tx, userID, id, StatusProposed, StatusApplied, actorUserID); err != nil {
			return nil, err
		}
	}

	p.Status = StatusApplied
	p.AppliedAt = &now
	p.AppliedReceiptID = &receiptID
	return p, nil
}

// Decline marks a proposal declined. Expiry is not checked — declining
// an already-expired proposal is allowed (§4.4); only applied
// or already-declined proposals reject the transition.
func (s *ProposalStore) Decline(ctx context.Context, userID, id string, reason *string, actorUserID string) error {
	return s.pools.WithUserScope(ctx, userID, func(tx *dbpool.Tx) error {
		p, err := s.GetForUpdate(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		if p.Status == StatusApplied || p.Status == StatusDeclined {
			return &ErrWrongStatus{Status: p.Status}
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE mutation_proposals SET status = $1, declined_at = $2, decline_reason = $3
			WHERE user_id = $4 AND id = $5`,
			string(StatusDeclined), time.Now().UTC(), reason, userID, id)
		if err != nil {
			return err
		}
		if s.auditLog != nil {
			return s.auditLog.WriteTx(ctx, tx, userID, id, p.Status, StatusDeclined, actorUserID)
		}
		return nil
	})
}

// List returns proposals ordered by createdAt desc, optionally filtered
// by status.
func (s *ProposalStore) List(ctx context.Context, userID string, status *Status, limit int) ([]*Proposal, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []*Proposal
	err := s.pools.WithUserRead(ctx, userID, func(tx *dbpool.Tx) error {
		var rows *sql.Rows
		var queryErr error
		if status != nil {
			rows, queryErr = tx.QueryContext(ctx, `
				SELECT id, user_id, tool, args_json, args_hash, proposal_json, batch_items, status,
				       created_at, expires_at, applied_receipt_id, applied_at, declined_at, decline_reason
				FROM mutation_proposals WHERE user_id = $1 AND status = $2
				ORDER BY created_at DESC LIMIT $3`, userID, string(*status), limit)
		} else {
			rows, queryErr = tx.QueryContext(ctx, `
				SELECT id, user_id, tool, args_json, args_hash, proposal_json, batch_items, status,
				       created_at, expires_at, applied_receipt_id, applied_at, declined_at, decline_reason
				FROM mutation_proposals WHERE user_id = $1
				ORDER BY created_at DESC LIMIT $2`, userID, limit)
		}
		if queryErr != nil {
			return queryErr
		}
		defer rows.Close()

		for rows.Next() {
			p := &Proposal{}
			var st string
			if err := rows.Scan(&p.ID, &p.UserID, &p.Tool, &p.ArgsJSON, &p.ArgsHash, &p.ProposalJSON, &p.BatchItems, &st,
				&p.CreatedAt, &p.ExpiresAt, &p.AppliedReceiptID, &p.AppliedAt, &p.DeclinedAt, &p.DeclineReason); err != nil {
				return err
			}
			p.Status = Status(st)
			out = append(out, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("mutation: list proposals: %w", err)
	}
	return out, nil
}

// ExpireStale sweeps every proposed proposal across every user whose
// expiresAt has passed. Safe to call concurrently from multiple workers
// (§4.4): an unconditional UPDATE with no row read-before-write.
// This is the one mutation-package operation that must act across users,
// so it goes through expire_stale_proposals, a SECURITY DEFINER function
// installed by EnsureSchema — the same narrow RLS exception used by
// internal/authn's legacy invite-token lookup; see DESIGN.md.
func (s *ProposalStore) ExpireStale(ctx context.Context) (int64, error) {
	row := s.pools.App.QueryRowContext(ctx, `SELECT expire_stale_proposals()`)
	var count int64
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("mutation: expire stale proposals: %w", err)
	}
	return count, nil
}

// newOpaqueID mints a cryptographically random proposal id (the design
// §4.4: "opaque, cryptographically random"). uuid.NewString uses
// crypto/rand under the hood for v4 UUIDs.
func newOpaqueID() string {
	return uuid.NewString()
}
