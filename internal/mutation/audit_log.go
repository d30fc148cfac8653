package mutation

import (
	"context"
	"fmt"
	"time"

	"github.com/fleetintel/core/internal/dbpool"
	"github.com/google/uuid"
)

// AuditLogEntry is a proposal_audit_log row: one append-only record per
// state-changing action on a MutationProposal. Not named in the
// data model, but implied by §7's "never swallow" posture and consistent
// with the append-only audit trail pattern in
// core/pkg/store/audit_store.go — minus that file's hash-chaining,
// which answers a tamper-evidence question this system never asks.
type AuditLogEntry struct {
	ID          string
	UserID      string
	ProposalID  string
	FromStatus  Status
	ToStatus    Status
	ActorUserID string
	At          time.Time
}

// AuditLogStore appends proposal_audit_log rows.
type AuditLogStore struct {
	pools *dbpool.Pools
}

func NewAuditLogStore(pools *dbpool.Pools) *AuditLogStore {
	return &AuditLogStore{pools: pools}
}

// WriteTx appends one entry inside the caller's transaction — Apply and
// Decline call this in the same transaction as the status UPDATE so the
// audit trail can never observe a transition the proposal row itself
// didn't commit.
func (s *AuditLogStore) WriteTx(ctx context.Context, tx *dbpool.Tx, userID, proposalID string, from, to Status, actorUserID string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO proposal_audit_log (id, user_id, proposal_id, from_status, to_status, actor_user_id, at)
		VALUES ($1, $2, $3, $4, $5, $6, now())`,
		uuid.NewString(), userID, proposalID, string(from), string(to), actorUserID)
	if err != nil {
		return fmt.Errorf("mutation: write audit log: %w", err)
	}
	return nil
}

// List returns a proposal's audit trail, oldest first.
func (s *AuditLogStore) List(ctx context.Context, userID, proposalID string) ([]*AuditLogEntry, error) {
	var out []*AuditLogEntry
	err := s.pools.WithUserRead(ctx, userID, func(tx *dbpool.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT id, user_id, proposal_id, from_status, to_status, actor_user_id, at
			FROM proposal_audit_log WHERE user_id = $1 AND proposal_id = $2 ORDER BY at ASC`, userID, proposalID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			e := &AuditLogEntry{}
			var from, to string
			if err := rows.Scan(&e.ID, &e.UserID, &e.ProposalID, &from, &to, &e.ActorUserID, &e.At); err != nil {
				return err
			}
			e.FromStatus, e.ToStatus = Status(from), Status(to)
			out = append(out, e)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("mutation: list audit log: %w", err)
	}
	return out, nil
}
