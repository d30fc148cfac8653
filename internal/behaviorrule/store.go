package behaviorrule

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fleetintel/core/internal/dbpool"
	"github.com/google/uuid"
)

// Store manages BehaviorRule rows, following internal/catalog's
// store-construction idiom (New*Store(pools) *Store, pool-scoped
// method per operation against dbpool's user-scoped transactions).
type Store struct {
	pools *dbpool.Pools
}

func NewStore(pools *dbpool.Pools) *Store {
	return &Store{pools: pools}
}

// Create inserts a new rule, defaulting to the weak priors §3
// names when the caller hasn't supplied its own.
func (s *Store) Create(ctx context.Context, r *Rule) (*Rule, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Alpha == 0 {
		r.Alpha = DefaultAlpha
	}
	if r.Beta == 0 {
		r.Beta = DefaultBeta
	}
	if r.Severity == "" {
		r.Severity = SeverityShould
	}

	var created *Rule
	err := s.pools.WithUserScope(ctx, r.UserID, func(tx *dbpool.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO behavior_rules (id, user_id, text, task_type, alpha, beta, observation_count, severity)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			r.ID, r.UserID, r.Text, nullableString(r.Scope.TaskType), r.Alpha, r.Beta, r.ObservationCount, r.Severity)
		if err != nil {
			return err
		}
		created, err = s.GetTx(ctx, tx, r.UserID, r.ID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("behaviorrule: create rule: %w", err)
	}
	return created, nil
}

func (s *Store) Get(ctx context.Context, userID, id string) (*Rule, error) {
	var r *Rule
	err := s.pools.WithUserRead(ctx, userID, func(tx *dbpool.Tx) error {
		var getErr error
		r, getErr = s.GetTx(ctx, tx, userID, id)
		return getErr
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("behaviorrule: get rule: %w", err)
	}
	return r, nil
}

func (s *Store) GetTx(ctx context.Context, tx *dbpool.Tx, userID, id string) (*Rule, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT id, user_id, text, task_type, alpha, beta, observation_count, severity
		FROM behavior_rules WHERE user_id = $1 AND id = $2`, userID, id)
	return scanRule(row)
}

func scanRule(row *sql.Row) (*Rule, error) {
	r := &Rule{}
	var taskType sql.NullString
	if err := row.Scan(&r.ID, &r.UserID, &r.Text, &taskType, &r.Alpha, &r.Beta, &r.ObservationCount, &r.Severity); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("behaviorrule: scan rule: %w", err)
	}
	r.Scope = Scope{TaskType: taskType.String}
	return r, nil
}

// List returns every rule owned by userID, optionally narrowed to a
// task type; an empty taskType returns rules of every scope.
func (s *Store) List(ctx context.Context, userID, taskType string) ([]*Rule, error) {
	var out []*Rule
	err := s.pools.WithUserRead(ctx, userID, func(tx *dbpool.Tx) error {
		var rows *sql.Rows
		var err error
		if taskType == "" {
			rows, err = tx.QueryContext(ctx, `
				SELECT id, user_id, text, task_type, alpha, beta, observation_count, severity
				FROM behavior_rules WHERE user_id = $1 ORDER BY text`, userID)
		} else {
			rows, err = tx.QueryContext(ctx, `
				SELECT id, user_id, text, task_type, alpha, beta, observation_count, severity
				FROM behavior_rules WHERE user_id = $1 AND (task_type = $2 OR task_type IS NULL) ORDER BY text`, userID, taskType)
		}
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			r := &Rule{}
			var tt sql.NullString
			if err := rows.Scan(&r.ID, &r.UserID, &r.Text, &tt, &r.Alpha, &r.Beta, &r.ObservationCount, &r.Severity); err != nil {
				return err
			}
			r.Scope = Scope{TaskType: tt.String}
			out = append(out, r)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("behaviorrule: list rules: %w", err)
	}
	return out, nil
}

// ObserveTx applies the Beta-Binomial update inside a caller-owned
// transaction and persists it.
func (s *Store) ObserveTx(ctx context.Context, tx *dbpool.Tx, userID, id string, successes, failures int) (*Rule, error) {
	existing, err := s.GetTx(ctx, tx, userID, id)
	if err != nil {
		return nil, err
	}
	updated := existing.Observe(successes, failures)
	_, err = tx.ExecContext(ctx, `
		UPDATE behavior_rules SET alpha = $1, beta = $2, observation_count = $3 WHERE user_id = $4 AND id = $5`,
		updated.Alpha, updated.Beta, updated.ObservationCount, userID, id)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Observe records successes/failures for rule id, outside a caller-owned
// transaction — used by the POST /api/behavior-rules/{id}/observe
// handler.
func (s *Store) Observe(ctx context.Context, userID, id string, successes, failures int) (*Rule, error) {
	var updated *Rule
	err := s.pools.WithUserScope(ctx, userID, func(tx *dbpool.Tx) error {
		var obsErr error
		updated, obsErr = s.ObserveTx(ctx, tx, userID, id, successes, failures)
		return obsErr
	})
	if err != nil {
		return nil, fmt.Errorf("behaviorrule: observe rule: %w", err)
	}
	return updated, nil
}

func (s *Store) Delete(ctx context.Context, userID, id string) error {
	err := s.pools.WithUserScope(ctx, userID, func(tx *dbpool.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM behavior_rules WHERE user_id = $1 AND id = $2`, userID, id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("behaviorrule: delete rule: %w", err)
	}
	return nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
