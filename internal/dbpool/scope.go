package dbpool

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrScopeRequired is returned by WithUserScope/WithUserRead when userID
// is empty; the closure is then never run. Store methods run their
// user-scoped queries on the *Tx passed into the scope closure, so there is structurally
// no call site that can reach a user-scoped query without first setting
// app.current_user_id — this is the Go expression of §4.1's
// "usage error to run any user-scoped query outside this scope".
var ErrScopeRequired = errors.New("dbpool: user-scoped operation attempted outside WithUserScope/WithUserRead")

// Tx is the narrow handle passed into scoped closures: a transaction with
// app.current_user_id already set for userID.
type Tx struct {
	tx     *sql.Tx
	UserID string
}

// Exec/Query/QueryRow proxy to the underlying transaction. Store types
// built on top of Tx never see a *sql.DB or *sql.Tx directly, only this.
func (t *Tx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(ctx, query, args...)
}

func (t *Tx) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, query, args...)
}

func (t *Tx) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(ctx, query, args...)
}

// WithUserScope opens a read-write transaction on the App pool, pins
// app.current_user_id to userID for the lifetime of the transaction via
// SET LOCAL (scoped to the transaction, never leaking to the next
// connection checkout), runs fn, and commits on success or rolls back on
// any error — including a panic, which is re-raised after rollback.
func (p *Pools) WithUserScope(ctx context.Context, userID string, fn func(tx *Tx) error) (err error) {
	return p.withUserTx(ctx, userID, false, fn)
}

// WithUserRead is the read-only counterpart of WithUserScope: same RLS
// binding, but the transaction is marked READ ONLY so accidental writes
// fail fast instead of silently succeeding on a read path.
func (p *Pools) WithUserRead(ctx context.Context, userID string, fn func(tx *Tx) error) (err error) {
	return p.withUserTx(ctx, userID, true, fn)
}

func (p *Pools) withUserTx(ctx context.Context, userID string, readOnly bool, fn func(tx *Tx) error) (err error) {
	if userID == "" {
		return fmt.Errorf("dbpool: %w: empty userID", ErrScopeRequired)
	}

	opts := &sql.TxOptions{ReadOnly: readOnly}
	sqlTx, err := p.App.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("dbpool: begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
	}()

	if _, err = sqlTx.ExecContext(ctx, `SELECT set_config('app.current_user_id', $1, true)`, userID); err != nil {
		_ = sqlTx.Rollback()
		return fmt.Errorf("dbpool: set current_user_id: %w", err)
	}

	tx := &Tx{tx: sqlTx, UserID: userID}

	if err = fn(tx); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			return fmt.Errorf("dbpool: rollback after %w failed: %v", err, rbErr)
		}
		return err
	}

	if err = sqlTx.Commit(); err != nil {
		return fmt.Errorf("dbpool: commit: %w", err)
	}
	return nil
}
