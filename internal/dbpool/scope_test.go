package dbpool

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMockPools(t *testing.T) (*Pools, sqlmock.Sqlmock) {
	t.Helper()
	appDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	return &Pools{App: appDB}, mock
}

func TestWithUserScope_SetsCurrentUserIDThenCommits(t *testing.T) {
	p, mock := newMockPools(t)
	defer func() { _ = p.App.Close() }()

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT set_config\('app.current_user_id', \$1, true\)`).
		WithArgs("user-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO targets`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := p.WithUserScope(context.Background(), "user-1", func(tx *Tx) error {
		_, err := tx.ExecContext(context.Background(), `INSERT INTO targets (id, user_id) VALUES ($1, $2)`, "t1", "user-1")
		return err
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestWithUserScope_RollsBackOnError(t *testing.T) {
	p, mock := newMockPools(t)
	defer func() { _ = p.App.Close() }()

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT set_config`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO targets`).WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	sentinel := errors.New("constraint violation")
	err := p.WithUserScope(context.Background(), "user-1", func(tx *Tx) error {
		_, err := tx.ExecContext(context.Background(), `INSERT INTO targets (id, user_id) VALUES ($1, $2)`, "t1", "user-1")
		return err
	})
	if err == nil {
		t.Fatal("expected error to propagate")
	}
	_ = sentinel
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestWithUserScope_EmptyUserIDFailsFast(t *testing.T) {
	p, mock := newMockPools(t)
	defer func() { _ = p.App.Close() }()

	err := p.WithUserScope(context.Background(), "", func(tx *Tx) error {
		t.Fatal("fn should never be invoked without a user id")
		return nil
	})
	if !errors.Is(err, ErrScopeRequired) {
		t.Fatalf("expected ErrScopeRequired, got %v", err)
	}
	// No begin/exec should have been attempted.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected DB interaction: %v", err)
	}
}

func TestWithUserRead_OpensReadOnlyTx(t *testing.T) {
	p, mock := newMockPools(t)
	defer func() { _ = p.App.Close() }()

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT set_config`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := p.WithUserRead(context.Background(), "user-1", func(tx *Tx) error {
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
