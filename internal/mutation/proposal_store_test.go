package mutation

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fleetintel/core/internal/dbpool"
)

func TestProposalStore_CreateInsertsProposedRow(t *testing.T) {
	appDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer func() { _ = appDB.Close() }()

	pools := &dbpool.Pools{App: appDB}
	store := NewProposalStore(pools, nil)

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT set_config`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO mutation_proposals`).
		WithArgs(sqlmock.AnyArg(), "user-1", "update_loadout", []byte(`{"id":"lo-1"}`), sqlmock.AnyArg(),
			[]byte(`{"preview":true}`), []byte(nil), string(StatusProposed), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	p, err := store.Create(context.Background(), "user-1", "update_loadout",
		[]byte(`{"id":"lo-1"}`), []byte(`{"preview":true}`), nil, 10*time.Minute)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.Status != StatusProposed {
		t.Fatalf("status = %v, want proposed", p.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestProposalStore_ApplyWritesAuditEntryWhenConfigured(t *testing.T) {
	appDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer func() { _ = appDB.Close() }()

	pools := &dbpool.Pools{App: appDB}
	store := NewProposalStore(pools, NewAuditLogStore(pools))

	notExpired := time.Now().Add(time.Hour)
	mock.ExpectBegin()
	mock.ExpectExec(`SELECT set_config`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT id, user_id, tool`).WithArgs("user-1", "prop-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "tool", "args_json", "args_hash", "proposal_json", "batch_items",
			"status", "created_at", "expires_at", "applied_receipt_id", "applied_at", "declined_at", "decline_reason"}).
			AddRow("prop-1", "user-1", "update_loadout", []byte(`{}`), "hash", []byte(`{}`), []byte(nil),
				string(StatusProposed), time.Now(), notExpired, nil, nil, nil, nil))
	mock.ExpectExec(`UPDATE mutation_proposals SET status`).
		WithArgs(string(StatusApplied), sqlmock.AnyArg(), "receipt-1", "user-1", "prop-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO proposal_audit_log`).
		WithArgs(sqlmock.AnyArg(), "user-1", "prop-1", string(StatusProposed), string(StatusApplied), "user-1").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err = pools.WithUserScope(context.Background(), "user-1", func(tx *dbpool.Tx) error {
		_, err := store.Apply(context.Background(), tx, "user-1", "prop-1", "receipt-1", "user-1")
		return err
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestProposalStore_DeclineRejectsAlreadyApplied(t *testing.T) {
	appDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer func() { _ = appDB.Close() }()

	pools := &dbpool.Pools{App: appDB}
	store := NewProposalStore(pools, nil)

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT set_config`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT id, user_id, tool`).WithArgs("user-1", "prop-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "tool", "args_json", "args_hash", "proposal_json", "batch_items",
			"status", "created_at", "expires_at", "applied_receipt_id", "applied_at", "declined_at", "decline_reason"}).
			AddRow("prop-1", "user-1", "update_loadout", []byte(`{}`), "hash", []byte(`{}`), []byte(nil),
				string(StatusApplied), time.Now(), time.Now().Add(time.Hour), nil, nil, nil, nil))
	mock.ExpectRollback()

	reason := "changed my mind"
	err = store.Decline(context.Background(), "user-1", "prop-1", &reason, "user-1")
	if _, ok := err.(*ErrWrongStatus); !ok {
		t.Fatalf("expected ErrWrongStatus, got %v", err)
	}
}
