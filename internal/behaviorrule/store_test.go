package behaviorrule

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fleetintel/core/internal/dbpool"
)

func TestStore_CreateDefaultsToWeakPriors(t *testing.T) {
	appDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer func() { _ = appDB.Close() }()

	pools := &dbpool.Pools{App: appDB}
	store := NewStore(pools)

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT set_config`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO behavior_rules`).
		WithArgs("br-1", "user-1", "prefer burst over DoT for pvp", "pvp", DefaultAlpha, DefaultBeta, 0, SeverityShould).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(`SELECT id, user_id, text, task_type`).WithArgs("user-1", "br-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "text", "task_type", "alpha", "beta", "observation_count", "severity"}).
			AddRow("br-1", "user-1", "prefer burst over DoT for pvp", "pvp", DefaultAlpha, DefaultBeta, 0, SeverityShould))
	mock.ExpectCommit()

	r, err := store.Create(context.Background(), &Rule{
		ID:     "br-1",
		UserID: "user-1",
		Text:   "prefer burst over DoT for pvp",
		Scope:  Scope{TaskType: "pvp"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if r.Alpha != DefaultAlpha || r.Beta != DefaultBeta {
		t.Fatalf("expected default priors, got alpha=%v beta=%v", r.Alpha, r.Beta)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestStore_ObserveAccumulatesAcrossCalls(t *testing.T) {
	appDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer func() { _ = appDB.Close() }()

	pools := &dbpool.Pools{App: appDB}
	store := NewStore(pools)

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT set_config`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT id, user_id, text, task_type`).WithArgs("user-1", "br-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "text", "task_type", "alpha", "beta", "observation_count", "severity"}).
			AddRow("br-1", "user-1", "prefer burst over DoT for pvp", "pvp", DefaultAlpha, DefaultBeta, 0, SeverityShould))
	mock.ExpectExec(`UPDATE behavior_rules SET alpha`).
		WithArgs(DefaultAlpha+2, DefaultBeta, 2, "user-1", "br-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	r, err := store.Observe(context.Background(), "user-1", "br-1", 2, 0)
	if err != nil {
		t.Fatalf("observe: %v", err)
	}
	if r.Alpha != DefaultAlpha+2 {
		t.Fatalf("alpha = %v, want %v", r.Alpha, DefaultAlpha+2)
	}
	if r.ObservationCount != 2 {
		t.Fatalf("observationCount = %v, want 2", r.ObservationCount)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestStore_DeleteMissingReturnsErrNotFound(t *testing.T) {
	appDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer func() { _ = appDB.Close() }()

	pools := &dbpool.Pools{App: appDB}
	store := NewStore(pools)

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT set_config`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM behavior_rules`).WithArgs("user-1", "missing").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err = store.Delete(context.Background(), "user-1", "missing")
	if err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
