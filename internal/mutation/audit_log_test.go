package mutation

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fleetintel/core/internal/dbpool"
)

func TestAuditLogStore_ListReturnsOldestFirst(t *testing.T) {
	appDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer func() { _ = appDB.Close() }()

	pools := &dbpool.Pools{App: appDB}
	store := NewAuditLogStore(pools)

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT set_config`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`(?s)SELECT id, user_id, proposal_id.*ORDER BY at ASC`).WithArgs("user-1", "prop-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "proposal_id", "from_status", "to_status", "actor_user_id", "at"}).
			AddRow("a-1", "user-1", "prop-1", string(StatusProposed), string(StatusApplied), "user-1", time.Now()))
	mock.ExpectCommit()

	entries, err := store.List(context.Background(), "user-1", "prop-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 || entries[0].ToStatus != StatusApplied {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}
