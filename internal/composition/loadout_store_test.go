package composition

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fleetintel/core/internal/dbpool"
)

func TestLoadoutStore_CreateInsertsAndReturnsRow(t *testing.T) {
	appDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer func() { _ = appDB.Close() }()

	pools := &dbpool.Pools{App: appDB}
	store := NewLoadoutStore(pools, nil)

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT set_config`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO loadouts`).WillReturnResult(sqlmock.NewResult(1, 1))
	rows := sqlmock.NewRows([]string{"id", "user_id", "ship_ref_id", "name", "priority", "is_active",
		"intent_keys", "tags", "bridge_core_id", "below_deck_policy_id", "notes", "created_at"}).
		AddRow("lo-1", "user-1", "ship-1", "Main", 1, true, []byte(`["pvp"]`), []byte(`[]`), nil, nil, nil, time.Unix(0, 0))
	mock.ExpectQuery(`SELECT id, user_id, ship_ref_id`).WithArgs("user-1", "lo-1").WillReturnRows(rows)
	mock.ExpectCommit()

	created, err := store.Create(context.Background(), &Loadout{ID: "lo-1", UserID: "user-1", ShipRefID: "ship-1", Name: "Main", Priority: 1, IsActive: true, IntentKeys: []string{"pvp"}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Name != "Main" || len(created.IntentKeys) != 1 {
		t.Fatalf("unexpected row: %+v", created)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestLoadoutStore_GetNotFoundReturnsErrNotFound(t *testing.T) {
	appDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer func() { _ = appDB.Close() }()

	pools := &dbpool.Pools{App: appDB}
	store := NewLoadoutStore(pools, nil)

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT set_config`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT id, user_id, ship_ref_id`).WithArgs("user-1", "missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "ship_ref_id", "name", "priority", "is_active",
			"intent_keys", "tags", "bridge_core_id", "below_deck_policy_id", "notes", "created_at"}))
	mock.ExpectCommit()

	_, err = store.Get(context.Background(), "user-1", "missing")
	if err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
