package composition

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fleetintel/core/internal/dbpool"
)

func TestLoadoutVariantStore_CreateRejectsBaseLoadoutFromAnotherUser(t *testing.T) {
	appDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer func() { _ = appDB.Close() }()

	pools := &dbpool.Pools{App: appDB}
	store := NewLoadoutVariantStore(pools, nil)

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT set_config`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT EXISTS`).WithArgs("user-1", "lo-other").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectRollback()

	_, err = store.Create(context.Background(), &LoadoutVariant{
		UserID:        "user-1",
		BaseLoadoutID: "lo-other",
		Patch:         LoadoutVariantPatch{IntentKeys: []string{"pve"}},
	})
	if err == nil {
		t.Fatal("expected error for foreign base loadout")
	}
	var invalidRef *ErrInvalidReference
	if !errors.As(err, &invalidRef) {
		t.Fatalf("expected ErrInvalidReference, got %v", err)
	}
}

func TestLoadoutVariantStore_CreateSucceedsForOwnedBaseLoadout(t *testing.T) {
	appDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer func() { _ = appDB.Close() }()

	pools := &dbpool.Pools{App: appDB}
	store := NewLoadoutVariantStore(pools, nil)

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT set_config`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT EXISTS`).WithArgs("user-1", "lo-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectExec(`INSERT INTO loadout_variants`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(`SELECT id, user_id, base_loadout_id, patch`).WithArgs("user-1", "lv-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "base_loadout_id", "patch"}).
			AddRow("lv-1", "user-1", "lo-1", []byte(`{"intentKeys":["pve"]}`)))
	mock.ExpectCommit()

	v, err := store.Create(context.Background(), &LoadoutVariant{
		ID:            "lv-1",
		UserID:        "user-1",
		BaseLoadoutID: "lo-1",
		Patch:         LoadoutVariantPatch{IntentKeys: []string{"pve"}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(v.Patch.IntentKeys) != 1 || v.Patch.IntentKeys[0] != "pve" {
		t.Fatalf("unexpected patch: %+v", v.Patch)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
