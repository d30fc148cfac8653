package trustpolicy

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/fleetintel/core/internal/dbpool"
)

func TestSettingsStore_GetReturnsNotFoundOnNoRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer func() { _ = db.Close() }()

	pools := &dbpool.Pools{App: db}
	store := NewSettingsStore(pools)

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT set_config`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT value_json, provenance FROM user_settings`).
		WithArgs("user-1", SettingKey).
		WillReturnRows(sqlmock.NewRows([]string{"value_json", "provenance"}))
	mock.ExpectRollback()

	_, _, err = store.Get(context.Background(), "user-1", SettingKey)
	if err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSettingsStore_SetUpsertsWithUserProvenance(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer func() { _ = db.Close() }()

	pools := &dbpool.Pools{App: db}
	store := NewSettingsStore(pools)

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT set_config`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO user_settings`).
		WithArgs("user-1", SettingKey, []byte(`{"activate_preset":"auto"}`), ProvenanceUser).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	if err := store.Set(context.Background(), "user-1", SettingKey, []byte(`{"activate_preset":"auto"}`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
