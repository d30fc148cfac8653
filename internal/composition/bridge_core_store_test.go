package composition

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fleetintel/core/internal/dbpool"
)

func TestBridgeCoreStore_CreateRejectsUnknownOfficer(t *testing.T) {
	appDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer func() { _ = appDB.Close() }()

	pools := &dbpool.Pools{App: appDB}
	store := NewBridgeCoreStore(pools, nil)

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT set_config`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT EXISTS`).WithArgs("off-missing").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectRollback()

	_, err = store.Create(context.Background(), &BridgeCore{
		UserID: "user-1",
		Name:   "Main",
		Members: []BridgeCoreMember{
			{OfficerRefID: "off-missing", Slot: SlotCaptain},
		},
	})
	if err == nil {
		t.Fatal("expected error for unknown officer ref")
	}
	var invalidRef *ErrInvalidReference
	if !errors.As(err, &invalidRef) {
		t.Fatalf("expected ErrInvalidReference, got %v", err)
	}
}

func TestBridgeCoreStore_CreateRejectsDuplicateSlot(t *testing.T) {
	appDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer func() { _ = appDB.Close() }()

	pools := &dbpool.Pools{App: appDB}
	store := NewBridgeCoreStore(pools, nil)

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT set_config`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT EXISTS`).WithArgs("off-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	_, err = store.Create(context.Background(), &BridgeCore{
		UserID: "user-1",
		Name:   "Main",
		Members: []BridgeCoreMember{
			{OfficerRefID: "off-1", Slot: SlotCaptain},
			{OfficerRefID: "off-2", Slot: SlotCaptain},
		},
	})
	if err == nil {
		t.Fatal("expected error for duplicate slot")
	}
}

func TestBridgeCoreStore_CreateSucceedsWithKnownOfficers(t *testing.T) {
	appDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer func() { _ = appDB.Close() }()

	pools := &dbpool.Pools{App: appDB}
	store := NewBridgeCoreStore(pools, nil)

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT set_config`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT EXISTS`).WithArgs("off-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectExec(`INSERT INTO bridge_cores`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(`SELECT id, user_id, name, members`).WithArgs("user-1", "bc-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "name", "members"}).
			AddRow("bc-1", "user-1", "Main", []byte(`[{"officerRefId":"off-1","slot":"captain"}]`)))
	mock.ExpectCommit()

	bc, err := store.Create(context.Background(), &BridgeCore{
		ID:     "bc-1",
		UserID: "user-1",
		Name:   "Main",
		Members: []BridgeCoreMember{
			{OfficerRefID: "off-1", Slot: SlotCaptain},
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(bc.Members) != 1 || bc.Members[0].OfficerRefID != "off-1" {
		t.Fatalf("unexpected members: %+v", bc.Members)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
