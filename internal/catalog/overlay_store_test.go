package catalog

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fleetintel/core/internal/dbpool"
)

func TestSetOverlay_OmittedFieldsLeaveExistingValueUnchanged(t *testing.T) {
	appDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer func() { _ = appDB.Close() }()

	pools := &dbpool.Pools{App: appDB}
	store := NewOfficerOverlayStore(pools, nil)

	patch, err := ParsePatch([]byte(`{"target": true}`))
	if err != nil {
		t.Fatalf("parse patch: %v", err)
	}

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT set_config`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO officer_overlays`).
		WithArgs("user-1", "off-1", defaultOwnershipState, true, nil, nil, nil, nil, nil,
			false, true, false, false, false, false, false).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	if err := store.SetOverlay(context.Background(), "user-1", "off-1", patch); err != nil {
		t.Fatalf("set overlay: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestParsePatch_DistinguishesNullFromAbsent(t *testing.T) {
	patch, err := ParsePatch([]byte(`{"targetNote": null}`))
	if err != nil {
		t.Fatalf("parse patch: %v", err)
	}

	note, present, err := patch.stringField("targetNote")
	if err != nil {
		t.Fatalf("stringField: %v", err)
	}
	if !present {
		t.Fatal("expected targetNote to be present (explicit null)")
	}
	if note != nil {
		t.Fatalf("expected nil value for explicit null, got %v", *note)
	}

	_, present, err = patch.stringField("ownershipState")
	if err != nil {
		t.Fatalf("stringField: %v", err)
	}
	if present {
		t.Fatal("expected ownershipState to be absent")
	}
}
