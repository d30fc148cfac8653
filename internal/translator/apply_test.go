package translator

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/fleetintel/core/internal/catalog"
	"github.com/fleetintel/core/internal/dbpool"
	"github.com/fleetintel/core/internal/mutation"
)

type fakeOfficerOverlayWriter struct {
	applied   []string
	snapshots map[string]*catalog.OfficerOverlay
}

func (f *fakeOfficerOverlayWriter) ApplyPatchTx(ctx context.Context, tx *dbpool.Tx, userID, refID string, patch catalog.Patch) error {
	f.applied = append(f.applied, refID)
	return nil
}

func (f *fakeOfficerOverlayWriter) SnapshotTx(ctx context.Context, tx *dbpool.Tx, userID, refID string) (*catalog.OfficerOverlay, error) {
	return f.snapshots[refID], nil
}

type fakeShipOverlayWriter struct{}

func (f *fakeShipOverlayWriter) ApplyPatchTx(ctx context.Context, tx *dbpool.Tx, userID, refID string, patch catalog.Patch) error {
	return nil
}

func (f *fakeShipOverlayWriter) SnapshotTx(ctx context.Context, tx *dbpool.Tx, userID, refID string) (*catalog.ShipOverlay, error) {
	return nil, nil
}

type fakeReceiptWriter struct {
	written []*mutation.Receipt
}

func (f *fakeReceiptWriter) Write(ctx context.Context, tx *dbpool.Tx, r *mutation.Receipt) error {
	f.written = append(f.written, r)
	return nil
}

func newTestPools(t *testing.T) (*dbpool.Pools, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &dbpool.Pools{App: db}, mock
}

func TestApply_CommitsResolvedRowsAndWritesOneReceipt(t *testing.T) {
	pools, mock := newTestPools(t)
	mock.ExpectBegin()
	mock.ExpectExec(`SELECT set_config`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	officers := &fakeOfficerOverlayWriter{snapshots: map[string]*catalog.OfficerOverlay{}}
	ships := &fakeShipOverlayWriter{}
	receipts := &fakeReceiptWriter{}

	resolved := &ResolvedImport{
		Officers: []ResolvedRow{
			{RowIndex: 0, RefID: "officer:spock", Entity: MappedEntity{Fields: map[string]any{"name": "Spock", "userLevel": 10.0}}},
			{RowIndex: 1, Candidates: []NameCandidate{{RefID: "officer:x", Name: "X", Confidence: 0.5}}},
		},
	}

	result, err := Apply(context.Background(), pools, "user-1", resolved, officers, ships, receipts, "import", nil, nil)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if result.OfficersApplied != 1 {
		t.Fatalf("expected 1 applied, got %d", result.OfficersApplied)
	}
	if result.OfficersSkipped != 1 {
		t.Fatalf("expected 1 skipped, got %d", result.OfficersSkipped)
	}
	if len(officers.applied) != 1 || officers.applied[0] != "officer:spock" {
		t.Fatalf("expected officer:spock to be patched, got %v", officers.applied)
	}
	if len(receipts.written) != 1 {
		t.Fatalf("expected exactly one receipt, got %d", len(receipts.written))
	}
	if receipts.written[0].Layer != mutation.LayerOwnership {
		t.Fatalf("expected ownership layer, got %q", receipts.written[0].Layer)
	}
	if result.ReceiptID == "" {
		t.Fatal("expected a non-empty receipt id")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
