package toolruntime

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/fleetintel/core/internal/dbpool"
	"github.com/fleetintel/core/internal/mutation"
	"github.com/fleetintel/core/internal/trustpolicy"
)

type fakePolicy struct{ tier trustpolicy.Tier }

func (f fakePolicy) Resolve(ctx context.Context, userID, tool string) trustpolicy.Tier { return f.tier }

func newTestRuntime(t *testing.T, tier trustpolicy.Tier) (*Runtime, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	pools := &dbpool.Pools{App: db}
	rt := New(pools, fakePolicy{tier: tier}, mutation.NewProposalStore(pools, nil), mutation.NewReceiptStore(pools), 10*time.Minute)
	return rt, mock
}

func TestDispatch_UnknownToolErrors(t *testing.T) {
	rt, _ := newTestRuntime(t, trustpolicy.TierAuto)
	_, err := rt.Dispatch(context.Background(), "user-1", "not_registered", nil)
	if _, ok := err.(*ErrUnknownTool); !ok {
		t.Fatalf("expected ErrUnknownTool, got %v", err)
	}
}

func TestDispatch_ReadToolBypassesTrustPolicy(t *testing.T) {
	rt, _ := newTestRuntime(t, trustpolicy.TierBlock) // would block if classified as mutating
	rt.Register(&Tool{
		Name: "get_loadout",
		Read: func(ctx context.Context, userID string, args []byte) ([]byte, error) {
			return []byte(`{"ok":true}`), nil
		},
	})
	result, err := rt.Dispatch(context.Background(), "user-1", "get_loadout", nil)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if string(result.ResultJSON) != `{"ok":true}` {
		t.Fatalf("unexpected result: %s", result.ResultJSON)
	}
}

func TestDispatch_BlockedToolFailsClosed(t *testing.T) {
	rt, _ := newTestRuntime(t, trustpolicy.TierBlock)
	rt.Register(&Tool{Name: "activate_preset", Mutating: true})
	_, err := rt.Dispatch(context.Background(), "user-1", "activate_preset", nil)
	be, ok := err.(*ErrBlocked)
	if !ok {
		t.Fatalf("expected ErrBlocked, got %v", err)
	}
	if be.Hint() == "" {
		t.Fatal("expected a non-empty hint")
	}
}

func TestDispatch_ApproveTierCreatesProposalWithoutApplying(t *testing.T) {
	rt, mock := newTestRuntime(t, trustpolicy.TierApprove)
	rt.Register(&Tool{
		Name: "delete_loadout",
		Preview: func(ctx context.Context, userID string, args []byte) ([]byte, []byte, error) {
			return []byte(`{"would":"delete"}`), nil, nil
		},
	})

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT set_config`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO mutation_proposals`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	result, err := rt.Dispatch(context.Background(), "user-1", "delete_loadout", []byte(`{"id":"l1"}`))
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if result.ProposalID == "" || result.ExpiresAt == "" {
		t.Fatalf("expected a proposal id and expiry, got %+v", result)
	}
	if string(result.Preview) != `{"would":"delete"}` {
		t.Fatalf("unexpected preview: %s", result.Preview)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDispatch_AutoTierAppliesAndWritesOneReceipt(t *testing.T) {
	rt, mock := newTestRuntime(t, trustpolicy.TierAuto)
	rt.Register(&Tool{
		Name: "set_officer_overlay",
		Apply: func(ctx context.Context, tx *dbpool.Tx, userID string, args []byte) ([]byte, []byte, error) {
			return []byte(`{"target":true}`), []byte(`{"target":false}`), nil
		},
	})

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT set_config`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO mutation_proposals`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO import_receipts`).WillReturnResult(sqlmock.NewResult(1, 1))

	rows := sqlmock.NewRows([]string{
		"id", "user_id", "tool", "args_json", "args_hash", "proposal_json", "batch_items", "status",
		"created_at", "expires_at", "applied_receipt_id", "applied_at", "declined_at", "decline_reason",
	}).AddRow("prop-1", "user-1", "set_officer_overlay", []byte(`{}`), "hash", []byte(`{}`), nil, "proposed",
		time.Now(), time.Now().Add(time.Hour), nil, nil, nil, nil)
	mock.ExpectQuery(`SELECT .* FROM mutation_proposals WHERE user_id = \$1 AND id = \$2 FOR UPDATE`).WillReturnRows(rows)
	mock.ExpectExec(`UPDATE mutation_proposals SET status`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	result, err := rt.Dispatch(context.Background(), "user-1", "set_officer_overlay", []byte(`{"refId":"o1","target":true}`))
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !result.Applied || result.ReceiptID == "" {
		t.Fatalf("expected an applied result with a receipt id, got %+v", result)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
