package authn

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fleetintel/core/internal/dbpool"
)

func newMockSessionsStore(t *testing.T) (*SessionsStore, sqlmock.Sqlmock, func()) {
	t.Helper()
	appDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	pools := &dbpool.Pools{App: appDB}
	return NewSessionsStore(pools), mock, func() { _ = appDB.Close() }
}

func TestSplitToken_RoundTripsUserID(t *testing.T) {
	store, mock, closeFn := newMockSessionsStore(t)
	defer closeFn()

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT set_config`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO user_sessions`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	token, err := store.Issue(context.Background(), "user-42", "10.0.0.1", "test-agent", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	userID, secret, err := splitToken(token)
	if err != nil {
		t.Fatalf("splitToken: %v", err)
	}
	if userID != "user-42" {
		t.Fatalf("expected routed userID user-42, got %q", userID)
	}
	if len(secret) != sessionSecretBytes*2 {
		t.Fatalf("expected hex secret of length %d, got %d", sessionSecretBytes*2, len(secret))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSplitToken_RejectsMalformedShapes(t *testing.T) {
	cases := []string{"", "no-dot-here", ".missing-prefix", "missing-secret.", "!!!notbase64!!!.secret"}
	for _, tok := range cases {
		if _, _, err := splitToken(tok); err != ErrInvalidToken {
			t.Errorf("splitToken(%q): expected ErrInvalidToken, got %v", tok, err)
		}
	}
}

func TestResolve_ExpiredSessionIsInvalid(t *testing.T) {
	store, mock, closeFn := newMockSessionsStore(t)
	defer closeFn()

	userID := "user-7"
	prefix := "dXNlci03" // base64url("user-7")
	token := prefix + ".deadbeef"

	rows := sqlmock.NewRows([]string{"token", "user_id", "created_at", "last_seen_at", "expires_at", "ip", "user_agent"}).
		AddRow(hashSecret("deadbeef"), userID, time.Now().Add(-2*time.Hour), time.Now().Add(-time.Hour), time.Now().Add(-time.Minute), "", "")

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT set_config`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT token, user_id, created_at, last_seen_at, expires_at, ip, user_agent`).WillReturnRows(rows)
	mock.ExpectRollback()

	_, err := store.Resolve(context.Background(), token)
	if err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for expired session, got %v", err)
	}
}
