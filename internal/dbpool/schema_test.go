package dbpool

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

// TestEnsureSchema_UsesAdminPoolOnly proves EnsureSchema never touches the
// App pool: App is left as a nil *sql.DB, which would panic on any call.
// If EnsureSchema accidentally routed DDL through App, this test would
// panic rather than pass.
func TestEnsureSchema_UsesAdminPoolOnly(t *testing.T) {
	adminDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer func() { _ = adminDB.Close() }()

	p := &Pools{Admin: adminDB, App: nil}

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TABLE`).WillReturnResult(sqlmock.NewResult(0, 0))
	for range userScopedTables {
		mock.ExpectExec(`ALTER TABLE .* ENABLE ROW LEVEL SECURITY`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`ALTER TABLE .* FORCE ROW LEVEL SECURITY`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`DO \$\$`).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectCommit()

	err = p.EnsureSchema(context.Background(), []string{`CREATE TABLE IF NOT EXISTS users (id TEXT)`})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
