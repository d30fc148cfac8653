package authn

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by lookups that find nothing.
var ErrNotFound = errors.New("authn: not found")

// UsersStore manages the global (unowned) users table via the App pool
// directly — §3 marks User as "Owner: —", so it carries no
// user_id column and is never RLS-scoped.
type UsersStore struct {
	db *sql.DB
}

func NewUsersStore(db *sql.DB) *UsersStore {
	return &UsersStore{db: db}
}

func (s *UsersStore) Create(ctx context.Context, u *User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, display_name, role, email_verified, password_hash, created_at)
		VALUES ($1, lower($2), $3, $4, $5, $6, $7)`,
		u.ID, u.Email, u.DisplayName, u.Role, u.EmailVerified, u.PasswordHash, u.CreatedAt)
	if err != nil {
		return fmt.Errorf("authn: create user: %w", err)
	}
	return nil
}

func (s *UsersStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, email, display_name, role, email_verified, locked_at, password_hash, created_at
		FROM users WHERE email = lower($1)`, email)
	return scanUser(row)
}

func (s *UsersStore) GetByID(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, email, display_name, role, email_verified, locked_at, password_hash, created_at
		FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*User, error) {
	var u User
	var lockedAt sql.NullTime
	err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.Role, &u.EmailVerified, &lockedAt, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("authn: scan user: %w", err)
	}
	if lockedAt.Valid {
		u.LockedAt = &lockedAt.Time
	}
	return &u, nil
}

// MarkEmailVerified flips email_verified to true.
func (s *UsersStore) MarkEmailVerified(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET email_verified = true WHERE id = $1`, userID)
	return err
}

// SetPasswordHash replaces the stored password hash (used by reset flow).
func (s *UsersStore) SetPasswordHash(ctx context.Context, userID, hash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash = $1 WHERE id = $2`, hash, userID)
	return err
}

// SetRole changes a user's role.
func (s *UsersStore) SetRole(ctx context.Context, userID, role string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET role = $1 WHERE id = $2`, role, userID)
	return err
}

// Lock sets lockedAt to now, blocking future sign-ins (§4.7).
func (s *UsersStore) Lock(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET locked_at = $1 WHERE id = $2`, time.Now().UTC(), userID)
	return err
}

// Delete cascades to the owned tables; the cascade itself is expressed as
// ON DELETE CASCADE foreign keys in the real schema (§3 "deleted
// cascades sessions, overlays, receipts, proposals" — FK-driven, not
// application-orchestrated, so a single DELETE here is sufficient).
func (s *UsersStore) Delete(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID)
	return err
}
