package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/amansour/praxis42/internal/apperror"
	"github.com/amansour/praxis42/internal/model"
	"github.com/amansour/praxis42/internal/repository"
)

// IdentityStore implements repository.AuthIdentityRepository.
type IdentityStore struct {
	conn *sql.DB
}

// Identities returns the auth-identity repository backed by this database.
func (db *DB) Identities() *IdentityStore {
	return &IdentityStore{conn: db.conn}
}

var _ repository.AuthIdentityRepository = (*IdentityStore)(nil)

// GetByEmail looks up the auth-identity row for an email.
// A previous partial login can leave an identity without a profile; the
// creation branch of identity resolution reuses it instead of erroring.
func (s *IdentityStore) GetByEmail(ctx context.Context, email string) (*model.AuthIdentity, error) {
	var ident model.AuthIdentity
	err := s.conn.QueryRowContext(ctx,
		`SELECT id, email, created_at FROM auth_identities WHERE email = ?`, email,
	).Scan(&ident.ID, &ident.Email, &ident.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("auth identity", email)
		}
		return nil, fmt.Errorf("sqlite: getting auth identity by email %s: %w", email, err)
	}
	return &ident, nil
}

// Create inserts a new auth identity.
//
// Same concurrent-creation tolerance as AccountStore.Create: two first-time
// logins race past GetByEmail's miss, both insert, and the loser must adopt
// the winner's row rather than fail on the email uniqueness constraint.
func (s *IdentityStore) Create(ctx context.Context, identity *model.AuthIdentity) error {
	if identity.ID == "" {
		identity.ID = xid.New().String()
	}
	identity.CreatedAt = time.Now().UTC()
	res, err := s.conn.ExecContext(ctx,
		`INSERT INTO auth_identities (id, email, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(email) DO NOTHING`,
		identity.ID, identity.Email, identity.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting auth identity for %s: %w", identity.Email, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected for auth identity insert: %w", err)
	}
	if n == 0 {
		winner, err := s.GetByEmail(ctx, identity.Email)
		if err != nil {
			return fmt.Errorf("sqlite: re-reading auth identity after conflict: %w", err)
		}
		*identity = *winner
	}
	return nil
}

// Delete removes an auth-identity row. Compensating cleanup for the case
// where profile creation fails right after the identity was created, so no
// orphaned identity is left without an account.
func (s *IdentityStore) Delete(ctx context.Context, id string) error {
	_, err := s.conn.ExecContext(ctx, `DELETE FROM auth_identities WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting auth identity %s: %w", id, err)
	}
	return nil
}
