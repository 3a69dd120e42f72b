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

// AccountStore implements repository.AccountRepository.
type AccountStore struct {
	conn *sql.DB
}

// Accounts returns the account repository backed by this database.
func (db *DB) Accounts() *AccountStore {
	return &AccountStore{conn: db.conn}
}

var _ repository.AccountRepository = (*AccountStore)(nil)

const accountColumns = `id, intra_id, login, email, display_name, avatar_url, campus, role, created_at, updated_at`

func scanAccount(row *sql.Row) (*model.Account, error) {
	var a model.Account
	err := row.Scan(
		&a.ID,
		&a.IntraID,
		&a.Login,
		&a.Email,
		&a.DisplayName,
		&a.AvatarURL,
		&a.Campus,
		&a.Role,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetByID retrieves an account by its internal ID.
// Returns apperror.ErrNotFound if no account exists with that ID.
func (s *AccountStore) GetByID(ctx context.Context, id string) (*model.Account, error) {
	a, err := scanAccount(s.conn.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("account", id)
		}
		return nil, fmt.Errorf("sqlite: getting account %s: %w", id, err)
	}
	return a, nil
}

// GetByIntraID retrieves an account by the provider's numeric user ID.
// Rows still waiting for their intra-id backfill (intra_id = 0) never match.
func (s *AccountStore) GetByIntraID(ctx context.Context, intraID int64) (*model.Account, error) {
	a, err := scanAccount(s.conn.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE intra_id = ? AND intra_id != 0`, intraID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("account", fmt.Sprintf("intra:%d", intraID))
		}
		return nil, fmt.Errorf("sqlite: getting account by intra_id %d: %w", intraID, err)
	}
	return a, nil
}

// GetByEmail retrieves an account by its recorded provider email.
// Used by the merge branch of identity resolution.
func (s *AccountStore) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	a, err := scanAccount(s.conn.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE email = ? AND email != '' LIMIT 1`, email))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("account", email)
		}
		return nil, fmt.Errorf("sqlite: getting account by email %s: %w", email, err)
	}
	return a, nil
}

func (s *AccountStore) getByLogin(ctx context.Context, login string) (*model.Account, error) {
	a, err := scanAccount(s.conn.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE login = ?`, login))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("account", login)
		}
		return nil, fmt.Errorf("sqlite: getting account by login %s: %w", login, err)
	}
	return a, nil
}

// Create inserts a new account.
//
// CONCURRENT-CREATION RACE:
// Two logins for a brand-new identity can race here. The insert uses
// ON CONFLICT DO NOTHING; when zero rows land, a conflicting row already
// exists — the loser re-reads the winner (by intra id, falling back to
// login) into the passed struct and reports success, so both logins resolve
// to the same single account.
func (s *AccountStore) Create(ctx context.Context, account *model.Account) error {
	now := time.Now().UTC()
	if account.ID == "" {
		account.ID = xid.New().String()
	}
	if account.Role == "" {
		account.Role = model.RoleUser
	}
	account.CreatedAt = now
	account.UpdatedAt = now

	res, err := s.conn.ExecContext(ctx,
		`INSERT INTO accounts (id, intra_id, login, email, display_name, avatar_url, campus, role, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT DO NOTHING`,
		account.ID,
		account.IntraID,
		account.Login,
		account.Email,
		account.DisplayName,
		account.AvatarURL,
		account.Campus,
		account.Role,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting account (intraID=%d): %w", account.IntraID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected for account insert: %w", err)
	}
	if n > 0 {
		return nil
	}

	// Lost the race — adopt the existing row.
	existing, err := s.GetByIntraID(ctx, account.IntraID)
	if err != nil {
		existing, err = s.getByLogin(ctx, account.Login)
		if err != nil {
			return fmt.Errorf("sqlite: re-reading account after insert conflict (intraID=%d): %w",
				account.IntraID, err)
		}
	}
	*account = *existing
	return nil
}

// Update writes the mutable profile fields and the intra-id backfill.
func (s *AccountStore) Update(ctx context.Context, account *model.Account) error {
	account.UpdatedAt = time.Now().UTC()
	res, err := s.conn.ExecContext(ctx,
		`UPDATE accounts
		 SET intra_id = ?, login = ?, email = ?, display_name = ?, avatar_url = ?, campus = ?, role = ?, updated_at = ?
		 WHERE id = ?`,
		account.IntraID,
		account.Login,
		account.Email,
		account.DisplayName,
		account.AvatarURL,
		account.Campus,
		account.Role,
		account.UpdatedAt,
		account.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating account %s: %w", account.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected for account update: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("account", account.ID)
	}
	return nil
}
