package sqlite

// Shared fixtures for the store tests. Each test gets its own in-memory
// database, so tests are isolated and need no cleanup beyond Close.

import (
	"context"
	"testing"

	"github.com/amansour/praxis42/internal/model"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("opening in-memory database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// seedAccount creates an auth identity and its account in one step, since
// accounts carry a foreign key to auth_identities.
func seedAccount(t *testing.T, db *DB, login string, intraID int64) *model.Account {
	t.Helper()
	ctx := context.Background()

	identity := &model.AuthIdentity{Email: login + "@student.42.fr"}
	if err := db.Identities().Create(ctx, identity); err != nil {
		t.Fatalf("seeding identity for %s: %v", login, err)
	}

	account := &model.Account{
		ID:      identity.ID,
		IntraID: intraID,
		Login:   login,
		Email:   identity.Email,
		Role:    model.RoleUser,
	}
	if err := db.Accounts().Create(ctx, account); err != nil {
		t.Fatalf("seeding account %s: %v", login, err)
	}
	return account
}

func seedProject(t *testing.T, db *DB, slug string, ftID int64) *model.Project {
	t.Helper()
	added, err := db.Projects().InsertDiscovered(context.Background(), []model.Project{
		{Slug: slug, Title: slug, FortyTwoProjectID: ftID},
	})
	if err != nil {
		t.Fatalf("seeding project %s: %v", slug, err)
	}
	if added != 1 {
		t.Fatalf("seeding project %s: added = %d, want 1", slug, added)
	}
	project, err := db.Projects().GetBySlug(context.Background(), slug)
	if err != nil {
		t.Fatalf("reading back project %s: %v", slug, err)
	}
	return project
}
