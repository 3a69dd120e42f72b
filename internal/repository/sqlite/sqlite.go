// Package sqlite implements the repository interfaces using SQLite as the
// storage backend.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo, which needs a C compiler and makes
// cross-compilation painful. modernc.org/sqlite is a pure Go translation of
// the SQLite sources — works everywhere Go works. The driver registers itself
// under the name "sqlite" via the blank import below.
package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and provides the repository methods.
// One *DB value implements every repository interface; the server hands the
// same value to each service as the interface it needs.
type DB struct {
	conn *sql.DB
}

// New opens the database at dbPath (":memory:" for tests) and runs
// migrations.
//
// WAL mode allows concurrent reads while a write is in progress, which
// matters for a request-per-goroutine web server. Foreign keys are off by
// default in SQLite for backwards compatibility; we rely on them (accounts →
// auth_identities, comments → projects, votes → accounts) so they're
// switched on per connection.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool. Callers should defer this next to New.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS keeps it idempotent,
// so it is safe to run on every start.
func (db *DB) migrate() error {
	// Auth identities: the row every account references by foreign key.
	// Mirrors the separate auth-user store of the hosted deployment.
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS auth_identities (
			id         TEXT PRIMARY KEY,
			email      TEXT NOT NULL UNIQUE,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating auth_identities table: %w", err)
	}

	// Accounts: intra_id is unique when present. Rows created by the
	// email-merge path may briefly carry intra_id=0 until their first 42
	// login backfills it, so the unique index is partial.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS accounts (
			id           TEXT PRIMARY KEY REFERENCES auth_identities(id),
			intra_id     INTEGER NOT NULL DEFAULT 0,
			login        TEXT NOT NULL UNIQUE,
			email        TEXT NOT NULL DEFAULT '',
			display_name TEXT NOT NULL DEFAULT '',
			avatar_url   TEXT NOT NULL DEFAULT '',
			campus       TEXT NOT NULL DEFAULT '',
			role         TEXT NOT NULL DEFAULT 'USER',
			created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_accounts_intra_id
			ON accounts(intra_id) WHERE intra_id != 0;
		CREATE INDEX IF NOT EXISTS idx_accounts_email ON accounts(email);
	`)
	if err != nil {
		return fmt.Errorf("creating accounts table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS projects (
			id                   TEXT PRIMARY KEY,
			slug                 TEXT NOT NULL UNIQUE,
			title                TEXT NOT NULL,
			description          TEXT NOT NULL DEFAULT '',
			forty_two_project_id INTEGER NOT NULL DEFAULT 0,
			category             TEXT NOT NULL DEFAULT 'OTHER',
			circle               INTEGER NOT NULL DEFAULT -1,
			created_at           DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_projects_ft_id
			ON projects(forty_two_project_id) WHERE forty_two_project_id != 0;
	`)
	if err != nil {
		return fmt.Errorf("creating projects table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS posts (
			id         TEXT PRIMARY KEY,
			project_id TEXT NOT NULL REFERENCES projects(id),
			author_id  TEXT NOT NULL REFERENCES accounts(id),
			type       TEXT NOT NULL DEFAULT 'README',
			title      TEXT NOT NULL,
			content    TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_posts_project ON posts(project_id);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_posts_one_readme
			ON posts(author_id, project_id, type);
	`)
	if err != nil {
		return fmt.Errorf("creating posts table: %w", err)
	}

	// parent_comment_id is a nullable self-reference: NULL marks a root
	// comment; threads nest to arbitrary depth.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS comments (
			id                TEXT PRIMARY KEY,
			project_id        TEXT NOT NULL REFERENCES projects(id),
			author_id         TEXT NOT NULL REFERENCES accounts(id),
			parent_comment_id TEXT REFERENCES comments(id),
			content           TEXT NOT NULL,
			created_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_comments_project ON comments(project_id);
		CREATE INDEX IF NOT EXISTS idx_comments_parent ON comments(parent_comment_id);
	`)
	if err != nil {
		return fmt.Errorf("creating comments table: %w", err)
	}

	// One vote row per (user, target); "no vote" is the absence of a row.
	// The vote state machine's correctness under concurrent same-user votes
	// rests on this uniqueness constraint.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS votes (
			id          TEXT PRIMARY KEY,
			user_id     TEXT NOT NULL REFERENCES accounts(id),
			target_type TEXT NOT NULL,
			target_id   TEXT NOT NULL,
			value       INTEGER NOT NULL CHECK (value IN (1, -1)),
			created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (user_id, target_id)
		);
		CREATE INDEX IF NOT EXISTS idx_votes_target ON votes(target_type, target_id);
	`)
	if err != nil {
		return fmt.Errorf("creating votes table: %w", err)
	}

	return nil
}
