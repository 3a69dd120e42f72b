// Package repository defines the storage interfaces the service layer
// programs against. The sqlite subpackage provides the concrete
// implementation; tests substitute in-memory fakes.
package repository

import (
	"context"

	"github.com/amansour/praxis42/internal/model"
)

// ListProjectsOptions filters and paginates the project listing.
type ListProjectsOptions struct {
	Category string // empty = all categories
	Search   string // case-insensitive substring match on title
	Page     int    // 1-based
	PerPage  int
}

// AccountRepository persists local accounts.
//
// Create must tolerate two concurrent logins racing to create the same brand
// new identity: on a uniqueness conflict (intra_id or login) it re-reads the
// winning row into the passed struct instead of erroring.
type AccountRepository interface {
	GetByID(ctx context.Context, id string) (*model.Account, error)
	GetByIntraID(ctx context.Context, intraID int64) (*model.Account, error)
	GetByEmail(ctx context.Context, email string) (*model.Account, error)
	Create(ctx context.Context, account *model.Account) error
	Update(ctx context.Context, account *model.Account) error
}

// AuthIdentityRepository manages the auth-identity rows accounts reference by
// foreign key. Delete exists for compensating cleanup when profile creation
// fails right after an identity was created.
type AuthIdentityRepository interface {
	GetByEmail(ctx context.Context, email string) (*model.AuthIdentity, error)
	Create(ctx context.Context, identity *model.AuthIdentity) error
	Delete(ctx context.Context, id string) error
}

// ProjectRepository persists curated curriculum projects.
type ProjectRepository interface {
	GetBySlug(ctx context.Context, slug string) (*model.Project, error)
	List(ctx context.Context, opts ListProjectsOptions) ([]model.Project, int, error)
	UpdateCuration(ctx context.Context, slug string, category *string, circle *int) (*model.Project, error)
	// InsertDiscovered adds projects found via the 42 API, skipping any whose
	// 42 project id or slug already exists. Returns how many were added.
	InsertDiscovered(ctx context.Context, projects []model.Project) (int, error)
}

// PostRepository persists README posts. Reads populate the Author projection.
type PostRepository interface {
	GetByID(ctx context.Context, id string) (*model.Post, error)
	ListByProject(ctx context.Context, projectID string) ([]model.Post, error)
	GetByAuthorAndProject(ctx context.Context, authorID, projectID string) (*model.Post, error)
	Create(ctx context.Context, post *model.Post) error
	Update(ctx context.Context, post *model.Post) error
	Delete(ctx context.Context, id string) error
}

// CommentRepository persists comments as flat rows; threading is assembled in
// the service layer.
type CommentRepository interface {
	GetByID(ctx context.Context, id string) (*model.Comment, error)
	// ListByProject returns all comments for a project ordered by creation
	// time ascending, with Author populated.
	ListByProject(ctx context.Context, projectID string) ([]model.Comment, error)
	Create(ctx context.Context, comment *model.Comment) error
}

// VoteRepository persists votes, at most one row per (user, target).
type VoteRepository interface {
	// Get returns the caller's vote on a target, or (nil, nil) when no row
	// exists — absence is the NoVote state, not an error.
	Get(ctx context.Context, userID, targetType, targetID string) (*model.Vote, error)
	Create(ctx context.Context, vote *model.Vote) error
	UpdateValue(ctx context.Context, id string, value int) error
	Delete(ctx context.Context, id string) error
	// Score recomputes (sum of values, row count) for a target from the
	// authoritative row set.
	Score(ctx context.Context, targetType, targetID string) (int, int, error)
	// ForTargets returns every vote on the given targets (all users).
	ForTargets(ctx context.Context, targetType string, targetIDs []string) ([]model.Vote, error)
	// UserVotes returns one user's vote values keyed by target id; targets
	// without a row are omitted.
	UserVotes(ctx context.Context, userID, targetType string, targetIDs []string) (map[string]int, error)
}
