package model

import "time"

// PostTypeReadme is the only post type currently served: a per-project
// Markdown guide. The column exists so other post kinds can be added without
// a migration.
const PostTypeReadme = "README"

// Post is a README guide written by one student for one project.
// Each student may have at most one README per project.
type Post struct {
	ID        string    `json:"id"        db:"id"`
	ProjectID string    `json:"-"         db:"project_id"`
	AuthorID  string    `json:"-"         db:"author_id"`
	Type      string    `json:"type"      db:"type"`
	Title     string    `json:"title"     db:"title"`
	Content   string    `json:"content"   db:"content"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	Author AccountAuthor `json:"author"`

	// Derived from the vote rows, recomputed on read.
	Score     int `json:"score"`
	VoteCount int `json:"voteCount"`
}
