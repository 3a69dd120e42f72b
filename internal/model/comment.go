package model

import "time"

// Comment belongs to exactly one project and optionally one parent comment.
//
// ParentID is a *string rather than a sentinel id: nil unambiguously marks a
// root comment, and no real id can collide with the marker. Threads nest to
// arbitrary depth — the 5-level cap some clients apply is a UI affordance,
// not a data-model rule.
type Comment struct {
	ID        string    `json:"id"        db:"id"`
	ProjectID string    `json:"-"         db:"project_id"`
	AuthorID  string    `json:"-"         db:"author_id"`
	ParentID  *string   `json:"parentId"  db:"parent_comment_id"`
	Content   string    `json:"content"   db:"content"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	Author AccountAuthor `json:"author"`
}

// CommentNode is one node of the threaded display tree: the comment itself
// plus its aggregated vote data and recursively built replies.
type CommentNode struct {
	ID        string        `json:"id"`
	Content   string        `json:"content"`
	Author    AccountAuthor `json:"author"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
	Score     int           `json:"score"`
	VoteCount int           `json:"voteCount"`
	Replies   []*CommentNode `json:"replies"`
}
