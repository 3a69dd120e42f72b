package model

import "time"

// Vote target types. A vote row always points at exactly one post or one
// comment, selected by TargetType.
const (
	TargetPost    = "POST"
	TargetComment = "COMMENT"
)

// ValidTargetType reports whether s names a votable target kind.
func ValidTargetType(s string) bool {
	return s == TargetPost || s == TargetComment
}

// Vote is one user's vote on one target. Value is always +1 or -1; "no vote"
// is the absence of a row, never a stored zero. The storage layer enforces at
// most one row per (user, target) pair.
type Vote struct {
	ID         string    `json:"id"         db:"id"`
	UserID     string    `json:"userId"     db:"user_id"`
	TargetType string    `json:"targetType" db:"target_type"`
	TargetID   string    `json:"targetId"   db:"target_id"`
	Value      int       `json:"value"      db:"value"`
	CreatedAt  time.Time `json:"createdAt"  db:"created_at"`
}

// Vote actions returned by the state machine, mirroring exactly what was
// written: a new row, a changed row, a deleted row, or nothing.
const (
	VoteActionCreated = "created"
	VoteActionUpdated = "updated"
	VoteActionRemoved = "removed"
	VoteActionNone    = "none"
)
