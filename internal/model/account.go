// Package model defines the data structures used throughout the application.
package model

import "time"

// Account roles. Only ADMIN unlocks the project curation endpoints; every
// account created through the login flow starts as USER.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// Account is the local identity record for a 42 student.
//
// The 42 Network is the identity provider, so the primary external identifier
// is the intra user ID (an integer). We still generate our own internal string
// ID (xid) so our primary keys aren't tied to a third party's numbering
// scheme, and so the email-merge path (an account created before its intra ID
// was known) keeps a stable key.
//
// IntraID is zero only on rows created by the email-merge path before their
// first 42 login backfills it; the UNIQUE index on intra_id ignores zeros.
// Mutable profile fields (Login, DisplayName, AvatarURL, Campus) are refreshed
// from the provider on every login.
type Account struct {
	ID          string    `json:"id"          db:"id"`
	IntraID     int64     `json:"intraId"     db:"intra_id"`     // 42's numeric user ID
	Login       string    `json:"login"       db:"login"`        // intra login, e.g. "mamansou"
	Email       string    `json:"email"       db:"email"`        // intra email (may be empty)
	DisplayName string    `json:"displayName" db:"display_name"` // "First Last" from the provider
	AvatarURL   string    `json:"avatarUrl"   db:"avatar_url"`
	Campus      string    `json:"campus"      db:"campus"` // free-text campus name
	Role        string    `json:"role"        db:"role"`   // USER or ADMIN
	CreatedAt   time.Time `json:"createdAt"   db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt"   db:"updated_at"`
}

// IsAdmin reports whether the account may use the curation endpoints.
func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// AuthIdentity is the row in the underlying auth-identity store that every
// Account references by foreign key. It mirrors the "auth user" record the
// hosted-auth deployment kept separately from the profile: created on first
// login (or reused if a previous partial login left one behind), keyed by
// email, and deleted again if profile creation fails right after it.
type AuthIdentity struct {
	ID        string    `json:"id"        db:"id"`
	Email     string    `json:"email"     db:"email"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// AccountAuthor is the author projection embedded in posts and comments.
type AccountAuthor struct {
	ID          string `json:"id"`
	Login       string `json:"login"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl"`
}

// Author returns the projection of the account used in post/comment payloads.
func (a *Account) Author() AccountAuthor {
	return AccountAuthor{
		ID:          a.ID,
		Login:       a.Login,
		DisplayName: a.DisplayName,
		AvatarURL:   a.AvatarURL,
	}
}
