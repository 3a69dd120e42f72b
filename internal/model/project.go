package model

import "time"

// Project categories. Discovered projects land in OTHER until an admin
// curates them from the dashboard.
const (
	CategoryNewCore = "NEW_CORE"
	CategoryOldCore = "OLD_CORE"
	CategoryPiscine = "PISCINE"
	CategoryOther   = "OTHER"
)

// ValidCategory reports whether s is one of the known project categories.
func ValidCategory(s string) bool {
	switch s {
	case CategoryNewCore, CategoryOldCore, CategoryPiscine, CategoryOther:
		return true
	}
	return false
}

// CircleUnassigned marks a project no admin has placed in a circle yet.
const CircleUnassigned = -1

// ValidCircle reports whether c is an assignable curriculum circle.
// 0–6 are the common-core circles, 13 is the convention for post-common-core.
func ValidCircle(c int) bool {
	return c == CircleUnassigned || (c >= 0 && c <= 6) || c == 13
}

// Project is a curriculum project discovered from the 42 API and curated
// locally. Slug is the join key used in URLs; FortyTwoProjectID links back to
// the provider's catalogue.
type Project struct {
	ID                string    `json:"id"                db:"id"`
	Slug              string    `json:"slug"              db:"slug"`
	Title             string    `json:"title"             db:"title"`
	Description       string    `json:"description"       db:"description"`
	FortyTwoProjectID int64     `json:"fortyTwoProjectId" db:"forty_two_project_id"`
	Category          string    `json:"category"          db:"category"`
	Circle            int       `json:"circle"            db:"circle"`
	CreatedAt         time.Time `json:"createdAt"         db:"created_at"`

	// Derived counts, populated on reads that need them.
	PostCount    int `json:"postCount"`
	CommentCount int `json:"commentCount"`
}
