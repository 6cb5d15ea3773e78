// Package blogpost defines editorial content published on the storefront.
package blogpost

import "time"

// Status controls public visibility of a post.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusPublished Status = "PUBLISHED"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	return s == StatusDraft || s == StatusPublished
}

// Post is a blog article. AuthorName is denormalized at creation so posts
// survive author account changes.
type Post struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Excerpt    string    `json:"excerpt"`
	Content    string    `json:"content"`
	Category   string    `json:"category"`
	Image      string    `json:"image,omitempty"`
	Status     Status    `json:"status"`
	AuthorID   string    `json:"authorId"`
	AuthorName string    `json:"authorName"`
	Views      int64     `json:"views"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
