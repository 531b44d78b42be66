package domain

import (
	"strings"
	"time"
)

// Rating bounds, inclusive.
const (
	MinRating = 1
	MaxRating = 5
)

// Review is one user's rating of a book, with an optional written body.
// BookID is the catalog's opaque volume identifier and is never checked
// against the catalog.
type Review struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	BookID       string    `json:"book_id"`
	Rating       int       `json:"rating"`
	Body         *string   `json:"body,omitempty"`
	HelpfulVotes int       `json:"helpful_votes"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ReviewPatch is a partial update. Nil fields are left untouched; a non-nil
// Body that is blank after trimming clears the stored body.
type ReviewPatch struct {
	Rating *int
	Body   *string
}

// IsEmpty reports whether the patch changes nothing.
func (p ReviewPatch) IsEmpty() bool {
	return p.Rating == nil && p.Body == nil
}

// ValidRating reports whether r is within [MinRating, MaxRating].
func ValidRating(r int) bool {
	return r >= MinRating && r <= MaxRating
}

// NormalizeBody trims the body and maps an empty result to nil.
func NormalizeBody(body *string) *string {
	if body == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*body)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// ReviewView is a review as shown in a listing: the author's display name,
// the rendered body, and the requester's own vote when known.
type ReviewView struct {
	Review
	UserName string    `json:"user_name"`
	BodyHTML string    `json:"body_html,omitempty"`
	UserVote *VoteKind `json:"user_vote,omitempty"`
}

// ReviewPage is one page of a book's reviews, most helpful first.
type ReviewPage struct {
	Reviews    []ReviewView `json:"reviews"`
	TotalCount int          `json:"total_count"`
	Limit      int          `json:"limit"`
	Offset     int          `json:"offset"`
}
