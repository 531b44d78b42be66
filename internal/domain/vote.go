package domain

import "time"

// VoteKind is the polarity of a helpfulness vote as exposed to clients.
type VoteKind string

// Vote kinds.
const (
	VoteHelpful    VoteKind = "helpful"
	VoteNotHelpful VoteKind = "not_helpful"
)

// VoteKindOf maps the stored boolean to its VoteKind.
func VoteKindOf(isHelpful bool) VoteKind {
	if isHelpful {
		return VoteHelpful
	}
	return VoteNotHelpful
}

// ReviewVote is a single user's vote on a review. There is at most one per
// (ReviewID, UserID).
type ReviewVote struct {
	ReviewID  string    `json:"review_id"`
	UserID    string    `json:"user_id"`
	IsHelpful bool      `json:"is_helpful"`
	CreatedAt time.Time `json:"created_at"`
}

// VoteResult is the state of a review after a vote change. UserVote is nil
// once the voter's vote has been removed.
type VoteResult struct {
	ReviewID     string    `json:"review_id"`
	BookID       string    `json:"book_id"`
	HelpfulVotes int       `json:"helpful_votes"`
	UserVote     *VoteKind `json:"user_vote,omitempty"`
}
