package repository

import (
	"context"

	"github.com/saxonmc/book-finder/internal/domain"
)

// ReviewRepository defines the persistence operations for reviews.
type ReviewRepository interface {
	// Create inserts a review. Several reviews per (user, book) are allowed.
	Create(ctx context.Context, review *domain.Review) error

	// CreateOnePerBook inserts a review unless the user already reviewed the
	// book, in which case it returns an AlreadyExists error.
	CreateOnePerBook(ctx context.Context, review *domain.Review) error

	// Update applies patch to the review if userID owns it. A missing review
	// and a review owned by someone else are both NotFound.
	Update(ctx context.Context, id, userID string, patch domain.ReviewPatch) (*domain.Review, error)

	// Delete removes the review and its votes if userID owns it, returning
	// the review's book id.
	Delete(ctx context.Context, id, userID string) (string, error)

	// GetByID retrieves a review by id.
	GetByID(ctx context.Context, id string) (*domain.Review, error)

	// GetUserReview returns the user's most recent review of the book, with
	// the author's name.
	GetUserReview(ctx context.Context, bookID, userID string) (*domain.ReviewView, error)

	// ListByBook returns a page of the book's reviews ordered by helpfulness
	// then recency, and the total number of reviews for the book. When
	// requesterID is non-empty each view carries that user's vote.
	ListByBook(ctx context.Context, bookID, requesterID string, limit, offset int) ([]domain.ReviewView, int, error)

	// RatingCounts returns the number of reviews per rating for the book.
	RatingCounts(ctx context.Context, bookID string) ([]domain.RatingCount, error)
}

// VoteRepository defines the persistence operations for helpfulness votes.
// Both operations recompute the review's helpful_votes from the vote rows
// in the same transaction as the vote change.
type VoteRepository interface {
	// Upsert records or overwrites the voter's vote on a review.
	Upsert(ctx context.Context, vote *domain.ReviewVote) (*domain.VoteResult, error)

	// Remove deletes the voter's vote, if any.
	Remove(ctx context.Context, reviewID, userID string) (*domain.VoteResult, error)
}

// UserRepository defines the persistence operations for accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// LibraryRepository defines the persistence operations for reading lists.
type LibraryRepository interface {
	Add(ctx context.Context, book *domain.UserBook) error

	// List returns the user's books, newest first. An empty status lists all.
	List(ctx context.Context, userID, status string) ([]domain.UserBook, error)

	Get(ctx context.Context, userID, bookID string) (*domain.UserBook, error)
	Update(ctx context.Context, userID, bookID string, patch domain.LibraryPatch) (*domain.UserBook, error)
	Remove(ctx context.Context, userID, bookID string) error
}

// MembershipRepository defines the persistence operations for memberships.
// Every lookup is scoped to the owning user.
type MembershipRepository interface {
	Create(ctx context.Context, m *domain.Membership) error
	ListByUser(ctx context.Context, userID string) ([]domain.Membership, error)
	GetByID(ctx context.Context, id, userID string) (*domain.Membership, error)
	Update(ctx context.Context, m *domain.Membership) error
	Delete(ctx context.Context, id, userID string) error
}

// BookCache caches catalog lookups. Get returns nil on a miss.
type BookCache interface {
	Get(ctx context.Context, id string) (*domain.Book, error)
	Set(ctx context.Context, book *domain.Book) error
}
