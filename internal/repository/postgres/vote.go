package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/saxonmc/book-finder/internal/domain"
	"github.com/saxonmc/book-finder/pkg/database"
	apperrors "github.com/saxonmc/book-finder/pkg/errors"
)

const upsertVoteQuery = `
	INSERT INTO review_votes (review_id, user_id, is_helpful, created_at)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (review_id, user_id)
	DO UPDATE SET is_helpful = EXCLUDED.is_helpful, created_at = EXCLUDED.created_at`

const recountHelpfulQuery = `
	UPDATE reviews
	SET helpful_votes = (
		SELECT COUNT(*) FROM review_votes WHERE review_id = $1 AND is_helpful
	)
	WHERE id = $1
	RETURNING helpful_votes`

// VoteRepository implements helpfulness vote persistence using PostgreSQL.
type VoteRepository struct {
	pool database.DBTX
}

// NewVoteRepository creates a new PostgreSQL-backed vote repository.
func NewVoteRepository(pool database.DBTX) *VoteRepository {
	return &VoteRepository{pool: pool}
}

// Upsert records the vote, overwriting any earlier vote by the same user,
// and recounts the review's helpful votes.
func (r *VoteRepository) Upsert(ctx context.Context, vote *domain.ReviewVote) (_ *domain.VoteResult, err error) {
	ctx, end := database.TraceQuery(ctx, "UpsertVote", upsertVoteQuery)
	defer func() { end(err) }()

	result := &domain.VoteResult{ReviewID: vote.ReviewID}
	err = database.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		bookID, err := lockReview(ctx, tx, vote.ReviewID)
		if err != nil {
			return err
		}
		result.BookID = bookID

		if _, err := tx.Exec(ctx, upsertVoteQuery,
			vote.ReviewID,
			vote.UserID,
			vote.IsHelpful,
			vote.CreatedAt,
		); err != nil {
			return fmt.Errorf("upsert vote: %w", err)
		}

		result.HelpfulVotes, err = recountHelpful(ctx, tx, vote.ReviewID)
		return err
	})
	if err != nil {
		return nil, err
	}

	kind := domain.VoteKindOf(vote.IsHelpful)
	result.UserVote = &kind
	return result, nil
}

// Remove deletes the user's vote on the review, if any, and recounts the
// review's helpful votes. Removing a vote that does not exist is not an error.
func (r *VoteRepository) Remove(ctx context.Context, reviewID, userID string) (_ *domain.VoteResult, err error) {
	ctx, end := database.TraceQuery(ctx, "RemoveVote", "DELETE FROM review_votes")
	defer func() { end(err) }()

	result := &domain.VoteResult{ReviewID: reviewID}
	err = database.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		bookID, err := lockReview(ctx, tx, reviewID)
		if err != nil {
			return err
		}
		result.BookID = bookID

		if _, err := tx.Exec(ctx,
			`DELETE FROM review_votes WHERE review_id = $1 AND user_id = $2`,
			reviewID, userID,
		); err != nil {
			return fmt.Errorf("delete vote: %w", err)
		}

		result.HelpfulVotes, err = recountHelpful(ctx, tx, reviewID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// lockReview takes a row lock on the review for the rest of the transaction,
// serializing concurrent vote changes on it.
func lockReview(ctx context.Context, tx pgx.Tx, reviewID string) (string, error) {
	var bookID string
	err := tx.QueryRow(ctx, `SELECT book_id FROM reviews WHERE id = $1 FOR UPDATE`, reviewID).Scan(&bookID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperrors.NotFound("review", reviewID)
		}
		return "", fmt.Errorf("lock review: %w", err)
	}
	return bookID, nil
}

// recountHelpful sets helpful_votes from the vote rows rather than adjusting
// it incrementally.
func recountHelpful(ctx context.Context, tx pgx.Tx, reviewID string) (int, error) {
	var n int
	if err := tx.QueryRow(ctx, recountHelpfulQuery, reviewID).Scan(&n); err != nil {
		return 0, fmt.Errorf("recount helpful votes: %w", err)
	}
	return n, nil
}
