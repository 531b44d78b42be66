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

const reviewColumns = `id, user_id, book_id, rating, body, helpful_votes, created_at, updated_at`

const insertReviewQuery = `
	INSERT INTO reviews (id, user_id, book_id, rating, body, helpful_votes, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

const listReviewsQuery = `
	SELECT r.id, r.user_id, r.book_id, r.rating, r.body, r.helpful_votes, r.created_at, r.updated_at,
	       COALESCE(u.name, '') AS user_name,
	       v.is_helpful AS user_vote,
	       count(*) OVER() AS total_count
	FROM reviews r
	LEFT JOIN users u ON u.id = r.user_id
	LEFT JOIN review_votes v ON v.review_id = r.id AND v.user_id = $2
	WHERE r.book_id = $1
	ORDER BY r.helpful_votes DESC, r.created_at DESC, r.id DESC
	LIMIT $3 OFFSET $4`

// ReviewRepository implements review persistence operations using PostgreSQL.
type ReviewRepository struct {
	pool database.DBTX
}

// NewReviewRepository creates a new PostgreSQL-backed review repository.
func NewReviewRepository(pool database.DBTX) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

func scanReview(row pgx.Row) (*domain.Review, error) {
	var rv domain.Review
	err := row.Scan(
		&rv.ID,
		&rv.UserID,
		&rv.BookID,
		&rv.Rating,
		&rv.Body,
		&rv.HelpfulVotes,
		&rv.CreatedAt,
		&rv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rv, nil
}

func insertReview(ctx context.Context, db database.DBTX, review *domain.Review) error {
	_, err := db.Exec(ctx, insertReviewQuery,
		review.ID,
		review.UserID,
		review.BookID,
		review.Rating,
		review.Body,
		review.HelpfulVotes,
		review.CreatedAt,
		review.UpdatedAt,
	)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return apperrors.NotFound("user", review.UserID)
		}
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

// Create inserts a new review.
func (r *ReviewRepository) Create(ctx context.Context, review *domain.Review) (err error) {
	ctx, end := database.TraceQuery(ctx, "CreateReview", insertReviewQuery)
	defer func() { end(err) }()

	return insertReview(ctx, r.pool, review)
}

// CreateOnePerBook inserts a review unless the author already reviewed the
// book. A transaction-scoped advisory lock on (user, book) serializes
// concurrent creates for the same pair so the check cannot race the insert.
func (r *ReviewRepository) CreateOnePerBook(ctx context.Context, review *domain.Review) (err error) {
	ctx, end := database.TraceQuery(ctx, "CreateReviewOnePerBook", insertReviewQuery)
	defer func() { end(err) }()

	return database.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		lockKey := review.UserID + ":" + review.BookID
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, lockKey); err != nil {
			return fmt.Errorf("lock review author: %w", err)
		}

		var exists bool
		err := tx.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM reviews WHERE user_id = $1 AND book_id = $2)`,
			review.UserID, review.BookID,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check existing review: %w", err)
		}
		if exists {
			return apperrors.AlreadyExists("review", "book_id", review.BookID)
		}

		return insertReview(ctx, tx, review)
	})
}

// Update applies the patch in a single statement whose WHERE clause checks
// both existence and ownership.
func (r *ReviewRepository) Update(ctx context.Context, id, userID string, patch domain.ReviewPatch) (_ *domain.Review, err error) {
	query := `
		UPDATE reviews
		SET rating     = COALESCE($3, rating),
		    body       = CASE WHEN $4::boolean THEN $5 ELSE body END,
		    updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING ` + reviewColumns

	ctx, end := database.TraceQuery(ctx, "UpdateReview", query)
	defer func() { end(err) }()

	rv, err := scanReview(r.pool.QueryRow(ctx, query,
		id,
		userID,
		patch.Rating,
		patch.Body != nil,
		domain.NormalizeBody(patch.Body),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("review", id)
		}
		return nil, fmt.Errorf("update review: %w", err)
	}

	return rv, nil
}

// Delete removes the review and all of its votes in one transaction.
func (r *ReviewRepository) Delete(ctx context.Context, id, userID string) (bookID string, err error) {
	ctx, end := database.TraceQuery(ctx, "DeleteReview", "DELETE FROM reviews WHERE id = $1")
	defer func() { end(err) }()

	err = database.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`SELECT book_id FROM reviews WHERE id = $1 AND user_id = $2 FOR UPDATE`,
			id, userID,
		).Scan(&bookID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NotFound("review", id)
			}
			return fmt.Errorf("lock review: %w", err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM review_votes WHERE review_id = $1`, id); err != nil {
			return fmt.Errorf("delete review votes: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete review: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	return bookID, nil
}

// GetByID retrieves a review by its identifier.
func (r *ReviewRepository) GetByID(ctx context.Context, id string) (*domain.Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE id = $1`

	rv, err := scanReview(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("review", id)
		}
		return nil, fmt.Errorf("get review by id: %w", err)
	}
	return rv, nil
}

// GetUserReview returns the user's most recent review of the book with the
// author's display name.
func (r *ReviewRepository) GetUserReview(ctx context.Context, bookID, userID string) (*domain.ReviewView, error) {
	query := `
		SELECT r.id, r.user_id, r.book_id, r.rating, r.body, r.helpful_votes, r.created_at, r.updated_at,
		       COALESCE(u.name, '') AS user_name
		FROM reviews r
		LEFT JOIN users u ON u.id = r.user_id
		WHERE r.book_id = $1 AND r.user_id = $2
		ORDER BY r.created_at DESC
		LIMIT 1`

	var rv domain.ReviewView
	err := r.pool.QueryRow(ctx, query, bookID, userID).Scan(
		&rv.ID,
		&rv.UserID,
		&rv.BookID,
		&rv.Rating,
		&rv.Body,
		&rv.HelpfulVotes,
		&rv.CreatedAt,
		&rv.UpdatedAt,
		&rv.UserName,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("review for book", bookID)
		}
		return nil, fmt.Errorf("get user review: %w", err)
	}
	return &rv, nil
}

// ListByBook returns one page of the book's reviews, most helpful first.
func (r *ReviewRepository) ListByBook(ctx context.Context, bookID, requesterID string, limit, offset int) (_ []domain.ReviewView, _ int, err error) {
	ctx, end := database.TraceQuery(ctx, "ListReviews", listReviewsQuery)
	defer func() { end(err) }()

	// Anonymous requesters match no vote row.
	var requester any
	if requesterID != "" {
		requester = requesterID
	}

	rows, err := r.pool.Query(ctx, listReviewsQuery, bookID, requester, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var (
		reviews    []domain.ReviewView
		totalCount int
	)

	for rows.Next() {
		var (
			rv       domain.ReviewView
			userVote *bool
		)

		if err := rows.Scan(
			&rv.ID,
			&rv.UserID,
			&rv.BookID,
			&rv.Rating,
			&rv.Body,
			&rv.HelpfulVotes,
			&rv.CreatedAt,
			&rv.UpdatedAt,
			&rv.UserName,
			&userVote,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan review row: %w", err)
		}

		if userVote != nil {
			kind := domain.VoteKindOf(*userVote)
			rv.UserVote = &kind
		}
		reviews = append(reviews, rv)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate review rows: %w", err)
	}

	// A page past the end carries no window count.
	if len(reviews) == 0 && offset > 0 {
		err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM reviews WHERE book_id = $1`, bookID).Scan(&totalCount)
		if err != nil {
			return nil, 0, fmt.Errorf("count reviews: %w", err)
		}
	}

	if reviews == nil {
		reviews = []domain.ReviewView{}
	}

	return reviews, totalCount, nil
}

// RatingCounts returns the number of reviews per rating value for a book.
func (r *ReviewRepository) RatingCounts(ctx context.Context, bookID string) (_ []domain.RatingCount, err error) {
	query := `
		SELECT rating, COUNT(*)
		FROM reviews
		WHERE book_id = $1
		GROUP BY rating`

	ctx, end := database.TraceQuery(ctx, "RatingCounts", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, bookID)
	if err != nil {
		return nil, fmt.Errorf("count ratings: %w", err)
	}
	defer rows.Close()

	var counts []domain.RatingCount
	for rows.Next() {
		var c domain.RatingCount
		if err := rows.Scan(&c.Rating, &c.Count); err != nil {
			return nil, fmt.Errorf("scan rating count: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rating counts: %w", err)
	}

	return counts, nil
}
