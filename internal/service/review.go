package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/saxonmc/book-finder/internal/domain"
	"github.com/saxonmc/book-finder/internal/event"
	"github.com/saxonmc/book-finder/internal/repository"
	apperrors "github.com/saxonmc/book-finder/pkg/errors"
)

// ReviewService implements creating, editing and deleting reviews.
type ReviewService struct {
	repo       repository.ReviewRepository
	publisher  event.Publisher
	onePerBook bool
	logger     *slog.Logger
}

// NewReviewService creates a review service. With onePerBook set a user can
// review each book only once.
func NewReviewService(
	repo repository.ReviewRepository,
	publisher event.Publisher,
	onePerBook bool,
	logger *slog.Logger,
) *ReviewService {
	return &ReviewService{
		repo:       repo,
		publisher:  publisher,
		onePerBook: onePerBook,
		logger:     logger,
	}
}

// CreateReviewInput holds the parameters for creating a review.
type CreateReviewInput struct {
	UserID string
	BookID string
	Rating int
	Body   *string
}

// CreateReview stores a new review with no helpful votes.
func (s *ReviewService) CreateReview(ctx context.Context, input CreateReviewInput) (*domain.Review, error) {
	userID, err := requireID("user id", input.UserID)
	if err != nil {
		return nil, err
	}
	bookID, err := requireID("book id", input.BookID)
	if err != nil {
		return nil, err
	}
	if !domain.ValidRating(input.Rating) {
		return nil, ratingError()
	}

	now := time.Now().UTC()
	review := &domain.Review{
		ID:        uuid.New().String(),
		UserID:    userID,
		BookID:    bookID,
		Rating:    input.Rating,
		Body:      domain.NormalizeBody(input.Body),
		CreatedAt: now,
		UpdatedAt: now,
	}

	create := s.repo.Create
	if s.onePerBook {
		create = s.repo.CreateOnePerBook
	}
	if err := create(ctx, review); err != nil {
		return nil, wrapErr("create review", err)
	}

	if err := s.publisher.PublishReviewCreated(ctx, review); err != nil {
		s.logPublishFailure(ctx, event.TopicReviewCreated, review.ID, err)
	}

	s.logger.InfoContext(ctx, "review created",
		slog.String("review_id", review.ID),
		slog.String("book_id", bookID),
		slog.String("user_id", userID),
		slog.Int("rating", review.Rating),
	)
	return review, nil
}

// UpdateReview applies patch to a review owned by userID. A review that
// does not exist and one owned by someone else are both NotFound.
func (s *ReviewService) UpdateReview(ctx context.Context, reviewID, userID string, patch domain.ReviewPatch) (*domain.Review, error) {
	if _, err := requireID("user id", userID); err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return nil, apperrors.InvalidInput("nothing to update")
	}
	if patch.Rating != nil && !domain.ValidRating(*patch.Rating) {
		return nil, ratingError()
	}

	review, err := s.repo.Update(ctx, reviewID, userID, patch)
	if err != nil {
		return nil, wrapErr("update review", err)
	}

	if err := s.publisher.PublishReviewUpdated(ctx, review); err != nil {
		s.logPublishFailure(ctx, event.TopicReviewUpdated, review.ID, err)
	}

	s.logger.InfoContext(ctx, "review updated",
		slog.String("review_id", review.ID),
		slog.String("book_id", review.BookID),
		slog.String("user_id", userID),
	)
	return review, nil
}

// DeleteReview removes a review owned by userID together with its votes.
func (s *ReviewService) DeleteReview(ctx context.Context, reviewID, userID string) error {
	if _, err := requireID("user id", userID); err != nil {
		return err
	}

	bookID, err := s.repo.Delete(ctx, reviewID, userID)
	if err != nil {
		return wrapErr("delete review", err)
	}

	if err := s.publisher.PublishReviewDeleted(ctx, reviewID, bookID, userID); err != nil {
		s.logPublishFailure(ctx, event.TopicReviewDeleted, reviewID, err)
	}

	s.logger.InfoContext(ctx, "review deleted",
		slog.String("review_id", reviewID),
		slog.String("book_id", bookID),
		slog.String("user_id", userID),
	)
	return nil
}

// GetReview returns a single review.
func (s *ReviewService) GetReview(ctx context.Context, reviewID string) (*domain.Review, error) {
	reviewID, err := requireID("review id", reviewID)
	if err != nil {
		return nil, err
	}
	review, err := s.repo.GetByID(ctx, reviewID)
	if err != nil {
		return nil, wrapErr("get review", err)
	}
	return review, nil
}

// GetUserReview returns userID's most recent review of bookID, or nil when
// the user has not reviewed the book.
func (s *ReviewService) GetUserReview(ctx context.Context, bookID, userID string) (*domain.ReviewView, error) {
	bookID, err := requireID("book id", bookID)
	if err != nil {
		return nil, err
	}
	review, err := s.repo.GetUserReview(ctx, bookID, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil
		}
		return nil, wrapErr("get user review", err)
	}
	return review, nil
}

func (s *ReviewService) logPublishFailure(ctx context.Context, topic, reviewID string, err error) {
	s.logger.ErrorContext(ctx, "failed to publish review event",
		slog.String("topic", topic),
		slog.String("review_id", reviewID),
		slog.String("error", err.Error()),
	)
}

func ratingError() error {
	return apperrors.InvalidInput(fmt.Sprintf("rating must be between %d and %d", domain.MinRating, domain.MaxRating))
}
