package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/saxonmc/book-finder/internal/domain"
	"github.com/saxonmc/book-finder/internal/event"
	"github.com/saxonmc/book-finder/internal/repository"
)

// VoteService records helpfulness votes. Users may vote on their own reviews.
type VoteService struct {
	repo      repository.VoteRepository
	publisher event.Publisher
	logger    *slog.Logger
}

// NewVoteService creates a vote service.
func NewVoteService(repo repository.VoteRepository, publisher event.Publisher, logger *slog.Logger) *VoteService {
	return &VoteService{repo: repo, publisher: publisher, logger: logger}
}

// Vote records voterID's vote on a review, replacing any earlier vote.
func (s *VoteService) Vote(ctx context.Context, reviewID, voterID string, helpful bool) (*domain.VoteResult, error) {
	if _, err := requireID("user id", voterID); err != nil {
		return nil, err
	}

	result, err := s.repo.Upsert(ctx, &domain.ReviewVote{
		ReviewID:  reviewID,
		UserID:    voterID,
		IsHelpful: helpful,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, wrapErr("vote on review", err)
	}

	s.publish(ctx, voterID, result)
	s.logger.InfoContext(ctx, "review vote recorded",
		slog.String("review_id", reviewID),
		slog.String("user_id", voterID),
		slog.Bool("is_helpful", helpful),
		slog.Int("helpful_votes", result.HelpfulVotes),
	)
	return result, nil
}

// RemoveVote withdraws voterID's vote. Removing a vote that does not exist
// succeeds.
func (s *VoteService) RemoveVote(ctx context.Context, reviewID, voterID string) (*domain.VoteResult, error) {
	if _, err := requireID("user id", voterID); err != nil {
		return nil, err
	}

	result, err := s.repo.Remove(ctx, reviewID, voterID)
	if err != nil {
		return nil, wrapErr("remove review vote", err)
	}

	s.publish(ctx, voterID, result)
	s.logger.InfoContext(ctx, "review vote removed",
		slog.String("review_id", reviewID),
		slog.String("user_id", voterID),
		slog.Int("helpful_votes", result.HelpfulVotes),
	)
	return result, nil
}

func (s *VoteService) publish(ctx context.Context, voterID string, result *domain.VoteResult) {
	if err := s.publisher.PublishReviewVoted(ctx, voterID, result); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review event",
			slog.String("topic", event.TopicReviewVoted),
			slog.String("review_id", result.ReviewID),
			slog.String("error", err.Error()),
		)
	}
}
