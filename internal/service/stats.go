package service

import (
	"context"

	"github.com/saxonmc/book-finder/internal/domain"
	"github.com/saxonmc/book-finder/internal/repository"
)

// StatsService aggregates ratings per book. Stats are computed from the
// stored reviews on every call, so they always reflect committed changes.
type StatsService struct {
	repo repository.ReviewRepository
}

// NewStatsService creates a stats service.
func NewStatsService(repo repository.ReviewRepository) *StatsService {
	return &StatsService{repo: repo}
}

// GetStats returns the average, count and per-star distribution of a book's
// ratings. A book without reviews has zero stats.
func (s *StatsService) GetStats(ctx context.Context, bookID string) (*domain.RatingStats, error) {
	bookID, err := requireID("book id", bookID)
	if err != nil {
		return nil, err
	}

	counts, err := s.repo.RatingCounts(ctx, bookID)
	if err != nil {
		return nil, wrapErr("get rating stats", err)
	}
	stats := domain.NewRatingStats(counts)
	return &stats, nil
}
