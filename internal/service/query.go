package service

import (
	"context"

	"github.com/saxonmc/book-finder/internal/domain"
	"github.com/saxonmc/book-finder/internal/render"
	"github.com/saxonmc/book-finder/internal/repository"
	"github.com/saxonmc/book-finder/pkg/pagination"
)

// QueryService lists a book's reviews for display.
type QueryService struct {
	repo     repository.ReviewRepository
	markdown *render.Markdown
	policy   pagination.Policy
}

// NewQueryService creates a query service paging with policy.
func NewQueryService(repo repository.ReviewRepository, markdown *render.Markdown, policy pagination.Policy) *QueryService {
	return &QueryService{repo: repo, markdown: markdown, policy: policy}
}

// ListReviews returns one page of a book's reviews, most helpful first. When
// requesterID is set each review carries that user's vote.
func (s *QueryService) ListReviews(ctx context.Context, bookID, requesterID string, limit, offset int) (*domain.ReviewPage, error) {
	bookID, err := requireID("book id", bookID)
	if err != nil {
		return nil, err
	}
	params := s.policy.Normalize(limit, offset)

	views, total, err := s.repo.ListByBook(ctx, bookID, requesterID, params.Limit, params.Offset)
	if err != nil {
		return nil, wrapErr("list reviews", err)
	}
	if views == nil {
		views = []domain.ReviewView{}
	}
	for i := range views {
		if views[i].Body != nil {
			views[i].BodyHTML = s.markdown.Render(*views[i].Body)
		}
	}

	return &domain.ReviewPage{
		Reviews:    views,
		TotalCount: total,
		Limit:      params.Limit,
		Offset:     params.Offset,
	}, nil
}
