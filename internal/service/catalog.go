package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/saxonmc/book-finder/internal/domain"
	"github.com/saxonmc/book-finder/internal/repository"
	apperrors "github.com/saxonmc/book-finder/pkg/errors"
)

// Fixed catalog queries behind the browse endpoints.
const (
	topSellingQuery      = "subject:fiction"
	recommendationsQuery = "subject:classics"
	defaultBrowseLimit   = 20
)

// BookCatalog is the external source of book data.
type BookCatalog interface {
	Search(ctx context.Context, query string, f domain.SearchFilters) ([]domain.Book, error)
	Get(ctx context.Context, id string) (*domain.Book, error)
}

// CatalogService fronts the external catalog with validation, caching and
// graceful degradation.
type CatalogService struct {
	catalog BookCatalog
	cache   repository.BookCache
	logger  *slog.Logger
}

// NewCatalogService creates a catalog service.
func NewCatalogService(catalog BookCatalog, cache repository.BookCache, logger *slog.Logger) *CatalogService {
	return &CatalogService{catalog: catalog, cache: cache, logger: logger}
}

// Search queries the catalog. Catalog failures yield an empty result.
func (s *CatalogService) Search(ctx context.Context, query string, f domain.SearchFilters) ([]domain.Book, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.InvalidInput("search query is required")
	}
	if err := validateFilters(f); err != nil {
		return nil, err
	}
	return s.search(ctx, query, f)
}

// TopSelling returns recent fiction.
func (s *CatalogService) TopSelling(ctx context.Context, limit int) ([]domain.Book, error) {
	return s.search(ctx, topSellingQuery, domain.SearchFilters{
		MaxResults: browseLimit(limit),
		OrderBy:    domain.OrderByNewest,
	})
}

// Recommendations returns classics ranked by relevance.
func (s *CatalogService) Recommendations(ctx context.Context, limit int) ([]domain.Book, error) {
	return s.search(ctx, recommendationsQuery, domain.SearchFilters{
		MaxResults: browseLimit(limit),
		OrderBy:    domain.OrderByRelevance,
	})
}

// GetBook returns one book, from cache when possible.
func (s *CatalogService) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	id, err := requireID("book id", id)
	if err != nil {
		return nil, err
	}

	cached, err := s.cache.Get(ctx, id)
	if err != nil {
		s.logger.WarnContext(ctx, "book cache read failed",
			slog.String("book_id", id),
			slog.String("error", err.Error()),
		)
	} else if cached != nil {
		return cached, nil
	}

	book, err := s.catalog.Get(ctx, id)
	if err != nil {
		return nil, wrapErr("get book", err)
	}

	if err := s.cache.Set(ctx, book); err != nil {
		s.logger.WarnContext(ctx, "book cache write failed",
			slog.String("book_id", id),
			slog.String("error", err.Error()),
		)
	}
	return book, nil
}

func (s *CatalogService) search(ctx context.Context, query string, f domain.SearchFilters) ([]domain.Book, error) {
	books, err := s.catalog.Search(ctx, query, f)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		s.logger.WarnContext(ctx, "catalog search failed, returning no results",
			slog.String("query", query),
			slog.String("error", err.Error()),
		)
		return []domain.Book{}, nil
	}
	if books == nil {
		books = []domain.Book{}
	}
	return books, nil
}

func validateFilters(f domain.SearchFilters) error {
	switch f.OrderBy {
	case "", domain.OrderByRelevance, domain.OrderByNewest:
	default:
		return statusError("order_by", []string{domain.OrderByRelevance, domain.OrderByNewest})
	}
	switch f.PrintType {
	case "", domain.PrintTypeAll, domain.PrintTypeBooks, domain.PrintTypeMagazines:
	default:
		return statusError("print_type", []string{domain.PrintTypeAll, domain.PrintTypeBooks, domain.PrintTypeMagazines})
	}
	if f.MaxResults < 0 || f.MaxResults > 40 {
		return apperrors.InvalidInput("max_results must be between 1 and 40")
	}
	if f.YearFrom > 0 && f.YearTo > 0 && f.YearFrom > f.YearTo {
		return apperrors.InvalidInput("year_from must not be after year_to")
	}
	if f.PageCountMin > 0 && f.PageCountMax > 0 && f.PageCountMin > f.PageCountMax {
		return apperrors.InvalidInput("page_count_min must not exceed page_count_max")
	}
	if f.MinRating < 0 || f.MinRating > 5 {
		return apperrors.InvalidInput("min_rating must be between 0 and 5")
	}
	return nil
}

func browseLimit(limit int) int {
	if limit <= 0 || limit > 40 {
		return defaultBrowseLimit
	}
	return limit
}
