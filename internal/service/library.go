package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/saxonmc/book-finder/internal/domain"
	"github.com/saxonmc/book-finder/internal/repository"
	apperrors "github.com/saxonmc/book-finder/pkg/errors"
)

// LibraryService manages users' reading lists.
type LibraryService struct {
	repo   repository.LibraryRepository
	logger *slog.Logger
}

// NewLibraryService creates a library service.
func NewLibraryService(repo repository.LibraryRepository, logger *slog.Logger) *LibraryService {
	return &LibraryService{repo: repo, logger: logger}
}

// AddBookInput holds the parameters for adding a book to a reading list.
type AddBookInput struct {
	UserID     string
	BookID     string
	Title      string
	Author     string
	CoverImage string
	ISBN       string
	Status     string
	Rating     *int
	Notes      *string
}

// AddBook puts a book on the user's list. A book can be listed once.
func (s *LibraryService) AddBook(ctx context.Context, input AddBookInput) (*domain.UserBook, error) {
	bookID, err := requireID("book id", input.BookID)
	if err != nil {
		return nil, err
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.InvalidInput("title is required")
	}
	status := input.Status
	if status == "" {
		status = domain.LibraryStatusWantToRead
	}
	if err := validateLibraryFields(&status, input.Rating); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	book := &domain.UserBook{
		ID:         uuid.New().String(),
		UserID:     input.UserID,
		BookID:     bookID,
		Title:      title,
		Author:     strings.TrimSpace(input.Author),
		CoverImage: input.CoverImage,
		ISBN:       input.ISBN,
		Status:     status,
		Rating:     input.Rating,
		Notes:      domain.NormalizeBody(input.Notes),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Add(ctx, book); err != nil {
		return nil, wrapErr("add library book", err)
	}

	s.logger.InfoContext(ctx, "book added to library",
		slog.String("user_id", book.UserID),
		slog.String("book_id", bookID),
		slog.String("status", status),
	)
	return book, nil
}

// ListLibrary returns the user's books, newest first, optionally filtered by
// status.
func (s *LibraryService) ListLibrary(ctx context.Context, userID, status string) ([]domain.UserBook, error) {
	if status != "" && !domain.IsValidLibraryStatus(status) {
		return nil, statusError("status", domain.ValidLibraryStatuses())
	}
	books, err := s.repo.List(ctx, userID, status)
	if err != nil {
		return nil, wrapErr("list library", err)
	}
	if books == nil {
		books = []domain.UserBook{}
	}
	return books, nil
}

// GetBookStatus reports whether a book is on the user's list and in which
// status.
func (s *LibraryService) GetBookStatus(ctx context.Context, userID, bookID string) (*domain.LibraryBookStatus, error) {
	book, err := s.repo.Get(ctx, userID, bookID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return &domain.LibraryBookStatus{InLibrary: false}, nil
		}
		return nil, wrapErr("get library book", err)
	}
	status := book.Status
	return &domain.LibraryBookStatus{InLibrary: true, Status: &status}, nil
}

// UpdateBook changes the status, rating or notes of a listed book.
func (s *LibraryService) UpdateBook(ctx context.Context, userID, bookID string, patch domain.LibraryPatch) (*domain.UserBook, error) {
	if patch.IsEmpty() {
		return nil, apperrors.InvalidInput("nothing to update")
	}
	if err := validateLibraryFields(patch.Status, patch.Rating); err != nil {
		return nil, err
	}

	book, err := s.repo.Update(ctx, userID, bookID, patch)
	if err != nil {
		return nil, wrapErr("update library book", err)
	}

	s.logger.InfoContext(ctx, "library book updated",
		slog.String("user_id", userID),
		slog.String("book_id", bookID),
	)
	return book, nil
}

// RemoveBook takes a book off the user's list.
func (s *LibraryService) RemoveBook(ctx context.Context, userID, bookID string) error {
	if err := s.repo.Remove(ctx, userID, bookID); err != nil {
		return wrapErr("remove library book", err)
	}

	s.logger.InfoContext(ctx, "book removed from library",
		slog.String("user_id", userID),
		slog.String("book_id", bookID),
	)
	return nil
}

func validateLibraryFields(status *string, rating *int) error {
	if status != nil && !domain.IsValidLibraryStatus(*status) {
		return statusError("status", domain.ValidLibraryStatuses())
	}
	if rating != nil && !domain.ValidRating(*rating) {
		return ratingError()
	}
	return nil
}

func statusError(field string, valid []string) error {
	return apperrors.InvalidInput(fmt.Sprintf("%s must be one of: %s", field, strings.Join(valid, ", ")))
}
