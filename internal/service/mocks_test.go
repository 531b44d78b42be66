package service

import (
	"context"
	"io"
	"log/slog"

	"github.com/stretchr/testify/mock"

	"github.com/saxonmc/book-finder/internal/domain"
)

// --- Mock Repositories ---

type mockReviewRepository struct {
	mock.Mock
}

func (m *mockReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	return m.Called(ctx, review).Error(0)
}

func (m *mockReviewRepository) CreateOnePerBook(ctx context.Context, review *domain.Review) error {
	return m.Called(ctx, review).Error(0)
}

func (m *mockReviewRepository) Update(ctx context.Context, id, userID string, patch domain.ReviewPatch) (*domain.Review, error) {
	args := m.Called(ctx, id, userID, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockReviewRepository) Delete(ctx context.Context, id, userID string) (string, error) {
	args := m.Called(ctx, id, userID)
	return args.String(0), args.Error(1)
}

func (m *mockReviewRepository) GetByID(ctx context.Context, id string) (*domain.Review, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockReviewRepository) GetUserReview(ctx context.Context, bookID, userID string) (*domain.ReviewView, error) {
	args := m.Called(ctx, bookID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReviewView), args.Error(1)
}

func (m *mockReviewRepository) ListByBook(ctx context.Context, bookID, requesterID string, limit, offset int) ([]domain.ReviewView, int, error) {
	args := m.Called(ctx, bookID, requesterID, limit, offset)
	views, _ := args.Get(0).([]domain.ReviewView)
	return views, args.Int(1), args.Error(2)
}

func (m *mockReviewRepository) RatingCounts(ctx context.Context, bookID string) ([]domain.RatingCount, error) {
	args := m.Called(ctx, bookID)
	counts, _ := args.Get(0).([]domain.RatingCount)
	return counts, args.Error(1)
}

type mockVoteRepository struct {
	mock.Mock
}

func (m *mockVoteRepository) Upsert(ctx context.Context, vote *domain.ReviewVote) (*domain.VoteResult, error) {
	args := m.Called(ctx, vote)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.VoteResult), args.Error(1)
}

func (m *mockVoteRepository) Remove(ctx context.Context, reviewID, userID string) (*domain.VoteResult, error) {
	args := m.Called(ctx, reviewID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.VoteResult), args.Error(1)
}

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

type mockLibraryRepository struct {
	mock.Mock
}

func (m *mockLibraryRepository) Add(ctx context.Context, book *domain.UserBook) error {
	return m.Called(ctx, book).Error(0)
}

func (m *mockLibraryRepository) List(ctx context.Context, userID, status string) ([]domain.UserBook, error) {
	args := m.Called(ctx, userID, status)
	books, _ := args.Get(0).([]domain.UserBook)
	return books, args.Error(1)
}

func (m *mockLibraryRepository) Get(ctx context.Context, userID, bookID string) (*domain.UserBook, error) {
	args := m.Called(ctx, userID, bookID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UserBook), args.Error(1)
}

func (m *mockLibraryRepository) Update(ctx context.Context, userID, bookID string, patch domain.LibraryPatch) (*domain.UserBook, error) {
	args := m.Called(ctx, userID, bookID, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UserBook), args.Error(1)
}

func (m *mockLibraryRepository) Remove(ctx context.Context, userID, bookID string) error {
	return m.Called(ctx, userID, bookID).Error(0)
}

type mockMembershipRepository struct {
	mock.Mock
}

func (m *mockMembershipRepository) Create(ctx context.Context, ms *domain.Membership) error {
	return m.Called(ctx, ms).Error(0)
}

func (m *mockMembershipRepository) ListByUser(ctx context.Context, userID string) ([]domain.Membership, error) {
	args := m.Called(ctx, userID)
	list, _ := args.Get(0).([]domain.Membership)
	return list, args.Error(1)
}

func (m *mockMembershipRepository) GetByID(ctx context.Context, id, userID string) (*domain.Membership, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Membership), args.Error(1)
}

func (m *mockMembershipRepository) Update(ctx context.Context, ms *domain.Membership) error {
	return m.Called(ctx, ms).Error(0)
}

func (m *mockMembershipRepository) Delete(ctx context.Context, id, userID string) error {
	return m.Called(ctx, id, userID).Error(0)
}

// --- Mock Caches ---

type mockBookCache struct {
	mock.Mock
}

func (m *mockBookCache) Get(ctx context.Context, id string) (*domain.Book, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Book), args.Error(1)
}

func (m *mockBookCache) Set(ctx context.Context, book *domain.Book) error {
	return m.Called(ctx, book).Error(0)
}

// --- Mock Collaborators ---

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishReviewCreated(ctx context.Context, review *domain.Review) error {
	return m.Called(ctx, review).Error(0)
}

func (m *mockPublisher) PublishReviewUpdated(ctx context.Context, review *domain.Review) error {
	return m.Called(ctx, review).Error(0)
}

func (m *mockPublisher) PublishReviewDeleted(ctx context.Context, reviewID, bookID, userID string) error {
	return m.Called(ctx, reviewID, bookID, userID).Error(0)
}

func (m *mockPublisher) PublishReviewVoted(ctx context.Context, voterID string, result *domain.VoteResult) error {
	return m.Called(ctx, voterID, result).Error(0)
}

type mockCatalog struct {
	mock.Mock
}

func (m *mockCatalog) Search(ctx context.Context, query string, f domain.SearchFilters) ([]domain.Book, error) {
	args := m.Called(ctx, query, f)
	books, _ := args.Get(0).([]domain.Book)
	return books, args.Error(1)
}

func (m *mockCatalog) Get(ctx context.Context, id string) (*domain.Book, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Book), args.Error(1)
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }
