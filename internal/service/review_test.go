package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/saxonmc/book-finder/internal/domain"
	apperrors "github.com/saxonmc/book-finder/pkg/errors"
)

type reviewDeps struct {
	repo      *mockReviewRepository
	publisher *mockPublisher
}

func newTestReviewService(onePerBook bool) (*ReviewService, reviewDeps) {
	deps := reviewDeps{
		repo:      new(mockReviewRepository),
		publisher: new(mockPublisher),
	}
	svc := NewReviewService(deps.repo, deps.publisher, onePerBook, newTestLogger())
	return svc, deps
}

func TestCreateReview_Success(t *testing.T) {
	svc, deps := newTestReviewService(false)
	ctx := context.Background()

	deps.repo.On("Create", ctx, mock.AnythingOfType("*domain.Review")).Return(nil)
	deps.publisher.On("PublishReviewCreated", ctx, mock.AnythingOfType("*domain.Review")).Return(nil)

	review, err := svc.CreateReview(ctx, CreateReviewInput{
		UserID: "user-1",
		BookID: " book-1 ",
		Rating: 4,
		Body:   strPtr("  A slow start, then unputdownable.  "),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, review.ID)
	assert.Equal(t, "book-1", review.BookID)
	assert.Equal(t, 4, review.Rating)
	assert.Equal(t, 0, review.HelpfulVotes)
	require.NotNil(t, review.Body)
	assert.Equal(t, "A slow start, then unputdownable.", *review.Body)
	assert.Equal(t, review.CreatedAt, review.UpdatedAt)
	deps.repo.AssertNotCalled(t, "CreateOnePerBook", mock.Anything, mock.Anything)
	deps.repo.AssertExpectations(t)
	deps.publisher.AssertExpectations(t)
}

func TestCreateReview_BlankBodyStoredAsNull(t *testing.T) {
	svc, deps := newTestReviewService(false)
	ctx := context.Background()

	deps.repo.On("Create", ctx, mock.MatchedBy(func(r *domain.Review) bool { return r.Body == nil })).Return(nil)
	deps.publisher.On("PublishReviewCreated", ctx, mock.Anything).Return(nil)

	review, err := svc.CreateReview(ctx, CreateReviewInput{UserID: "user-1", BookID: "book-1", Rating: 5, Body: strPtr("   ")})
	require.NoError(t, err)
	assert.Nil(t, review.Body)
	deps.repo.AssertExpectations(t)
}

func TestCreateReview_ValidationErrors(t *testing.T) {
	tests := []struct {
		name  string
		input CreateReviewInput
	}{
		{"rating too low", CreateReviewInput{UserID: "u", BookID: "b", Rating: 0}},
		{"rating too high", CreateReviewInput{UserID: "u", BookID: "b", Rating: 6}},
		{"missing user", CreateReviewInput{BookID: "b", Rating: 3}},
		{"missing book", CreateReviewInput{UserID: "u", BookID: "  ", Rating: 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, deps := newTestReviewService(false)
			_, err := svc.CreateReview(context.Background(), tt.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
			deps.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestCreateReview_OnePerBookPolicy(t *testing.T) {
	svc, deps := newTestReviewService(true)
	ctx := context.Background()

	deps.repo.On("CreateOnePerBook", ctx, mock.Anything).
		Return(apperrors.AlreadyExists("review", "book_id", "book-1"))

	_, err := svc.CreateReview(ctx, CreateReviewInput{UserID: "user-1", BookID: "book-1", Rating: 3})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
	assert.Equal(t, 409, apperrors.HTTPStatus(err))
	deps.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	deps.publisher.AssertNotCalled(t, "PublishReviewCreated", mock.Anything, mock.Anything)
}

func TestCreateReview_DriverErrorBecomesStorageError(t *testing.T) {
	svc, deps := newTestReviewService(false)
	ctx := context.Background()

	deps.repo.On("Create", ctx, mock.Anything).Return(errors.New("connection reset"))

	_, err := svc.CreateReview(ctx, CreateReviewInput{UserID: "user-1", BookID: "book-1", Rating: 3})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrStorage)
	assert.Equal(t, 500, apperrors.HTTPStatus(err))
}

func TestCreateReview_PublishFailureDoesNotFail(t *testing.T) {
	svc, deps := newTestReviewService(false)
	ctx := context.Background()

	deps.repo.On("Create", ctx, mock.Anything).Return(nil)
	deps.publisher.On("PublishReviewCreated", ctx, mock.Anything).Return(errors.New("broker down"))

	review, err := svc.CreateReview(ctx, CreateReviewInput{UserID: "user-1", BookID: "book-1", Rating: 3})
	require.NoError(t, err)
	assert.NotNil(t, review)
}

func TestUpdateReview_Success(t *testing.T) {
	svc, deps := newTestReviewService(false)
	ctx := context.Background()
	patch := domain.ReviewPatch{Rating: intPtr(2)}
	updated := &domain.Review{ID: "rev-1", UserID: "user-1", BookID: "book-1", Rating: 2}

	deps.repo.On("Update", ctx, "rev-1", "user-1", patch).Return(updated, nil)
	deps.publisher.On("PublishReviewUpdated", ctx, updated).Return(nil)

	got, err := svc.UpdateReview(ctx, "rev-1", "user-1", patch)
	require.NoError(t, err)
	assert.Equal(t, updated, got)
	deps.repo.AssertExpectations(t)
	deps.publisher.AssertExpectations(t)
}

func TestUpdateReview_ValidationErrors(t *testing.T) {
	tests := []struct {
		name  string
		patch domain.ReviewPatch
	}{
		{"empty patch", domain.ReviewPatch{}},
		{"rating out of range", domain.ReviewPatch{Rating: intPtr(9)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, deps := newTestReviewService(false)
			_, err := svc.UpdateReview(context.Background(), "rev-1", "user-1", tt.patch)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
			deps.repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestUpdateReview_NotOwnerIsNotFound(t *testing.T) {
	svc, deps := newTestReviewService(false)
	ctx := context.Background()
	patch := domain.ReviewPatch{Body: strPtr("")}

	deps.repo.On("Update", ctx, "rev-1", "intruder", patch).Return(nil, apperrors.NotFound("review", "rev-1"))

	_, err := svc.UpdateReview(ctx, "rev-1", "intruder", patch)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Equal(t, 404, apperrors.HTTPStatus(err))
}

func TestDeleteReview_Success(t *testing.T) {
	svc, deps := newTestReviewService(false)
	ctx := context.Background()

	deps.repo.On("Delete", ctx, "rev-1", "user-1").Return("book-1", nil)
	deps.publisher.On("PublishReviewDeleted", ctx, "rev-1", "book-1", "user-1").Return(nil)

	require.NoError(t, svc.DeleteReview(ctx, "rev-1", "user-1"))
	deps.repo.AssertExpectations(t)
	deps.publisher.AssertExpectations(t)
}

func TestDeleteReview_NotFound(t *testing.T) {
	svc, deps := newTestReviewService(false)
	ctx := context.Background()

	deps.repo.On("Delete", ctx, "rev-1", "user-2").Return("", apperrors.NotFound("review", "rev-1"))

	err := svc.DeleteReview(ctx, "rev-1", "user-2")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	deps.publisher.AssertNotCalled(t, "PublishReviewDeleted", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGetUserReview(t *testing.T) {
	svc, deps := newTestReviewService(false)
	ctx := context.Background()
	review := &domain.ReviewView{
		Review:   domain.Review{ID: "rev-1", UserID: "user-1", BookID: "book-1", Rating: 5},
		UserName: "Ada",
	}

	deps.repo.On("GetUserReview", ctx, "book-1", "user-1").Return(review, nil)
	deps.repo.On("GetUserReview", ctx, "book-2", "user-1").Return(nil, apperrors.NotFound("review for book", "book-2"))
	deps.repo.On("GetUserReview", ctx, "book-3", "user-1").Return(nil, errors.New("timeout"))

	got, err := svc.GetUserReview(ctx, "book-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, review, got)

	got, err = svc.GetUserReview(ctx, "book-2", "user-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = svc.GetUserReview(ctx, "book-3", "user-1")
	assert.ErrorIs(t, err, apperrors.ErrStorage)
}

func TestGetReview(t *testing.T) {
	svc, deps := newTestReviewService(false)
	ctx := context.Background()
	review := &domain.Review{ID: "rev-1", UserID: "user-1", BookID: "book-1", Rating: 4}

	deps.repo.On("GetByID", ctx, "rev-1").Return(review, nil)
	deps.repo.On("GetByID", ctx, "rev-2").Return(nil, apperrors.NotFound("review", "rev-2"))

	got, err := svc.GetReview(ctx, " rev-1 ")
	require.NoError(t, err)
	assert.Equal(t, review, got)

	_, err = svc.GetReview(ctx, "rev-2")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = svc.GetReview(ctx, "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

// --- Votes ---

func TestVote_Success(t *testing.T) {
	repo := new(mockVoteRepository)
	publisher := new(mockPublisher)
	svc := NewVoteService(repo, publisher, newTestLogger())
	ctx := context.Background()

	helpful := domain.VoteHelpful
	result := &domain.VoteResult{ReviewID: "rev-1", BookID: "book-1", HelpfulVotes: 1, UserVote: &helpful}
	repo.On("Upsert", ctx, mock.MatchedBy(func(v *domain.ReviewVote) bool {
		return v.ReviewID == "rev-1" && v.UserID == "user-2" && v.IsHelpful && !v.CreatedAt.IsZero()
	})).Return(result, nil)
	publisher.On("PublishReviewVoted", ctx, "user-2", result).Return(errors.New("broker down"))

	got, err := svc.Vote(ctx, "rev-1", "user-2", true)
	require.NoError(t, err)
	assert.Equal(t, result, got)
	repo.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestVote_MissingReview(t *testing.T) {
	repo := new(mockVoteRepository)
	publisher := new(mockPublisher)
	svc := NewVoteService(repo, publisher, newTestLogger())
	ctx := context.Background()

	repo.On("Upsert", ctx, mock.Anything).Return(nil, apperrors.NotFound("review", "rev-x"))

	_, err := svc.Vote(ctx, "rev-x", "user-2", false)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	publisher.AssertNotCalled(t, "PublishReviewVoted", mock.Anything, mock.Anything, mock.Anything)
}

func TestVote_RequiresVoter(t *testing.T) {
	svc := NewVoteService(new(mockVoteRepository), new(mockPublisher), newTestLogger())
	_, err := svc.Vote(context.Background(), "rev-1", "", true)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestRemoveVote_Success(t *testing.T) {
	repo := new(mockVoteRepository)
	publisher := new(mockPublisher)
	svc := NewVoteService(repo, publisher, newTestLogger())
	ctx := context.Background()

	result := &domain.VoteResult{ReviewID: "rev-1", BookID: "book-1", HelpfulVotes: 0}
	repo.On("Remove", ctx, "rev-1", "user-2").Return(result, nil)
	publisher.On("PublishReviewVoted", ctx, "user-2", result).Return(nil)

	got, err := svc.RemoveVote(ctx, "rev-1", "user-2")
	require.NoError(t, err)
	assert.Nil(t, got.UserVote)
	assert.Equal(t, 0, got.HelpfulVotes)
}

// --- Stats ---

func TestGetStats_ComputesFromStoredRatings(t *testing.T) {
	repo := new(mockReviewRepository)
	svc := NewStatsService(repo)
	ctx := context.Background()

	counts := []domain.RatingCount{{Rating: 5, Count: 1}, {Rating: 4, Count: 1}, {Rating: 2, Count: 1}}
	repo.On("RatingCounts", ctx, "book-1").Return(counts, nil)

	got, err := svc.GetStats(ctx, "book-1")
	require.NoError(t, err)
	assert.Equal(t, 3, got.TotalReviews)
	assert.InDelta(t, 11.0/3.0, got.AverageRating, 1e-9)
	assert.Equal(t, map[int]int{1: 0, 2: 1, 3: 0, 4: 1, 5: 1}, got.Distribution)
}

func TestGetStats_ReflectsReviewCommittedDuringEarlierRead(t *testing.T) {
	reviews, deps := newTestReviewService(false)
	repo := deps.repo
	stats := NewStatsService(repo)
	ctx := context.Background()

	repo.On("Create", ctx, mock.Anything).Return(nil)
	deps.publisher.On("PublishReviewCreated", ctx, mock.Anything).Return(nil)

	// The first read takes its snapshot before a create commits.
	repo.On("RatingCounts", ctx, "book-1").Return([]domain.RatingCount{}, nil).Once().
		Run(func(mock.Arguments) {
			_, err := reviews.CreateReview(ctx, CreateReviewInput{UserID: "user-1", BookID: "book-1", Rating: 5})
			require.NoError(t, err)
		})
	repo.On("RatingCounts", ctx, "book-1").Return([]domain.RatingCount{{Rating: 5, Count: 1}}, nil).Once()

	before, err := stats.GetStats(ctx, "book-1")
	require.NoError(t, err)
	assert.Equal(t, 0, before.TotalReviews)

	after, err := stats.GetStats(ctx, "book-1")
	require.NoError(t, err)
	assert.Equal(t, 1, after.TotalReviews)
	assert.Equal(t, 5.0, after.AverageRating)
	repo.AssertExpectations(t)
}

func TestGetStats_EmptyBook(t *testing.T) {
	repo := new(mockReviewRepository)
	svc := NewStatsService(repo)
	ctx := context.Background()

	repo.On("RatingCounts", ctx, "book-1").Return([]domain.RatingCount{}, nil)

	got, err := svc.GetStats(ctx, "book-1")
	require.NoError(t, err)
	assert.Equal(t, 0, got.TotalReviews)
	assert.Zero(t, got.AverageRating)
	assert.Len(t, got.Distribution, 5)
}

func TestGetStats_StorageError(t *testing.T) {
	repo := new(mockReviewRepository)
	svc := NewStatsService(repo)
	ctx := context.Background()

	repo.On("RatingCounts", ctx, "book-1").Return(nil, errors.New("timeout"))

	_, err := svc.GetStats(ctx, "book-1")
	assert.ErrorIs(t, err, apperrors.ErrStorage)

	_, err = svc.GetStats(ctx, " ")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}
