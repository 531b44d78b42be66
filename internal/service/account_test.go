package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/saxonmc/book-finder/internal/auth"
	"github.com/saxonmc/book-finder/internal/domain"
	apperrors "github.com/saxonmc/book-finder/pkg/errors"
)

// --- Users ---

func newTestUserService(repo *mockUserRepository) (*UserService, *auth.JWTManager, *auth.PasswordHasher) {
	hasher := auth.NewPasswordHasher(bcrypt.MinCost)
	tokens := auth.NewJWTManager("test-secret", time.Hour)
	return NewUserService(repo, hasher, tokens, newTestLogger()), tokens, hasher
}

func TestRegister_Success(t *testing.T) {
	repo := new(mockUserRepository)
	svc, tokens, hasher := newTestUserService(repo)
	ctx := context.Background()

	repo.On("Create", ctx, mock.AnythingOfType("*domain.User")).Return(nil)

	result, err := svc.Register(ctx, "  Ada@Example.com ", "secret123", " Ada ")
	require.NoError(t, err)

	assert.Equal(t, "ada@example.com", result.User.Email)
	assert.Equal(t, "Ada", result.User.Name)
	assert.True(t, hasher.Compare(result.User.PasswordHash, "secret123"))

	claims, err := tokens.Validate(result.Token)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, claims.UserID)
	assert.Equal(t, "ada@example.com", claims.Email)
}

func TestRegister_ValidationErrors(t *testing.T) {
	tests := []struct {
		name, email, password, userName string
	}{
		{"missing email", "", "secret123", "Ada"},
		{"short password", "ada@example.com", "12345", "Ada"},
		{"missing name", "ada@example.com", "secret123", "  "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mockUserRepository)
			svc, _, _ := newTestUserService(repo)
			_, err := svc.Register(context.Background(), tt.email, tt.password, tt.userName)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
			repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	repo := new(mockUserRepository)
	svc, _, _ := newTestUserService(repo)
	ctx := context.Background()

	repo.On("Create", ctx, mock.Anything).Return(apperrors.AlreadyExists("user", "email", "ada@example.com"))

	_, err := svc.Register(ctx, "ada@example.com", "secret123", "Ada")
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
}

func TestLogin(t *testing.T) {
	repo := new(mockUserRepository)
	svc, _, hasher := newTestUserService(repo)
	ctx := context.Background()

	hash, err := hasher.Hash("secret123")
	require.NoError(t, err)
	user := &domain.User{ID: "user-1", Email: "ada@example.com", Name: "Ada", PasswordHash: hash}

	repo.On("GetByEmail", ctx, "ada@example.com").Return(user, nil)
	repo.On("GetByEmail", ctx, "ghost@example.com").Return(nil, apperrors.ErrNotFound)
	repo.On("GetByEmail", ctx, "broken@example.com").Return(nil, errors.New("connection refused"))

	result, err := svc.Login(ctx, "ADA@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "user-1", result.User.ID)
	assert.NotEmpty(t, result.Token)

	_, err = svc.Login(ctx, "ada@example.com", "wrong")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	_, err = svc.Login(ctx, "ghost@example.com", "secret123")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	_, err = svc.Login(ctx, "broken@example.com", "secret123")
	assert.ErrorIs(t, err, apperrors.ErrStorage)
}

func TestProfile(t *testing.T) {
	repo := new(mockUserRepository)
	svc, _, _ := newTestUserService(repo)
	ctx := context.Background()

	user := &domain.User{ID: "user-1", Email: "ada@example.com", Name: "Ada"}
	repo.On("GetByID", ctx, "user-1").Return(user, nil)

	got, err := svc.Profile(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, user, got)
}

// --- Library ---

func TestAddBook_DefaultsStatus(t *testing.T) {
	repo := new(mockLibraryRepository)
	svc := NewLibraryService(repo, newTestLogger())
	ctx := context.Background()

	repo.On("Add", ctx, mock.AnythingOfType("*domain.UserBook")).Return(nil)

	book, err := svc.AddBook(ctx, AddBookInput{UserID: "user-1", BookID: "book-1", Title: "Dune", Author: "Frank Herbert"})
	require.NoError(t, err)
	assert.Equal(t, domain.LibraryStatusWantToRead, book.Status)
	assert.NotEmpty(t, book.ID)
}

func TestAddBook_Validation(t *testing.T) {
	tests := []struct {
		name  string
		input AddBookInput
	}{
		{"missing book", AddBookInput{UserID: "u", Title: "Dune"}},
		{"missing title", AddBookInput{UserID: "u", BookID: "b"}},
		{"bad status", AddBookInput{UserID: "u", BookID: "b", Title: "Dune", Status: "abandoned"}},
		{"bad rating", AddBookInput{UserID: "u", BookID: "b", Title: "Dune", Rating: intPtr(7)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mockLibraryRepository)
			svc := NewLibraryService(repo, newTestLogger())
			_, err := svc.AddBook(context.Background(), tt.input)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
			repo.AssertNotCalled(t, "Add", mock.Anything, mock.Anything)
		})
	}
}

func TestAddBook_Duplicate(t *testing.T) {
	repo := new(mockLibraryRepository)
	svc := NewLibraryService(repo, newTestLogger())
	ctx := context.Background()

	repo.On("Add", ctx, mock.Anything).Return(apperrors.AlreadyExists("library book", "book_id", "book-1"))

	_, err := svc.AddBook(ctx, AddBookInput{UserID: "user-1", BookID: "book-1", Title: "Dune"})
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
}

func TestListLibrary(t *testing.T) {
	repo := new(mockLibraryRepository)
	svc := NewLibraryService(repo, newTestLogger())
	ctx := context.Background()

	repo.On("List", ctx, "user-1", domain.LibraryStatusReading).Return(nil, nil)

	books, err := svc.ListLibrary(ctx, "user-1", domain.LibraryStatusReading)
	require.NoError(t, err)
	assert.NotNil(t, books)
	assert.Empty(t, books)

	_, err = svc.ListLibrary(ctx, "user-1", "shelved")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestGetBookStatus(t *testing.T) {
	repo := new(mockLibraryRepository)
	svc := NewLibraryService(repo, newTestLogger())
	ctx := context.Background()

	repo.On("Get", ctx, "user-1", "book-1").Return(&domain.UserBook{BookID: "book-1", Status: domain.LibraryStatusCompleted}, nil)
	repo.On("Get", ctx, "user-1", "book-2").Return(nil, apperrors.NotFound("library book", "book-2"))

	status, err := svc.GetBookStatus(ctx, "user-1", "book-1")
	require.NoError(t, err)
	assert.True(t, status.InLibrary)
	require.NotNil(t, status.Status)
	assert.Equal(t, domain.LibraryStatusCompleted, *status.Status)

	status, err = svc.GetBookStatus(ctx, "user-1", "book-2")
	require.NoError(t, err)
	assert.False(t, status.InLibrary)
	assert.Nil(t, status.Status)
}

func TestUpdateBook(t *testing.T) {
	repo := new(mockLibraryRepository)
	svc := NewLibraryService(repo, newTestLogger())
	ctx := context.Background()

	patch := domain.LibraryPatch{Status: strPtr(domain.LibraryStatusReading)}
	repo.On("Update", ctx, "user-1", "book-1", patch).Return(&domain.UserBook{Status: domain.LibraryStatusReading}, nil)

	book, err := svc.UpdateBook(ctx, "user-1", "book-1", patch)
	require.NoError(t, err)
	assert.Equal(t, domain.LibraryStatusReading, book.Status)

	_, err = svc.UpdateBook(ctx, "user-1", "book-1", domain.LibraryPatch{})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestRemoveBook_NotFound(t *testing.T) {
	repo := new(mockLibraryRepository)
	svc := NewLibraryService(repo, newTestLogger())
	ctx := context.Background()

	repo.On("Remove", ctx, "user-1", "book-1").Return(apperrors.NotFound("library book", "book-1"))

	assert.ErrorIs(t, svc.RemoveBook(ctx, "user-1", "book-1"), apperrors.ErrNotFound)
}

// --- Memberships ---

func TestAddMembership_Defaults(t *testing.T) {
	repo := new(mockMembershipRepository)
	svc := NewMembershipService(repo, newTestLogger())
	ctx := context.Background()

	repo.On("Create", ctx, mock.AnythingOfType("*domain.Membership")).Return(nil)

	m, err := svc.AddMembership(ctx, AddMembershipInput{UserID: "user-1", Service: "Audible", MembershipType: "premium"})
	require.NoError(t, err)
	assert.Equal(t, domain.MembershipStatusActive, m.Status)
	require.NotNil(t, m.StartDate)
	assert.WithinDuration(t, time.Now(), *m.StartDate, time.Minute)
}

func TestAddMembership_Validation(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	before := start.AddDate(0, -1, 0)
	negative := -1.0

	tests := []struct {
		name  string
		input AddMembershipInput
	}{
		{"missing service", AddMembershipInput{MembershipType: "basic"}},
		{"missing type", AddMembershipInput{Service: "Kindle Unlimited"}},
		{"negative price", AddMembershipInput{Service: "Audible", MembershipType: "basic", Price: &negative}},
		{"bad status", AddMembershipInput{Service: "Audible", MembershipType: "basic", Status: "paused"}},
		{"end before start", AddMembershipInput{Service: "Audible", MembershipType: "basic", StartDate: &start, EndDate: &before}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mockMembershipRepository)
			svc := NewMembershipService(repo, newTestLogger())
			_, err := svc.AddMembership(context.Background(), tt.input)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
			repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestUpdateMembership(t *testing.T) {
	repo := new(mockMembershipRepository)
	svc := NewMembershipService(repo, newTestLogger())
	ctx := context.Background()

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	existing := &domain.Membership{ID: "m-1", UserID: "user-1", Service: "Audible", MembershipType: "basic", Status: domain.MembershipStatusActive, StartDate: &start}

	repo.On("GetByID", ctx, "m-1", "user-1").Return(existing, nil)
	repo.On("Update", ctx, mock.MatchedBy(func(m *domain.Membership) bool {
		return m.ID == "m-1" && m.Status == domain.MembershipStatusCancelled
	})).Return(nil)

	m, err := svc.UpdateMembership(ctx, "m-1", "user-1", domain.MembershipPatch{Status: strPtr(domain.MembershipStatusCancelled)})
	require.NoError(t, err)
	assert.Equal(t, domain.MembershipStatusCancelled, m.Status)
	repo.AssertExpectations(t)
}

func TestUpdateMembership_RejectsEndBeforeStart(t *testing.T) {
	repo := new(mockMembershipRepository)
	svc := NewMembershipService(repo, newTestLogger())
	ctx := context.Background()

	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, -1)
	repo.On("GetByID", ctx, "m-1", "user-1").Return(&domain.Membership{
		ID: "m-1", UserID: "user-1", Service: "Audible", MembershipType: "basic",
		Status: domain.MembershipStatusActive, StartDate: &start,
	}, nil)

	_, err := svc.UpdateMembership(ctx, "m-1", "user-1", domain.MembershipPatch{EndDate: &end})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestMembership_NotOwnerIsNotFound(t *testing.T) {
	repo := new(mockMembershipRepository)
	svc := NewMembershipService(repo, newTestLogger())
	ctx := context.Background()

	repo.On("GetByID", ctx, "m-1", "user-2").Return(nil, apperrors.NotFound("membership", "m-1"))
	repo.On("Delete", ctx, "m-1", "user-2").Return(apperrors.NotFound("membership", "m-1"))

	_, err := svc.GetMembership(ctx, "m-1", "user-2")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.ErrorIs(t, svc.RemoveMembership(ctx, "m-1", "user-2"), apperrors.ErrNotFound)
}

func TestListMemberships_NeverNil(t *testing.T) {
	repo := new(mockMembershipRepository)
	svc := NewMembershipService(repo, newTestLogger())
	ctx := context.Background()

	repo.On("ListByUser", ctx, "user-1").Return(nil, nil)

	list, err := svc.ListMemberships(ctx, "user-1")
	require.NoError(t, err)
	assert.NotNil(t, list)
}
