package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/saxonmc/book-finder/internal/domain"
	"github.com/saxonmc/book-finder/internal/repository"
	apperrors "github.com/saxonmc/book-finder/pkg/errors"
)

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 6

// TokenIssuer signs access tokens.
type TokenIssuer interface {
	Generate(userID, email string) (string, error)
}

// PasswordHasher hashes and checks passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) bool
}

// UserService handles registration, login and profiles.
type UserService struct {
	repo   repository.UserRepository
	hasher PasswordHasher
	tokens TokenIssuer
	logger *slog.Logger
}

// NewUserService creates a user service.
func NewUserService(repo repository.UserRepository, hasher PasswordHasher, tokens TokenIssuer, logger *slog.Logger) *UserService {
	return &UserService{repo: repo, hasher: hasher, tokens: tokens, logger: logger}
}

// AuthResult is returned by register and login.
type AuthResult struct {
	User  *domain.User `json:"user"`
	Token string       `json:"token"`
}

// Register creates an account and signs the user in.
func (s *UserService) Register(ctx context.Context, email, password, name string) (*AuthResult, error) {
	email = normalizeEmail(email)
	name = strings.TrimSpace(name)
	if email == "" {
		return nil, apperrors.InvalidInput("email is required")
	}
	if name == "" {
		return nil, apperrors.InvalidInput("name is required")
	}
	if len(password) < MinPasswordLength {
		return nil, apperrors.InvalidInput("password must be at least 6 characters")
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, wrapErr("create user", err)
	}

	s.logger.InfoContext(ctx, "user registered", slog.String("user_id", user.ID))
	return s.signIn(user)
}

// Login checks credentials. Unknown emails and wrong passwords get the same
// error.
func (s *UserService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, invalidCredentials()
		}
		return nil, wrapErr("get user by email", err)
	}
	if !s.hasher.Compare(user.PasswordHash, password) {
		return nil, invalidCredentials()
	}

	s.logger.InfoContext(ctx, "user logged in", slog.String("user_id", user.ID))
	return s.signIn(user)
}

// Profile returns the account of userID.
func (s *UserService) Profile(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, wrapErr("get user", err)
	}
	return user, nil
}

func (s *UserService) signIn(user *domain.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID, user.Email)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func invalidCredentials() error {
	return apperrors.Unauthorized("invalid email or password")
}
