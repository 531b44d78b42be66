package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/saxonmc/book-finder/internal/domain"
	"github.com/saxonmc/book-finder/internal/repository"
	apperrors "github.com/saxonmc/book-finder/pkg/errors"
)

// MembershipService manages the reading service memberships a user tracks.
type MembershipService struct {
	repo   repository.MembershipRepository
	logger *slog.Logger
}

// NewMembershipService creates a membership service.
func NewMembershipService(repo repository.MembershipRepository, logger *slog.Logger) *MembershipService {
	return &MembershipService{repo: repo, logger: logger}
}

// AddMembershipInput holds the parameters for recording a membership.
type AddMembershipInput struct {
	UserID         string
	Service        string
	MembershipType string
	Price          *float64
	Status         string
	StartDate      *time.Time
	EndDate        *time.Time
	Notes          *string
}

// AddMembership records a membership. Status defaults to active and the
// start date to now.
func (s *MembershipService) AddMembership(ctx context.Context, input AddMembershipInput) (*domain.Membership, error) {
	now := time.Now().UTC()
	m := &domain.Membership{
		ID:             uuid.New().String(),
		UserID:         input.UserID,
		Service:        strings.TrimSpace(input.Service),
		MembershipType: strings.TrimSpace(input.MembershipType),
		Price:          input.Price,
		Status:         input.Status,
		StartDate:      input.StartDate,
		EndDate:        input.EndDate,
		Notes:          domain.NormalizeBody(input.Notes),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if m.Status == "" {
		m.Status = domain.MembershipStatusActive
	}
	if m.StartDate == nil {
		m.StartDate = &now
	}
	if err := validateMembership(m); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, m); err != nil {
		return nil, wrapErr("create membership", err)
	}

	s.logger.InfoContext(ctx, "membership added",
		slog.String("membership_id", m.ID),
		slog.String("user_id", m.UserID),
		slog.String("service", m.Service),
	)
	return m, nil
}

// ListMemberships returns the user's memberships, newest first.
func (s *MembershipService) ListMemberships(ctx context.Context, userID string) ([]domain.Membership, error) {
	list, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, wrapErr("list memberships", err)
	}
	if list == nil {
		list = []domain.Membership{}
	}
	return list, nil
}

// GetMembership returns one of the user's memberships.
func (s *MembershipService) GetMembership(ctx context.Context, id, userID string) (*domain.Membership, error) {
	m, err := s.repo.GetByID(ctx, id, userID)
	if err != nil {
		return nil, wrapErr("get membership", err)
	}
	return m, nil
}

// UpdateMembership applies patch to one of the user's memberships.
func (s *MembershipService) UpdateMembership(ctx context.Context, id, userID string, patch domain.MembershipPatch) (*domain.Membership, error) {
	m, err := s.repo.GetByID(ctx, id, userID)
	if err != nil {
		return nil, wrapErr("get membership", err)
	}

	patch.Apply(m)
	m.Service = strings.TrimSpace(m.Service)
	m.MembershipType = strings.TrimSpace(m.MembershipType)
	if err := validateMembership(m); err != nil {
		return nil, err
	}
	m.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, m); err != nil {
		return nil, wrapErr("update membership", err)
	}

	s.logger.InfoContext(ctx, "membership updated",
		slog.String("membership_id", id),
		slog.String("user_id", userID),
	)
	return m, nil
}

// RemoveMembership deletes one of the user's memberships.
func (s *MembershipService) RemoveMembership(ctx context.Context, id, userID string) error {
	if err := s.repo.Delete(ctx, id, userID); err != nil {
		return wrapErr("delete membership", err)
	}

	s.logger.InfoContext(ctx, "membership removed",
		slog.String("membership_id", id),
		slog.String("user_id", userID),
	)
	return nil
}

func validateMembership(m *domain.Membership) error {
	if m.Service == "" {
		return apperrors.InvalidInput("service is required")
	}
	if m.MembershipType == "" {
		return apperrors.InvalidInput("membership type is required")
	}
	if m.Price != nil && *m.Price < 0 {
		return apperrors.InvalidInput("price must not be negative")
	}
	if !domain.IsValidMembershipStatus(m.Status) {
		return statusError("status", domain.ValidMembershipStatuses())
	}
	if !m.ValidDates() {
		return apperrors.InvalidInput("end date must not be before start date")
	}
	return nil
}
