package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/saxonmc/book-finder/internal/domain"
	"github.com/saxonmc/book-finder/internal/service"
	"github.com/saxonmc/book-finder/pkg/httputil"
	"github.com/saxonmc/book-finder/pkg/middleware"
	"github.com/saxonmc/book-finder/pkg/validator"
)

// MembershipHandler handles HTTP requests for reading service memberships.
type MembershipHandler struct {
	memberships *service.MembershipService
	logger      *slog.Logger
}

// NewMembershipHandler creates a new membership HTTP handler.
func NewMembershipHandler(memberships *service.MembershipService, logger *slog.Logger) *MembershipHandler {
	return &MembershipHandler{memberships: memberships, logger: logger}
}

// CreateMembershipRequest is the JSON request body for recording a membership.
type CreateMembershipRequest struct {
	Service        string     `json:"service" validate:"required,notblank,max=100"`
	MembershipType string     `json:"membership_type" validate:"required,notblank,max=50"`
	Price          *float64   `json:"price" validate:"omitempty,gte=0"`
	Status         string     `json:"status" validate:"omitempty,oneof=active cancelled expired"`
	StartDate      *time.Time `json:"start_date"`
	EndDate        *time.Time `json:"end_date"`
	Notes          *string    `json:"notes" validate:"omitempty,max=5000"`
}

// UpdateMembershipRequest is the JSON request body for editing a membership.
type UpdateMembershipRequest struct {
	Service        *string    `json:"service" validate:"omitempty,notblank,max=100"`
	MembershipType *string    `json:"membership_type" validate:"omitempty,notblank,max=50"`
	Price          *float64   `json:"price" validate:"omitempty,gte=0"`
	Status         *string    `json:"status" validate:"omitempty,oneof=active cancelled expired"`
	StartDate      *time.Time `json:"start_date"`
	EndDate        *time.Time `json:"end_date"`
	Notes          *string    `json:"notes" validate:"omitempty,max=5000"`
}

// List handles GET /api/user/memberships
func (h *MembershipHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.memberships.ListMemberships(r.Context(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, list)
}

// Create handles POST /api/user/memberships
func (h *MembershipHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateMembershipRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	m, err := h.memberships.AddMembership(r.Context(), service.AddMembershipInput{
		UserID:         middleware.UserIDFromContext(r.Context()),
		Service:        req.Service,
		MembershipType: req.MembershipType,
		Price:          req.Price,
		Status:         req.Status,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		Notes:          req.Notes,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeData(w, http.StatusCreated, m)
}

// Get handles GET /api/user/memberships/{id}
func (h *MembershipHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	m, err := h.memberships.GetMembership(r.Context(), id.String(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, m)
}

// Update handles PUT /api/user/memberships/{id}
func (h *MembershipHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req UpdateMembershipRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	m, err := h.memberships.UpdateMembership(r.Context(), id.String(), middleware.UserIDFromContext(r.Context()),
		domain.MembershipPatch{
			Service:        req.Service,
			MembershipType: req.MembershipType,
			Price:          req.Price,
			Status:         req.Status,
			StartDate:      req.StartDate,
			EndDate:        req.EndDate,
			Notes:          req.Notes,
		})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, m)
}

// Delete handles DELETE /api/user/memberships/{id}
func (h *MembershipHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.memberships.RemoveMembership(r.Context(), id.String(), middleware.UserIDFromContext(r.Context())); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeMessage(w, "membership removed")
}
