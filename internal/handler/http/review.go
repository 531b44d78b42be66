package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/saxonmc/book-finder/internal/domain"
	"github.com/saxonmc/book-finder/internal/service"
	"github.com/saxonmc/book-finder/pkg/httputil"
	"github.com/saxonmc/book-finder/pkg/middleware"
	"github.com/saxonmc/book-finder/pkg/validator"
)

// ReviewHandler handles HTTP requests for reviews, votes and rating stats.
type ReviewHandler struct {
	reviews *service.ReviewService
	votes   *service.VoteService
	stats   *service.StatsService
	query   *service.QueryService
	logger  *slog.Logger
}

// NewReviewHandler creates a new review HTTP handler.
func NewReviewHandler(svcs Services, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{
		reviews: svcs.Reviews,
		votes:   svcs.Votes,
		stats:   svcs.Stats,
		query:   svcs.Query,
		logger:  logger,
	}
}

// --- Request DTOs ---

// CreateReviewRequest is the JSON request body for creating a review.
type CreateReviewRequest struct {
	Rating int     `json:"rating" validate:"required,gte=1,lte=5"`
	Body   *string `json:"body" validate:"omitempty,max=10000"`
}

// UpdateReviewRequest is the JSON request body for editing a review. Absent
// fields are left unchanged; an empty body clears it.
type UpdateReviewRequest struct {
	Rating *int    `json:"rating" validate:"omitempty,gte=1,lte=5"`
	Body   *string `json:"body" validate:"omitempty,max=10000"`
}

// VoteRequest is the JSON request body for voting on a review.
type VoteRequest struct {
	IsHelpful *bool `json:"is_helpful" validate:"required"`
}

type userReviewResponse struct {
	Data *domain.ReviewView `json:"data"`
}

// --- Handlers ---

// ListReviews handles GET /api/reviews/book/{bookID}?limit=&offset=
func (h *ReviewHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit")
	if !ok {
		return
	}
	offset, ok := queryInt(w, r, "offset")
	if !ok {
		return
	}

	page, err := h.query.ListReviews(r.Context(), chi.URLParam(r, "bookID"),
		middleware.UserIDFromContext(r.Context()), limit, offset)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, page)
}

// GetStats handles GET /api/reviews/book/{bookID}/stats
func (h *ReviewHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.GetStats(r.Context(), chi.URLParam(r, "bookID"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, stats)
}

// GetReview handles GET /api/reviews/{reviewID}
func (h *ReviewHandler) GetReview(w http.ResponseWriter, r *http.Request) {
	reviewID, ok := httputil.ParseUUID(w, chi.URLParam(r, "reviewID"))
	if !ok {
		return
	}

	review, err := h.reviews.GetReview(r.Context(), reviewID.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, review)
}

// GetUserReview handles GET /api/reviews/book/{bookID}/user
func (h *ReviewHandler) GetUserReview(w http.ResponseWriter, r *http.Request) {
	review, err := h.reviews.GetUserReview(r.Context(), chi.URLParam(r, "bookID"),
		middleware.UserIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	// A book the user has not reviewed yields {"data": null}.
	httputil.WriteJSON(w, http.StatusOK, userReviewResponse{Data: review})
}

// CreateReview handles POST /api/reviews/book/{bookID}
func (h *ReviewHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	var req CreateReviewRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	review, err := h.reviews.CreateReview(r.Context(), service.CreateReviewInput{
		UserID: middleware.UserIDFromContext(r.Context()),
		BookID: chi.URLParam(r, "bookID"),
		Rating: req.Rating,
		Body:   req.Body,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeData(w, http.StatusCreated, review)
}

// UpdateReview handles PUT /api/reviews/{reviewID}
func (h *ReviewHandler) UpdateReview(w http.ResponseWriter, r *http.Request) {
	reviewID, ok := httputil.ParseUUID(w, chi.URLParam(r, "reviewID"))
	if !ok {
		return
	}

	var req UpdateReviewRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	review, err := h.reviews.UpdateReview(r.Context(), reviewID.String(),
		middleware.UserIDFromContext(r.Context()),
		domain.ReviewPatch{Rating: req.Rating, Body: req.Body})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, review)
}

// DeleteReview handles DELETE /api/reviews/{reviewID}
func (h *ReviewHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	reviewID, ok := httputil.ParseUUID(w, chi.URLParam(r, "reviewID"))
	if !ok {
		return
	}

	if err := h.reviews.DeleteReview(r.Context(), reviewID.String(), middleware.UserIDFromContext(r.Context())); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeMessage(w, "review deleted")
}

// Vote handles POST /api/reviews/{reviewID}/vote
func (h *ReviewHandler) Vote(w http.ResponseWriter, r *http.Request) {
	reviewID, ok := httputil.ParseUUID(w, chi.URLParam(r, "reviewID"))
	if !ok {
		return
	}

	var req VoteRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	result, err := h.votes.Vote(r.Context(), reviewID.String(), middleware.UserIDFromContext(r.Context()), *req.IsHelpful)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, result)
}

// RemoveVote handles DELETE /api/reviews/{reviewID}/vote
func (h *ReviewHandler) RemoveVote(w http.ResponseWriter, r *http.Request) {
	reviewID, ok := httputil.ParseUUID(w, chi.URLParam(r, "reviewID"))
	if !ok {
		return
	}

	result, err := h.votes.RemoveVote(r.Context(), reviewID.String(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, result)
}
