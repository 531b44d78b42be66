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

// LibraryHandler handles HTTP requests for the user's reading list.
type LibraryHandler struct {
	library *service.LibraryService
	logger  *slog.Logger
}

// NewLibraryHandler creates a new library HTTP handler.
func NewLibraryHandler(library *service.LibraryService, logger *slog.Logger) *LibraryHandler {
	return &LibraryHandler{library: library, logger: logger}
}

// AddBookRequest is the JSON request body for adding a book.
type AddBookRequest struct {
	BookID     string  `json:"book_id" validate:"required,notblank,max=64"`
	Title      string  `json:"title" validate:"required,notblank,max=500"`
	Author     string  `json:"author" validate:"max=500"`
	CoverImage string  `json:"cover_image" validate:"omitempty,url,max=2048"`
	ISBN       string  `json:"isbn" validate:"max=20"`
	Status     string  `json:"status" validate:"omitempty,oneof=want_to_read reading completed"`
	Rating     *int    `json:"rating" validate:"omitempty,gte=1,lte=5"`
	Notes      *string `json:"notes" validate:"omitempty,max=5000"`
}

// UpdateBookRequest is the JSON request body for updating a library entry.
type UpdateBookRequest struct {
	Status *string `json:"status" validate:"omitempty,oneof=want_to_read reading completed"`
	Rating *int    `json:"rating" validate:"omitempty,gte=1,lte=5"`
	Notes  *string `json:"notes" validate:"omitempty,max=5000"`
}

// List handles GET /api/user/library?status=
func (h *LibraryHandler) List(w http.ResponseWriter, r *http.Request) {
	books, err := h.library.ListLibrary(r.Context(), middleware.UserIDFromContext(r.Context()), r.URL.Query().Get("status"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, books)
}

// Add handles POST /api/user/library/add
func (h *LibraryHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req AddBookRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	book, err := h.library.AddBook(r.Context(), service.AddBookInput{
		UserID:     middleware.UserIDFromContext(r.Context()),
		BookID:     req.BookID,
		Title:      req.Title,
		Author:     req.Author,
		CoverImage: req.CoverImage,
		ISBN:       req.ISBN,
		Status:     req.Status,
		Rating:     req.Rating,
		Notes:      req.Notes,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeData(w, http.StatusCreated, book)
}

// Status handles GET /api/user/library/status/{bookID}
func (h *LibraryHandler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.library.GetBookStatus(r.Context(), middleware.UserIDFromContext(r.Context()), chi.URLParam(r, "bookID"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, status)
}

// Update handles PUT /api/user/library/update/{bookID}
func (h *LibraryHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateBookRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	book, err := h.library.UpdateBook(r.Context(), middleware.UserIDFromContext(r.Context()), chi.URLParam(r, "bookID"),
		domain.LibraryPatch{Status: req.Status, Rating: req.Rating, Notes: req.Notes})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, book)
}

// Remove handles DELETE /api/user/library/remove/{bookID}
func (h *LibraryHandler) Remove(w http.ResponseWriter, r *http.Request) {
	if err := h.library.RemoveBook(r.Context(), middleware.UserIDFromContext(r.Context()), chi.URLParam(r, "bookID")); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeMessage(w, "book removed from library")
}
