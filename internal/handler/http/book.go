package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/saxonmc/book-finder/internal/domain"
	"github.com/saxonmc/book-finder/internal/service"
	"github.com/saxonmc/book-finder/pkg/httputil"
)

// BookHandler serves catalog lookups.
type BookHandler struct {
	catalog *service.CatalogService
	logger  *slog.Logger
}

// NewBookHandler creates a new book HTTP handler.
func NewBookHandler(catalog *service.CatalogService, logger *slog.Logger) *BookHandler {
	return &BookHandler{catalog: catalog, logger: logger}
}

// Search handles GET /api/books/search?q=&max_results=&order_by=&genre=&year_from=&year_to=
// &page_count_min=&page_count_max=&language=&min_rating=&print_type=
func (h *BookHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := domain.SearchFilters{
		OrderBy:   q.Get("order_by"),
		Genre:     q.Get("genre"),
		Language:  q.Get("language"),
		PrintType: q.Get("print_type"),
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"max_results", &filters.MaxResults},
		{"year_from", &filters.YearFrom},
		{"year_to", &filters.YearTo},
		{"page_count_min", &filters.PageCountMin},
		{"page_count_max", &filters.PageCountMax},
	}
	for _, p := range ints {
		n, ok := queryInt(w, r, p.name)
		if !ok {
			return
		}
		*p.dst = n
	}
	minRating, ok := queryFloat(w, r, "min_rating")
	if !ok {
		return
	}
	filters.MinRating = minRating

	books, err := h.catalog.Search(r.Context(), q.Get("q"), filters)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, books)
}

// TopSelling handles GET /api/books/top-selling?limit=
func (h *BookHandler) TopSelling(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit")
	if !ok {
		return
	}
	books, err := h.catalog.TopSelling(r.Context(), limit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, books)
}

// Recommendations handles GET /api/books/recommendations?limit=
func (h *BookHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit")
	if !ok {
		return
	}
	books, err := h.catalog.Recommendations(r.Context(), limit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, books)
}

// GetBook handles GET /api/books/{bookID}
func (h *BookHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	book, err := h.catalog.GetBook(r.Context(), chi.URLParam(r, "bookID"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, book)
}
