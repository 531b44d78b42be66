package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/saxonmc/book-finder/internal/realtime"
)

// FeedHandler upgrades live review feed subscriptions.
type FeedHandler struct {
	hub *realtime.Hub
}

// NewFeedHandler creates a new feed handler.
func NewFeedHandler(hub *realtime.Hub) *FeedHandler {
	return &FeedHandler{hub: hub}
}

// Subscribe handles GET /ws/books/{bookID}/reviews
func (h *FeedHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	h.hub.ServeBook(w, r, chi.URLParam(r, "bookID"))
}
