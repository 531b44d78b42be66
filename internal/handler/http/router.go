package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/saxonmc/book-finder/internal/realtime"
	"github.com/saxonmc/book-finder/internal/service"
	"github.com/saxonmc/book-finder/pkg/health"
	"github.com/saxonmc/book-finder/pkg/middleware"
)

// ServiceName labels metrics and spans emitted by the HTTP layer.
const ServiceName = "book-finder"

// Services groups the business services the handlers call.
type Services struct {
	Reviews     *service.ReviewService
	Votes       *service.VoteService
	Stats       *service.StatsService
	Query       *service.QueryService
	Users       *service.UserService
	Library     *service.LibraryService
	Memberships *service.MembershipService
	Catalog     *service.CatalogService
}

// RouterConfig holds everything NewRouter wires together. Metrics,
// MetricsHandler, RateLimiter and Hub are optional.
type RouterConfig struct {
	Services       Services
	Tokens         middleware.TokenValidator
	Health         *health.Handler
	Hub            *realtime.Hub
	Metrics        *middleware.HTTPMetrics
	MetricsHandler http.Handler
	RateLimiter    *middleware.RateLimiter
	CORS           middleware.CORSConfig
	CatalogMaxAge  time.Duration
	PprofEnabled   bool
	PprofCIDRs     []string
	Logger         *slog.Logger
}

// NewRouter creates a chi router with all routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	r := chi.NewRouter()
	r.Use(middleware.Recovery(logger))

	// Probes, scraping and websocket upgrades skip the API middleware stack.
	r.Get("/health/live", cfg.Health.LivenessHandler())
	r.Get("/health/ready", cfg.Health.ReadinessHandler())
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}
	if cfg.PprofEnabled {
		middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)
	}
	if cfg.Hub != nil {
		feed := NewFeedHandler(cfg.Hub)
		r.Get("/ws/books/{bookID}/reviews", feed.Subscribe)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequestLogging(logger))
		r.Use(middleware.Tracing(ServiceName))
		r.Use(middleware.RequestLogger(logger))
		if cfg.Metrics != nil {
			r.Use(cfg.Metrics.Middleware)
		}
		r.Use(middleware.CORS(cfg.CORS))
		if cfg.RateLimiter != nil {
			r.Use(cfg.RateLimiter.Middleware)
		}
		r.Use(middleware.ContentTypeJSON)

		requireAuth := middleware.Auth(cfg.Tokens)
		optionalAuth := middleware.OptionalAuth(cfg.Tokens)

		authHandler := NewAuthHandler(cfg.Services.Users, logger)
		r.Route("/api/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.With(requireAuth).Get("/profile", authHandler.Profile)
			r.With(requireAuth).Post("/logout", authHandler.Logout)
		})

		bookHandler := NewBookHandler(cfg.Services.Catalog, logger)
		r.Route("/api/books", func(r chi.Router) {
			r.Use(middleware.CacheControl(cfg.CatalogMaxAge))

			r.Get("/search", bookHandler.Search)
			r.Get("/top-selling", bookHandler.TopSelling)
			r.Get("/recommendations", bookHandler.Recommendations)
			r.Get("/{bookID}", bookHandler.GetBook)
		})

		reviewHandler := NewReviewHandler(cfg.Services, logger)
		r.Route("/api/reviews", func(r chi.Router) {
			r.With(optionalAuth).Get("/book/{bookID}", reviewHandler.ListReviews)
			r.Get("/book/{bookID}/stats", reviewHandler.GetStats)
			r.Get("/{reviewID}", reviewHandler.GetReview)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)

				r.Get("/book/{bookID}/user", reviewHandler.GetUserReview)
				r.Post("/book/{bookID}", reviewHandler.CreateReview)
				r.Put("/{reviewID}", reviewHandler.UpdateReview)
				r.Delete("/{reviewID}", reviewHandler.DeleteReview)
				r.Post("/{reviewID}/vote", reviewHandler.Vote)
				r.Delete("/{reviewID}/vote", reviewHandler.RemoveVote)
			})
		})

		libraryHandler := NewLibraryHandler(cfg.Services.Library, logger)
		r.Route("/api/user/library", func(r chi.Router) {
			r.Use(requireAuth)

			r.Get("/", libraryHandler.List)
			r.Post("/add", libraryHandler.Add)
			r.Get("/status/{bookID}", libraryHandler.Status)
			r.Put("/update/{bookID}", libraryHandler.Update)
			r.Delete("/remove/{bookID}", libraryHandler.Remove)
		})

		membershipHandler := NewMembershipHandler(cfg.Services.Memberships, logger)
		r.Route("/api/user/memberships", func(r chi.Router) {
			r.Use(requireAuth)

			r.Get("/", membershipHandler.List)
			r.Post("/", membershipHandler.Create)
			r.Get("/{id}", membershipHandler.Get)
			r.Put("/{id}", membershipHandler.Update)
			r.Delete("/{id}", membershipHandler.Delete)
		})
	})

	return r
}
