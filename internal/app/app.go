package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"

	"github.com/saxonmc/book-finder/internal/auth"
	"github.com/saxonmc/book-finder/internal/catalog"
	"github.com/saxonmc/book-finder/internal/config"
	"github.com/saxonmc/book-finder/internal/event"
	handler "github.com/saxonmc/book-finder/internal/handler/http"
	"github.com/saxonmc/book-finder/internal/realtime"
	"github.com/saxonmc/book-finder/internal/render"
	"github.com/saxonmc/book-finder/internal/repository/postgres"
	"github.com/saxonmc/book-finder/internal/repository/redis"
	"github.com/saxonmc/book-finder/internal/service"
	"github.com/saxonmc/book-finder/migrations"
	"github.com/saxonmc/book-finder/pkg/database"
	"github.com/saxonmc/book-finder/pkg/health"
	pkgkafka "github.com/saxonmc/book-finder/pkg/kafka"
	"github.com/saxonmc/book-finder/pkg/middleware"
	"github.com/saxonmc/book-finder/pkg/tracing"
)

// Version is reported to the tracing backend.
const Version = "0.1.0"

// App wires together all dependencies and runs the book-finder server.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *goredis.Client
	producer       *pkgkafka.Producer
	feed           *pkgkafka.Consumer
	hub            *realtime.Hub
	limiter        *middleware.RateLimiter
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    handler.ServiceName,
		ServiceVersion: Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	a := &App{cfg: cfg, logger: logger, tracerShutdown: tracerShutdown}
	if err := a.init(ctx); err != nil {
		_ = a.Shutdown()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg, logger := a.cfg, a.logger

	// PostgreSQL.
	pgCfg := cfg.Postgres()
	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	a.pool = pool
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)

	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	if cfg.SlowQueryThresholdMs > 0 {
		database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)
	}

	reg := prometheus.DefaultRegisterer
	if err := database.RegisterPoolMetrics(reg, pool, handler.ServiceName); err != nil {
		return fmt.Errorf("register pool metrics: %w", err)
	}
	httpMetrics, err := middleware.NewHTTPMetrics(reg, handler.ServiceName)
	if err != nil {
		return fmt.Errorf("register http metrics: %w", err)
	}

	// Redis.
	redisClient, err := database.NewRedisClient(ctx, cfg.Redis())
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	a.redis = redisClient
	logger.Info("connected to Redis", slog.String("addr", cfg.Redis().Addr()))

	bookCache := redis.NewBookCache(redisClient, cfg.CatalogCacheTTL)

	// Google Books.
	books, err := catalog.NewClient(ctx, catalog.Config{
		APIKey:   cfg.GoogleBooksAPIKey,
		Endpoint: cfg.GoogleBooksEndpoint,
		Timeout:  cfg.CatalogTimeout,
	}, logger)
	if err != nil {
		return fmt.Errorf("create catalog client: %w", err)
	}

	a.hub = realtime.NewHub(cfg.CORSAllowedOrigins, logger)

	// Kafka.
	var publisher event.Publisher = event.NoopPublisher{}
	if cfg.KafkaEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		if err := pingKafkaWithRetry(ctx, a.producer, logger); err != nil {
			logger.Warn("kafka producer ping failed after retries, continuing in degraded mode",
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
		}
		publisher = event.NewProducer(a.producer, logger)

		group := feedGroupID()
		store := redis.NewIdempotencyStore(redisClient, group, redis.DefaultIdempotencyTTL)
		a.feed = event.NewFeedConsumer(cfg.KafkaBrokers, group, a.hub, store, logger)
	} else {
		logger.Warn("kafka disabled, review events are not published")
	}

	// Build the dependency graph.
	reviewRepo := postgres.NewReviewRepository(pool)
	tokens := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiry)

	services := handler.Services{
		Reviews:     service.NewReviewService(reviewRepo, publisher, cfg.ReviewOnePerBook, logger),
		Votes:       service.NewVoteService(postgres.NewVoteRepository(pool), publisher, logger),
		Stats:       service.NewStatsService(reviewRepo),
		Query:       service.NewQueryService(reviewRepo, render.NewMarkdown(), cfg.ReviewPagination()),
		Users:       service.NewUserService(postgres.NewUserRepository(pool), auth.NewPasswordHasher(auth.DefaultBcryptCost), tokens, logger),
		Library:     service.NewLibraryService(postgres.NewLibraryRepository(pool), logger),
		Memberships: service.NewMembershipService(postgres.NewMembershipRepository(pool), logger),
		Catalog:     service.NewCatalogService(books, bookCache, logger),
	}

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})
	healthHandler.RegisterNonCritical("google_books", books.Ping)
	if a.producer != nil {
		healthHandler.RegisterNonCritical("kafka", a.producer.Ping)
	}

	a.limiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, logger)

	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.CORSAllowedOrigins

	router := handler.NewRouter(handler.RouterConfig{
		Services:       services,
		Tokens:         tokens.Validate,
		Health:         healthHandler,
		Hub:            a.hub,
		Metrics:        httpMetrics,
		MetricsHandler: promhttp.Handler(),
		RateLimiter:    a.limiter,
		CORS:           cors,
		CatalogMaxAge:  5 * time.Minute,
		PprofEnabled:   cfg.PprofEnabled,
		PprofCIDRs:     cfg.PprofAllowedCIDRs,
		Logger:         logger,
	})

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return nil
}

// Run starts the HTTP server and the feed consumer, then blocks until the
// context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	if a.feed != nil {
		go func() {
			if err := a.feed.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("review feed consumer: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in order: HTTP server, websocket
// hub, tracer, feed consumer, producer, Redis, PostgreSQL. It tolerates a
// partially initialized App.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error
	record := func(component string, err error) {
		if err != nil {
			a.logger.Error(component+" shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.httpServer != nil {
		httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer httpCancel()
		record("http server", a.httpServer.Shutdown(httpCtx))
	}
	if a.hub != nil {
		a.hub.Close()
	}
	if a.limiter != nil {
		a.limiter.Close()
	}
	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		record("tracer", a.tracerShutdown(tracerCtx))
	}
	if a.feed != nil {
		record("review feed consumer", a.feed.Close())
	}
	if a.producer != nil {
		record("kafka producer", a.producer.Close())
	}
	if a.redis != nil {
		record("redis", a.redis.Close())
	}
	if a.pool != nil {
		a.pool.Close()
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// feedGroupID returns a consumer group unique to this instance so every
// instance receives every review event.
func feedGroupID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = uuid.NewString()
	}
	return handler.ServiceName + "-feed-" + host
}

// pingKafkaWithRetry attempts to ping the Kafka producer with exponential
// backoff (3 attempts, 1s/2s/4s with ±25% jitter).
func pingKafkaWithRetry(ctx context.Context, producer *pkgkafka.Producer, logger *slog.Logger) error {
	const attempts = 3
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if lastErr = producer.Ping(ctx); lastErr == nil {
			return nil
		}
		if attempt == attempts-1 {
			break
		}
		base := time.Duration(1<<uint(attempt)) * time.Second
		jitter := time.Duration(float64(base) * 0.25 * (2*rand.Float64() - 1)) // #nosec G404 -- retry jitter
		wait := base + jitter
		logger.Warn("kafka producer ping failed, retrying",
			slog.Int("attempt", attempt+1),
			slog.Int("max_attempts", attempts),
			slog.Duration("backoff", wait),
			slog.String("error", lastErr.Error()),
		)
		select {
		case <-ctx.Done():
			return fmt.Errorf("kafka ping: context canceled during retry: %w", ctx.Err())
		case <-time.After(wait):
		}
	}
	return fmt.Errorf("kafka producer ping failed after %d attempts: %w", attempts, lastErr)
}
