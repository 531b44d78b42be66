package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.HTTPPort)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.ReviewOnePerBook)
	assert.Equal(t, 168*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, 24*time.Hour, cfg.CatalogCacheTTL)

	policy := cfg.ReviewPagination()
	assert.Equal(t, 10, policy.DefaultLimit)
	assert.Equal(t, 50, policy.MaxLimit)

	pg := cfg.Postgres()
	assert.Equal(t, "bookfinder", pg.DBName)
	assert.Equal(t, time.Hour, pg.MaxConnLifetime)
	assert.Equal(t, "localhost:6379", cfg.Redis().Addr())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("HTTP_PORT", "8080")
	t.Setenv("REVIEW_ONE_PER_BOOK", "true")
	t.Setenv("REVIEW_MAX_PAGE_SIZE", "100")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("CATALOG_CACHE_TTL", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.True(t, cfg.ReviewOnePerBook)
	assert.Equal(t, 100, cfg.ReviewPagination().MaxLimit)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 30*time.Second, cfg.CatalogCacheTTL)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"bad port", map[string]string{"HTTP_PORT": "70000"}, "invalid HTTP port"},
		{"page size policy", map[string]string{"REVIEW_DEFAULT_PAGE_SIZE": "20", "REVIEW_MAX_PAGE_SIZE": "10"}, "REVIEW_MAX_PAGE_SIZE"},
		{"zero default page", map[string]string{"REVIEW_DEFAULT_PAGE_SIZE": "0"}, "REVIEW_DEFAULT_PAGE_SIZE"},
		{"sample rate", map[string]string{"OTEL_SAMPLE_RATE": "1.5"}, "OTEL_SAMPLE_RATE"},
		{"default secret in production", map[string]string{"ENVIRONMENT": "production"}, "JWT_SECRET"},
		{"rate limit", map[string]string{"RATE_LIMIT_RPS": "0"}, "RATE_LIMIT"},
		{"missing brokers", map[string]string{"KAFKA_BROKERS": ""}, "KAFKA_BROKERS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_ProductionWithSecret(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("JWT_SECRET", "a-real-secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.IsDevelopment())
}

func TestLoad_KafkaDisabledNeedsNoBrokers(t *testing.T) {
	t.Setenv("KAFKA_ENABLED", "false")
	t.Setenv("KAFKA_BROKERS", "")

	_, err := Load()
	assert.NoError(t, err)
}
