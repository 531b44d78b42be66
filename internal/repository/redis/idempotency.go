package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultIdempotencyTTL bounds how long processed event ids are remembered.
const DefaultIdempotencyTTL = 24 * time.Hour

// IdempotencyStore implements kafka.IdempotencyStore using Redis keys with a
// TTL. Keys are namespaced by consumer group so that consumers in different
// groups sharing one Redis each see every event.
type IdempotencyStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewIdempotencyStore creates a store for the given consumer group.
func NewIdempotencyStore(client *redis.Client, group string, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	return &IdempotencyStore{
		client: client,
		prefix: "bookfinder:processed:" + group + ":",
		ttl:    ttl,
	}
}

// Contains reports whether the event id was already recorded.
func (s *IdempotencyStore) Contains(ctx context.Context, eventID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.prefix+eventID).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists event: %w", err)
	}
	return n > 0, nil
}

// Add records the event id.
func (s *IdempotencyStore) Add(ctx context.Context, eventID string) error {
	if err := s.client.Set(ctx, s.prefix+eventID, 1, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set event: %w", err)
	}
	return nil
}
