package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/saxonmc/book-finder/internal/domain"
)

const bookKeyPrefix = "bookfinder:book:"

// BookCache implements repository.BookCache using Redis.
type BookCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewBookCache creates a Redis-backed catalog lookup cache.
func NewBookCache(client *redis.Client, ttl time.Duration) *BookCache {
	return &BookCache{client: client, ttl: ttl}
}

// Get returns the cached book, or nil on a miss.
func (c *BookCache) Get(ctx context.Context, id string) (*domain.Book, error) {
	data, err := c.client.Get(ctx, bookKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get book: %w", err)
	}

	var book domain.Book
	if err := json.Unmarshal(data, &book); err != nil {
		return nil, fmt.Errorf("unmarshal book: %w", err)
	}
	return &book, nil
}

// Set caches a book with the configured TTL.
func (c *BookCache) Set(ctx context.Context, book *domain.Book) error {
	data, err := json.Marshal(book)
	if err != nil {
		return fmt.Errorf("marshal book: %w", err)
	}
	if err := c.client.Set(ctx, bookKeyPrefix+book.ID, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set book: %w", err)
	}
	return nil
}
