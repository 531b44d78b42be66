// Package catalog looks up book metadata in the Google Books API.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	books "google.golang.org/api/books/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/saxonmc/book-finder/internal/domain"
	apperrors "github.com/saxonmc/book-finder/pkg/errors"
	"github.com/saxonmc/book-finder/pkg/httpclient"
)

const dependencyName = "google books"

// Result size bounds for volume listings.
const (
	DefaultMaxResults = 20
	MaxMaxResults     = 40
)

// Config holds the Google Books client settings.
type Config struct {
	APIKey   string
	Endpoint string // empty means the public API
	Timeout  time.Duration
}

// Client is a Google Books API client behind a retrying, circuit-broken
// HTTP transport.
type Client struct {
	svc     *books.Service
	breaker *httpclient.BreakerTransport
	logger  *slog.Logger
}

// NewClient creates a catalog client.
func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	httpCfg := httpclient.DefaultConfig()
	if cfg.Timeout > 0 {
		httpCfg.Timeout = cfg.Timeout
	}
	hc, breaker := httpclient.New(httpCfg, httpclient.DefaultCircuitBreakerConfig("google-books"), logger)
	if cfg.APIKey != "" {
		hc.Transport = &apiKeyTransport{base: hc.Transport, key: cfg.APIKey}
	}

	opts := []option.ClientOption{option.WithHTTPClient(hc)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(strings.TrimRight(cfg.Endpoint, "/")+"/"))
	}

	svc, err := books.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create google books service: %w", err)
	}

	return &Client{svc: svc, breaker: breaker, logger: logger}, nil
}

// Search lists volumes matching query. Year, page count and rating filters
// are applied to the returned page since the API cannot evaluate them.
func (c *Client) Search(ctx context.Context, query string, f domain.SearchFilters) ([]domain.Book, error) {
	q := query
	if f.Genre != "" {
		q += " subject:" + f.Genre
	}

	call := c.svc.Volumes.List(q).MaxResults(int64(clampMaxResults(f.MaxResults)))
	if f.OrderBy != "" {
		call = call.OrderBy(f.OrderBy)
	}
	if f.PrintType != "" && f.PrintType != domain.PrintTypeAll {
		call = call.PrintType(f.PrintType)
	}
	if f.Language != "" {
		call = call.LangRestrict(strings.ToLower(f.Language))
	}

	vols, err := call.Context(ctx).Do()
	if err != nil {
		return nil, c.toAppError(err, "")
	}

	result := make([]domain.Book, 0, len(vols.Items))
	for _, v := range vols.Items {
		b := mapVolume(v)
		if f.Match(&b) {
			result = append(result, b)
		}
	}
	return result, nil
}

// Get returns one volume by id.
func (c *Client) Get(ctx context.Context, id string) (*domain.Book, error) {
	v, err := c.svc.Volumes.Get(id).Context(ctx).Do()
	if err != nil {
		return nil, c.toAppError(err, id)
	}
	b := mapVolume(v)
	return &b, nil
}

// Ping reports whether the circuit breaker currently lets requests through.
func (c *Client) Ping(_ context.Context) error {
	if c.breaker.State() == gobreaker.StateOpen {
		return fmt.Errorf("%s circuit breaker is open", dependencyName)
	}
	return nil
}

func (c *Client) toAppError(err error, id string) error {
	var gErr *googleapi.Error
	switch {
	case errors.As(err, &gErr):
		return httpclient.FromStatus(gErr.Code, dependencyName, "book", id, gErr.Message)
	case httpclient.IsOpen(err):
		return apperrors.ServiceUnavailable(dependencyName, err)
	case errors.Is(err, context.Canceled):
		return err
	default:
		return apperrors.ServiceUnavailable(dependencyName, err)
	}
}

func clampMaxResults(n int) int {
	if n <= 0 {
		return DefaultMaxResults
	}
	if n > MaxMaxResults {
		return MaxMaxResults
	}
	return n
}

// mapVolume converts an API volume to a Book. ISBN-13 is preferred over
// ISBN-10 and cover links are upgraded to https.
func mapVolume(v *books.Volume) domain.Book {
	b := domain.Book{ID: v.Id, Author: "Unknown Author"}
	info := v.VolumeInfo
	if info == nil {
		return b
	}

	b.Title = info.Title
	if len(info.Authors) > 0 {
		b.Author = strings.Join(info.Authors, ", ")
	}
	b.Description = info.Description
	b.PublishedDate = info.PublishedDate
	b.PageCount = int(info.PageCount)
	b.Language = info.Language
	b.RatingsCount = int(info.RatingsCount)
	if info.AverageRating > 0 {
		rating := info.AverageRating
		b.Rating = &rating
	}
	if len(info.Categories) > 0 {
		b.Genre = info.Categories[0]
	}
	if info.ImageLinks != nil {
		cover := info.ImageLinks.Thumbnail
		if cover == "" {
			cover = info.ImageLinks.SmallThumbnail
		}
		b.CoverImage = strings.Replace(cover, "http://", "https://", 1)
	}

	var isbn10 string
	for _, id := range info.IndustryIdentifiers {
		switch id.Type {
		case "ISBN_13":
			b.ISBN = id.Identifier
		case "ISBN_10":
			isbn10 = id.Identifier
		}
	}
	if b.ISBN == "" {
		b.ISBN = isbn10
	}
	return b
}

// apiKeyTransport adds the API key to every request. A custom HTTP client
// bypasses the key option of the generated client, so it is set here.
type apiKeyTransport struct {
	base http.RoundTripper
	key  string
}

func (t *apiKeyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	q := clone.URL.Query()
	q.Set("key", t.key)
	clone.URL.RawQuery = q.Encode()
	return t.base.RoundTrip(clone)
}
