package httpclient

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/http"
	"time"
)

// Config holds HTTP client configuration.
type Config struct {
	Timeout         time.Duration
	MaxRetries      int
	RetryWaitMin    time.Duration
	RetryWaitMax    time.Duration
	MaxConnsPerHost int
}

// DefaultConfig returns the defaults used for upstream APIs.
func DefaultConfig() Config {
	return Config{
		Timeout:         10 * time.Second,
		MaxRetries:      2,
		RetryWaitMin:    200 * time.Millisecond,
		RetryWaitMax:    2 * time.Second,
		MaxConnsPerHost: 50,
	}
}

// NewBaseTransport returns a pooled transport with dial and TLS timeouts.
func NewBaseTransport(cfg Config) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   cfg.MaxConnsPerHost,
		MaxConnsPerHost:       cfg.MaxConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
}

// RetryTransport retries idempotent requests on network errors, 429 and 5xx
// (except 501) with jittered exponential backoff.
type RetryTransport struct {
	Base   http.RoundTripper
	Config Config
}

// NewRetryTransport wraps base. A nil base uses http.DefaultTransport.
func NewRetryTransport(base http.RoundTripper, cfg Config) *RetryTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &RetryTransport{Base: base, Config: cfg}
}

func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if !isIdempotent(req) {
		return t.Base.RoundTrip(req)
	}

	ctx := req.Context()
	var (
		resp *http.Response
		err  error
	)
	for attempt := 0; attempt <= t.Config.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := wait(ctx, t.backoff(attempt)); err != nil {
				return nil, err
			}
			if req, err = rewind(req); err != nil {
				return nil, err
			}
		}

		resp, err = t.Base.RoundTrip(req)
		last := attempt == t.Config.MaxRetries
		if err != nil {
			if !isRetryableError(err) || last {
				return nil, err
			}
			continue
		}
		if !retryableStatus(resp.StatusCode) || last {
			return resp, nil
		}
		drain(resp)
	}
	return resp, err
}

func (t *RetryTransport) backoff(attempt int) time.Duration {
	d := t.Config.RetryWaitMin * time.Duration(1<<uint(attempt-1))
	if t.Config.RetryWaitMax > 0 && d > t.Config.RetryWaitMax {
		d = t.Config.RetryWaitMax
	}
	return addJitter(d)
}

// addJitter returns d plus up to 25% random jitter.
func addJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	spread := int64(d) / 4
	if spread == 0 {
		return d
	}
	return d + time.Duration(rand.Int64N(spread))
}

func wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func isIdempotent(req *http.Request) bool {
	switch req.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return req.Body == nil || req.Body == http.NoBody || req.GetBody != nil
	default:
		return false
	}
}

func rewind(req *http.Request) (*http.Request, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return req, nil
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	clone := req.Clone(req.Context())
	clone.Body = body
	return clone, nil
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests ||
		(code >= http.StatusInternalServerError && code != http.StatusNotImplemented)
}

func isRetryableError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}

// New builds an *http.Client whose transport is base, then retries, then a
// circuit breaker on the outside, so one logical request counts once
// against the breaker.
func New(cfg Config, breaker CircuitBreakerConfig, logger *slog.Logger) (*http.Client, *BreakerTransport) {
	retry := NewRetryTransport(NewBaseTransport(cfg), cfg)
	bt := NewBreakerTransport(retry, breaker, logger)
	return &http.Client{Transport: bt, Timeout: cfg.Timeout}, bt
}
