// Package httpclient is the JSON-over-HTTPS transport shared by the payment provider adapters.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/SscSPs/disbursement_ledger/internal/apperrors"
	"github.com/SscSPs/disbursement_ledger/internal/core/ports/providers"
	"github.com/SscSPs/disbursement_ledger/internal/middleware"
	"github.com/SscSPs/disbursement_ledger/internal/platform/metrics"
	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
)

// Config configures one provider's transport.
type Config struct {
	Provider   string
	BaseURL    string
	SecretKey  string
	Timeout    time.Duration
	MaxRetries int
	RetryBase  time.Duration
	RetryMax   time.Duration

	// BreakerFailures is the number of consecutive failures that opens the breaker.
	BreakerFailures uint32
	BreakerTimeout  time.Duration

	HTTPClient *http.Client
	Metrics    *metrics.Metrics
}

// Client sends authenticated JSON requests through a circuit breaker.
type Client struct {
	cfg     Config
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
}

// Response is the raw outcome of a call that reached the provider.
type Response struct {
	StatusCode int
	Body       []byte
}

// Decode unmarshals the body into out.
func (r *Response) Decode(out any) error {
	if len(r.Body) == 0 {
		return nil
	}
	return json.Unmarshal(r.Body, out)
}

// New builds a client. Zero values in cfg fall back to conservative defaults.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 200 * time.Millisecond
	}
	if cfg.RetryMax <= 0 {
		cfg.RetryMax = 5 * time.Second
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = 30 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	c := &Client{cfg: cfg, http: httpClient}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "provider-" + cfg.Provider,
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Provider circuit breaker changed state",
				slog.String("provider", cfg.Provider),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
			cfg.Metrics.SetBreakerState(cfg.Provider, breakerGauge(to))
		},
	})
	return c
}

func breakerGauge(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// Get sends an idempotent request. Transient failures are retried with jittered backoff.
func (c *Client) Get(ctx context.Context, op, path string) (*Response, error) {
	return c.do(ctx, op, http.MethodGet, path, nil, true)
}

// PostIdempotent sends a POST that has no side effect at the provider (lookups, upserts).
func (c *Client) PostIdempotent(ctx context.Context, op, path string, body any) (*Response, error) {
	return c.do(ctx, op, http.MethodPost, path, body, true)
}

// Post sends a request exactly once. Money-moving calls use this.
func (c *Client) Post(ctx context.Context, op, path string, body any) (*Response, error) {
	return c.do(ctx, op, http.MethodPost, path, body, false)
}

func (c *Client) do(ctx context.Context, op, method, path string, body any, idempotent bool) (*Response, error) {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("failed to encode %s request: %w", op, err)
		}
	}

	retries := 0
	if idempotent {
		retries = c.cfg.MaxRetries
	}

	var (
		resp    *Response
		lastErr error
		attempt int
	)
	operation := func() error {
		attempt++
		start := time.Now()
		r, err := c.execute(ctx, op, method, path, payload)
		c.cfg.Metrics.ObserveProviderCall(c.cfg.Provider, op, start, err)
		if err != nil {
			lastErr = err
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(err)
			}
			return err
		}
		resp = r
		return nil
	}
	notify := func(err error, next time.Duration) {
		middleware.GetLoggerFromCtx(ctx).Warn("Provider call failed",
			slog.String("provider", c.cfg.Provider),
			slog.String("op", op),
			slog.Int("attempt", attempt),
			slog.Duration("retry_in", next),
			slog.String("error", err.Error()))
	}

	if err := backoff.RetryNotify(operation, retryPolicy(ctx, c.cfg.RetryBase, c.cfg.RetryMax, retries), notify); err != nil {
		if lastErr == nil {
			lastErr = err
		}
		return nil, providers.NewProviderError(c.cfg.Provider, op, lastErr.Error(), apperrors.ErrProviderUnavailable)
	}
	return resp, nil
}

// execute runs a single round trip inside the breaker. Only transport errors and 5xx count as failures.
func (c *Client) execute(ctx context.Context, op, method, path string, payload []byte) (*Response, error) {
	out, err := c.breaker.Execute(func() (interface{}, error) {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.cfg.SecretKey)
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		httpResp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer httpResp.Body.Close()

		raw, err := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
		if err != nil {
			return nil, err
		}
		if httpResp.StatusCode >= http.StatusInternalServerError {
			return nil, fmt.Errorf("%s returned %d", op, httpResp.StatusCode)
		}
		return &Response{StatusCode: httpResp.StatusCode, Body: raw}, nil
	})
	if err != nil {
		return nil, err
	}
	return out.(*Response), nil
}
