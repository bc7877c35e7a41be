package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SscSPs/disbursement_ledger/internal/apperrors"
	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(url string, retries int) *Client {
	return New(Config{
		Provider:        "test",
		BaseURL:         url,
		SecretKey:       "sk_test",
		Timeout:         time.Second,
		MaxRetries:      retries,
		RetryBase:       time.Millisecond,
		RetryMax:        2 * time.Millisecond,
		BreakerFailures: 3,
		BreakerTimeout:  time.Minute,
	})
}

func TestClient_SendsBearerAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":true,"message":"ok"}`))
	}))
	defer srv.Close()

	resp, err := newTestClient(srv.URL, 0).Post(context.Background(), "transfer", "/transfer", map[string]any{"amount": 100})
	require.NoError(t, err)
	var out struct {
		Status  bool   `json:"status"`
		Message string `json:"message"`
	}
	require.NoError(t, resp.Decode(&out))
	assert.True(t, out.Status)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestClient_RetriesIdempotentCalls(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	resp, err := newTestClient(srv.URL, 3).Get(context.Background(), "balance", "/balance")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_NeverRetriesTransfers(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 3).Post(context.Background(), "transfer", "/transfer", map[string]any{})
	assert.ErrorIs(t, err, apperrors.ErrProviderUnavailable)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_ClientErrorsAreReturnedNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"status":false,"message":"Could not resolve account name"}`))
	}))
	defer srv.Close()

	resp, err := newTestClient(srv.URL, 3).Get(context.Background(), "resolve", "/bank/resolve")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 0)
	for i := 0; i < 3; i++ {
		_, err := c.Get(context.Background(), "balance", "/balance")
		require.ErrorIs(t, err, apperrors.ErrProviderUnavailable)
	}
	_, err := c.Get(context.Background(), "balance", "/balance")
	assert.ErrorIs(t, err, apperrors.ErrProviderUnavailable)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetryPolicy(t *testing.T) {
	b := retryPolicy(context.Background(), 100*time.Millisecond, time.Second, 3)
	for i := 0; i < 3; i++ {
		d := b.NextBackOff()
		assert.NotEqual(t, backoff.Stop, d, "retry %d", i)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 1500*time.Millisecond)
	}
	assert.Equal(t, backoff.Stop, b.NextBackOff(), "retries are bounded")

	none := retryPolicy(context.Background(), 100*time.Millisecond, time.Second, 0)
	assert.Equal(t, backoff.Stop, none.NextBackOff())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Equal(t, backoff.Stop, retryPolicy(ctx, 100*time.Millisecond, time.Second, 3).NextBackOff())
}
