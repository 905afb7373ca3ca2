package httpclient

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCBConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:         name,
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      100 * time.Millisecond,
		FailureRatio: 0.5,
		MinRequests:  3,
	}
}

func newBreaker(name string, timeout time.Duration) *CircuitBreakerClient {
	cfg := testCBConfig(name)
	if timeout > 0 {
		cfg.Timeout = timeout
	}
	return NewCircuitBreakerClient(New(fastRetryConfig(0)), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestCircuitBreaker_PassesThrough5xxAndTrips(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cb := newBreaker("test-trip", 5*time.Second)

	for i := 0; i < 3; i++ {
		resp, err := get(t, cb, context.Background(), server.URL)
		require.NoError(t, err, "5xx responses reach the caller")
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		resp.Body.Close()
	}
	assert.Equal(t, gobreaker.StateOpen, cb.State())
	assert.Equal(t, 2.0, testutil.ToFloat64(breakerState.WithLabelValues("test-trip")))

	before := hits.Load()
	_, err := get(t, cb, context.Background(), server.URL)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, before, hits.Load())
	assert.Equal(t, 1.0, testutil.ToFloat64(breakerRejections.WithLabelValues("test-trip")))
}

func TestCircuitBreaker_RecoversAfterTimeout(t *testing.T) {
	var failing atomic.Bool
	failing.Store(true)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failing.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cb := newBreaker("test-recover", 0)
	for i := 0; i < 3; i++ {
		if resp, err := get(t, cb, context.Background(), server.URL); err == nil {
			resp.Body.Close()
		}
	}
	require.Equal(t, gobreaker.StateOpen, cb.State())

	time.Sleep(150 * time.Millisecond)
	failing.Store(false)

	resp, err := get(t, cb, context.Background(), server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreaker_ClientErrorsDoNotTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	cb := newBreaker("test-4xx", 0)
	for i := 0; i < 5; i++ {
		req, err := http.NewRequest(http.MethodPost, server.URL, http.NoBody)
		require.NoError(t, err)
		resp, err := cb.Do(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		resp.Body.Close()
	}
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreaker_TransportErrorsTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	cb := newBreaker("test-transport", 5*time.Second)
	for i := 0; i < 3; i++ {
		_, err := get(t, cb, context.Background(), url)
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, cb.State())
}

func TestDefaultCircuitBreakerConfig(t *testing.T) {
	cfg := DefaultCircuitBreakerConfig("backend")
	assert.Equal(t, "backend", cfg.Name)
	assert.Equal(t, uint32(5), cfg.MinRequests)
	assert.Equal(t, 15*time.Second, cfg.Timeout)
}
