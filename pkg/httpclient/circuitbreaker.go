package httpclient

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker/v2"
)

// CircuitBreakerConfig holds configuration for the circuit breaker.
type CircuitBreakerConfig struct {
	// Name identifies the breaker in logs and metrics.
	Name string

	// MaxRequests is the number of probes allowed while half-open.
	MaxRequests uint32

	// Interval clears the closed-state counters; 0 never clears them.
	Interval time.Duration

	// Timeout is how long the breaker stays open before half-opening.
	Timeout time.Duration

	// FailureRatio trips the breaker once reached.
	FailureRatio float64

	// MinRequests must be observed before FailureRatio is evaluated.
	MinRequests uint32
}

// DefaultCircuitBreakerConfig returns defaults for a breaker named name.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:         name,
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      15 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

var (
	breakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "storefront_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
	breakerRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_circuit_breaker_rejections_total",
			Help: "Requests refused without being sent because the breaker was open",
		},
		[]string{"name"},
	)
)

// ErrCircuitOpen is returned while the breaker rejects requests.
var ErrCircuitOpen = gobreaker.ErrOpenState

// errUpstream5xx marks a response the breaker counts as a failure.
var errUpstream5xx = errors.New("upstream 5xx")

// CircuitBreakerClient guards a Client with a breaker. Transport errors and
// 5xx responses count as failures, but 5xx responses are still handed to
// the caller so it can read the upstream's error body.
type CircuitBreakerClient struct {
	client  *Client
	breaker *gobreaker.CircuitBreaker[*http.Response]
	name    string
}

// NewCircuitBreakerClient wraps client with a breaker configured by cbCfg.
func NewCircuitBreakerClient(client *Client, cbCfg CircuitBreakerConfig, logger *slog.Logger) *CircuitBreakerClient {
	breakerState.WithLabelValues(cbCfg.Name).Set(0)

	return &CircuitBreakerClient{
		client: client,
		name:   cbCfg.Name,
		breaker: gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
			Name:        cbCfg.Name,
			MaxRequests: cbCfg.MaxRequests,
			Interval:    cbCfg.Interval,
			Timeout:     cbCfg.Timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.Requests >= cbCfg.MinRequests &&
					float64(counts.TotalFailures)/float64(counts.Requests) >= cbCfg.FailureRatio
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("circuit breaker state change",
					slog.String("breaker", name),
					slog.String("from", from.String()),
					slog.String("to", to.String()),
				)
				breakerState.WithLabelValues(name).Set(float64(to))
			},
		}),
	}
}

// Do sends req through the breaker.
func (c *CircuitBreakerClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		resp, err := c.client.Do(ctx, req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 {
			return resp, errUpstream5xx
		}
		return resp, nil
	})

	switch {
	case errors.Is(err, errUpstream5xx):
		return resp, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		breakerRejections.WithLabelValues(c.name).Inc()
		return nil, err
	}
	return resp, err
}

// State returns the current breaker state.
func (c *CircuitBreakerClient) State() gobreaker.State {
	return c.breaker.State()
}
