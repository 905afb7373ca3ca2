package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
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
	// UserAgent is sent when a request does not set its own.
	UserAgent string
}

// DefaultConfig returns defaults matching the storefront's REST backend:
// a one second request timeout and no retries.
func DefaultConfig() Config {
	return Config{
		Timeout:         time.Second,
		MaxRetries:      0,
		RetryWaitMin:    100 * time.Millisecond,
		RetryWaitMax:    time.Second,
		MaxConnsPerHost: 50,
		UserAgent:       "eshop-storefront",
	}
}

// Client is a JSON-speaking http.Client with bounded retries.
type Client struct {
	http *http.Client
	cfg  Config
}

// New creates a client with a pooled transport sized by cfg.
func New(cfg Config) *Client {
	dialer := &net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}
	return &Client{
		http: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				DialContext:         dialer.DialContext,
				ForceAttemptHTTP2:   true,
				MaxIdleConnsPerHost: cfg.MaxConnsPerHost,
				MaxConnsPerHost:     cfg.MaxConnsPerHost,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 5 * time.Second,
			},
		},
		cfg: cfg,
	}
}

// Do sends req, retrying transient network errors and 5xx responses other
// than 501 up to MaxRetries times. Only idempotent methods are retried;
// POST and PATCH are sent once. Bodies are replayed through GetBody.
// When retries run out the last response is returned as is.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	req = req.WithContext(ctx)
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	if c.cfg.UserAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	for attempt := 0; ; attempt++ {
		resp, err := c.http.Do(req)
		if attempt >= c.cfg.MaxRetries || !idempotent(req.Method) || !retryable(resp, err) {
			if err != nil {
				return nil, fmt.Errorf("%s %s (attempt %d): %w", req.Method, req.URL.Path, attempt+1, err)
			}
			return resp, nil
		}

		if resp != nil {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
			_ = resp.Body.Close()
		}

		timer := time.NewTimer(c.backoff(attempt))
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}

		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("rewind request body: %w", err)
			}
			req.Body = body
		}
	}
}

// backoff doubles from RetryWaitMin per attempt, capped at RetryWaitMax.
func (c *Client) backoff(attempt int) time.Duration {
	wait := c.cfg.RetryWaitMin << attempt
	if wait <= 0 || wait > c.cfg.RetryWaitMax {
		return c.cfg.RetryWaitMax
	}
	return wait
}

func idempotent(method string) bool {
	switch method {
	case "", http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

func retryable(resp *http.Response, err error) bool {
	if err != nil {
		return isRetryableError(err)
	}
	return resp.StatusCode >= 500 && resp.StatusCode != http.StatusNotImplemented
}

// isRetryableError reports whether err is a transient network failure.
// Context cancellation and deadline errors are never retried.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
