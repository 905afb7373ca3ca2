package health

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/markofilipovic2762/eshop-cms/pkg/httputil"
)

// Checker reports the health of one dependency.
type Checker func(ctx context.Context) error

// Status is the health of a component or of the whole service.
type Status string

const (
	StatusUp       Status = "up"
	StatusDegraded Status = "degraded"
	StatusDown     Status = "down"
)

// readinessTimeout bounds the time spent running all checks.
const readinessTimeout = 5 * time.Second

// Response is the body returned by the health endpoints.
type Response struct {
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult is the outcome of a single check.
type CheckResult struct {
	Status   Status `json:"status"`
	Optional bool   `json:"optional,omitempty"`
	Error    string `json:"error,omitempty"`
}

type registration struct {
	check    Checker
	optional bool
}

// Handler serves liveness and readiness endpoints.
type Handler struct {
	mu     sync.RWMutex
	checks map[string]registration
}

// NewHandler creates a handler with no registered checks.
func NewHandler() *Handler {
	return &Handler{checks: make(map[string]registration)}
}

// Register adds a check whose failure makes the service not ready.
func (h *Handler) Register(name string, check Checker) {
	h.register(name, check, false)
}

// RegisterOptional adds a check whose failure only degrades readiness.
func (h *Handler) RegisterOptional(name string, check Checker) {
	h.register(name, check, true)
}

func (h *Handler) register(name string, check Checker, optional bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = registration{check: check, optional: optional}
}

// LivenessHandler always answers 200 while the process runs.
func (h *Handler) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, Response{
			Status:    StatusUp,
			Timestamp: time.Now().UTC(),
		})
	}
}

// ReadinessHandler runs all checks concurrently. It answers 503 when a
// required check fails and 200 otherwise.
func (h *Handler) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := h.Check(r.Context())

		status := http.StatusOK
		if resp.Status == StatusDown {
			status = http.StatusServiceUnavailable
		}
		httputil.WriteJSON(w, status, resp)
	}
}

// Check runs every registered check and aggregates the result.
func (h *Handler) Check(ctx context.Context) Response {
	ctx, cancel := context.WithTimeout(ctx, readinessTimeout)
	defer cancel()

	h.mu.RLock()
	checks := make(map[string]registration, len(h.checks))
	for k, v := range h.checks {
		checks[k] = v
	}
	h.mu.RUnlock()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]CheckResult, len(checks))
	)
	for name, reg := range checks {
		wg.Add(1)
		go func(name string, reg registration) {
			defer wg.Done()
			res := CheckResult{Status: StatusUp, Optional: reg.optional}
			if err := reg.check(ctx); err != nil {
				res.Status = StatusDown
				res.Error = err.Error()
			}
			mu.Lock()
			results[name] = res
			mu.Unlock()
		}(name, reg)
	}
	wg.Wait()

	overall := StatusUp
	for _, res := range results {
		if res.Status != StatusDown {
			continue
		}
		if !res.Optional {
			overall = StatusDown
			break
		}
		overall = StatusDegraded
	}

	return Response{
		Status:    overall,
		Timestamp: time.Now().UTC(),
		Checks:    results,
	}
}
