package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/markofilipovic2762/eshop-cms/pkg/logger"
)

func newTestLogger(w *bytes.Buffer) *slog.Logger {
	return logger.NewWithWriter("test-svc", "info", w)
}

func decodeLog(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	return out
}

func logFromHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.FromContext(r.Context()).Info("handler log")
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequestLogger_CorrelationID(t *testing.T) {
	var buf bytes.Buffer
	handler := RequestLogger(newTestLogger(&buf))(logFromHandler())

	ctx := logger.WithCorrelationID(context.Background(), "corr-123")
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx))

	out := decodeLog(t, &buf)
	assert.Equal(t, "corr-123", out["correlation_id"])
	assert.Equal(t, "test-svc", out["service"])
}

func TestRequestLogger_ProfileFromCookie(t *testing.T) {
	var buf bytes.Buffer
	handler := RequestLogger(newTestLogger(&buf))(logFromHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.AddCookie(&http.Cookie{Name: ProfileCookie, Value: "profile-abc"})
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "profile-abc", decodeLog(t, &buf)["profile_id"])
}

func TestRequestLogger_NoProfile(t *testing.T) {
	var buf bytes.Buffer
	handler := RequestLogger(newTestLogger(&buf))(logFromHandler())
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.NotContains(t, decodeLog(t, &buf), "profile_id")
}

func TestRequestLogger_TraceFields(t *testing.T) {
	var buf bytes.Buffer
	handler := RequestLogger(newTestLogger(&buf))(logFromHandler())

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx))

	out := decodeLog(t, &buf)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", out["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", out["span_id"])
}

func TestRequestLogging_GeneratesCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	var seen string
	handler := RequestLogging(newTestLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logger.CorrelationIDFromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	require.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(CorrelationHeader))

	out := decodeLog(t, &buf)
	assert.Equal(t, "http request", out["msg"])
	assert.Equal(t, float64(http.StatusTeapot), out["status"])
	assert.Equal(t, seen, out["correlation_id"])
}

func TestRequestLogging_KeepsInboundCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	handler := RequestLogging(newTestLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(CorrelationHeader, "given-id")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "given-id", rec.Header().Get(CorrelationHeader))
}

func TestRecovery_WritesInternalError(t *testing.T) {
	var buf bytes.Buffer
	handler := Recovery(newTestLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("kaboom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
	assert.Contains(t, buf.String(), "panic recovered")
}
