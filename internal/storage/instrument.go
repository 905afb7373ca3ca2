package storage

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/markofilipovic2762/eshop-cms/internal/storage"

var operationDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "storefront_storage_operation_duration_seconds",
		Help:    "Latency of persistent store operations",
		Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
	},
	[]string{"backend", "operation", "result"},
)

// Instrumented wraps a Store with a client span, a latency histogram and
// a warning for operations slower than slow. A zero slow disables the
// warning.
func Instrumented(s Store, backend string, slow time.Duration, logger *slog.Logger) Store {
	return &instrumented{inner: s, backend: backend, slow: slow, logger: logger}
}

type instrumented struct {
	inner   Store
	backend string
	slow    time.Duration
	logger  *slog.Logger
}

func (s *instrumented) observe(ctx context.Context, op, key string) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := otel.Tracer(tracerName).Start(ctx, "storage."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", s.backend),
			attribute.String("db.operation", op),
			attribute.String("storage.key", key),
		),
	)

	return ctx, func(err error) {
		elapsed := time.Since(start)
		result := "ok"
		switch {
		case errors.Is(err, ErrNotFound):
			result = "miss"
		case err != nil:
			result = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		operationDuration.WithLabelValues(s.backend, op, result).Observe(elapsed.Seconds())

		if s.slow > 0 && elapsed >= s.slow {
			s.logger.WarnContext(ctx, "slow storage operation",
				slog.String("backend", s.backend),
				slog.String("operation", op),
				slog.String("key", key),
				slog.Duration("duration", elapsed),
			)
		}
	}
}

func (s *instrumented) Get(ctx context.Context, key string) (b []byte, err error) {
	ctx, end := s.observe(ctx, "get", key)
	defer func() { end(err) }()
	return s.inner.Get(ctx, key)
}

func (s *instrumented) Set(ctx context.Context, key string, value []byte) (err error) {
	ctx, end := s.observe(ctx, "set", key)
	defer func() { end(err) }()
	return s.inner.Set(ctx, key, value)
}

func (s *instrumented) Delete(ctx context.Context, key string) (err error) {
	ctx, end := s.observe(ctx, "delete", key)
	defer func() { end(err) }()
	return s.inner.Delete(ctx, key)
}

func (s *instrumented) Ping(ctx context.Context) (err error) {
	ctx, end := s.observe(ctx, "ping", "")
	defer func() { end(err) }()
	return s.inner.Ping(ctx)
}
