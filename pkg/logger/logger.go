// Package logger builds the service's JSON slog logger and carries request
// identity (correlation id, profile id, trace) through contexts.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

type ctxKey int

const (
	correlationIDKey ctxKey = iota
	profileIDKey
	loggerKey
)

// New returns a JSON logger on stdout tagged with serviceName.
func New(serviceName, level string) *slog.Logger {
	return NewWithWriter(serviceName, level, os.Stdout)
}

// NewWithWriter is New writing to w. Source locations are added at debug.
func NewWithWriter(serviceName, level string, w io.Writer) *slog.Logger {
	lvl := ParseLevel(level)
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl <= slog.LevelDebug,
	})
	return slog.New(h).With(slog.String("service", serviceName))
}

// ParseLevel accepts slog level names (any case, "warning" included) and
// falls back to info.
func ParseLevel(level string) slog.Level {
	if strings.EqualFold(level, "warning") {
		return slog.LevelWarn
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func stringValue(ctx context.Context, key ctxKey) string {
	s, _ := ctx.Value(key).(string)
	return s
}

func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

func CorrelationIDFromContext(ctx context.Context) string {
	return stringValue(ctx, correlationIDKey)
}

// WithProfileID tags ctx with the browser profile the request acts for.
func WithProfileID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, profileIDKey, id)
}

func ProfileIDFromContext(ctx context.Context) string {
	return stringValue(ctx, profileIDKey)
}

// NewContext stores l in ctx.
func NewContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext returns the logger stored by NewContext, else slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// WithContext adds whichever of correlation_id, profile_id, trace_id and
// span_id ctx carries.
func WithContext(ctx context.Context, l *slog.Logger) *slog.Logger {
	var attrs []any
	if id := CorrelationIDFromContext(ctx); id != "" {
		attrs = append(attrs, slog.String("correlation_id", id))
	}
	if id := ProfileIDFromContext(ctx); id != "" {
		attrs = append(attrs, slog.String("profile_id", id))
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		attrs = append(attrs,
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	if len(attrs) == 0 {
		return l
	}
	return l.With(attrs...)
}
