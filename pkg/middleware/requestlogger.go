package middleware

import (
	"log/slog"
	"net/http"

	"github.com/markofilipovic2762/eshop-cms/pkg/logger"
)

// ProfileCookie names the cookie that identifies a browser profile.
const ProfileCookie = "profile_id"

// RequestLogger stores a request-scoped logger in the context, enriched with
// correlation_id, profile_id, trace_id and span_id. Mount it after
// RequestLogging and Tracing so those values are already present.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if logger.ProfileIDFromContext(ctx) == "" {
				if c, err := r.Cookie(ProfileCookie); err == nil && c.Value != "" {
					ctx = logger.WithProfileID(ctx, c.Value)
				}
			}

			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
