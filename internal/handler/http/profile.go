package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/markofilipovic2762/eshop-cms/internal/domain"
	"github.com/markofilipovic2762/eshop-cms/internal/store"
	apperrors "github.com/markofilipovic2762/eshop-cms/pkg/errors"
	"github.com/markofilipovic2762/eshop-cms/pkg/httputil"
	"github.com/markofilipovic2762/eshop-cms/pkg/logger"
	"github.com/markofilipovic2762/eshop-cms/pkg/middleware"
)

const (
	profileCookieMaxAge = 365 * 24 * time.Hour
	userCookieMaxAge    = 7 * 24 * time.Hour
)

type contextKey string

const storesKey contextKey = "stores"

// Profiles resolves the caller's profile from the profile_id cookie,
// issuing a new one when it is missing or malformed, and puts the
// profile's stores in the request context for the duration of the request.
func Profiles(reg *store.Registry, secure bool, fallback *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			id, ok := profileFromCookie(r)
			if !ok {
				id = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     middleware.ProfileCookie,
					Value:    id,
					Path:     "/",
					MaxAge:   int(profileCookieMaxAge.Seconds()),
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
				ctx = logger.WithProfileID(ctx, id)
				ctx = logger.NewContext(ctx, logger.FromContext(ctx).With(slog.String("profile_id", id)))
			}

			stores, release, err := reg.Acquire(ctx, id)
			if err != nil {
				httputil.WriteError(w, r, apperrors.ServiceUnavailable("storefront is shutting down", err), fallback)
				return
			}
			defer release()

			ctx = context.WithValue(ctx, storesKey, stores)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func profileFromCookie(r *http.Request) (string, bool) {
	c, err := r.Cookie(middleware.ProfileCookie)
	if err != nil {
		return "", false
	}
	id, err := uuid.Parse(c.Value)
	if err != nil {
		return "", false
	}
	return id.String(), true
}

// storesFrom returns the stores put in ctx by Profiles.
func storesFrom(ctx context.Context) *store.Stores {
	s, _ := ctx.Value(storesKey).(*store.Stores)
	return s
}

// cookieMirror copies the session into the user cookie read by the
// dashboard guard. The value is the URL-escaped session JSON.
type cookieMirror struct {
	w      http.ResponseWriter
	secure bool
}

func (m cookieMirror) Mirror(s *domain.Session) {
	c := &http.Cookie{
		Name:     middleware.UserCookie,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
	if s == nil {
		c.MaxAge = -1
		http.SetCookie(m.w, c)
		return
	}

	raw, err := json.Marshal(s)
	if err != nil {
		return
	}
	c.Value = url.QueryEscape(string(raw))
	c.MaxAge = int(userCookieMaxAge.Seconds())
	http.SetCookie(m.w, c)
}

// writeStoreError maps store errors onto the response envelope.
func writeStoreError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	switch {
	case errors.Is(err, store.ErrDisposed), errors.Is(err, store.ErrRegistryClosed):
		err = apperrors.ServiceUnavailable("profile state is unavailable, retry the request", err)
	case errors.Is(err, store.ErrLoginFailed):
		err = &apperrors.AppError{Code: "LOGIN_FAILED", Message: "login failed", Status: http.StatusUnauthorized, Err: apperrors.ErrUnauthorized}
	case errors.Is(err, store.ErrRegistrationFailed):
		err = &apperrors.AppError{Code: "REGISTRATION_FAILED", Message: "registration failed", Status: http.StatusBadRequest, Err: apperrors.ErrInvalidInput}
	}
	httputil.WriteError(w, r, err, fallback)
}
