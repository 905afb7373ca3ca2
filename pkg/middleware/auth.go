package middleware

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// UserCookie is the cookie the storefront mirrors the signed-in session to.
const UserCookie = "user"

// TokenValidator checks a bearer token taken from the user cookie.
type TokenValidator func(token string) error

// HS256Validator verifies tokens signed with secret using HMAC-SHA256.
func HS256Validator(secret []byte) TokenValidator {
	return func(tokenString string) error {
		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			return fmt.Errorf("parse token: %w", err)
		}
		if !token.Valid {
			return fmt.Errorf("invalid token")
		}
		return nil
	}
}

// GuardConfig configures RequireUser.
type GuardConfig struct {
	// Prefix selects the guarded paths, e.g. "/dashboard".
	Prefix string
	// LoginPath is where unauthenticated requests are redirected.
	LoginPath string
	// Validate, when set, must accept the token stored in the cookie.
	Validate TokenValidator
}

// RequireUser redirects requests under cfg.Prefix to cfg.LoginPath unless
// they carry a user cookie. Other paths pass through untouched.
func RequireUser(cfg GuardConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !guarded(r.URL.Path, cfg.Prefix) {
				next.ServeHTTP(w, r)
				return
			}

			c, err := r.Cookie(UserCookie)
			if err != nil || c.Value == "" {
				http.Redirect(w, r, cfg.LoginPath, http.StatusFound)
				return
			}

			if cfg.Validate != nil {
				if err := cfg.Validate(cookieToken(c.Value)); err != nil {
					logger.InfoContext(r.Context(), "rejected user cookie",
						slog.String("path", r.URL.Path),
						slog.String("error", err.Error()),
					)
					http.Redirect(w, r, cfg.LoginPath, http.StatusFound)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func guarded(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, strings.TrimSuffix(prefix, "/")+"/")
}

// cookieToken extracts the token field from the URL-escaped session JSON.
func cookieToken(value string) string {
	raw, err := url.QueryUnescape(value)
	if err != nil {
		return ""
	}
	var s struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return ""
	}
	return s.Token
}
