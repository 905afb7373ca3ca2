package http

import (
	"log/slog"
	"net/http"

	"github.com/markofilipovic2762/eshop-cms/internal/domain"
	"github.com/markofilipovic2762/eshop-cms/internal/store"
	"github.com/markofilipovic2762/eshop-cms/pkg/httputil"
	"github.com/markofilipovic2762/eshop-cms/pkg/middleware"
	"github.com/markofilipovic2762/eshop-cms/pkg/validator"
)

// SessionHandler serves sign-in state. Responses never include the token;
// it only travels in the user cookie.
type SessionHandler struct {
	secureCookies bool
	logger        *slog.Logger
}

// NewSessionHandler creates a session handler.
func NewSessionHandler(secureCookies bool, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{secureCookies: secureCookies, logger: logger}
}

// SessionResponse is the public view of the session store.
type SessionResponse struct {
	User            *domain.Session `json:"user"`
	IsAuthenticated bool            `json:"isAuthenticated"`
	IsLoading       bool            `json:"isLoading"`
}

func sessionResponse(s *store.Session) SessionResponse {
	return SessionResponse{
		User:            s.Current().Public(),
		IsAuthenticated: s.IsAuthenticated(),
		IsLoading:       s.IsLoading(),
	}
}

func (h *SessionHandler) mirror(w http.ResponseWriter) cookieMirror {
	return cookieMirror{w: w, secure: h.secureCookies}
}

// GetSession handles GET /api/v1/session. The user cookie is re-issued
// when it has drifted from the stored session, e.g. after the browser
// dropped it.
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	s := storesFrom(r.Context())

	_, err := r.Cookie(middleware.UserCookie)
	hasCookie := err == nil
	if current := s.Session.Current(); (current != nil) != hasCookie {
		h.mirror(w).Mirror(current)
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: sessionResponse(s.Session)})
}

// Login handles POST /api/v1/session/login
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.Credentials
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	s := storesFrom(r.Context())
	if err := s.Session.Login(r.Context(), req.Email, req.Password, h.mirror(w)); err != nil {
		writeStoreError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: sessionResponse(s.Session)})
}

// Register handles POST /api/v1/session/register. The profile stays
// signed out.
func (h *SessionHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.Registration
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	s := storesFrom(r.Context())
	if err := s.Session.Register(r.Context(), req); err != nil {
		writeStoreError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: sessionResponse(s.Session)})
}

// Logout handles POST /api/v1/session/logout
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	s := storesFrom(r.Context())
	if err := s.Session.Logout(r.Context(), h.mirror(w)); err != nil {
		writeStoreError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: sessionResponse(s.Session)})
}
