package store

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/markofilipovic2762/eshop-cms/internal/domain"
	"github.com/markofilipovic2762/eshop-cms/internal/storage"
	apperrors "github.com/markofilipovic2762/eshop-cms/pkg/errors"
	"github.com/markofilipovic2762/eshop-cms/pkg/httpclient"
)

const sessionKey = "user"

// Authenticator is the auth backend.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*domain.Session, error)
	Register(ctx context.Context, reg domain.Registration) error
}

// SessionMirror receives the session after every change so it can be
// copied somewhere a route guard can read it. nil means signed out.
type SessionMirror interface {
	Mirror(s *domain.Session)
}

// Session holds the signed-in user of a profile.
//
// IsLoading is true until Init has run and while a login or register call
// is in flight. Cart and wishlist operations never wait on it.
type Session struct {
	mu        sync.Mutex
	current   *domain.Session
	hydrated  bool
	disposed  bool
	inflight  atomic.Int32
	profileID string
	auth      Authenticator
	storage   storage.Store
	logger    *slog.Logger
	observers observers
}

func newSession(profileID string, auth Authenticator, s storage.Store, logger *slog.Logger) *Session {
	return &Session{profileID: profileID, auth: auth, storage: s, logger: logger}
}

// Init hydrates the session from storage. Stored sessions without a token
// or user ID are ignored.
func (s *Session) Init(ctx context.Context) {
	stored, ok := storage.Load[*domain.Session](ctx, s.storage, sessionKey, s.logger)
	if ok && !stored.Valid() {
		s.logger.WarnContext(ctx, "ignoring incomplete stored session")
		stored = nil
	}

	s.mu.Lock()
	s.current = stored
	s.hydrated = true
	s.mu.Unlock()
}

// Login authenticates against the backend. On success the session is
// persisted and mirrored. On any failure the existing session is cleared
// and ErrLoginFailed is returned; the backend error is only logged.
func (s *Session) Login(ctx context.Context, email, password string, mirror SessionMirror) error {
	if s.isDisposed() {
		return ErrDisposed
	}

	s.inflight.Add(1)
	defer s.inflight.Add(-1)

	sess, err := s.auth.Login(ctx, email, password)
	if err == nil && !sess.Valid() {
		err = errIncompleteSession
	}
	if err != nil {
		s.logRejection(ctx, "login failed", err)
		s.set(ctx, nil, mirror)
		s.emit(OpLoginFailed)
		return ErrLoginFailed
	}

	if !s.set(ctx, sess, mirror) {
		return ErrDisposed
	}
	s.emit(OpLogin)
	return nil
}

// Register creates an account. It never signs the profile in.
func (s *Session) Register(ctx context.Context, reg domain.Registration) error {
	if s.isDisposed() {
		return ErrDisposed
	}

	s.inflight.Add(1)
	defer s.inflight.Add(-1)

	if err := s.auth.Register(ctx, reg); err != nil {
		s.logRejection(ctx, "registration failed", err)
		return ErrRegistrationFailed
	}
	return nil
}

// logRejection logs backend refusals (4xx) at info and everything else at
// warn.
func (s *Session) logRejection(ctx context.Context, msg string, err error) {
	status := apperrors.HTTPStatus(err)
	level := slog.LevelWarn
	if httpclient.IsClientError(status) {
		level = slog.LevelInfo
	}
	s.logger.Log(ctx, level, msg,
		slog.Int("status", status),
		slog.String("error", err.Error()),
	)
}

// Logout clears the session locally. No backend call is made.
func (s *Session) Logout(ctx context.Context, mirror SessionMirror) error {
	if !s.set(ctx, nil, mirror) {
		return ErrDisposed
	}
	s.emit(OpLogout)
	return nil
}

// Current returns a copy of the session, or nil when anonymous.
func (s *Session) Current() *domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	cp := *s.current
	return &cp
}

// IsAuthenticated reports whether a session is present.
func (s *Session) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil
}

// IsLoading reports whether hydration or a backend call is pending.
func (s *Session) IsLoading() bool {
	s.mu.Lock()
	hydrated := s.hydrated
	s.mu.Unlock()
	return !hydrated || s.inflight.Load() > 0
}

// Subscribe registers l for changes until the returned func is called.
func (s *Session) Subscribe(l Listener) func() {
	return s.observers.subscribe(l)
}

// set replaces the session, persists it and mirrors it. It reports false
// when the store has been disposed.
func (s *Session) set(ctx context.Context, sess *domain.Session, mirror SessionMirror) bool {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return false
	}
	s.current = sess
	ctx = context.WithoutCancel(ctx)
	if sess == nil {
		storage.Remove(ctx, s.storage, sessionKey, s.logger)
	} else {
		storage.Save(ctx, s.storage, sessionKey, sess, s.logger)
	}
	s.mu.Unlock()

	if mirror != nil {
		mirror.Mirror(sess)
	}
	return true
}

func (s *Session) isDisposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}

func (s *Session) emit(op string) {
	s.observers.notify(Change{Store: StoreSession, Op: op, ProfileID: s.profileID})
}

func (s *Session) dispose() {
	s.mu.Lock()
	s.disposed = true
	s.mu.Unlock()
	s.observers.reset()
}
