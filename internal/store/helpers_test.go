package store

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/markofilipovic2762/eshop-cms/internal/domain"
	"github.com/markofilipovic2762/eshop-cms/internal/storage/memory"
)

// --- Mock Authenticator ---

type mockAuth struct {
	mock.Mock
}

func (m *mockAuth) Login(ctx context.Context, email, password string) (*domain.Session, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *mockAuth) Register(ctx context.Context, reg domain.Registration) error {
	args := m.Called(ctx, reg)
	return args.Error(0)
}

// --- Recording mirror ---

type recordingMirror struct {
	mu    sync.Mutex
	calls []*domain.Session
}

func (m *recordingMirror) Mirror(s *domain.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, s)
}

func (m *recordingMirror) last() *domain.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return nil
	}
	return m.calls[len(m.calls)-1]
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fixture struct {
	storage *memory.Store
	auth    *mockAuth
	deps    Deps
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{storage: memory.New(), auth: &mockAuth{}}
	f.deps = Deps{Storage: f.storage, Auth: f.auth, Logger: newTestLogger()}
	t.Cleanup(func() { f.auth.AssertExpectations(t) })
	return f
}

// stores builds and initialises a bundle for profile "p1".
func (f *fixture) stores() *Stores {
	s := New(f.deps, "p1")
	s.Init(context.Background())
	return s
}

func (f *fixture) raw(t *testing.T, key string) string {
	t.Helper()
	b, err := f.storage.Get(context.Background(), "profile:p1:"+key)
	if err != nil {
		return ""
	}
	return string(b)
}

func (f *fixture) put(t *testing.T, key, value string) {
	t.Helper()
	if err := f.storage.Set(context.Background(), "profile:p1:"+key, []byte(value)); err != nil {
		t.Fatal(err)
	}
}

func item(id domain.ProductID, qty int) domain.CartItem {
	return domain.CartItem{ID: id, Name: "A", Price: 10, Quantity: qty}
}

func wish(id domain.ProductID) domain.WishlistItem {
	return domain.WishlistItem{ID: id, Name: "W", Price: 5}
}
