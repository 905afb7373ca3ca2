package storage_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markofilipovic2762/eshop-cms/internal/domain"
	"github.com/markofilipovic2762/eshop-cms/internal/storage"
	"github.com/markofilipovic2762/eshop-cms/internal/storage/memory"
)

func bufferLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// failingStore fails every operation.
type failingStore struct{ err error }

func (f failingStore) Get(context.Context, string) ([]byte, error) { return nil, f.err }
func (f failingStore) Set(context.Context, string, []byte) error   { return f.err }
func (f failingStore) Delete(context.Context, string) error        { return f.err }
func (f failingStore) Ping(context.Context) error                  { return f.err }

func TestSaveLoad_RoundTrip(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	logger := bufferLogger(&buf)
	s := memory.New()

	cart := domain.Cart{{ID: 1, Name: "A", Price: 10, Quantity: 2, Image: "a.png"}}
	wishlist := domain.Wishlist{{ID: 5, Name: "E", Price: 3, CategoryID: "2", CategoryName: "Toys"}}
	session := &domain.Session{Token: "t", ID: 9, Name: "Ana", Username: "ana", Email: "ana@example.com"}

	storage.Save(ctx, s, "cart", cart, logger)
	storage.Save(ctx, s, "wishlist", wishlist, logger)
	storage.Save(ctx, s, "user", session, logger)

	gotCart, ok := storage.Load[domain.Cart](ctx, s, "cart", logger)
	require.True(t, ok)
	assert.Equal(t, cart, gotCart)

	gotWishlist, ok := storage.Load[domain.Wishlist](ctx, s, "wishlist", logger)
	require.True(t, ok)
	assert.Equal(t, wishlist, gotWishlist)

	gotSession, ok := storage.Load[*domain.Session](ctx, s, "user", logger)
	require.True(t, ok)
	assert.Equal(t, session, gotSession)

	assert.Zero(t, buf.Len())
}

func TestLoad_MissingKeyIsSilent(t *testing.T) {
	var buf bytes.Buffer
	v, ok := storage.Load[domain.Cart](context.Background(), memory.New(), "cart", bufferLogger(&buf))

	assert.False(t, ok)
	assert.Nil(t, v)
	assert.Zero(t, buf.Len())
}

func TestLoad_CorruptValues(t *testing.T) {
	for name, raw := range map[string]string{
		"not json":        "{{{not json",
		"schema mismatch": `{"id":1}`,
		"wrong types":     `[{"id":"one","quantity":"many"}]`,
	} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			var buf bytes.Buffer
			s := memory.New()
			require.NoError(t, s.Set(ctx, "cart", []byte(raw)))

			v, ok := storage.Load[domain.Cart](ctx, s, "cart", bufferLogger(&buf))

			assert.False(t, ok)
			assert.Empty(t, v)
			assert.Contains(t, buf.String(), "discarding unparsable stored value")
		})
	}
}

func TestBackendFailuresAreLoggedNotReturned(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	logger := bufferLogger(&buf)
	s := failingStore{err: errors.New("connection refused")}

	_, ok := storage.Load[domain.Cart](ctx, s, "cart", logger)
	assert.False(t, ok)

	storage.Save(ctx, s, "cart", domain.Cart{}, logger)
	storage.Remove(ctx, s, "cart", logger)

	out := buf.String()
	assert.Contains(t, out, "storage read failed")
	assert.Contains(t, out, "storage write failed")
	assert.Contains(t, out, "storage delete failed")
}

func TestScope_IsolatesProfiles(t *testing.T) {
	ctx := context.Background()
	base := memory.New()
	a := storage.Scope(base, "a")
	b := storage.Scope(base, "b")

	require.NoError(t, a.Set(ctx, "cart", []byte(`[]`)))

	_, err := b.Get(ctx, "cart")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	raw, err := base.Get(ctx, "profile:a:cart")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(raw))

	require.NoError(t, a.Delete(ctx, "cart"))
	assert.Zero(t, base.Len())
	assert.NoError(t, a.Ping(ctx))
}

func TestInstrumented_PassesThrough(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	s := storage.Instrumented(memory.New(), "memory", 0, bufferLogger(&buf))

	require.NoError(t, s.Set(ctx, "k", []byte("v")))
	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(got))

	require.NoError(t, s.Delete(ctx, "k"))
	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.NoError(t, s.Ping(ctx))
	assert.Zero(t, buf.Len())
}

func TestInstrumented_WarnsOnSlowOperations(t *testing.T) {
	var buf bytes.Buffer
	s := storage.Instrumented(memory.New(), "memory", time.Nanosecond, bufferLogger(&buf))

	_ = s.Set(context.Background(), "k", []byte("v"))

	assert.Contains(t, buf.String(), "slow storage operation")
}

func TestInstrumented_PropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	s := storage.Instrumented(failingStore{err: boom}, "redis", 0, slog.New(slog.NewTextHandler(io.Discard, nil)))

	assert.ErrorIs(t, s.Set(context.Background(), "k", nil), boom)
}
