package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markofilipovic2762/eshop-cms/internal/storage"
)

func setupTestRedis(t *testing.T, ttl time.Duration) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, ttl), mr
}

func TestStore_SetGet(t *testing.T) {
	ctx := context.Background()
	s, mr := setupTestRedis(t, 168*time.Hour)

	require.NoError(t, s.Set(ctx, "profile:p1:cart", []byte(`[{"id":1}]`)))

	got, err := s.Get(ctx, "profile:p1:cart")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":1}]`, string(got))
	assert.Equal(t, 168*time.Hour, mr.TTL("profile:p1:cart"))
}

func TestStore_GetMissing(t *testing.T) {
	s, _ := setupTestRedis(t, time.Hour)

	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	s, mr := setupTestRedis(t, time.Minute)

	require.NoError(t, s.Set(ctx, "k", []byte("v")))
	mr.FastForward(2 * time.Minute)

	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_WriteResetsTTL(t *testing.T) {
	ctx := context.Background()
	s, mr := setupTestRedis(t, time.Minute)

	require.NoError(t, s.Set(ctx, "k", []byte("v1")))
	mr.FastForward(40 * time.Second)
	require.NoError(t, s.Set(ctx, "k", []byte("v2")))
	mr.FastForward(40 * time.Second)

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v2", string(got))
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	s, mr := setupTestRedis(t, time.Hour)

	require.NoError(t, s.Set(ctx, "k", []byte("v")))
	require.NoError(t, s.Delete(ctx, "k"))
	assert.False(t, mr.Exists("k"))
	assert.NoError(t, s.Delete(ctx, "k"))
}

func TestStore_ServerDown(t *testing.T) {
	ctx := context.Background()
	s, mr := setupTestRedis(t, time.Hour)
	mr.Close()

	_, err := s.Get(ctx, "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, storage.ErrNotFound)
	assert.Error(t, s.Set(ctx, "k", []byte("v")))
	assert.Error(t, s.Ping(ctx))
}

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()

	client, err := Connect(context.Background(), Config{Addr: addr})
	require.NoError(t, err)
	assert.NoError(t, client.Close())

	mr.Close()
	_, err = Connect(context.Background(), Config{Addr: addr})
	assert.Error(t, err)
}
