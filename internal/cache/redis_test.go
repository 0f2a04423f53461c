package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *Redis) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })
	return srv, NewRedisFromClient(client, "laundryd:")
}

func TestRedis_GetSet(t *testing.T) {
	ctx := context.Background()
	srv, r := newTestRedis(t)

	_, ok := r.Get(ctx, "missing")
	assert.False(t, ok)

	r.Set(ctx, "k", []byte("v"), time.Minute)
	got, ok := r.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got)

	assert.True(t, srv.Exists("laundryd:k"), "keys carry the prefix")
	assert.Equal(t, time.Minute, srv.TTL("laundryd:k"))
}

func TestRedis_Expiry(t *testing.T) {
	ctx := context.Background()
	srv, r := newTestRedis(t)

	r.Set(ctx, "k", []byte("v"), 10*time.Second)
	srv.FastForward(11 * time.Second)

	_, ok := r.Get(ctx, "k")
	assert.False(t, ok)
}

func TestRedis_ServerGoneIsAMiss(t *testing.T) {
	ctx := context.Background()
	srv, r := newTestRedis(t)
	r.Set(ctx, "k", []byte("v"), time.Minute)

	srv.Close()
	_, ok := r.Get(ctx, "k")
	assert.False(t, ok)
	r.Set(ctx, "k", []byte("v2"), time.Minute) // logged, not fatal
}

func TestNewRedis(t *testing.T) {
	ctx := context.Background()
	srv := miniredis.RunT(t)

	r, err := NewRedis(ctx, "redis://"+srv.Addr(), "p:")
	require.NoError(t, err)
	r.Set(ctx, "k", []byte("v"), time.Minute)
	assert.True(t, srv.Exists("p:k"))
	require.NoError(t, r.Close())

	_, err = NewRedis(ctx, "not a url", "p:")
	assert.Error(t, err)

	addr := srv.Addr()
	srv.Close()
	_, err = NewRedis(ctx, "redis://"+addr, "p:")
	assert.Error(t, err)
}
