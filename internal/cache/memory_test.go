package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_GetSet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(time.Minute, 10)

	_, ok := m.Get(ctx, "missing")
	assert.False(t, ok)

	m.Set(ctx, "k", []byte("v"), time.Minute)
	got, ok := m.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got)
}

func TestMemory_EvictsEarliestInserted(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(time.Minute, 2)

	m.Set(ctx, "a", []byte("1"), time.Minute)
	m.Set(ctx, "b", []byte("2"), time.Minute)
	// Overwriting does not refresh insertion order.
	m.Set(ctx, "a", []byte("1b"), time.Minute)
	m.Set(ctx, "c", []byte("3"), time.Minute)

	_, ok := m.Get(ctx, "a")
	assert.False(t, ok, "a was inserted first and must be evicted")
	_, ok = m.Get(ctx, "b")
	assert.True(t, ok)
	_, ok = m.Get(ctx, "c")
	assert.True(t, ok)
	assert.Equal(t, 2, m.Len())
}

func TestMemory_Expiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(time.Minute, 2)

	m.Set(ctx, "short", []byte("x"), 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	_, ok := m.Get(ctx, "short")
	assert.False(t, ok)

	// Re-inserting an expired key makes it the newest entry.
	m.Set(ctx, "other", []byte("y"), time.Minute)
	m.Set(ctx, "short", []byte("z"), time.Minute)
	m.Set(ctx, "third", []byte("w"), time.Minute)

	_, ok = m.Get(ctx, "other")
	assert.False(t, ok)
	got, ok := m.Get(ctx, "short")
	require.True(t, ok)
	assert.Equal(t, []byte("z"), got)
}

func TestMemory_Uncapped(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(time.Minute, 0)
	for _, k := range []string{"a", "b", "c", "d"} {
		m.Set(ctx, k, []byte(k), time.Minute)
	}
	assert.Equal(t, 4, m.Len())
}
