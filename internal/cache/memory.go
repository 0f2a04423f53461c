package cache

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Memory is an in-process Store. Entries expire after their TTL and, once
// more than maxEntries are held, the earliest-inserted entry is dropped.
type Memory struct {
	mu         sync.Mutex
	items      *gocache.Cache
	order      []string
	maxEntries int
}

// NewMemory creates a Memory store. maxEntries <= 0 disables the cap.
func NewMemory(defaultTTL time.Duration, maxEntries int) *Memory {
	return &Memory{
		items:      gocache.New(defaultTTL, 2*defaultTTL),
		maxEntries: maxEntries,
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	v, found := m.items.Get(key)
	if !found {
		return nil, false
	}
	b, ok := v.([]byte)
	return b, ok
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, found := m.items.Get(key); !found {
		// An expired key may still sit in the order list; re-inserting
		// makes it the newest entry.
		m.forget(key)
		m.order = append(m.order, key)
	}
	m.items.Set(key, value, ttl)

	if m.maxEntries <= 0 {
		return
	}
	for len(m.order) > m.maxEntries {
		oldest := m.order[0]
		m.order = m.order[1:]
		m.items.Delete(oldest)
	}
}

// Len returns the number of tracked entries, including expired ones not yet
// swept.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.order)
}

func (m *Memory) forget(key string) {
	for i, k := range m.order {
		if k == key {
			m.order = append(m.order[:i], m.order[i+1:]...)
			return
		}
	}
}
