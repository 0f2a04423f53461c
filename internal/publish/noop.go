package publish

import (
	"context"
	"sync"
)

// Noop discards every payload.
type Noop struct{}

// NewNoop creates a publisher that does nothing.
func NewNoop() *Noop { return &Noop{} }

func (Noop) Publish(context.Context, string, []byte) error { return nil }

func (Noop) Close() error { return nil }

// Fake records published payloads for test assertions.
type Fake struct {
	mu sync.Mutex

	Keys     []string
	Payloads [][]byte

	// PublishError, if set, will be returned by Publish.
	PublishError error

	Closed bool
}

// NewFake creates a Fake publisher.
func NewFake() *Fake { return &Fake{} }

func (f *Fake) Publish(_ context.Context, key string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	f.Keys = append(f.Keys, key)
	f.Payloads = append(f.Payloads, payload)
	return nil
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// Count returns the number of recorded publishes.
func (f *Fake) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Keys)
}
