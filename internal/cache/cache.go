// Package cache provides the bounded response cache shared by the back-office
// client and the HTTP layer.
package cache

import (
	"context"
	"time"
)

// Store is a byte cache with per-entry TTL.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
}
