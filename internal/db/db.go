// Package db defines the key-value store contract backing the quota counter
// and the query-embedding cache.
package db

import (
	"context"
	"time"
)

// Store is the database facade. Consumers depend on the narrow
// sub-interfaces, not the facade.
type Store interface {
	Pinger
	KVStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore provides key-value operations. IncrIfBelow is the atomic
// check-and-reserve primitive the usage guard is built on: it must never be
// decomposable into a read followed by a separate write.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	IncrBy(ctx context.Context, key string, val int64) (int64, error)
	IncrIfBelow(ctx context.Context, key string, ceiling int64, ttl time.Duration) (bool, error)
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}
