package store

import (
	"context"
	"errors"
	"time"
)

// ErrKeyNotFound is returned by Get and TTL when the key is absent
var ErrKeyNotFound = errors.New("key not found")

// NoExpiry is reported by TTL for keys that exist without an expiry
const NoExpiry = time.Duration(-1)

// KVStore is the narrow contract the MFA core needs from the shared
// key-value store. Records are JSON blobs keyed by uid (and method);
// counters are plain integers. The store is the single source of truth --
// nothing is cached in-process across requests.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error

	// Increment creates the key at 1 when absent.
	Increment(ctx context.Context, key string) (int64, error)
	// IncrementWithTTL increments and refreshes the TTL as a single atomic
	// operation. Two concurrent callers on the same key must each observe a
	// distinct count, and the key must never be left without an expiry.
	IncrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)

	Keys(ctx context.Context, pattern string) ([]string, error)
	TTL(ctx context.Context, key string) (time.Duration, error)
}
