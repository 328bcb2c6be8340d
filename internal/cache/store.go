package cache

import (
	"context"
	"errors"
	"time"
)

// ErrBackendUnavailable wraps every failure to reach or use the configured
// backend. Callers must not treat it as a miss.
var ErrBackendUnavailable = errors.New("cache backend unavailable")

//go:generate mockgen -source=store.go -destination=cachemock/store.go -package=cachemock

// Store is an opaque key -> bytes store with absolute per-entry expiry.
// Implemented by MemoryStore (dev/tests) and RedisStore (prod).
type Store interface {
	// Get returns (nil, false, nil) on a miss, including an expired entry.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value under key until now+ttl, replacing any previous value.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Locker guards a key for the duration of a miss -> execute -> write
// sequence. TryLock never waits: ok is false when another holder owns key.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (unlock func(), ok bool, err error)
}
