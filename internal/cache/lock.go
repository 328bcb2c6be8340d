package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// MemoryLocker is a per-key try-lock for single-instance deployments.
// A lock that is never released expires after its ttl.
type MemoryLocker struct {
	mu    sync.Mutex
	held  map[string]memoryLock
	now   func() time.Time
	nonce uint64
}

type memoryLock struct {
	id        uint64
	expiresAt time.Time
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{
		held: make(map[string]memoryLock),
		now:  time.Now,
	}
}

func (l *MemoryLocker) TryLock(_ context.Context, key string, ttl time.Duration) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if cur, ok := l.held[key]; ok && now.Before(cur.expiresAt) {
		return nil, false, nil
	}

	l.nonce++
	id := l.nonce
	l.held[key] = memoryLock{id: id, expiresAt: now.Add(ttl)}

	var once sync.Once
	unlock := func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			// Only drop our own lock; it may have expired and been re-taken.
			if cur, ok := l.held[key]; ok && cur.id == id {
				delete(l.held, key)
			}
		})
	}
	return unlock, true, nil
}

// releaseScript deletes the lock key only when it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a per-key try-lock shared by every instance talking to the
// same Redis. It uses SET NX PX with a random token.
type RedisLocker struct {
	client *redis.Client
	prefix string
}

func NewRedisLocker(client *redis.Client, prefix string) *RedisLocker {
	if prefix == "" {
		prefix = "lock"
	}
	return &RedisLocker{client: client, prefix: prefix}
}

func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	lockKey := l.prefix + ":" + key
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, lockKey, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("%w: redis setnx failed: %v", ErrBackendUnavailable, err)
	}
	if !ok {
		return nil, false, nil
	}

	var once sync.Once
	unlock := func() {
		once.Do(func() {
			// The request context may already be cancelled; release regardless.
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
			defer cancel()
			// On failure the PX expiry frees the key.
			_ = releaseScript.Run(releaseCtx, l.client, []string{lockKey}, token).Err()
		})
	}
	return unlock, true, nil
}
