package cache

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStore(t *testing.T) {
	store, err := NewStore(Config{Backend: BackendMemory}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.(io.Closer).Close() })

	require.NoError(t, store.Set(context.Background(), "k", []byte("v"), time.Minute))
	_, hit, err := store.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, hit)
}

func TestNewStore_RedisWithoutClient(t *testing.T) {
	_, err := NewStore(Config{Backend: BackendRedis}, nil)
	assert.ErrorIs(t, err, ErrBackendUnavailable)

	_, err = NewLocker(Config{Backend: BackendRedis}, nil)
	assert.ErrorIs(t, err, ErrBackendUnavailable)
}

func TestNewStore_UnknownBackend(t *testing.T) {
	_, err := NewStore(Config{Backend: "memcached"}, nil)
	assert.Error(t, err)
}

func TestNewStore_Redis(t *testing.T) {
	mr, client := newTestRedis(t)

	store, err := NewStore(Config{Backend: BackendRedis, Prefix: "p"}, client)
	require.NoError(t, err)
	require.NoError(t, store.Set(context.Background(), "k", []byte("v"), time.Minute))
	assert.True(t, mr.Exists("p:k"))

	locker, err := NewLocker(Config{Backend: BackendRedis, Prefix: "p"}, client)
	require.NoError(t, err)
	_, ok, err := locker.TryLock(context.Background(), "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, mr.Exists("p:lock:k"))
}
