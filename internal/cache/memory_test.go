package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestMemoryStore_TTL(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewMemoryStore(time.Hour, WithClock(clock.Now))
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "test:key", []byte("hello"), time.Hour))

	got, hit, err := c.Get(ctx, "test:key")
	require.NoError(t, err)
	require.True(t, hit, "expected hit immediately after Set")
	assert.Equal(t, "hello", string(got))

	clock.Advance(time.Hour - time.Nanosecond)
	_, hit, err = c.Get(ctx, "test:key")
	require.NoError(t, err)
	assert.True(t, hit, "entry must be servable up to its expiry")

	clock.Advance(time.Nanosecond)
	_, hit, err = c.Get(ctx, "test:key")
	require.NoError(t, err)
	assert.False(t, hit, "expected miss at expiry")
	assert.Equal(t, 0, c.Len())
}

func TestMemoryStore_ValuesAreCopied(t *testing.T) {
	c := NewMemoryStore(time.Minute)
	defer c.Close()

	ctx := context.Background()
	buf := []byte("abc")
	require.NoError(t, c.Set(ctx, "k", buf, time.Minute))
	buf[0] = 'x'

	got, _, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))

	got[1] = 'y'
	again, _, _ := c.Get(ctx, "k")
	assert.Equal(t, "abc", string(again))
}

func TestMemoryStore_NonPositiveTTLDeletes(t *testing.T) {
	c := NewMemoryStore(time.Minute)
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))

	_, hit, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestMemoryStore_Sweep(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	c := NewMemoryStore(time.Hour, WithClock(clock.Now))
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "short", []byte("1"), time.Second))
	require.NoError(t, c.Set(ctx, "long", []byte("2"), time.Hour))

	clock.Advance(time.Minute)
	c.sweep()

	assert.Equal(t, 1, c.Len())
	c.Clear()
	assert.Equal(t, 0, c.Len())
}
