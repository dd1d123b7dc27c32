package stores

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCounterStoreIncrAndTTL(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryCounterStore()

	n, err := s.Incr(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = s.Incr(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.NoError(t, s.SetTTL(ctx, "k", time.Minute))
	ttl, err := s.TTL(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ttl > 0 && ttl <= time.Minute)

	// SetTTL is a no-op once a TTL is already set (NX semantics).
	require.NoError(t, s.SetTTL(ctx, "k", time.Hour))
	ttl2, err := s.TTL(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ttl2 <= time.Minute)
}

func TestMemoryCounterStoreExpiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryCounterStore()

	_, err := s.Incr(ctx, "k")
	require.NoError(t, err)
	require.NoError(t, s.SetTTL(ctx, "k", time.Millisecond))

	time.Sleep(5 * time.Millisecond)

	n, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n, "expired key should reset to zero on next access")
}

func TestMemoryCounterStoreDel(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryCounterStore()

	_, err := s.Incr(ctx, "k")
	require.NoError(t, err)
	require.NoError(t, s.Del(ctx, "k"))

	n, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestMemoryIdempotencySetAddIfAbsent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryIdempotencySet()

	ok, err := s.AddIfAbsent(ctx, "key-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "first insert should be new")

	ok, err = s.AddIfAbsent(ctx, "key-1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second insert of the same key should report already seen")
}

func TestMemoryIdempotencySetExpiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryIdempotencySet()

	ok, err := s.AddIfAbsent(ctx, "key-1", time.Millisecond)
	require.NoError(t, err)
	assert.True(t, ok)

	time.Sleep(5 * time.Millisecond)

	ok, err = s.AddIfAbsent(ctx, "key-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "key past its expiry should be treated as new again")
}
