package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryHintCache(t *testing.T) {
	ctx := context.Background()

	t.Run("set then get round trip", func(t *testing.T) {
		cache := NewInMemoryHintCache()
		defer cache.Close()

		require.NoError(t, cache.Set(ctx, "hints:maple leaf foods", "Vendor: Maple Leaf Foods", time.Minute))

		value, found, err := cache.Get(ctx, "hints:maple leaf foods")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "Vendor: Maple Leaf Foods", value)
	})

	t.Run("a miss is not an error", func(t *testing.T) {
		cache := NewInMemoryHintCache()
		defer cache.Close()

		value, found, err := cache.Get(ctx, "hints:nobody")
		require.NoError(t, err)
		assert.False(t, found)
		assert.Empty(t, value)
	})

	t.Run("expired entries read as misses", func(t *testing.T) {
		cache := NewInMemoryHintCache()
		defer cache.Close()

		require.NoError(t, cache.Set(ctx, "hints:sysco", "stale", 10*time.Millisecond))
		time.Sleep(30 * time.Millisecond)

		_, found, err := cache.Get(ctx, "hints:sysco")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("delete invalidates", func(t *testing.T) {
		cache := NewInMemoryHintCache()
		defer cache.Close()

		require.NoError(t, cache.Set(ctx, "hints:gfs", "layout", time.Minute))
		require.NoError(t, cache.Delete(ctx, "hints:gfs"))

		_, found, err := cache.Get(ctx, "hints:gfs")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("cleanup drops expired entries", func(t *testing.T) {
		cache := NewInMemoryHintCache()
		defer cache.Close()

		require.NoError(t, cache.Set(ctx, "a", "1", 10*time.Millisecond))
		require.NoError(t, cache.Set(ctx, "b", "2", time.Minute))
		time.Sleep(30 * time.Millisecond)

		cache.cleanup()
		assert.Equal(t, 1, cache.Size())
	})

	t.Run("close is idempotent", func(t *testing.T) {
		cache := NewInMemoryHintCache()
		require.NoError(t, cache.Close())
		require.NoError(t, cache.Close())
	})
}
