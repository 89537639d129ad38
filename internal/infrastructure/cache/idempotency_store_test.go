package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/erp/backoffice/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestInMemoryIdempotencyStore(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()
	ctx := context.Background()

	t.Run("marks a key once", func(t *testing.T) {
		isNew, err := store.MarkProcessed(ctx, "po:1:1:A:B1:received", time.Hour)
		require.NoError(t, err)
		assert.True(t, isNew)

		isNew, err = store.MarkProcessed(ctx, "po:1:1:A:B1:received", time.Hour)
		require.NoError(t, err)
		assert.False(t, isNew)

		held, err := store.IsProcessed(ctx, "po:1:1:A:B1:received")
		require.NoError(t, err)
		assert.True(t, held)
	})

	t.Run("zero ttl never expires", func(t *testing.T) {
		now := time.Now()
		store.now = func() time.Time { return now }
		_, err := store.MarkProcessed(ctx, "forever", 0)
		require.NoError(t, err)

		store.now = func() time.Time { return now.Add(24 * 365 * time.Hour) }
		held, err := store.IsProcessed(ctx, "forever")
		require.NoError(t, err)
		assert.True(t, held)
		store.now = time.Now
	})

	t.Run("expired keys can be marked again and are cleaned up", func(t *testing.T) {
		now := time.Now()
		store.now = func() time.Time { return now }
		_, err := store.MarkProcessed(ctx, "short", time.Minute)
		require.NoError(t, err)

		store.now = func() time.Time { return now.Add(2 * time.Minute) }
		held, err := store.IsProcessed(ctx, "short")
		require.NoError(t, err)
		assert.False(t, held)

		size := store.Size()
		store.cleanup()
		assert.Equal(t, size-1, store.Size())

		isNew, err := store.MarkProcessed(ctx, "short", time.Minute)
		require.NoError(t, err)
		assert.True(t, isNew)
		store.now = time.Now
	})

	t.Run("forget releases a key", func(t *testing.T) {
		_, err := store.MarkProcessed(ctx, "release-me", 0)
		require.NoError(t, err)
		require.NoError(t, store.Forget(ctx, "release-me"))

		isNew, err := store.MarkProcessed(ctx, "release-me", 0)
		require.NoError(t, err)
		assert.True(t, isNew)
	})

	t.Run("concurrent marks admit exactly one", func(t *testing.T) {
		var wins atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if ok, _ := store.MarkProcessed(ctx, "race", 0); ok {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), wins.Load())
	})

	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}

func TestRedisIdempotencyStore_PrefixAndOwnership(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer client.Close()

	store := NewRedisIdempotencyStoreWithClient(client, "")
	assert.Equal(t, DefaultKeyPrefix, store.keyPrefix)
	assert.NoError(t, store.Close(), "borrowed clients are not closed")
}

func TestIdempotencyStoreFactory(t *testing.T) {
	unreachable := config.RedisConfig{Host: "127.0.0.1", Port: 1}

	t.Run("memory backend", func(t *testing.T) {
		store, err := NewIdempotencyStoreFactory(config.IdempotencyConfig{Backend: config.IdempotencyBackendMemory}, unreachable).CreateStore()
		require.NoError(t, err)
		assert.IsType(t, &InMemoryIdempotencyStore{}, store)
		_ = store.Close()
	})

	t.Run("database backend uses the supplied store", func(t *testing.T) {
		db := NewInMemoryIdempotencyStore()
		defer db.Close()
		store, err := NewIdempotencyStoreFactory(config.IdempotencyConfig{Backend: config.IdempotencyBackendDatabase}, unreachable,
			WithDatabaseStore(db)).CreateStore()
		require.NoError(t, err)
		assert.Same(t, db, store)
	})

	t.Run("database backend without a store", func(t *testing.T) {
		_, err := NewIdempotencyStoreFactory(config.IdempotencyConfig{}, unreachable).CreateStore()
		assert.Error(t, err)
	})

	t.Run("unreachable redis without fallback", func(t *testing.T) {
		_, err := NewIdempotencyStoreFactory(config.IdempotencyConfig{Backend: config.IdempotencyBackendRedis}, unreachable).CreateStore()
		assert.ErrorContains(t, err, "Redis required")
	})

	t.Run("unreachable redis falls back to memory", func(t *testing.T) {
		core, recorded := observer.New(zap.WarnLevel)
		store, err := NewIdempotencyStoreFactory(
			config.IdempotencyConfig{Backend: config.IdempotencyBackendRedis, FallbackToMemory: true},
			unreachable, WithLogger(zap.New(core)),
		).CreateStore()
		require.NoError(t, err)
		assert.IsType(t, &InMemoryIdempotencyStore{}, store)
		assert.Equal(t, 1, recorded.Len())
		_ = store.Close()
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := NewIdempotencyStoreFactory(config.IdempotencyConfig{Backend: "etcd"}, unreachable).CreateStore()
		assert.Error(t, err)
	})
}
