package integration

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roamly/roamly/internal/models"
	"github.com/roamly/roamly/internal/repositories"
	"github.com/roamly/roamly/internal/store"
)

func setupRedis(t *testing.T) *store.RedisStore {
	t.Helper()
	ctx := context.Background()

	tr, err := SetupTestRedis(ctx)
	if err != nil {
		t.Skipf("skipping: could not start redis container (docker unavailable?): %v", err)
	}
	t.Cleanup(func() {
		if err := tr.Teardown(context.Background()); err != nil {
			t.Logf("teardown failed: %v", err)
		}
	})
	return tr.Store
}

func TestRedisStore_SetGetDelete(t *testing.T) {
	kv := setupRedis(t)
	ctx := context.Background()

	_, err := kv.Get(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrKeyNotFound)

	require.NoError(t, kv.Set(ctx, "k", []byte(`{"a":1}`)))
	val, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"a":1}`), val)

	require.NoError(t, kv.Delete(ctx, "k"))
	_, err = kv.Get(ctx, "k")
	assert.ErrorIs(t, err, store.ErrKeyNotFound)
}

func TestRedisStore_SetWithTTL(t *testing.T) {
	kv := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, kv.SetWithTTL(ctx, "k", []byte("v"), 2*time.Second))

	ttl, err := kv.TTL(ctx, "k")
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Second)
	assert.LessOrEqual(t, ttl, 2*time.Second)
}

func TestRedisStore_TTLSentinels(t *testing.T) {
	kv := setupRedis(t)
	ctx := context.Background()

	_, err := kv.TTL(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrKeyNotFound)

	require.NoError(t, kv.Set(ctx, "forever", []byte("v")))
	ttl, err := kv.TTL(ctx, "forever")
	require.NoError(t, err)
	assert.Equal(t, store.NoExpiry, ttl)
}

func TestRedisStore_IncrementWithTTL_ArmsWindow(t *testing.T) {
	kv := setupRedis(t)
	ctx := context.Background()

	n, err := kv.IncrementWithTTL(ctx, "counter", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	ttl, err := kv.TTL(ctx, "counter")
	require.NoError(t, err)
	assert.Greater(t, ttl, 59*time.Minute)

	n, err = kv.IncrementWithTTL(ctx, "counter", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestRedisStore_IncrementWithTTL_ConcurrentCallersSeeDistinctCounts(t *testing.T) {
	kv := setupRedis(t)
	ctx := context.Background()

	const workers = 20
	counts := make(chan int64, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := kv.IncrementWithTTL(ctx, "concurrent", time.Hour)
			assert.NoError(t, err)
			counts <- n
		}()
	}
	wg.Wait()
	close(counts)

	seen := make(map[int64]bool)
	for n := range counts {
		assert.False(t, seen[n], "duplicate count %d means a lost update", n)
		seen[n] = true
	}
	assert.Len(t, seen, workers)
}

func TestRedisStore_AttemptCounterFlow(t *testing.T) {
	kv := setupRedis(t)
	ctx := context.Background()

	repo := repositories.NewAttemptCounterRepository(kv)

	for i := int64(1); i <= 3; i++ {
		n, err := repo.Increment(ctx, "u1", models.MethodTOTP, models.WindowShort, time.Hour)
		require.NoError(t, err)
		assert.Equal(t, i, n)
	}

	require.NoError(t, repo.Reset(ctx, "u1", models.MethodTOTP, models.WindowShort))

	count, err := repo.Count(ctx, "u1", models.MethodTOTP, models.WindowShort)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}
