package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_SetGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", []byte("v")))

	val, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), val)
}

func TestMemoryStore_Get_Missing(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.Get(context.Background(), "absent")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestMemoryStore_SetWithTTL_Expires(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.SetWithTTL(ctx, "k", []byte("v"), 10*time.Millisecond))

	_, err := s.Get(ctx, "k")
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestMemoryStore_Delete(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", []byte("v")))
	require.NoError(t, s.Delete(ctx, "k"))

	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	// Deleting an absent key is not an error
	assert.NoError(t, s.Delete(ctx, "k"))
}

func TestMemoryStore_Increment_CreatesAtOne(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	n, err := s.Increment(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = s.Increment(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestMemoryStore_IncrementWithTTL(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	n, err := s.IncrementWithTTL(ctx, "counter", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	ttl, err := s.TTL(ctx, "counter")
	require.NoError(t, err)
	assert.Greater(t, ttl, 59*time.Minute)

	n, err = s.IncrementWithTTL(ctx, "counter", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestMemoryStore_IncrementWithTTL_ExpiredCounterRestarts(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.IncrementWithTTL(ctx, "counter", 10*time.Millisecond)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	n, err := s.IncrementWithTTL(ctx, "counter", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestMemoryStore_TTL(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.TTL(ctx, "absent")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, s.Set(ctx, "forever", []byte("v")))
	ttl, err := s.TTL(ctx, "forever")
	require.NoError(t, err)
	assert.Equal(t, NoExpiry, ttl)

	require.NoError(t, s.SetWithTTL(ctx, "bounded", []byte("v"), time.Minute))
	ttl, err = s.TTL(ctx, "bounded")
	require.NoError(t, err)
	assert.Greater(t, ttl, 50*time.Second)
}

func TestMemoryStore_Keys(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "mfa:status:a", []byte("1")))
	require.NoError(t, s.Set(ctx, "mfa:status:b", []byte("2")))
	require.NoError(t, s.Set(ctx, "mfa:totp:a", []byte("3")))

	keys, err := s.Keys(ctx, "mfa:status:*")
	require.NoError(t, err)
	assert.Len(t, keys, 2)
	assert.ElementsMatch(t, []string{"mfa:status:a", "mfa:status:b"}, keys)
}
