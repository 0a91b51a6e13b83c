package lib

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisCacheCommands(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewRedisCache(client)
	ctx := context.Background()

	mock.ExpectSetNX("lock:job:expire-bookings", "owner-1", 120*time.Second).SetVal(true)
	mock.ExpectSetNX("lock:job:expire-bookings", "owner-2", 120*time.Second).SetVal(false)
	mock.ExpectIncr("order_counter:20261015").SetVal(1)
	mock.ExpectExpire("order_counter:20261015", 48*time.Hour).SetVal(true)
	mock.ExpectDel("lock:job:expire-bookings").SetVal(1)

	ok, err := cache.SetIfNotExists(ctx, "lock:job:expire-bookings", "owner-1", 120*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = cache.SetIfNotExists(ctx, "lock:job:expire-bookings", "owner-2", 120*time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := cache.Increment(ctx, "order_counter:20261015")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, cache.Expire(ctx, "order_counter:20261015", 48*time.Hour))
	require.NoError(t, cache.Delete(ctx, "lock:job:expire-bookings"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCacheCompareAndDelete(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewRedisCache(client)
	ctx := context.Background()

	mock.ExpectEvalSha(compareAndDeleteScript.Hash(), []string{"lock:job:reminders"}, "owner-1").SetVal(int64(1))
	mock.ExpectEvalSha(compareAndDeleteScript.Hash(), []string{"lock:job:reminders"}, "owner-2").SetVal(int64(0))

	released, err := cache.CompareAndDelete(ctx, "lock:job:reminders", "owner-1")
	require.NoError(t, err)
	assert.True(t, released)

	released, err = cache.CompareAndDelete(ctx, "lock:job:reminders", "owner-2")
	require.NoError(t, err)
	assert.False(t, released)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCachePropagatesErrors(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewRedisCache(client)

	mock.ExpectIncr("order_counter:20261015").SetErr(errors.New("connection refused"))

	_, err := cache.Increment(context.Background(), "order_counter:20261015")
	assert.Error(t, err)
}

func TestMemoryCache(t *testing.T) {
	cache := NewMemoryCache()
	now := time.Now()
	cache.now = func() time.Time { return now }
	ctx := context.Background()

	ok, _ := cache.SetIfNotExists(ctx, "lock", "a", time.Minute)
	assert.True(t, ok)
	ok, _ = cache.SetIfNotExists(ctx, "lock", "b", time.Minute)
	assert.False(t, ok)

	released, _ := cache.CompareAndDelete(ctx, "lock", "b")
	assert.False(t, released)
	released, _ = cache.CompareAndDelete(ctx, "lock", "a")
	assert.True(t, released)

	ok, _ = cache.SetIfNotExists(ctx, "lock", "c", time.Minute)
	assert.True(t, ok)
	now = now.Add(2 * time.Minute)
	ok, _ = cache.SetIfNotExists(ctx, "lock", "d", time.Minute)
	assert.True(t, ok, "expired entries are free again")

	n, _ := cache.Increment(ctx, "counter")
	assert.Equal(t, int64(1), n)
	n, _ = cache.Increment(ctx, "counter")
	assert.Equal(t, int64(2), n)
	require.NoError(t, cache.Expire(ctx, "counter", 48*time.Hour))
	assert.Equal(t, 48*time.Hour, cache.TTL("counter"))
}
