package infra

import (
	"context"
	"testing"
	"time"

	"rento/middleware/ratelimit/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRedisWindow_FixedWindow(t *testing.T) {
	mr, rdb := setupRedis(t)
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	s := NewRedisWindowStore(rdb, WithWindowClock(func() time.Time { return now }))
	ctx := context.Background()

	res, err := s.Hit(ctx, "u1", testCfg)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, testCfg.MaxRequests-1, res.Remaining)
	assert.Equal(t, now.Add(time.Minute), res.ResetAt)

	for i := 1; i < testCfg.MaxRequests; i++ {
		res, err = s.Hit(ctx, "u1", testCfg)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	}
	assert.Equal(t, 0, res.Remaining)

	res, err = s.Hit(ctx, "u1", testCfg)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)

	// a denied call does not increment the counter
	v, err := mr.Get("ratelimit:window:messages:u1")
	require.NoError(t, err)
	assert.Equal(t, "3", v)

	mr.FastForward(time.Minute + time.Millisecond)
	res, err = s.Hit(ctx, "u1", testCfg)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, testCfg.MaxRequests-1, res.Remaining)
}

func TestRedisWindow_KeysAreIsolated(t *testing.T) {
	_, rdb := setupRedis(t)
	s := NewRedisWindowStore(rdb, WithWindowPrefix("rento:rl:"))
	ctx := context.Background()

	for i := 0; i < testCfg.MaxRequests+1; i++ {
		_, err := s.Hit(ctx, "a", testCfg)
		require.NoError(t, err)
	}

	res, err := s.Hit(ctx, "b", testCfg)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	other := testCfg
	other.StoreName = "favorites"
	res, err = s.Hit(ctx, "a", other)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	n, err := rdb.Exists(ctx, "rento:rl:messages:a", "rento:rl:favorites:a").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestRedisWindow_ErrorWhenUnreachable(t *testing.T) {
	mr, rdb := setupRedis(t)
	mr.Close()

	s := NewRedisWindowStore(rdb)
	_, err := s.Hit(context.Background(), "u1", testCfg)
	assert.Error(t, err)
}

var _ domain.WindowStore = (*RedisWindowStore)(nil)
var _ domain.WindowStore = (*MemoryWindowStore)(nil)
