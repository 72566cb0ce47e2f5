package cache_test

import (
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/medfolio/backend/internal/search/cache"
)

func newRedisCache(t *testing.T, ttl time.Duration) (*cache.Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	c, err := cache.NewRedis(mr.Host(), port, "", 0, 100, ttl)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func TestRedisRoundTrip(t *testing.T) {
	c, _ := newRedisCache(t, time.Minute)
	value := results("doc-1", "doc-2")

	c.Set(ctx, "recent labs", "user-1", cache.Filters{}, value)

	got, ok := c.Get(ctx, "recent labs", "user-1", cache.Filters{})
	require.True(t, ok)
	require.Equal(t, value, got)
}

func TestRedisMissOnUnknownKey(t *testing.T) {
	c, _ := newRedisCache(t, time.Minute)

	_, ok := c.Get(ctx, "recent labs", "user-1", cache.Filters{})
	require.False(t, ok)
}

func TestRedisInvalidateUser(t *testing.T) {
	c, _ := newRedisCache(t, time.Minute)
	c.Set(ctx, "labs", "user-1", cache.Filters{}, results("doc-1"))
	c.Set(ctx, "labs", "user-2", cache.Filters{}, results("doc-2"))

	c.InvalidateUser(ctx, "user-1")

	_, ok := c.Get(ctx, "labs", "user-1", cache.Filters{})
	require.False(t, ok)

	_, ok = c.Get(ctx, "labs", "user-2", cache.Filters{})
	require.True(t, ok)
}

func TestRedisSlidingTTL(t *testing.T) {
	c, mr := newRedisCache(t, time.Minute)
	c.Set(ctx, "labs", "user-1", cache.Filters{}, results("doc-1"))

	// Each hit inside the window resets the expiry clock.
	mr.FastForward(40 * time.Second)
	_, ok := c.Get(ctx, "labs", "user-1", cache.Filters{})
	require.True(t, ok)

	mr.FastForward(40 * time.Second)
	_, ok = c.Get(ctx, "labs", "user-1", cache.Filters{})
	require.True(t, ok)

	mr.FastForward(70 * time.Second)
	_, ok = c.Get(ctx, "labs", "user-1", cache.Filters{})
	require.False(t, ok)
}

func TestRedisCorruptEntryTreatedAsMiss(t *testing.T) {
	c, mr := newRedisCache(t, time.Minute)

	key := "search:" + cache.Key("labs", "user-1", cache.Filters{})
	require.NoError(t, mr.Set(key, "{not json"))

	_, ok := c.Get(ctx, "labs", "user-1", cache.Filters{})
	require.False(t, ok)
}

func TestRedisStatsCountsLiveEntries(t *testing.T) {
	c, _ := newRedisCache(t, time.Minute)

	stats := c.Stats()
	require.Equal(t, 0, stats.Size)
	require.Equal(t, 100, stats.MaxSize)
	require.Equal(t, time.Minute, stats.TTL)

	c.Set(ctx, "labs", "user-1", cache.Filters{}, results("doc-1"))
	c.Set(ctx, "scans", "user-1", cache.Filters{}, results("doc-2"))
	require.Equal(t, 2, c.Stats().Size)

	c.InvalidateUser(ctx, "user-1")
	require.Equal(t, 0, c.Stats().Size)
}
