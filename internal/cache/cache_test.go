package cache

import (
	"context"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/linkage-va-hub/linkage/backend/go-services/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type summary struct {
	Total  int `json:"total"`
	Active int `json:"active"`
}

func exercise(t *testing.T, c Cache) {
	t.Helper()
	ctx := context.Background()

	var got summary
	ok, err := c.Get(ctx, "k", &got)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, c.Set(ctx, "k", summary{Total: 4, Active: 2}, time.Minute))
	ok, err = c.Get(ctx, "k", &got)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, summary{Total: 4, Active: 2}, got)

	require.NoError(t, c.Delete(ctx, "k", "unknown"))
	ok, err = c.Get(ctx, "k", &got)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemoryCache(t *testing.T) {
	before := testutil.ToFloat64(metrics.CacheLookups.WithLabelValues("memory", "hit"))
	exercise(t, NewMemory(time.Minute, time.Minute))
	require.Equal(t, before+1, testutil.ToFloat64(metrics.CacheLookups.WithLabelValues("memory", "hit")))
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemory(time.Minute, time.Minute)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "short", 1, 20*time.Millisecond))
	time.Sleep(40 * time.Millisecond)
	var v int
	ok, err := c.Get(ctx, "short", &v)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisCache(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	exercise(t, NewRedis(client, "test:"))
}

func TestRedisCache_TTL(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()
	c := New(redis.NewClient(&redis.Options{Addr: m.Addr()}), time.Minute, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "summary:b1", summary{Total: 1}, 5*time.Minute))
	require.True(t, m.Exists("linkage:cache:summary:b1"))

	m.FastForward(6 * time.Minute)
	var got summary
	ok, err := c.Get(ctx, "summary:b1", &got)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestNew_DefaultsToMemory(t *testing.T) {
	_, ok := New(nil, time.Minute, time.Minute).(*Memory)
	require.True(t, ok)
}
