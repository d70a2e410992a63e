package ratelimit

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newLimiter(t *testing.T) (Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return Limiter{Client: client, Prefix: "rl:checkout:"}, mr
}

func TestAllowCountsWithinWindow(t *testing.T) {
	limiter, mr := newLimiter(t)
	ctx := context.Background()
	window := 2 * time.Second
	const max = 2

	for i := 0; i < max; i++ {
		allowed, remaining, _, err := limiter.Allow(ctx, "shop-1:10.0.0.1", window, max)
		require.NoError(t, err)
		require.True(t, allowed, "attempt %d should fit the window", i+1)
		require.Equal(t, max-(i+1), remaining)
	}

	allowed, remaining, _, err := limiter.Allow(ctx, "shop-1:10.0.0.1", window, max)
	require.NoError(t, err)
	require.False(t, allowed)
	require.Zero(t, remaining)

	mr.FastForward(window)
	allowed, _, _, err = limiter.Allow(ctx, "shop-1:10.0.0.1", window, max)
	require.NoError(t, err)
	require.True(t, allowed, "window should slide past expired events")
}

func TestAllowKeysAreIndependent(t *testing.T) {
	limiter, _ := newLimiter(t)
	ctx := context.Background()

	allowed, _, _, err := limiter.Allow(ctx, "shop-1:10.0.0.1", time.Second, 1)
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, _, _, err = limiter.Allow(ctx, "shop-2:10.0.0.1", time.Second, 1)
	require.NoError(t, err)
	require.True(t, allowed, "a saturated shop must not throttle another")
}

func TestAllowDisabledWithoutClient(t *testing.T) {
	allowed, remaining, _, err := Limiter{}.Allow(context.Background(), "any", time.Second, 3)
	require.NoError(t, err)
	require.True(t, allowed)
	require.Equal(t, 3, remaining)
}
