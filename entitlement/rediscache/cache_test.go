package rediscache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/cashier/entitlement"
	"github.com/xraph/cashier/entitlement/rediscache"
	"github.com/xraph/cashier/plan"
	"github.com/xraph/cashier/subscription"
)

func newCache(t *testing.T) (*rediscache.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return rediscache.New(client), mr
}

func TestCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, mr := newCache(t)

	_, err := c.Get(ctx, "u1")
	require.ErrorIs(t, err, entitlement.ErrCacheMiss)

	snap := &entitlement.Snapshot{
		UserID:   "u1",
		Status:   subscription.UserActive,
		PlanSlug: "premium",
		Features: map[string]bool{plan.FeatureSeeWhoLiked: true},
		Limits:   map[string]plan.Limit{plan.LimitDailyLikes: {Max: 200, Period: plan.PeriodDaily}},
	}
	require.NoError(t, c.Set(ctx, snap, 5*time.Minute))
	assert.True(t, mr.Exists(rediscache.DefaultPrefix+"u1"))

	got, err := c.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "premium", got.PlanSlug)
	assert.True(t, got.HasFeature(plan.FeatureSeeWhoLiked))
	assert.Equal(t, int64(200), got.Limits[plan.LimitDailyLikes].Max)

	mr.FastForward(5 * time.Minute)
	_, err = c.Get(ctx, "u1")
	assert.ErrorIs(t, err, entitlement.ErrCacheMiss)
}

func TestCacheInvalidate(t *testing.T) {
	ctx := context.Background()
	c, _ := newCache(t)

	require.NoError(t, c.Set(ctx, &entitlement.Snapshot{UserID: "u2"}, time.Minute))
	require.NoError(t, c.Invalidate(ctx, "u2"))

	_, err := c.Get(ctx, "u2")
	assert.ErrorIs(t, err, entitlement.ErrCacheMiss)
}

func TestCacheCorruptEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	c, mr := newCache(t)

	require.NoError(t, mr.Set(rediscache.DefaultPrefix+"u3", "{not json"))
	_, err := c.Get(ctx, "u3")
	assert.ErrorIs(t, err, entitlement.ErrCacheMiss)
	assert.False(t, mr.Exists(rediscache.DefaultPrefix+"u3"))
}

func TestCachePrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	c := rediscache.New(client, rediscache.WithPrefix("app1:"))
	require.NoError(t, c.Set(context.Background(), &entitlement.Snapshot{UserID: "u4"}, time.Minute))
	assert.True(t, mr.Exists("app1:u4"))
	assert.NoError(t, c.Ping(context.Background()))
}
