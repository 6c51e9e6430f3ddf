package cache

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"fptmart/backend/internal/domain"
)

func newTestCache(t *testing.T) (*RedisDashboardCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := NewRedisDashboardCache(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestRedisDashboardCacheRoundTrip(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	ver, err := c.Version(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), ver)

	_, found, err := c.Get(ctx, "2026-03-05", ver)
	require.NoError(t, err)
	require.False(t, found)

	summary := &domain.DashboardSummary{TodayRevenue: 125000, TodaySalesCount: 4, LowStockCount: 2}
	require.NoError(t, c.Set(ctx, "2026-03-05", ver, summary, time.Minute))

	got, found, err := c.Get(ctx, "2026-03-05", ver)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, int64(125000), got.TodayRevenue)
	require.Equal(t, 4, got.TodaySalesCount)
}

func TestRedisDashboardCacheBumpInvalidates(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	ver, err := c.Version(ctx)
	require.NoError(t, err)
	require.NoError(t, c.Set(ctx, "2026-03-05", ver, &domain.DashboardSummary{TodaySalesCount: 1}, time.Minute))
	require.NoError(t, c.Bump(ctx))

	next, err := c.Version(ctx)
	require.NoError(t, err)
	require.Equal(t, ver+1, next)
	_, found, err := c.Get(ctx, "2026-03-05", next)
	require.NoError(t, err)
	require.False(t, found)

	raw, err := mr.Get(dashboardVersionKey)
	require.NoError(t, err)
	require.Equal(t, "2", raw)
}

func TestRedisDashboardCacheSetUnderStaleVersionIsUnreachable(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	seen, err := c.Version(ctx)
	require.NoError(t, err)
	// A write commits and bumps while the snapshot is still being built.
	require.NoError(t, c.Bump(ctx))
	require.NoError(t, c.Set(ctx, "2026-03-05", seen, &domain.DashboardSummary{TodaySalesCount: 0}, time.Minute))

	current, err := c.Version(ctx)
	require.NoError(t, err)
	_, found, err := c.Get(ctx, "2026-03-05", current)
	require.NoError(t, err)
	require.False(t, found)
}

func TestRedisDashboardCacheTTL(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "2026-03-05", 1, &domain.DashboardSummary{}, time.Minute))
	mr.FastForward(2 * time.Minute)

	_, found, err := c.Get(ctx, "2026-03-05", 1)
	require.NoError(t, err)
	require.False(t, found)
}

func TestNoopDashboardCache(t *testing.T) {
	var c DashboardCache = NoopDashboardCache{}
	ctx := context.Background()
	ver, err := c.Version(ctx)
	require.NoError(t, err)
	require.NoError(t, c.Set(ctx, "d", ver, &domain.DashboardSummary{}, time.Minute))
	_, found, err := c.Get(ctx, "d", ver)
	require.NoError(t, err)
	require.False(t, found)
	require.NoError(t, c.Bump(ctx))
}
