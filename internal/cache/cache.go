package cache

import (
	"context"
	"time"

	"fptmart/backend/internal/domain"
)

// DashboardCache stores dashboard snapshots per store day and generation.
// Callers read Version once, build, then Set under that same version, so a
// Bump that lands mid-build leaves the stale snapshot unreachable.
type DashboardCache interface {
	Version(ctx context.Context) (int64, error)
	Get(ctx context.Context, day string, version int64) (*domain.DashboardSummary, bool, error)
	Set(ctx context.Context, day string, version int64, value *domain.DashboardSummary, ttl time.Duration) error
	Bump(ctx context.Context) error
}

type NoopDashboardCache struct{}

func (NoopDashboardCache) Version(_ context.Context) (int64, error) {
	return 0, nil
}

func (NoopDashboardCache) Get(_ context.Context, _ string, _ int64) (*domain.DashboardSummary, bool, error) {
	return nil, false, nil
}

func (NoopDashboardCache) Set(_ context.Context, _ string, _ int64, _ *domain.DashboardSummary, _ time.Duration) error {
	return nil
}

func (NoopDashboardCache) Bump(_ context.Context) error {
	return nil
}
