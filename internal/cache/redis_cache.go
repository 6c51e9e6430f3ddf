package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"fptmart/backend/internal/domain"
)

const (
	dashboardVersionKey = "fptmart:dashboard:version"
	dashboardKeyPrefix  = "fptmart:dashboard"
)

type RedisDashboardCache struct {
	client *redis.Client
}

func NewRedisDashboardCache(addr string, password string, db int) *RedisDashboardCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisDashboardCache{client: client}
}

func (c *RedisDashboardCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisDashboardCache) Close() error {
	return c.client.Close()
}

// Version returns the current snapshot generation, starting at 1.
func (c *RedisDashboardCache) Version(ctx context.Context) (int64, error) {
	ver, err := c.client.Get(ctx, dashboardVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.SetNX(ctx, dashboardVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return c.client.Get(ctx, dashboardVersionKey).Int64()
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

func snapshotKey(day string, version int64) string {
	return fmt.Sprintf("%s:%s:%d", dashboardKeyPrefix, day, version)
}

func (c *RedisDashboardCache) Get(ctx context.Context, day string, version int64) (*domain.DashboardSummary, bool, error) {
	val, err := c.client.Get(ctx, snapshotKey(day, version)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var summary domain.DashboardSummary
	if err := json.Unmarshal(val, &summary); err != nil {
		return nil, false, err
	}
	return &summary, true, nil
}

// Set stores value under version. Snapshots for a version that has since
// been bumped are written but never read again.
func (c *RedisDashboardCache) Set(ctx context.Context, day string, version int64, value *domain.DashboardSummary, ttl time.Duration) error {
	if value == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, snapshotKey(day, version), payload, ttl).Err()
}

// Bump moves to a new generation; older snapshots expire on their TTL.
func (c *RedisDashboardCache) Bump(ctx context.Context) error {
	return c.client.Incr(ctx, dashboardVersionKey).Err()
}
