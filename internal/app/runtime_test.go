package app

import (
	"context"
	"io"
	"log/slog"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"fptmart/backend/internal/cache"
	"fptmart/backend/internal/config"
	"fptmart/backend/internal/store/memory"
)

func testConfig() config.Config {
	return config.Config{
		AuthSecret:    "0123456789abcdef0123456789abcdef",
		StoreTimezone: "Asia/Ho_Chi_Minh",
	}
}

func TestOpenFallsBackToMemoryWithoutDatabase(t *testing.T) {
	rt, err := Open(context.Background(), testConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })

	require.IsType(t, &memory.Store{}, rt.Repo)
	require.IsType(t, cache.NoopDashboardCache{}, rt.Cache)
	require.Equal(t, "Asia/Ho_Chi_Minh", rt.Service.Location().String())
}

func TestOpenUsesReachableRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.RedisAddr = mr.Addr()

	rt, err := Open(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	require.IsType(t, &cache.RedisDashboardCache{}, rt.Cache)
	require.NoError(t, rt.Close())
}

func TestOpenDegradesWhenRedisIsDown(t *testing.T) {
	cfg := testConfig()
	cfg.RedisAddr = "127.0.0.1:1"

	rt, err := Open(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })
	require.IsType(t, cache.NoopDashboardCache{}, rt.Cache)
}

func TestOpenRejectsUnknownTimezone(t *testing.T) {
	cfg := testConfig()
	cfg.StoreTimezone = "Mars/Olympus"

	_, err := Open(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.Error(t, err)
}
