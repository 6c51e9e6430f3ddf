package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration read from the environment.
type Config struct {
	AppEnv         string        `envconfig:"APP_ENV" default:"development"`
	AppAddr        string        `envconfig:"APP_ADDR" default:":8080"`
	RequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`
	AllowedOrigin  string        `envconfig:"ALLOWED_ORIGIN" default:"http://127.0.0.1:3000"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL    string `envconfig:"DATABASE_URL"`
	MigrateOnStart bool   `envconfig:"MIGRATE_ON_START" default:"true"`

	RedisAddr         string        `envconfig:"REDIS_ADDR"`
	RedisPassword     string        `envconfig:"REDIS_PASSWORD"`
	RedisDB           int           `envconfig:"REDIS_DB" default:"0"`
	DashboardCacheTTL time.Duration `envconfig:"DASHBOARD_CACHE_TTL" default:"60s"`

	AuthSecret     string        `envconfig:"AUTH_SECRET" required:"true"`
	AccessTokenTTL time.Duration `envconfig:"ACCESS_TOKEN_TTL" default:"8h"`
	LoginRateLimit int           `envconfig:"LOGIN_RATE_LIMIT" default:"10"`

	StoreTimezone     string `envconfig:"STORE_TIMEZONE" default:"Asia/Ho_Chi_Minh"`
	WorkerConcurrency int    `envconfig:"WORKER_CONCURRENCY" default:"5"`
	WorkerMetricsAddr string `envconfig:"WORKER_METRICS_ADDR" default:":9091"`
}

// Load reads the environment. It fails when AUTH_SECRET is missing or the
// store time zone is unknown.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	cfg.AuthSecret = strings.TrimSpace(cfg.AuthSecret)
	if cfg.AuthSecret == "" {
		return Config{}, errors.New("auth secret must be provided")
	}
	if _, err := cfg.Location(); err != nil {
		return Config{}, err
	}
	if cfg.LoginRateLimit < 1 {
		cfg.LoginRateLimit = 10
	}
	if cfg.WorkerConcurrency < 1 {
		cfg.WorkerConcurrency = 5
	}
	return cfg, nil
}

func (c Config) Address() string {
	if c.AppAddr == "" {
		return ":8080"
	}
	if !strings.Contains(c.AppAddr, ":") {
		return fmt.Sprintf(":%s", c.AppAddr)
	}
	return c.AppAddr
}

// Location is the zone that defines the store's calendar day.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.StoreTimezone)
	if err != nil {
		return nil, fmt.Errorf("store timezone %q: %w", c.StoreTimezone, err)
	}
	return loc, nil
}

func (c Config) IsProduction() bool {
	return c.AppEnv == "production"
}
