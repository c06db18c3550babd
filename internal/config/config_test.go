package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWith_Defaults(t *testing.T) {
	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET": "s3cret",
	}))
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, StoreMemory, cfg.StoreDriver)
	assert.Equal(t, 30*time.Minute, cfg.Auth.CustomerAccessTTL)
	assert.Equal(t, time.Minute, cfg.Auth.AdminAccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.RefreshTTL)
	assert.Equal(t, 30*24*time.Hour, cfg.Auth.MaxSessionLifetime)
	assert.Empty(t, cfg.Redis.Addr)
	assert.False(t, cfg.IsProd())
}

func TestLoadWith_RequiresSecret(t *testing.T) {
	_, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{}))
	require.Error(t, err)
}

func TestLoadWith_Overrides(t *testing.T) {
	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":       "s3cret",
		"APP_ENV":          "prod",
		"STORE_DRIVER":     "postgres",
		"CORS_ORIGINS":     "https://a.example,https://b.example",
		"ADMIN_ACCESS_TTL": "2m",
	}))
	require.NoError(t, err)

	assert.True(t, cfg.IsProd())
	assert.Equal(t, StorePostgres, cfg.StoreDriver)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, 2*time.Minute, cfg.Auth.AdminAccessTTL)
}

func TestLoadWith_UnknownDriver(t *testing.T) {
	_, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":   "s3cret",
		"STORE_DRIVER": "mongo",
	}))
	require.Error(t, err)
}

func TestDBConfigURL(t *testing.T) {
	c := DBConfig{Host: "db", Port: "5432", User: "app", Password: "p@ss", Name: "shop", SSLMode: "disable"}
	assert.Equal(t, "postgres://app:p%40ss@db:5432/shop?sslmode=disable", c.URL())
}

func TestLoadWith_WorkerAndTracing(t *testing.T) {
	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":         "s3cret",
		"WORKER_JOB_TIMEOUT": "3s",
		"NOTIFIER_FAIL":      "true",
	}))
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, cfg.Worker.JobTimeout)
	assert.True(t, cfg.Worker.NotifierFail)
	assert.Equal(t, 5, cfg.Worker.MaxAttempts)
	assert.Equal(t, 1.0, cfg.TraceSampling)

	_, err = LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":           "s3cret",
		"TRACING_SAMPLE_RATIO": "1.5",
	}))
	require.Error(t, err)
}
