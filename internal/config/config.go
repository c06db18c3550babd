package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

type Config struct {
	Env         string `env:"APP_ENV, default=dev"`
	Port        int    `env:"PORT, default=8080"`
	StoreDriver string `env:"STORE_DRIVER, default=memory"`

	// MediaDir is the root of uploaded product media.
	MediaDir       string   `env:"MEDIA_DIR, default=./data/media"`
	MaxUploadBytes int64    `env:"MAX_UPLOAD_BYTES, default=52428800"`
	MaxBodyBytes   int64    `env:"MAX_BODY_BYTES, default=1048576"`
	CORSOrigins    []string `env:"CORS_ORIGINS, default=http://localhost:3000"`

	// requests per minute per client ip on the auth endpoints
	AuthRateLimit int `env:"AUTH_RATE_LIMIT, default=20"`
	// checkouts per minute per principal
	CheckoutRateLimit int `env:"CHECKOUT_RATE_LIMIT, default=10"`

	ProductsCacheTTL time.Duration `env:"PRODUCTS_CACHE_TTL, default=30s"`

	TracingEnabled bool    `env:"TRACING_ENABLED, default=false"`
	OTLPEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT, default=localhost:4317"`
	TraceSampling  float64 `env:"TRACING_SAMPLE_RATIO, default=1"`

	DB     DBConfig
	Redis  RedisConfig
	Auth   AuthConfig
	Admin  AdminConfig
	Worker WorkerConfig
}

type DBConfig struct {
	Host     string `env:"DB_HOST, default=127.0.0.1"`
	Port     string `env:"DB_PORT, default=5432"`
	User     string `env:"DB_USER, default=storefront"`
	Password string `env:"DB_PASSWORD, default=storefront"`
	Name     string `env:"DB_NAME, default=storefront"`
	SSLMode  string `env:"DB_SSLMODE, default=disable"`
}

// URL builds the postgres connection string.
func (c DBConfig) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + c.Port,
		Path:     "/" + c.Name,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}

type RedisConfig struct {
	// empty disables the order queue
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB, default=0"`
	QueueKey string `env:"REDIS_QUEUE_KEY, default=storefront:jobs"`
}

type AuthConfig struct {
	JWTSecret          string        `env:"JWT_SECRET, required"`
	Issuer             string        `env:"JWT_ISSUER, default=storefront"`
	CustomerAccessTTL  time.Duration `env:"CUSTOMER_ACCESS_TTL, default=30m"`
	AdminAccessTTL     time.Duration `env:"ADMIN_ACCESS_TTL, default=1m"`
	RefreshTTL         time.Duration `env:"REFRESH_TTL, default=168h"`
	MaxSessionLifetime time.Duration `env:"MAX_SESSION_LIFETIME, default=720h"`
}

type AdminConfig struct {
	Email    string `env:"ADMIN_EMAIL"`
	Password string `env:"ADMIN_PASSWORD"`
}

type WorkerConfig struct {
	Concurrency   int           `env:"WORKER_CONCURRENCY, default=4"`
	MaxAttempts   int           `env:"WORKER_MAX_ATTEMPTS, default=5"`
	PollInterval  time.Duration `env:"WORKER_POLL_INTERVAL, default=1s"`
	JobTimeout    time.Duration `env:"WORKER_JOB_TIMEOUT, default=10s"`
	ShutdownGrace time.Duration `env:"WORKER_SHUTDOWN_GRACE, default=10s"`
	MetricsPort   int           `env:"WORKER_METRICS_PORT, default=9091"`

	// simulated provider behaviour for the log notifier
	NotifierDelay time.Duration `env:"NOTIFIER_DELAY, default=0s"`
	NotifierFail  bool          `env:"NOTIFIER_FAIL, default=false"`
}

func (c Config) IsProd() bool {
	return c.Env == "prod"
}

// Load reads a .env file when present, then the process environment.
func Load(ctx context.Context) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return Config{}, fmt.Errorf("process env: %w", err)
	}
	return cfg, cfg.validate()
}

// LoadWith resolves configuration from l only. Used by tests.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: l,
	}); err != nil {
		return Config{}, fmt.Errorf("process env: %w", err)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch c.StoreDriver {
	case StoreMemory, StorePostgres:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.Port <= 0 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	if c.TraceSampling < 0 || c.TraceSampling > 1 {
		return fmt.Errorf("TRACING_SAMPLE_RATIO must be within [0,1], got %v", c.TraceSampling)
	}
	if c.Worker.Concurrency <= 0 {
		return fmt.Errorf("invalid WORKER_CONCURRENCY %d", c.Worker.Concurrency)
	}
	return nil
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}
