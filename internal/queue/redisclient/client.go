// Package redisclient holds the Redis connection and the job queue built on it.
package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultIOTimeout = 2 * time.Second

type Config struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
	// IOTimeout bounds dial, read and write; blocking commands extend it.
	IOTimeout time.Duration
}

type Client struct {
	rdb *redis.Client
}

func New(cfg Config) *Client {
	timeout := cfg.IOTimeout
	if timeout <= 0 {
		timeout = defaultIOTimeout
	}

	return &Client{rdb: redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	})}
}

// Connect builds a client and fails fast when the server does not answer.
func Connect(ctx context.Context, cfg Config) (*Client, error) {
	c := New(cfg)

	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := c.Ping(pctx); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis %s: %w", cfg.Addr, err)
	}
	return c, nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

func (c *Client) Raw() *redis.Client {
	return c.rdb
}
