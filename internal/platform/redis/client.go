// Package redis provides the shared Redis client backing the consent
// read-through cache.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"hl7bridge/internal/platform/config"
)

// Client wraps go-redis with a health probe for the readiness endpoint.
type Client struct {
	*redis.Client
}

// New dials Redis from the given configuration and verifies the connection
// before returning. An empty URL means the cache is not configured; both
// return values are nil and callers fall back to uncached stores.
func New(cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout

	client := redis.NewClient(opts)

	// A configured but unreachable cache fails startup.
	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &Client{Client: client}, nil
}

// Health reports whether the connection is serving commands.
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}

// Close releases the connection pool.
func (c *Client) Close() error {
	return c.Client.Close()
}
