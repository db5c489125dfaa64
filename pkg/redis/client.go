package redis

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/healthdash/backend/pkg/config"
)

// ErrDisabled is returned by Ping on a client without a connection
var ErrDisabled = errors.New("redis disabled")

const connectTimeout = 3 * time.Second

// Client wraps a go-redis connection. A disabled client (including a nil
// *Client) turns every cache and rate-limit call into a no-op.
// ⭐ SSOT: Redis connections are managed here only
type Client struct {
	rdb *redis.Client
}

// Connect dials Redis and verifies the connection. With REDIS_ENABLED off it
// returns a disabled client and no error.
func Connect(ctx context.Context, rc config.RedisConfig) (*Client, error) {
	if !rc.Enabled {
		return Disabled(), nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(rc.Host, rc.Port),
		Password: rc.Password,
		DB:       rc.DB,
	})

	c := &Client{rdb: rdb}
	if _, err := c.Ping(ctx); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis %s: %w", rdb.Options().Addr, err)
	}
	return c, nil
}

// Disabled returns a client with Redis turned off
func Disabled() *Client {
	return &Client{}
}

// Ping round-trips to the server and reports the latency
func (c *Client) Ping(ctx context.Context) (time.Duration, error) {
	if !c.Enabled() {
		return 0, ErrDisabled
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	start := time.Now()
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return 0, err
	}
	return time.Since(start), nil
}

func (c *Client) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.rdb.Close()
}

// Enabled reports whether calls reach a server
func (c *Client) Enabled() bool {
	return c != nil && c.rdb != nil
}

// Redis exposes the go-redis client for scripts and pipelines
func (c *Client) Redis() *redis.Client {
	return c.rdb
}
