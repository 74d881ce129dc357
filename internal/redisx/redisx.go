// Package redisx wraps the Redis client behind a minimal interface so the
// store can be exercised in tests without a running server.
package redisx

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Options configures the client. UniversalClient covers both single-node
// (one address) and cluster (several addresses) deployments, so callers do
// not care which one they talk to.
type Options struct {
	Addrs    []string
	Password string
}

// Client is the subset of redis commands the config store needs.
type Client interface {
	Close() error
	Ping(ctx context.Context) *redis.StatusCmd

	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
}

// NewUniversalClient builds a redis.UniversalClient and verifies
// connectivity with a short ping, so a misconfigured address fails at
// startup instead of on first use.
func NewUniversalClient(ctx context.Context, opt Options) (Client, error) {
	if len(opt.Addrs) == 0 {
		return nil, errors.New("redis addrs is empty")
	}

	c := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    opt.Addrs,
		Password: opt.Password,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := c.Ping(pingCtx).Err(); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}
