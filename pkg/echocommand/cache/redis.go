// Package cache provides a Redis-backed store for oracle verdicts.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultKeyPrefix namespaces verdict keys.
	DefaultKeyPrefix = "echocommand:verdict:"
	DefaultTTL       = 24 * time.Hour
)

type Options struct {
	Addr      string
	Password  string
	DB        int
	TTL       time.Duration
	KeyPrefix string
}

// RedisVerdictCache wraps the go-redis client
type RedisVerdictCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisVerdictCache connects to Redis and verifies the connection.
func NewRedisVerdictCache(ctx context.Context, opts Options) (*RedisVerdictCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return newWithClient(rdb, opts), nil
}

func newWithClient(rdb *redis.Client, opts Options) *RedisVerdictCache {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = DefaultKeyPrefix
	}
	return &RedisVerdictCache{rdb: rdb, ttl: opts.TTL, prefix: opts.KeyPrefix}
}

func (c *RedisVerdictCache) Get(ctx context.Context, key string) (bool, bool, error) {
	val, err := c.rdb.Get(ctx, c.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	return val == "1", true, nil
}

func (c *RedisVerdictCache) Set(ctx context.Context, key string, match bool) error {
	val := "0"
	if match {
		val = "1"
	}
	return c.rdb.Set(ctx, c.prefix+key, val, c.ttl).Err()
}

// Clear deletes every key under the cache prefix.
func (c *RedisVerdictCache) Clear(ctx context.Context) error {
	iter := c.rdb.Scan(ctx, 0, c.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

func (c *RedisVerdictCache) Close() error {
	return c.rdb.Close()
}
