package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisPrefix = "pdfsum:"
	redisPingTimeout   = 5 * time.Second
)

// RedisConfig holds Redis connection configuration. Addr may be a host:port
// pair or a redis:// URL.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
	Prefix   string
}

// RedisClient shares cached summaries between runs and between hosts
// pointing at the same Redis.
type RedisClient struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisClient connects and pings Redis.
func NewRedisClient(cfg RedisConfig) (*RedisClient, error) {
	opts, err := redisOptions(cfg)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisClient{rdb: rdb, prefix: prefix}, nil
}

func redisOptions(cfg RedisConfig) (*redis.Options, error) {
	if strings.HasPrefix(cfg.Addr, "redis://") || strings.HasPrefix(cfg.Addr, "rediss://") {
		opts, err := redis.ParseURL(cfg.Addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		if cfg.PoolSize > 0 {
			opts.PoolSize = cfg.PoolSize
		}
		return opts, nil
	}
	return &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}, nil
}

func (c *RedisClient) key(k string) string { return c.prefix + k }

// Get returns ErrCacheMiss for absent or expired keys.
func (c *RedisClient) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.rdb.Get(ctx, c.key(key)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, ErrCacheMiss
	case err != nil:
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, nil
}

// Set stores value; a zero ttl keeps it until evicted by Redis.
func (c *RedisClient) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, c.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (c *RedisClient) Delete(ctx context.Context, key string) error {
	if err := c.rdb.Del(ctx, c.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

func (c *RedisClient) Close() error {
	return c.rdb.Close()
}

var (
	_ Client = (*MemoryClient)(nil)
	_ Client = (*RedisClient)(nil)
)
