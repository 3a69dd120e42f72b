package intra

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// ResponseCache stores raw 42-API response bodies keyed by endpoint. A cache
// miss and a cache failure look the same to the client: it falls through to
// the network.
type ResponseCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, body []byte, ttl time.Duration)
}

// NoopCache disables response caching. Used when REDIS_URL is unset.
type NoopCache struct{}

func (NoopCache) Get(context.Context, string) ([]byte, bool) { return nil, false }
func (NoopCache) Set(context.Context, string, []byte, time.Duration) {}

// RedisCache is a fail-open Redis-backed ResponseCache: if Redis is down,
// every lookup is a miss and every store is dropped with a warning, and the
// proxy keeps serving from the upstream API.
type RedisCache struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

// NewRedisCache connects a cache to the Redis at the given URL
// (e.g. "redis://localhost:6379").
func NewRedisCache(redisURL, prefix string, logger *slog.Logger) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &RedisCache{
		client: redis.NewClient(opts),
		prefix: prefix,
		logger: logger,
	}, nil
}

// NewRedisCacheFromClient wraps an existing client. Used in tests with
// miniredis.
func NewRedisCacheFromClient(client *redis.Client, prefix string, logger *slog.Logger) *RedisCache {
	return &RedisCache{client: client, prefix: prefix, logger: logger}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	body, err := c.client.Get(ctx, c.prefix+":"+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("intra cache read failed", slog.String("key", key), slog.String("error", err.Error()))
		}
		return nil, false
	}
	return body, true
}

func (c *RedisCache) Set(ctx context.Context, key string, body []byte, ttl time.Duration) {
	if err := c.client.Set(ctx, c.prefix+":"+key, body, ttl).Err(); err != nil {
		c.logger.Warn("intra cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}
