// Package cache keeps short-lived token rates in Redis so positions sharing a
// pair do not query the subgraph for the same prices.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rovshanmuradov/lp-monitor/internal/domain"
)

// redisClient is the subset of *redis.Client used by the cache.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// RedisRateCache stores domain.Rates as JSON under rates:<chain>:<position>.
type RedisRateCache struct {
	client redisClient
	ttl    time.Duration
}

func NewRedisRateCache(opts Options) *RedisRateCache {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return newRedisRateCache(client, opts.TTL)
}

func newRedisRateCache(client redisClient, ttl time.Duration) *RedisRateCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisRateCache{client: client, ttl: ttl}
}

func rateKey(chainID, positionID int64) string {
	return fmt.Sprintf("rates:%d:%d", chainID, positionID)
}

// Ping checks the connection.
func (c *RedisRateCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Get returns the cached rates. A missing key is reported as ok=false with a
// nil error.
func (c *RedisRateCache) Get(ctx context.Context, chainID, positionID int64) (domain.Rates, bool, error) {
	data, err := c.client.Get(ctx, rateKey(chainID, positionID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Rates{}, false, nil
		}
		return domain.Rates{}, false, fmt.Errorf("get rates: %w", err)
	}

	var rates domain.Rates
	if err := json.Unmarshal([]byte(data), &rates); err != nil {
		return domain.Rates{}, false, fmt.Errorf("unmarshal rates: %w", err)
	}
	if err := rates.Validate(); err != nil {
		return domain.Rates{}, false, err
	}
	return rates, true, nil
}

func (c *RedisRateCache) Set(ctx context.Context, chainID, positionID int64, rates domain.Rates) error {
	data, err := json.Marshal(rates)
	if err != nil {
		return fmt.Errorf("marshal rates: %w", err)
	}
	if err := c.client.Set(ctx, rateKey(chainID, positionID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("set rates: %w", err)
	}
	return nil
}

func (c *RedisRateCache) Close() error {
	return c.client.Close()
}
