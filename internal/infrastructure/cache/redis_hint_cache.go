package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	appvendor "github.com/invoiceflow/backend/internal/application/vendor"
	"github.com/redis/go-redis/v9"
)

// RedisHintCache implements the vendor hint cache on Redis. This is suitable
// for deployments where multiple instances share extraction hint state.
type RedisHintCache struct {
	client    *redis.Client
	keyPrefix string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisHintCache creates a new Redis-backed hint cache
func NewRedisHintCache(cfg RedisConfig) (*RedisHintCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisHintCache{
		client:    client,
		keyPrefix: "vendor:",
	}, nil
}

// NewRedisHintCacheWithClient creates a cache with an existing Redis client.
// This is useful for testing or when sharing a client across components.
func NewRedisHintCacheWithClient(client *redis.Client, keyPrefix string) *RedisHintCache {
	if keyPrefix == "" {
		keyPrefix = "vendor:"
	}
	return &RedisHintCache{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Get returns the cached value for key. A miss is (value "", found false).
func (c *RedisHintCache) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := c.client.Get(ctx, c.keyPrefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read hint cache: %w", err)
	}
	return value, true, nil
}

// Set stores value under key with the given TTL
func (c *RedisHintCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.keyPrefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write hint cache: %w", err)
	}
	return nil
}

// Delete drops the cached value for key
func (c *RedisHintCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to invalidate hint cache: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (c *RedisHintCache) Close() error {
	return c.client.Close()
}

// Ensure RedisHintCache implements the application's HintCache
var _ appvendor.HintCache = (*RedisHintCache)(nil)
