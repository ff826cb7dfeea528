package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jwebster45206/story-graph/pkg/editor"
	"github.com/redis/go-redis/v9"
)

// RedisCache stores memoized graphs in Redis.
type RedisCache struct {
	client *redis.Client
	logger *slog.Logger
}

// Ensure RedisCache implements the editor's Cache interface
var _ editor.Cache = (*RedisCache)(nil)

func NewRedisCache(client *redis.Client, logger *slog.Logger) *RedisCache {
	return &RedisCache{
		client: client,
		logger: logger,
	}
}

func (r *RedisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if err := r.client.Set(ctx, key, value, expiration).Err(); err != nil {
		r.logger.Error("Redis SET failed", "key", key, "error", err)
		return fmt.Errorf("redis set failed: %w", err)
	}

	r.logger.Debug("Redis SET successful", "key", key)
	return nil
}

// Get returns an empty string when the key does not exist.
func (r *RedisCache) Get(ctx context.Context, key string) (string, error) {
	value, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			r.logger.Debug("Redis key not found", "key", key)
			return "", nil
		}
		r.logger.Error("Redis GET failed", "key", key, "error", err)
		return "", fmt.Errorf("redis get failed: %w", err)
	}

	r.logger.Debug("Redis GET successful", "key", key, "value_length", len(value))
	return value, nil
}

// Del removes keys, e.g. to drop every cached graph after a scenario file changes.
func (r *RedisCache) Del(ctx context.Context, keys ...string) error {
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		r.logger.Error("Redis DEL failed", "keys", keys, "error", err)
		return fmt.Errorf("redis del failed: %w", err)
	}
	return nil
}

// Purge deletes every memoized graph.
func (r *RedisCache) Purge(ctx context.Context) (int, error) {
	var n int
	iter := r.client.Scan(ctx, 0, editor.KeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := r.Del(ctx, iter.Val()); err != nil {
			return n, err
		}
		n++
	}
	if err := iter.Err(); err != nil {
		return n, fmt.Errorf("redis scan failed: %w", err)
	}
	return n, nil
}
