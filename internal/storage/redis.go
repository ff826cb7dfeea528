package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jwebster45206/story-graph/pkg/storage"
	"github.com/redis/go-redis/v9"
)

// DefaultSessionTTL is how long an idle playback session is kept.
const DefaultSessionTTL = time.Hour

// RedisStorage implements the Storage interface using Redis for playback sessions
// and the filesystem for scenarios
type RedisStorage struct {
	client     *redis.Client
	logger     *slog.Logger
	dataDir    string
	sessionTTL time.Duration
}

// Ensure RedisStorage implements Storage interface
var _ storage.Storage = (*RedisStorage)(nil)

// NewRedisClient accepts either a redis:// URL or a bare host:port address.
func NewRedisClient(redisURL string) (*redis.Client, error) {
	if strings.Contains(redisURL, "://") {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis URL: %w", err)
		}
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{Addr: redisURL}), nil
}

// NewRedisStorage creates a new Redis storage instance
func NewRedisStorage(client *redis.Client, dataDir string, sessionTTL time.Duration, logger *slog.Logger) *RedisStorage {
	if dataDir == "" {
		dataDir = "./data"
	}
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}

	return &RedisStorage{
		client:     client,
		logger:     logger,
		dataDir:    dataDir,
		sessionTTL: sessionTTL,
	}
}

// Health and lifecycle methods

func (r *RedisStorage) Ping(ctx context.Context) error {
	cmd := r.client.Ping(ctx)
	if err := cmd.Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// GetClient returns the underlying client so other Redis-backed services can share the connection.
func (r *RedisStorage) GetClient() *redis.Client {
	return r.client
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStorage) WaitForConnection(ctx context.Context) error {
	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := range maxRetries {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}
