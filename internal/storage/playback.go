package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jwebster45206/story-graph/pkg/state"
	"github.com/jwebster45206/story-graph/pkg/storage"
	"github.com/redis/go-redis/v9"
)

// Playback operations (Redis-backed)

func playbackKey(id uuid.UUID) string {
	return "playback:" + id.String()
}

// SavePlayback stores the session and refreshes its TTL.
func (r *RedisStorage) SavePlayback(ctx context.Context, rs *state.RuntimeState) error {
	if rs == nil {
		return errors.New("playback state cannot be nil")
	}

	data, err := json.Marshal(rs)
	if err != nil {
		r.logger.Error("Failed to marshal playback", "uuid", rs.ID, "error", err)
		return fmt.Errorf("failed to marshal playback: %w", err)
	}

	if err := r.client.Set(ctx, playbackKey(rs.ID), string(data), r.sessionTTL).Err(); err != nil {
		r.logger.Error("Failed to save playback", "uuid", rs.ID, "error", err)
		return fmt.Errorf("failed to save playback: %w", err)
	}
	return nil
}

func (r *RedisStorage) LoadPlayback(ctx context.Context, id uuid.UUID) (*state.RuntimeState, error) {
	data, err := r.client.Get(ctx, playbackKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			r.logger.Debug("Playback not found", "uuid", id)
			return nil, fmt.Errorf("playback %s: %w", id, storage.ErrNotFound)
		}
		r.logger.Error("Failed to load playback", "uuid", id, "error", err)
		return nil, fmt.Errorf("failed to load playback: %w", err)
	}

	var rs state.RuntimeState
	if err := json.Unmarshal([]byte(data), &rs); err != nil {
		r.logger.Error("Failed to unmarshal playback", "uuid", id, "error", err)
		return nil, fmt.Errorf("failed to unmarshal playback: %w", err)
	}
	return &rs, nil
}

func (r *RedisStorage) DeletePlayback(ctx context.Context, id uuid.UUID) error {
	if err := r.client.Del(ctx, playbackKey(id)).Err(); err != nil {
		r.logger.Error("Failed to delete playback", "uuid", id, "error", err)
		return fmt.Errorf("failed to delete playback: %w", err)
	}
	return nil
}
