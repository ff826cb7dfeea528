package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/story-graph/pkg/conditionals"
	"github.com/jwebster45206/story-graph/pkg/state"
)

// EventType represents the type of event being broadcast
type EventType string

const (
	EventTypeRollingStarted EventType = "playback.rolling_started"
	EventTypeChoiceTaken    EventType = "playback.choice_taken"
	EventTypeStateUpdated   EventType = "playback.state_updated"
	EventTypeSceneEnded     EventType = "playback.scene_ended"
)

// Event is the payload published on a session's channel.
type Event struct {
	Type      EventType      `json:"type"`
	SessionID string         `json:"session_id"`
	Data      map[string]any `json:"data,omitempty"`
}

// Channel returns the pub/sub channel for a playback session.
func Channel(sessionID uuid.UUID) string {
	return fmt.Sprintf("playback-events:%s", sessionID.String())
}

// Broadcaster publishes playback events to Redis Pub/Sub for SSE distribution
type Broadcaster struct {
	redisClient *redis.Client
	logger      *slog.Logger
}

func NewBroadcaster(redisClient *redis.Client, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		redisClient: redisClient,
		logger:      logger,
	}
}

// PublishRollingStarted publishes a playback.rolling_started event
func (b *Broadcaster) PublishRollingStarted(ctx context.Context, sessionID uuid.UUID, choiceID, stat string, difficulty int) error {
	return b.publish(ctx, sessionID, EventTypeRollingStarted, map[string]any{
		"choice_id":  choiceID,
		"stat":       stat,
		"difficulty": difficulty,
	})
}

// PublishChoiceTaken publishes a playback.choice_taken event carrying the stat delta
func (b *Broadcaster) PublishChoiceTaken(ctx context.Context, sessionID uuid.UUID, choiceID string, delta conditionals.StatDelta) error {
	if delta == nil {
		delta = conditionals.StatDelta{}
	}
	return b.publish(ctx, sessionID, EventTypeChoiceTaken, map[string]any{
		"choice_id": choiceID,
		"delta":     delta,
	})
}

// PublishStateUpdated publishes a playback.state_updated event
func (b *Broadcaster) PublishStateUpdated(ctx context.Context, rs *state.RuntimeState) error {
	return b.publish(ctx, rs.ID, EventTypeStateUpdated, map[string]any{
		"scene_id":      rs.CurrentSceneID,
		"dialogue_id":   rs.CurrentDialogueID,
		"stats":         rs.Stats,
		"dice":          rs.Dice,
		"history_count": len(rs.History),
	})
}

// PublishSceneEnded publishes a playback.scene_ended event
func (b *Broadcaster) PublishSceneEnded(ctx context.Context, sessionID uuid.UUID, sceneID string) error {
	return b.publish(ctx, sessionID, EventTypeSceneEnded, map[string]any{
		"scene_id": sceneID,
	})
}

func (b *Broadcaster) publish(ctx context.Context, sessionID uuid.UUID, t EventType, data map[string]any) error {
	channel := Channel(sessionID)
	event := Event{Type: t, SessionID: sessionID.String(), Data: data}

	payload, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("Failed to marshal event", "error", err, "event_type", t)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.redisClient.Publish(ctx, channel, payload).Err(); err != nil {
		b.logger.Error("Failed to publish event", "error", err, "channel", channel)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debug("Event published", "channel", channel, "event_type", t)
	return nil
}
