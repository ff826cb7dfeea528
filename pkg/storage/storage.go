package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jwebster45206/story-graph/pkg/scenario"
	"github.com/jwebster45206/story-graph/pkg/state"
)

// ErrNotFound is returned when a scenario or playback session does not exist.
var ErrNotFound = errors.New("not found")

// Storage defines a unified interface for all storage operations
// This interface combines playback session persistence (Redis) with scenario loading (filesystem)
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// Playback operations (Redis-backed)
	SavePlayback(ctx context.Context, rs *state.RuntimeState) error
	LoadPlayback(ctx context.Context, id uuid.UUID) (*state.RuntimeState, error)
	DeletePlayback(ctx context.Context, id uuid.UUID) error

	// Scenario operations (filesystem-backed)
	// ListScenarios maps scenario name to file name.
	ListScenarios(ctx context.Context) (map[string]string, error)
	GetScenario(ctx context.Context, filename string) (*scenario.Scenario, error)
}
