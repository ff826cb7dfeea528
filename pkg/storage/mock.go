package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jwebster45206/story-graph/pkg/scenario"
	"github.com/jwebster45206/story-graph/pkg/state"
)

// MockStorage is a mock implementation of Storage for testing
type MockStorage struct {
	mu        sync.RWMutex
	playbacks map[uuid.UUID]*state.RuntimeState
	scenarios map[string]*scenario.Scenario
	pingError error
}

// Ensure MockStorage implements Storage interface
var _ Storage = (*MockStorage)(nil)

// NewMockStorage creates a new mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		playbacks: make(map[uuid.UUID]*state.RuntimeState),
		scenarios: make(map[string]*scenario.Scenario),
	}
}

// SetPingError configures the mock to fail on ping with the given error. nil restores success.
func (m *MockStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

func (m *MockStorage) Close() error {
	return nil
}

// SavePlayback stores a copy, so later changes by the caller are not visible until saved again.
func (m *MockStorage) SavePlayback(ctx context.Context, rs *state.RuntimeState) error {
	if rs == nil {
		return errors.New("playback state cannot be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playbacks[rs.ID] = rs.Clone()
	return nil
}

func (m *MockStorage) LoadPlayback(ctx context.Context, id uuid.UUID) (*state.RuntimeState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rs, ok := m.playbacks[id]
	if !ok {
		return nil, fmt.Errorf("playback %s: %w", id, ErrNotFound)
	}
	return rs.Clone(), nil
}

func (m *MockStorage) DeletePlayback(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.playbacks, id)
	return nil
}

func (m *MockStorage) ListScenarios(ctx context.Context) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]string, len(m.scenarios))
	for filename, s := range m.scenarios {
		result[s.Name] = filename
	}
	return result, nil
}

func (m *MockStorage) GetScenario(ctx context.Context, filename string) (*scenario.Scenario, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.scenarios[filename]
	if !ok {
		return nil, fmt.Errorf("scenario %s: %w", filename, ErrNotFound)
	}
	return s, nil
}

// AddScenario adds a scenario to the mock storage (for testing)
func (m *MockStorage) AddScenario(filename string, s *scenario.Scenario) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scenarios[filename] = s
}
