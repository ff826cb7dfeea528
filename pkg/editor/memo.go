package editor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jwebster45206/story-graph/pkg/graph"
)

// KeyPrefix namespaces memoized graphs in a shared cache.
const KeyPrefix = "graph:"

// Cache is the subset of a key/value cache that Memo needs.
// Get returns an empty string on a miss.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}

// Memo memoizes BuildAndLayout on the full request. Two requests with equal
// inputs share a cached graph; any change to the inputs produces a new key.
type Memo struct {
	cache  Cache
	ttl    time.Duration
	logger *slog.Logger
}

func NewMemo(cache Cache, ttl time.Duration, logger *slog.Logger) *Memo {
	if logger == nil {
		logger = slog.Default()
	}
	return &Memo{cache: cache, ttl: ttl, logger: logger}
}

// Key returns the cache key for a request.
func Key(req Request) (string, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal graph request: %w", err)
	}
	sum := sha256.Sum256(b)
	return KeyPrefix + hex.EncodeToString(sum[:]), nil
}

// BuildAndLayout returns the cached graph for req, computing and storing it on a miss.
// Cache failures are logged and never fail the call.
func (m *Memo) BuildAndLayout(ctx context.Context, req Request) (graph.Graph, error) {
	key, err := Key(req)
	if err != nil {
		return graph.Graph{}, err
	}

	if m.cache != nil {
		cached, err := m.cache.Get(ctx, key)
		if err != nil {
			m.logger.Warn("Graph cache read failed", "key", key, "error", err)
		} else if cached != "" {
			var g graph.Graph
			if err := json.Unmarshal([]byte(cached), &g); err == nil {
				m.logger.Debug("Graph cache hit", "key", key, "scene_id", req.SceneID)
				return g, nil
			}
			m.logger.Warn("Discarding corrupt cached graph", "key", key)
		}
	}

	g := BuildAndLayout(req)

	if m.cache != nil {
		b, err := json.Marshal(g)
		if err != nil {
			return g, fmt.Errorf("failed to marshal graph: %w", err)
		}
		if err := m.cache.Set(ctx, key, string(b), m.ttl); err != nil {
			m.logger.Warn("Graph cache write failed", "key", key, "error", err)
		}
	}
	return g, nil
}

// MapCache is an in-process Cache.
type MapCache struct {
	mu      sync.Mutex
	entries map[string]mapEntry
	now     func() time.Time
}

type mapEntry struct {
	value   string
	expires time.Time // zero means no expiry
}

func NewMapCache() *MapCache {
	return &MapCache{entries: make(map[string]mapEntry), now: time.Now}
}

func (c *MapCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return "", nil
	}
	if !e.expires.IsZero() && !c.now().Before(e.expires) {
		delete(c.entries, key)
		return "", nil
	}
	return e.value, nil
}

func (c *MapCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("unsupported cache value type %T", value)
	}

	e := mapEntry{value: s}
	if expiration > 0 {
		e.expires = c.now().Add(expiration)
	}
	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, expired or not.
func (c *MapCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
