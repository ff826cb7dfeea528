package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jwebster45206/story-graph/pkg/scenario"
	"github.com/jwebster45206/story-graph/pkg/storage"
)

// Scenario operations (filesystem-backed)

func (r *RedisStorage) scenariosDir() string {
	return filepath.Join(r.dataDir, "scenarios")
}

// ListScenarios walks the scenarios directory for JSON and YAML files. Files
// that fail to parse are skipped with a warning.
func (r *RedisStorage) ListScenarios(ctx context.Context) (map[string]string, error) {
	scenarios := make(map[string]string)

	err := filepath.WalkDir(r.scenariosDir(), func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if _, ferr := scenario.FormatFromPath(path); ferr != nil {
			return nil
		}

		s, err := scenario.LoadFile(path, false)
		if err != nil {
			r.logger.Warn("Failed to load scenario file", "path", path, "error", err)
			return nil
		}
		scenarios[s.Name] = s.FileName
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to walk scenarios directory", "error", err)
		return nil, fmt.Errorf("failed to list scenarios: %w", err)
	}

	return scenarios, nil
}

func (r *RedisStorage) GetScenario(ctx context.Context, filename string) (*scenario.Scenario, error) {
	if filename == "" || filename != filepath.Base(filename) {
		return nil, fmt.Errorf("invalid scenario file name %q: %w", filename, storage.ErrNotFound)
	}
	path := filepath.Join(r.scenariosDir(), filename)
	r.logger.Debug("Loading scenario", "filename", filename, "full_path", path)

	s, err := scenario.LoadFile(path, false)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("scenario %s: %w", filename, storage.ErrNotFound)
		}
		return nil, err
	}
	return s, nil
}
