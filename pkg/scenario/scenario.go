package scenario

import (
	"errors"
	"fmt"

	"github.com/jwebster45206/story-graph/pkg/conditionals"
)

var ErrSceneNotFound = errors.New("scene not found")

// Scenario is the file-level container for a branching story.
type Scenario struct {
	Name         string             `json:"name" yaml:"name"`                                       // Name of the scenario
	FileName     string             `json:"file_name,omitempty" yaml:"file_name,omitempty"`         // Name of the file containing the scenario
	Description  string             `json:"description,omitempty" yaml:"description,omitempty"`     // Brief description of the scenario
	OpeningScene string             `json:"opening_scene,omitempty" yaml:"opening_scene,omitempty"` // Scene id playback starts in; defaults to the first scene
	InitialStats conditionals.Stats `json:"initial_stats,omitempty" yaml:"initial_stats,omitempty"` // Player stats at the start of playback
	Scenes       []Scene            `json:"scenes" yaml:"scenes"`
}

// Scene returns the scene with the given id.
func (s *Scenario) Scene(id string) (*Scene, error) {
	for i := range s.Scenes {
		if s.Scenes[i].ID == id {
			return &s.Scenes[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrSceneNotFound, id)
}

// OpeningSceneID returns the configured opening scene, falling back to the first scene.
func (s *Scenario) OpeningSceneID() string {
	if s.OpeningScene != "" {
		return s.OpeningScene
	}
	if len(s.Scenes) > 0 {
		return s.Scenes[0].ID
	}
	return ""
}

// SceneIDs returns the set of scene ids defined in the scenario.
func (s *Scenario) SceneIDs() map[string]bool {
	ids := make(map[string]bool, len(s.Scenes))
	for _, sc := range s.Scenes {
		ids[sc.ID] = true
	}
	return ids
}
