package handlers

import (
	"log/slog"
	"os"

	"github.com/jwebster45206/story-graph/pkg/conditionals"
	"github.com/jwebster45206/story-graph/pkg/scenario"
	"github.com/jwebster45206/story-graph/pkg/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError, // Reduce noise in tests
	}))
}

// forestScenario: d0 forks left->d2, right->d1 and a dice charge into the castle.
// d1 and d2 are responses that converge on d3.
func forestScenario() *scenario.Scenario {
	return &scenario.Scenario{
		Name:         "Forest Walk",
		FileName:     "forest.yaml",
		InitialStats: conditionals.Stats{"Physique": 2, "Courage": 1},
		Scenes: []scenario.Scene{
			{
				ID: "forest",
				Dialogues: []scenario.Dialogue{
					{ID: "d0", Speaker: "Guide", Text: "The path splits.", Choices: []scenario.Choice{
						{ID: "left", Text: "go left", NextDialogueID: "d2",
							Effects: []conditionals.Effect{{Variable: "Courage", Operation: conditionals.OpAdd, Value: 1}}},
						{ID: "right", Text: "go right", NextDialogueID: "d1"},
						{ID: "charge", Text: "charge the gate", DiceCheck: &scenario.DiceCheck{
							Stat: "Physique", Difficulty: 1,
							Success: &scenario.DiceBranch{NextSceneID: "castle", NextDialogueID: "hall"},
						}},
					}},
					{ID: "d1", Text: "You take the right path.", IsResponse: true},
					{ID: "d2", Text: "You take the left path.", IsResponse: true},
					{ID: "d3", Text: "The paths meet at a clearing."},
				},
			},
			{
				ID: "castle",
				Dialogues: []scenario.Dialogue{
					{ID: "gate", Text: "A gate looms."},
					{ID: "hall", Text: "A great hall."},
				},
			},
		},
	}
}

// brokenScenario has a choice pointing at a dialogue that does not exist.
func brokenScenario() *scenario.Scenario {
	return &scenario.Scenario{
		Name: "Broken",
		Scenes: []scenario.Scene{
			{
				ID: "start",
				Dialogues: []scenario.Dialogue{
					{ID: "a", Text: "Hello.", Choices: []scenario.Choice{
						{ID: "c", Text: "onward", NextDialogueID: "nowhere"},
					}},
				},
			},
		},
	}
}

func newTestStorage() *storage.MockStorage {
	s := storage.NewMockStorage()
	s.AddScenario("forest.yaml", forestScenario())
	s.AddScenario("broken.yaml", brokenScenario())
	return s
}
