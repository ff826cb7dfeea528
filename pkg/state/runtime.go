package state

import (
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/story-graph/pkg/conditionals"
)

// DiceResult is the outcome of a resolved dice check.
type DiceResult string

const (
	DiceSuccess DiceResult = "success"
	DiceFailure DiceResult = "failure"
)

// DiceState is the dice sub-state of a playback session.
type DiceState struct {
	Rolling    bool       `json:"rolling"`
	LastRoll   int        `json:"last_roll,omitempty"`   // roll plus stat modifier
	Natural    int        `json:"natural,omitempty"`     // the d20 face alone
	LastResult DiceResult `json:"last_result,omitempty"` // empty until a roll resolves
}

// HistoryEntry records a choice taken during playback. StatsSnapshot holds the
// stats after the choice's effects were applied.
type HistoryEntry struct {
	SceneID       string             `json:"scene_id"`
	DialogueID    string             `json:"dialogue_id"`
	ChoiceID      string             `json:"choice_id"`
	StatsSnapshot conditionals.Stats `json:"stats_snapshot"`
	Timestamp     time.Time          `json:"timestamp"`
}

// RuntimeState is the state of one playback session.
type RuntimeState struct {
	ID                uuid.UUID          `json:"id"`
	Scenario          string             `json:"scenario,omitempty"` // scenario file name
	CurrentSceneID    string             `json:"current_scene_id"`
	CurrentDialogueID string             `json:"current_dialogue_id,omitempty"`
	Stats             conditionals.Stats `json:"stats"`
	History           []HistoryEntry     `json:"history"`
	Dice              DiceState          `json:"dice"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// NewRuntimeState starts a session in sceneID with a copy of the initial stats.
func NewRuntimeState(scenarioFile, sceneID string, initial conditionals.Stats) *RuntimeState {
	now := time.Now()
	return &RuntimeState{
		ID:             uuid.New(),
		Scenario:       scenarioFile,
		CurrentSceneID: sceneID,
		Stats:          initial.Clone(),
		History:        make([]HistoryEntry, 0),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Clone returns a deep copy of the state.
func (rs *RuntimeState) Clone() *RuntimeState {
	if rs == nil {
		return nil
	}
	out := *rs
	out.Stats = rs.Stats.Clone()
	out.History = make([]HistoryEntry, len(rs.History))
	for i, h := range rs.History {
		h.StatsSnapshot = h.StatsSnapshot.Clone()
		out.History[i] = h
	}
	return &out
}
