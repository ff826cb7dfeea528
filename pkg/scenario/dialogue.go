package scenario

import "github.com/jwebster45206/story-graph/pkg/conditionals"

// ChoiceAction describes what a choice does when taken.
type ChoiceAction string

const (
	ActionContinue  ChoiceAction = "continue"
	ActionSceneJump ChoiceAction = "sceneJump"
	ActionDiceCheck ChoiceAction = "diceCheck"
)

// Dialogue is one line of narration or speech within a scene.
type Dialogue struct {
	ID              string                   `json:"id" yaml:"id"`
	Speaker         string                   `json:"speaker,omitempty" yaml:"speaker,omitempty"` // speaker id, resolved by the UI
	Text            string                   `json:"text" yaml:"text"`
	SpeakerMood     string                   `json:"speaker_mood,omitempty" yaml:"speaker_mood,omitempty"`
	StageDirections string                   `json:"stage_directions,omitempty" yaml:"stage_directions,omitempty"`
	Choices         []Choice                 `json:"choices,omitempty" yaml:"choices,omitempty"`
	Conditions      []conditionals.Condition `json:"conditions,omitempty" yaml:"conditions,omitempty"` // all must hold for the line to be reachable
	IsResponse      bool                     `json:"is_response,omitempty" yaml:"is_response,omitempty"`           // direct consequence of a choice
	NextDialogueID  string                   `json:"next_dialogue_id,omitempty" yaml:"next_dialogue_id,omitempty"` // manual linear override
}

// HasChoices reports whether the dialogue branches.
func (d *Dialogue) HasChoices() bool {
	return len(d.Choices) > 0
}

// Choice is a player-selectable option attached to a dialogue.
type Choice struct {
	ID             string                `json:"id" yaml:"id"`
	Text           string                `json:"text" yaml:"text"`
	ActionType     ChoiceAction          `json:"action_type,omitempty" yaml:"action_type,omitempty"`
	NextDialogueID string                `json:"next_dialogue_id,omitempty" yaml:"next_dialogue_id,omitempty"`
	NextSceneID    string                `json:"next_scene_id,omitempty" yaml:"next_scene_id,omitempty"`
	Effects        []conditionals.Effect `json:"effects,omitempty" yaml:"effects,omitempty"`
	DiceCheck      *DiceCheck            `json:"dice_check,omitempty" yaml:"dice_check,omitempty"`
}

// Action returns the explicit action type, or derives one from the choice's data.
func (c *Choice) Action() ChoiceAction {
	if c.ActionType != "" {
		return c.ActionType
	}
	switch {
	case c.DiceCheck != nil:
		return ActionDiceCheck
	case c.NextSceneID != "":
		return ActionSceneJump
	default:
		return ActionContinue
	}
}

// HasDestination reports whether the choice names a dialogue or scene to go to.
// A choice without one falls through to linear advance.
func (c *Choice) HasDestination() bool {
	return c.NextDialogueID != "" || c.NextSceneID != ""
}

// DiceCheck gates a choice's outcome on a d20 roll plus a stat modifier.
type DiceCheck struct {
	Stat       string      `json:"stat" yaml:"stat"`
	Difficulty int         `json:"difficulty" yaml:"difficulty"`
	Success    *DiceBranch `json:"success_branch,omitempty" yaml:"success_branch,omitempty"`
	Failure    *DiceBranch `json:"failure_branch,omitempty" yaml:"failure_branch,omitempty"`
}

// DiceBranch is the destination taken after a roll resolves.
type DiceBranch struct {
	NextSceneID    string `json:"next_scene_id,omitempty" yaml:"next_scene_id,omitempty"`
	NextDialogueID string `json:"next_dialogue_id,omitempty" yaml:"next_dialogue_id,omitempty"`
}

// Branch returns the branch for the given outcome, which may be nil.
func (d *DiceCheck) Branch(success bool) *DiceBranch {
	if success {
		return d.Success
	}
	return d.Failure
}
