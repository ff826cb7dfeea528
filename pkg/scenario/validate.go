package scenario

import (
	"fmt"
	"strings"

	"github.com/jwebster45206/story-graph/pkg/conditionals"
)

// Dice difficulty bounds accepted by the validator.
const (
	MinDifficulty = 1
	MaxDifficulty = 20
)

// IssueType is the severity of a validation issue.
type IssueType string

const (
	IssueError   IssueType = "error"
	IssueWarning IssueType = "warning"
)

// Issue is a single validation finding on a dialogue.
type Issue struct {
	Type    IssueType `json:"type"`
	Message string    `json:"message"`
}

// Validation maps a dialogue id to its issues.
type Validation map[string][]Issue

// HasErrors reports whether any issue is an error.
func (v Validation) HasErrors() bool {
	for _, issues := range v {
		for _, i := range issues {
			if i.Type == IssueError {
				return true
			}
		}
	}
	return false
}

// Worst returns the most severe issue type for a dialogue, or "" when it has none.
func (v Validation) Worst(dialogueID string) IssueType {
	var worst IssueType
	for _, i := range v[dialogueID] {
		if i.Type == IssueError {
			return IssueError
		}
		worst = IssueWarning
	}
	return worst
}

func (v Validation) add(id string, t IssueType, format string, args ...any) {
	v[id] = append(v[id], Issue{Type: t, Message: fmt.Sprintf(format, args...)})
}

// ValidateScene checks a scene's dialogues. sceneIDs is the set of scenes a choice
// may jump to; a nil set skips scene reference checks.
func ValidateScene(scene *Scene, sceneIDs map[string]bool) Validation {
	v := make(Validation)

	seen := make(map[string]bool, len(scene.Dialogues))
	for _, d := range scene.Dialogues {
		if seen[d.ID] {
			v.add(d.ID, IssueError, "duplicate dialogue id %q", d.ID)
		}
		seen[d.ID] = true
	}

	for i, d := range scene.Dialogues {
		if d.ID == "" {
			v.add(fmt.Sprintf("#%d", i), IssueError, "dialogue %d has no id", i)
		}
		if strings.TrimSpace(d.Text) == "" {
			v.add(d.ID, IssueWarning, "dialogue text is empty")
		}
		if d.NextDialogueID != "" && !seen[d.NextDialogueID] {
			v.add(d.ID, IssueError, "next dialogue %q does not exist", d.NextDialogueID)
		}
		if d.IsResponse && !followsChoice(scene.Dialogues, i) {
			v.add(d.ID, IssueWarning, "response does not follow a choice")
		}
		for _, c := range d.Conditions {
			if !conditionals.ValidOperator(c.Operator) {
				v.add(d.ID, IssueError, "condition on %q has unknown operator %q", c.Variable, c.Operator)
			}
		}

		for ci, c := range d.Choices {
			label := c.ID
			if label == "" {
				label = fmt.Sprintf("#%d", ci)
			}
			if strings.TrimSpace(c.Text) == "" {
				v.add(d.ID, IssueError, "choice %s has no text", label)
			}
			validateDestination(v, d.ID, "choice "+label, c.NextDialogueID, c.NextSceneID, seen, sceneIDs)
			for _, e := range c.Effects {
				if !conditionals.ValidOperation(e.Operation) {
					v.add(d.ID, IssueError, "choice %s effect on %q has unknown operation %q", label, e.Variable, e.Operation)
				}
			}
			if dc := c.DiceCheck; dc != nil {
				if dc.Difficulty < MinDifficulty || dc.Difficulty > MaxDifficulty {
					v.add(d.ID, IssueError, "choice %s dice difficulty %d out of range (%d-%d)", label, dc.Difficulty, MinDifficulty, MaxDifficulty)
				}
				if dc.Stat == "" {
					v.add(d.ID, IssueWarning, "choice %s dice check has no stat", label)
				}
				if dc.Success != nil {
					validateDestination(v, d.ID, "choice "+label+" success branch", dc.Success.NextDialogueID, dc.Success.NextSceneID, seen, sceneIDs)
				}
				if dc.Failure != nil {
					validateDestination(v, d.ID, "choice "+label+" failure branch", dc.Failure.NextDialogueID, dc.Failure.NextSceneID, seen, sceneIDs)
				}
			}
		}
	}

	return v
}

// validateDestination checks a choice or branch target. A dialogue paired with a
// scene belongs to that scene and is not checked here.
func validateDestination(v Validation, id, what, nextDialogue, nextScene string, dialogues, scenes map[string]bool) {
	if nextDialogue != "" && nextScene == "" && !dialogues[nextDialogue] {
		v.add(id, IssueError, "%s targets missing dialogue %q", what, nextDialogue)
	}
	if nextScene != "" && scenes != nil && !scenes[nextScene] {
		v.add(id, IssueError, "%s targets missing scene %q", what, nextScene)
	}
}

// followsChoice reports whether the response at i is preceded, through a run of
// responses, by a dialogue with choices.
func followsChoice(dialogues []Dialogue, i int) bool {
	for j := i - 1; j >= 0; j-- {
		if dialogues[j].HasChoices() {
			return true
		}
		if !dialogues[j].IsResponse {
			return false
		}
	}
	return false
}

// Validate checks every scene of the scenario, keyed by scene id. Scenario-level
// problems are reported under the empty scene id.
func Validate(s *Scenario) map[string]Validation {
	out := make(map[string]Validation)
	ids := s.SceneIDs()

	top := make(Validation)
	if len(s.Scenes) == 0 {
		top.add("", IssueError, "scenario has no scenes")
	}
	if s.OpeningScene != "" && !ids[s.OpeningScene] {
		top.add("", IssueError, "opening scene %q does not exist", s.OpeningScene)
	}
	seen := make(map[string]bool, len(s.Scenes))
	for _, sc := range s.Scenes {
		if sc.ID == "" {
			top.add("", IssueError, "scene without id")
		} else if seen[sc.ID] {
			top.add("", IssueError, "duplicate scene id %q", sc.ID)
		}
		seen[sc.ID] = true
	}
	for name, value := range s.InitialStats {
		if value < conditionals.StatMin || value > conditionals.StatMax {
			top.add("", IssueWarning, "initial stat %q = %d out of range (%d-%d)", name, value, conditionals.StatMin, conditionals.StatMax)
		}
	}
	if len(top) > 0 {
		out[""] = top
	}

	for i := range s.Scenes {
		sc := &s.Scenes[i]
		v := ValidateScene(sc, ids)
		if len(sc.Dialogues) == 0 {
			v.add("", IssueWarning, "scene has no dialogues")
		}
		if len(v) > 0 {
			out[sc.ID] = v
		}
	}
	return out
}
