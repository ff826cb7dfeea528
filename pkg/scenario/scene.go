package scenario

import (
	"errors"
	"fmt"
	"slices"
)

var (
	ErrDialogueNotFound  = errors.New("dialogue not found")
	ErrDuplicateDialogue = errors.New("duplicate dialogue id")
)

// Scene is an ordered container of dialogues forming one narrative unit.
type Scene struct {
	ID          string     `json:"id" yaml:"id"`
	Title       string     `json:"title,omitempty" yaml:"title,omitempty"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Dialogues   []Dialogue `json:"dialogues" yaml:"dialogues"`
}

// IndexOf returns the position of the dialogue with the given id, or -1.
func (s *Scene) IndexOf(id string) int {
	return slices.IndexFunc(s.Dialogues, func(d Dialogue) bool { return d.ID == id })
}

// Dialogue returns the dialogue with the given id, or nil.
func (s *Scene) Dialogue(id string) *Dialogue {
	if i := s.IndexOf(id); i >= 0 {
		return &s.Dialogues[i]
	}
	return nil
}

// Edit operations below never touch the receiver's backing array; they return a
// fresh slice.

// AddDialogue inserts d at position at. An out-of-range position appends.
func (s *Scene) AddDialogue(d Dialogue, at int) ([]Dialogue, error) {
	if s.IndexOf(d.ID) >= 0 {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateDialogue, d.ID)
	}
	if at < 0 || at > len(s.Dialogues) {
		at = len(s.Dialogues)
	}
	out := slices.Clone(s.Dialogues)
	return slices.Insert(out, at, d), nil
}

// UpdateDialogue replaces the dialogue with id by d. d may carry a new id as long
// as it does not collide with another dialogue.
func (s *Scene) UpdateDialogue(id string, d Dialogue) ([]Dialogue, error) {
	i := s.IndexOf(id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrDialogueNotFound, id)
	}
	if d.ID != id && s.IndexOf(d.ID) >= 0 {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateDialogue, d.ID)
	}
	out := slices.Clone(s.Dialogues)
	out[i] = d
	return out, nil
}

// DeleteDialogue removes the dialogue with id.
func (s *Scene) DeleteDialogue(id string) ([]Dialogue, error) {
	i := s.IndexOf(id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrDialogueNotFound, id)
	}
	out := slices.Clone(s.Dialogues)
	return slices.Delete(out, i, i+1), nil
}

// MoveDialogue moves the dialogue with id to position to (clamped to the slice).
func (s *Scene) MoveDialogue(id string, to int) ([]Dialogue, error) {
	i := s.IndexOf(id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrDialogueNotFound, id)
	}
	to = max(0, min(to, len(s.Dialogues)-1))

	out := slices.Clone(s.Dialogues)
	d := out[i]
	out = slices.Delete(out, i, i+1)
	return slices.Insert(out, to, d), nil
}
