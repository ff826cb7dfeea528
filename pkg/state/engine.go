package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jwebster45206/d20"
	"github.com/jwebster45206/story-graph/pkg/conditionals"
	"github.com/jwebster45206/story-graph/pkg/scenario"
)

// DefaultDiceDelay is how long a dice check stays in the rolling state.
const DefaultDiceDelay = 700 * time.Millisecond

var (
	ErrRollInProgress = errors.New("a dice roll is in progress")
	ErrHistoryIndex   = errors.New("history index out of range")
	ErrEngineClosed   = errors.New("engine is closed")
	ErrNoDialogue     = errors.New("no current dialogue")
)

// SceneEndHandler is told when linear advance runs out of dialogues in a scene.
// Picking the next scene is up to the handler; it may call GoToScene.
type SceneEndHandler func(sceneID string)

// ChoiceHandler is told about each choice taken and the stat changes it applied.
type ChoiceHandler func(choice scenario.Choice, delta conditionals.StatDelta)

// RollHandler is told when a dice check enters the rolling state.
type RollHandler func(choice scenario.Choice, check scenario.DiceCheck)

type EngineOption func(*Engine)

func WithDiceDelay(d time.Duration) EngineOption {
	return func(e *Engine) { e.diceDelay = d }
}

// WithRoller sets the dice roller. Seed it with d20.NewRoller for
// reproducible playback.
func WithRoller(r *d20.Roller) EngineOption {
	return func(e *Engine) { e.roller = r }
}

func WithSceneEndHandler(h SceneEndHandler) EngineOption {
	return func(e *Engine) { e.onSceneEnd = h }
}

func WithChoiceHandler(h ChoiceHandler) EngineOption {
	return func(e *Engine) { e.onChoice = h }
}

func WithRollHandler(h RollHandler) EngineOption {
	return func(e *Engine) { e.onRoll = h }
}

func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// Engine walks a set of scenes, applying choice effects, dice checks and
// dialogue conditions to a RuntimeState. It is safe for concurrent use, but
// ChooseOption calls do not overlap: a second call while a roll is pending
// returns ErrRollInProgress.
type Engine struct {
	mu     sync.Mutex
	scenes map[string]*scenario.Scene
	state  *RuntimeState

	// bumped whenever a pending roll must be abandoned
	rollGen    uint64
	cancelRoll context.CancelFunc

	diceDelay  time.Duration
	roller     *d20.Roller // guarded by mu
	onSceneEnd SceneEndHandler
	onChoice   ChoiceHandler
	onRoll     RollHandler
	logger     *slog.Logger
	now        func() time.Time

	done      chan struct{}
	closed    bool
	closeOnce sync.Once
}

// NewEngine returns an engine over scenes driving st. A nil st starts a fresh
// session in the first scene. An empty current scene id means the first scene,
// and an empty or unknown dialogue id means the first dialogue of the scene.
func NewEngine(scenes []scenario.Scene, st *RuntimeState, opts ...EngineOption) (*Engine, error) {
	if len(scenes) == 0 {
		return nil, fmt.Errorf("failed to create engine: no scenes")
	}

	e := &Engine{
		scenes:    make(map[string]*scenario.Scene, len(scenes)),
		diceDelay: DefaultDiceDelay,
		roller:    d20.NewRandomRoller(),
		logger:    slog.Default(),
		now:       time.Now,
		done:      make(chan struct{}),
	}
	for i := range scenes {
		sc := scenes[i]
		e.scenes[sc.ID] = &sc
	}
	for _, opt := range opts {
		opt(e)
	}

	if st == nil {
		st = NewRuntimeState("", scenes[0].ID, nil)
	}
	if st.CurrentSceneID == "" {
		st.CurrentSceneID = scenes[0].ID
	}
	if st.Stats == nil {
		st.Stats = make(conditionals.Stats)
	}
	scene, ok := e.scenes[st.CurrentSceneID]
	if !ok {
		return nil, fmt.Errorf("failed to create engine: %w: %s", scenario.ErrSceneNotFound, st.CurrentSceneID)
	}
	if scene.Dialogue(st.CurrentDialogueID) == nil {
		st.CurrentDialogueID = firstDialogueID(scene)
	}
	// A roll cannot survive being persisted and reloaded.
	st.Dice.Rolling = false

	e.state = st
	return e, nil
}

func firstDialogueID(scene *scenario.Scene) string {
	if len(scene.Dialogues) == 0 {
		return ""
	}
	return scene.Dialogues[0].ID
}

// CurrentScene returns the scene playback is in.
func (e *Engine) CurrentScene() *scenario.Scene {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scenes[e.state.CurrentSceneID]
}

// CurrentDialogue returns the dialogue playback is on, or nil for an empty scene.
func (e *Engine) CurrentDialogue() *scenario.Dialogue {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, d := e.current()
	return d
}

// Stats returns a copy of the current stats.
func (e *Engine) Stats() conditionals.Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Stats.Clone()
}

// History returns a copy of the choice history, oldest first.
func (e *Engine) History() []HistoryEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone().History
}

func (e *Engine) DiceState() DiceState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Dice
}

// Snapshot returns a deep copy of the runtime state, suitable for persisting.
func (e *Engine) Snapshot() *RuntimeState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

// Close ends the session. A dice roll pending at that moment is dropped
// without touching state.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		e.mu.Lock()
		e.closed = true
		e.mu.Unlock()
		close(e.done)
	})
}

// GoToScene moves playback to a scene. An empty or unknown dialogue id starts
// at the scene's first dialogue. History is not touched.
func (e *Engine) GoToScene(sceneID, dialogueID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrEngineClosed
	}
	return e.goToScene(sceneID, dialogueID)
}

func (e *Engine) goToScene(sceneID, dialogueID string) error {
	scene, ok := e.scenes[sceneID]
	if !ok {
		return fmt.Errorf("%w: %s", scenario.ErrSceneNotFound, sceneID)
	}
	if scene.Dialogue(dialogueID) == nil {
		dialogueID = firstDialogueID(scene)
	}
	e.state.CurrentSceneID = sceneID
	e.state.CurrentDialogueID = dialogueID
	e.touch()
	return nil
}

// GoToNextDialogue advances playback. From a response it skips to the next
// reachable non-response dialogue, the point where branches converge. Otherwise
// an explicit, reachable next dialogue wins over linear advance. Linear advance
// skips dialogues whose conditions fail. It reports whether playback moved;
// when it did not, the scene-end handler has been notified.
func (e *Engine) GoToNextDialogue() bool {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return false
	}
	moved := e.advance()
	sceneID := e.state.CurrentSceneID
	e.mu.Unlock()

	if !moved {
		e.sceneEnded(sceneID)
	}
	return moved
}

// advance must be called with mu held.
func (e *Engine) advance() bool {
	scene, cur := e.current()
	if cur == nil {
		return false
	}
	idx := scene.IndexOf(cur.ID)
	stats := e.state.Stats

	if cur.IsResponse {
		for _, d := range scene.Dialogues[idx+1:] {
			if !d.IsResponse && conditionals.Evaluate(d.Conditions, stats) {
				e.setDialogue(d.ID)
				return true
			}
		}
		return false
	}

	if cur.NextDialogueID != "" {
		if next := scene.Dialogue(cur.NextDialogueID); next != nil && conditionals.Evaluate(next.Conditions, stats) {
			e.setDialogue(next.ID)
			return true
		}
	}

	if next := nextReachable(scene, idx, stats); next != nil {
		e.setDialogue(next.ID)
		return true
	}
	return false
}

func nextReachable(scene *scenario.Scene, idx int, stats conditionals.Stats) *scenario.Dialogue {
	for i := idx + 1; i < len(scene.Dialogues); i++ {
		if conditionals.Evaluate(scene.Dialogues[i].Conditions, stats) {
			return &scene.Dialogues[i]
		}
	}
	return nil
}

// IsAtLastDialogue reports whether the current dialogue is a dead end: no
// choices, no explicit next, not a response, and nothing reachable after it.
func (e *Engine) IsAtLastDialogue() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	scene, cur := e.current()
	if cur == nil {
		return true
	}
	if cur.HasChoices() || cur.NextDialogueID != "" || cur.IsResponse {
		return false
	}
	return nextReachable(scene, scene.IndexOf(cur.ID), e.state.Stats) == nil
}

// ChooseOption takes a choice from the current dialogue. Effects are applied
// and recorded in history before any dice check. A dice check holds the
// engine in the rolling state for the dice delay, then the roll picks the
// success or failure branch as the destination. If the engine is closed or
// the roll is abandoned by a history jump while rolling, ChooseOption returns
// nil without touching state. If ctx ends first, the roll is cancelled and
// ctx's error returned.
func (e *Engine) ChooseOption(ctx context.Context, choice scenario.Choice) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrEngineClosed
	}
	if e.state.Dice.Rolling {
		e.mu.Unlock()
		return ErrRollInProgress
	}
	scene, cur := e.current()
	if cur == nil {
		e.mu.Unlock()
		return ErrNoDialogue
	}

	delta := conditionals.ComputeDelta(choice.Effects, e.state.Stats)
	post := conditionals.ApplyDelta(e.state.Stats, delta)
	e.state.History = append(e.state.History, HistoryEntry{
		SceneID:       scene.ID,
		DialogueID:    cur.ID,
		ChoiceID:      choice.ID,
		StatsSnapshot: post.Clone(),
		Timestamp:     e.now(),
	})
	e.state.Stats = post
	e.touch()
	e.logger.Debug("Choice taken", "scene_id", scene.ID, "dialogue_id", cur.ID, "choice_id", choice.ID, "delta", delta)

	nextScene, nextDialogue := choice.NextSceneID, choice.NextDialogueID

	if check := choice.DiceCheck; check != nil {
		e.state.Dice = DiceState{Rolling: true}
		e.rollGen++
		gen := e.rollGen
		rctx, cancel := context.WithCancel(ctx)
		e.cancelRoll = cancel
		e.mu.Unlock()

		e.choiceTaken(choice, delta)
		if e.onRoll != nil {
			e.onRoll(choice, *check)
		}
		err := e.wait(rctx)
		cancel()

		e.mu.Lock()
		if e.closed || e.rollGen != gen {
			e.mu.Unlock()
			e.logger.Debug("Dropping abandoned dice roll", "choice_id", choice.ID)
			return nil
		}
		e.cancelRoll = nil
		if err != nil {
			e.state.Dice.Rolling = false
			e.mu.Unlock()
			return err
		}

		natural, total, result, err := resolveCheck(e.roller, e.state.Stats, check.Stat, check.Difficulty)
		if err != nil {
			e.state.Dice.Rolling = false
			e.mu.Unlock()
			return err
		}
		e.state.Dice = DiceState{LastRoll: total, Natural: natural, LastResult: result}
		e.logger.Debug("Dice check resolved", "stat", check.Stat, "difficulty", check.Difficulty,
			"natural", natural, "total", total, "result", result)

		if branch := check.Branch(result == DiceSuccess); branch != nil {
			nextScene, nextDialogue = branch.NextSceneID, branch.NextDialogueID
		}
	}

	ended := !e.navigate(nextScene, nextDialogue)
	sceneID := e.state.CurrentSceneID
	e.mu.Unlock()

	if choice.DiceCheck == nil {
		e.choiceTaken(choice, delta)
	}
	if ended {
		e.sceneEnded(sceneID)
	}
	return nil
}

// wait blocks for the dice delay. It returns ErrEngineClosed if the engine
// is closed first.
func (e *Engine) wait(ctx context.Context) error {
	if e.diceDelay <= 0 {
		select {
		case <-e.done:
			return ErrEngineClosed
		default:
			return ctx.Err()
		}
	}
	timer := time.NewTimer(e.diceDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-e.done:
		return ErrEngineClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// navigate moves to a choice destination: next scene first, then next dialogue,
// then linear advance. Destinations that do not resolve fall back to linear
// advance. Must be called with mu held. Returns false if playback could not move.
func (e *Engine) navigate(nextScene, nextDialogue string) bool {
	if nextScene != "" {
		if err := e.goToScene(nextScene, nextDialogue); err == nil {
			return true
		}
		e.logger.Warn("Choice points to an unknown scene, advancing linearly", "scene_id", nextScene)
	} else if nextDialogue != "" {
		scene, _ := e.current()
		if scene != nil && scene.Dialogue(nextDialogue) != nil {
			e.setDialogue(nextDialogue)
			return true
		}
		e.logger.Warn("Choice points to an unknown dialogue, advancing linearly", "dialogue_id", nextDialogue)
	}
	return e.advance()
}

// JumpToHistoryIndex rewinds playback to history entry i: its scene, dialogue
// and stats are restored, later entries are dropped and the dice state is
// cleared. A roll pending at that moment is abandoned.
func (e *Engine) JumpToHistoryIndex(i int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrEngineClosed
	}
	if i < 0 || i >= len(e.state.History) {
		return fmt.Errorf("%w: %d (history has %d entries)", ErrHistoryIndex, i, len(e.state.History))
	}

	entry := e.state.History[i]
	e.state.CurrentSceneID = entry.SceneID
	e.state.CurrentDialogueID = entry.DialogueID
	e.state.Stats = entry.StatsSnapshot.Clone()
	e.state.History = e.state.History[:i+1]
	e.state.Dice = DiceState{}
	e.rollGen++
	if e.cancelRoll != nil {
		e.cancelRoll()
		e.cancelRoll = nil
	}
	e.touch()
	return nil
}

// current must be called with mu held. The dialogue falls back to the first
// in the scene when the pointer does not resolve.
func (e *Engine) current() (*scenario.Scene, *scenario.Dialogue) {
	scene, ok := e.scenes[e.state.CurrentSceneID]
	if !ok {
		return nil, nil
	}
	if d := scene.Dialogue(e.state.CurrentDialogueID); d != nil {
		return scene, d
	}
	if len(scene.Dialogues) == 0 {
		return scene, nil
	}
	return scene, &scene.Dialogues[0]
}

func (e *Engine) setDialogue(id string) {
	e.state.CurrentDialogueID = id
	e.touch()
}

func (e *Engine) touch() {
	e.state.UpdatedAt = e.now()
}

func (e *Engine) choiceTaken(choice scenario.Choice, delta conditionals.StatDelta) {
	if e.onChoice != nil {
		e.onChoice(choice, delta)
	}
}

func (e *Engine) sceneEnded(sceneID string) {
	e.logger.Debug("Reached end of scene", "scene_id", sceneID)
	if e.onSceneEnd != nil {
		e.onSceneEnd(sceneID)
	}
}
