package state

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jwebster45206/d20"
	"github.com/jwebster45206/story-graph/pkg/conditionals"
	"github.com/jwebster45206/story-graph/pkg/scenario"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

// forkScenes is D0 (choice: "go left"->D2, "go right"->D1), D1 (response), D2 (response), D3,
// plus a second scene to jump to.
func forkScenes() []scenario.Scene {
	return []scenario.Scene{
		{
			ID: "forest",
			Dialogues: []scenario.Dialogue{
				{ID: "d0", Speaker: "Guide", Text: "The path splits.", Choices: []scenario.Choice{
					{ID: "left", Text: "go left", NextDialogueID: "d2"},
					{ID: "right", Text: "go right", NextDialogueID: "d1"},
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
	}
}

func newTestEngine(t *testing.T, scenes []scenario.Scene, st *RuntimeState, opts ...EngineOption) *Engine {
	t.Helper()
	opts = append([]EngineOption{WithLogger(testLogger()), WithDiceDelay(0)}, opts...)
	e, err := NewEngine(scenes, st, opts...)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	t.Cleanup(e.Close)
	return e
}

func currentID(e *Engine) string {
	if d := e.CurrentDialogue(); d != nil {
		return d.ID
	}
	return ""
}

func TestEngine_GoLeftConverges(t *testing.T) {
	e := newTestEngine(t, forkScenes(), nil)
	ctx := context.Background()

	if got := currentID(e); got != "d0" {
		t.Fatalf("start dialogue = %s, want d0", got)
	}
	left := e.CurrentDialogue().Choices[0]
	if err := e.ChooseOption(ctx, left); err != nil {
		t.Fatalf("ChooseOption() error = %v", err)
	}
	if got := currentID(e); got != "d2" {
		t.Fatalf("after choosing = %s, want d2", got)
	}
	if !e.GoToNextDialogue() {
		t.Fatal("GoToNextDialogue() = false, want true")
	}
	if got := currentID(e); got != "d3" {
		t.Errorf("after advancing = %s, want d3", got)
	}

	h := e.History()
	if len(h) != 1 {
		t.Fatalf("len(History) = %d, want 1", len(h))
	}
	if h[0].ChoiceID != "left" || h[0].DialogueID != "d0" || h[0].SceneID != "forest" {
		t.Errorf("history entry = %+v", h[0])
	}
}

func TestEngine_ConvergenceFromEitherResponse(t *testing.T) {
	for _, from := range []string{"d1", "d2"} {
		t.Run(from, func(t *testing.T) {
			st := NewRuntimeState("", "forest", nil)
			st.CurrentDialogueID = from
			e := newTestEngine(t, forkScenes(), st)

			e.GoToNextDialogue()
			if got := currentID(e); got != "d3" {
				t.Errorf("GoToNextDialogue() from %s landed on %s, want d3", from, got)
			}
		})
	}
}

func TestEngine_DiceCheck(t *testing.T) {
	arena := func(difficulty int) []scenario.Scene {
		return []scenario.Scene{{
			ID: "arena",
			Dialogues: []scenario.Dialogue{
				{ID: "challenge", Text: "Lift the boulder?", Choices: []scenario.Choice{
					{ID: "lift", Text: "Lift it", DiceCheck: &scenario.DiceCheck{
						Stat:       "Physique",
						Difficulty: difficulty,
						Success:    &scenario.DiceBranch{NextDialogueID: "win"},
						Failure:    &scenario.DiceBranch{NextDialogueID: "lose"},
					}},
				}},
				{ID: "lose", Text: "It does not budge.", IsResponse: true},
				{ID: "win", Text: "The boulder rolls away.", IsResponse: true},
			},
		}}
	}

	tests := []struct {
		name string
		seed int64
		// difficulty relative to roll plus the Physique bonus of 10
		offset     int
		wantResult DiceResult
		wantNext   string
	}{
		{"total beats difficulty", 11, -1, DiceSuccess, "win"},
		{"total meets difficulty exactly", 12, 0, DiceSuccess, "win"},
		{"total misses difficulty", 13, 1, DiceFailure, "lose"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			face := firstFace(t, tt.seed)
			wantTotal := face + 10
			st := NewRuntimeState("", "arena", conditionals.Stats{"Physique": 10})
			e := newTestEngine(t, arena(wantTotal+tt.offset), st, WithRoller(d20.NewRoller(tt.seed)))

			if err := e.ChooseOption(context.Background(), e.CurrentDialogue().Choices[0]); err != nil {
				t.Fatalf("ChooseOption() error = %v", err)
			}
			dice := e.DiceState()
			if dice.Rolling {
				t.Error("still rolling after ChooseOption returned")
			}
			if dice.LastResult != tt.wantResult {
				t.Errorf("LastResult = %s, want %s", dice.LastResult, tt.wantResult)
			}
			if dice.LastRoll != wantTotal || dice.Natural != face {
				t.Errorf("LastRoll/Natural = %d/%d, want %d/%d", dice.LastRoll, dice.Natural, wantTotal, face)
			}
			if got := currentID(e); got != tt.wantNext {
				t.Errorf("current dialogue = %s, want %s", got, tt.wantNext)
			}
		})
	}
}

func TestEngine_DiceBranchMissingFallsBackToChoice(t *testing.T) {
	scenes := forkScenes()
	scenes[0].Dialogues[0].Choices[0].DiceCheck = &scenario.DiceCheck{
		Stat:       "Luck",
		Difficulty: 30,
		Success:    &scenario.DiceBranch{NextSceneID: "castle"},
	}
	e := newTestEngine(t, scenes, nil, WithRoller(d20.NewRoller(1)))

	if err := e.ChooseOption(context.Background(), e.CurrentDialogue().Choices[0]); err != nil {
		t.Fatalf("ChooseOption() error = %v", err)
	}
	if got := currentID(e); got != "d2" {
		t.Errorf("current dialogue = %s, want the choice's own destination d2", got)
	}
}

func waitForRolling(t *testing.T, e *Engine) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !e.DiceState().Rolling {
		if time.Now().After(deadline) {
			t.Fatal("engine never entered the rolling state")
		}
		time.Sleep(time.Millisecond)
	}
}

func diceScenes() []scenario.Scene {
	scenes := forkScenes()
	scenes[0].Dialogues[0].Choices[0].DiceCheck = &scenario.DiceCheck{
		Stat:       "Luck",
		Difficulty: 1,
		Success:    &scenario.DiceBranch{NextSceneID: "castle"},
		Failure:    &scenario.DiceBranch{NextDialogueID: "d1"},
	}
	return scenes
}

func TestEngine_RollInProgress(t *testing.T) {
	e := newTestEngine(t, diceScenes(), nil, WithDiceDelay(50*time.Millisecond))
	choice := e.CurrentDialogue().Choices[0]

	errc := make(chan error, 1)
	go func() { errc <- e.ChooseOption(context.Background(), choice) }()
	waitForRolling(t, e)

	if err := e.ChooseOption(context.Background(), choice); !errors.Is(err, ErrRollInProgress) {
		t.Errorf("overlapping ChooseOption() error = %v, want ErrRollInProgress", err)
	}
	if err := <-errc; err != nil {
		t.Fatalf("ChooseOption() error = %v", err)
	}
	if len(e.History()) != 1 {
		t.Errorf("len(History) = %d, want 1", len(e.History()))
	}
	if got := e.CurrentScene().ID; got != "castle" {
		t.Errorf("scene = %s, want castle", got)
	}
}

func TestEngine_CloseDuringRollDropsResolution(t *testing.T) {
	e := newTestEngine(t, diceScenes(), nil, WithDiceDelay(time.Hour))

	errc := make(chan error, 1)
	go func() { errc <- e.ChooseOption(context.Background(), e.CurrentDialogue().Choices[0]) }()
	waitForRolling(t, e)

	e.Close()
	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("ChooseOption() after Close = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("ChooseOption did not return after Close")
	}

	snap := e.Snapshot()
	if snap.CurrentSceneID != "forest" || snap.CurrentDialogueID != "d0" {
		t.Errorf("state moved after Close: %s/%s", snap.CurrentSceneID, snap.CurrentDialogueID)
	}
	if snap.Dice.LastResult != "" {
		t.Errorf("dice resolved after Close: %+v", snap.Dice)
	}
	if err := e.ChooseOption(context.Background(), scenario.Choice{ID: "x"}); !errors.Is(err, ErrEngineClosed) {
		t.Errorf("ChooseOption() on closed engine = %v, want ErrEngineClosed", err)
	}
}

func TestEngine_JumpDuringRollAbandonsIt(t *testing.T) {
	e := newTestEngine(t, diceScenes(), nil, WithDiceDelay(time.Hour))

	errc := make(chan error, 1)
	go func() { errc <- e.ChooseOption(context.Background(), e.CurrentDialogue().Choices[0]) }()
	waitForRolling(t, e)

	if err := e.JumpToHistoryIndex(0); err != nil {
		t.Fatalf("JumpToHistoryIndex() error = %v", err)
	}
	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("ChooseOption() = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("ChooseOption did not return after the jump")
	}

	if d := e.DiceState(); d != (DiceState{}) {
		t.Errorf("dice state = %+v, want zero", d)
	}
	if got := e.CurrentScene().ID; got != "forest" {
		t.Errorf("scene = %s, want forest", got)
	}
}

func TestEngine_ContextCancelledDuringRoll(t *testing.T) {
	e := newTestEngine(t, diceScenes(), nil, WithDiceDelay(time.Hour))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := e.ChooseOption(ctx, e.CurrentDialogue().Choices[0])
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("ChooseOption() error = %v, want deadline exceeded", err)
	}
	if e.DiceState().Rolling {
		t.Error("still rolling after cancellation")
	}
	if got := currentID(e); got != "d0" {
		t.Errorf("current dialogue = %s, want d0", got)
	}
}

func TestEngine_HistoryMonotonicity(t *testing.T) {
	scenes := []scenario.Scene{{ID: "s", Dialogues: []scenario.Dialogue{
		{ID: "a", Text: "a"}, {ID: "b", Text: "b"}, {ID: "c", Text: "c"},
		{ID: "d", Text: "d"}, {ID: "e", Text: "e"}, {ID: "f", Text: "f"},
	}}}
	e := newTestEngine(t, scenes, nil)
	ctx := context.Background()

	for i := range 5 {
		if err := e.ChooseOption(ctx, scenario.Choice{ID: "next"}); err != nil {
			t.Fatalf("ChooseOption() error = %v", err)
		}
		if got := len(e.History()); got != i+1 {
			t.Fatalf("len(History) = %d, want %d", got, i+1)
		}
	}

	if err := e.JumpToHistoryIndex(2); err != nil {
		t.Fatalf("JumpToHistoryIndex() error = %v", err)
	}
	if got := len(e.History()); got != 3 {
		t.Errorf("len(History) after jump = %d, want 3", got)
	}
	if got := currentID(e); got != "c" {
		t.Errorf("current dialogue after jump = %s, want c", got)
	}

	for _, bad := range []int{-1, 3, 100} {
		if err := e.JumpToHistoryIndex(bad); !errors.Is(err, ErrHistoryIndex) {
			t.Errorf("JumpToHistoryIndex(%d) error = %v, want ErrHistoryIndex", bad, err)
		}
	}
}

func TestEngine_HistoryHoldsPostEffectStats(t *testing.T) {
	scenes := forkScenes()
	scenes[0].Dialogues[0].Choices[0].Effects = []conditionals.Effect{
		{Variable: "Courage", Operation: conditionals.OpAdd, Value: 5},
	}
	st := NewRuntimeState("", "forest", conditionals.Stats{"Courage": 10})
	e := newTestEngine(t, scenes, st)
	ctx := context.Background()

	if err := e.ChooseOption(ctx, e.CurrentDialogue().Choices[0]); err != nil {
		t.Fatalf("ChooseOption() error = %v", err)
	}
	if got := e.History()[0].StatsSnapshot["Courage"]; got != 15 {
		t.Errorf("snapshot Courage = %d, want 15", got)
	}
	if got := e.Stats()["Courage"]; got != 15 {
		t.Errorf("live Courage = %d, want 15", got)
	}

	// Further changes must not leak into the recorded snapshot.
	e.GoToNextDialogue()
	if err := e.ChooseOption(ctx, scenario.Choice{ID: "brave", Effects: []conditionals.Effect{
		{Variable: "Courage", Operation: conditionals.OpSet, Value: 90},
	}}); err != nil {
		t.Fatalf("ChooseOption() error = %v", err)
	}
	if err := e.JumpToHistoryIndex(0); err != nil {
		t.Fatalf("JumpToHistoryIndex() error = %v", err)
	}
	if got := e.Stats()["Courage"]; got != 15 {
		t.Errorf("Courage after jump = %d, want 15", got)
	}
	if got := currentID(e); got != "d0" {
		t.Errorf("dialogue after jump = %s, want d0", got)
	}
}

func TestEngine_ConditionsGateAdvance(t *testing.T) {
	scenes := []scenario.Scene{{ID: "s", Dialogues: []scenario.Dialogue{
		{ID: "start", Text: "x", NextDialogueID: "secret"},
		{ID: "plain", Text: "x"},
		{ID: "secret", Text: "x", Conditions: []conditionals.Condition{
			{Variable: "Wits", Operator: conditionals.OpGreaterOrEqual, Value: 50},
		}},
		{ID: "end", Text: "x"},
	}}}

	tests := []struct {
		name string
		wits int
		want string
	}{
		{"explicit next reachable", 60, "secret"},
		{"explicit next gated falls back to linear", 10, "plain"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, scenes, NewRuntimeState("", "s", conditionals.Stats{"Wits": tt.wits}))
			e.GoToNextDialogue()
			if got := currentID(e); got != tt.want {
				t.Errorf("GoToNextDialogue() landed on %s, want %s", got, tt.want)
			}
		})
	}

	t.Run("linear advance skips gated dialogue", func(t *testing.T) {
		st := NewRuntimeState("", "s", nil)
		st.CurrentDialogueID = "plain"
		e := newTestEngine(t, scenes, st)
		e.GoToNextDialogue()
		if got := currentID(e); got != "end" {
			t.Errorf("GoToNextDialogue() landed on %s, want end", got)
		}
	})
}

func TestEngine_IsAtLastDialogue(t *testing.T) {
	scenes := []scenario.Scene{{ID: "s", Dialogues: []scenario.Dialogue{
		{ID: "choice", Text: "x", Choices: []scenario.Choice{{ID: "c", Text: "c"}}},
		{ID: "resp", Text: "x", IsResponse: true},
		{ID: "jump", Text: "x", NextDialogueID: "choice"},
		{ID: "middle", Text: "x"},
		{ID: "gated", Text: "x", Conditions: []conditionals.Condition{
			{Variable: "Key", Operator: conditionals.OpEqual, Value: 1},
		}},
	}}}

	tests := []struct {
		at   string
		want bool
	}{
		{"choice", false},
		{"resp", false},
		{"jump", false},
		{"middle", true}, // the only later dialogue is gated
		{"gated", true},
	}
	for _, tt := range tests {
		t.Run(tt.at, func(t *testing.T) {
			st := NewRuntimeState("", "s", nil)
			st.CurrentDialogueID = tt.at
			e := newTestEngine(t, scenes, st)
			if got := e.IsAtLastDialogue(); got != tt.want {
				t.Errorf("IsAtLastDialogue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEngine_SceneNavigation(t *testing.T) {
	ctx := context.Background()

	t.Run("choice jumps to scene start", func(t *testing.T) {
		e := newTestEngine(t, forkScenes(), nil)
		if err := e.ChooseOption(ctx, scenario.Choice{ID: "go", NextSceneID: "castle"}); err != nil {
			t.Fatalf("ChooseOption() error = %v", err)
		}
		if e.CurrentScene().ID != "castle" || currentID(e) != "gate" {
			t.Errorf("at %s/%s, want castle/gate", e.CurrentScene().ID, currentID(e))
		}
	})

	t.Run("choice jumps to scene dialogue", func(t *testing.T) {
		e := newTestEngine(t, forkScenes(), nil)
		if err := e.ChooseOption(ctx, scenario.Choice{ID: "go", NextSceneID: "castle", NextDialogueID: "hall"}); err != nil {
			t.Fatalf("ChooseOption() error = %v", err)
		}
		if currentID(e) != "hall" {
			t.Errorf("at %s, want hall", currentID(e))
		}
	})

	t.Run("unknown destinations advance linearly", func(t *testing.T) {
		for _, c := range []scenario.Choice{
			{ID: "a", NextSceneID: "nowhere"},
			{ID: "b", NextDialogueID: "missing"},
			{ID: "c"},
		} {
			e := newTestEngine(t, forkScenes(), nil)
			if err := e.ChooseOption(ctx, c); err != nil {
				t.Fatalf("ChooseOption() error = %v", err)
			}
			if got := currentID(e); got != "d1" {
				t.Errorf("choice %s landed on %s, want d1", c.ID, got)
			}
		}
	})

	t.Run("GoToScene", func(t *testing.T) {
		e := newTestEngine(t, forkScenes(), nil)
		if err := e.GoToScene("castle", "hall"); err != nil {
			t.Fatalf("GoToScene() error = %v", err)
		}
		if currentID(e) != "hall" {
			t.Errorf("at %s, want hall", currentID(e))
		}
		if err := e.GoToScene("nowhere", ""); !errors.Is(err, scenario.ErrSceneNotFound) {
			t.Errorf("GoToScene(nowhere) error = %v, want ErrSceneNotFound", err)
		}
		if len(e.History()) != 0 {
			t.Error("GoToScene recorded history")
		}
	})
}

func TestEngine_SceneEndHandler(t *testing.T) {
	var ended []string
	var e *Engine
	e = newTestEngine(t, forkScenes(), NewRuntimeState("", "castle", nil), WithSceneEndHandler(func(sceneID string) {
		ended = append(ended, sceneID)
		if err := e.GoToScene("forest", ""); err != nil {
			t.Errorf("GoToScene() from handler error = %v", err)
		}
	}))

	if !e.GoToNextDialogue() {
		t.Fatal("first advance should move")
	}
	if e.GoToNextDialogue() {
		t.Fatal("advance past the last dialogue should not move")
	}
	if len(ended) != 1 || ended[0] != "castle" {
		t.Errorf("scene end notifications = %v, want [castle]", ended)
	}
	if e.CurrentScene().ID != "forest" {
		t.Errorf("handler's GoToScene not applied, scene = %s", e.CurrentScene().ID)
	}
}

func TestNewEngine(t *testing.T) {
	if _, err := NewEngine(nil, nil); err == nil {
		t.Error("NewEngine() with no scenes should fail")
	}
	if _, err := NewEngine(forkScenes(), NewRuntimeState("", "nowhere", nil)); !errors.Is(err, scenario.ErrSceneNotFound) {
		t.Errorf("NewEngine() with unknown scene error = %v", err)
	}

	st := NewRuntimeState("", "", nil)
	st.CurrentDialogueID = "stale"
	st.Dice.Rolling = true
	e := newTestEngine(t, forkScenes(), st)
	snap := e.Snapshot()
	if snap.CurrentSceneID != "forest" || snap.CurrentDialogueID != "d0" {
		t.Errorf("start = %s/%s, want forest/d0", snap.CurrentSceneID, snap.CurrentDialogueID)
	}
	if snap.Dice.Rolling {
		t.Error("restored state kept a pending roll")
	}
}

func TestEngine_SnapshotIsDetached(t *testing.T) {
	e := newTestEngine(t, forkScenes(), NewRuntimeState("", "forest", conditionals.Stats{"Luck": 3}))
	snap := e.Snapshot()
	snap.Stats["Luck"] = 99
	if got := e.Stats()["Luck"]; got != 3 {
		t.Errorf("engine stats changed through snapshot: Luck = %d", got)
	}
}

func TestEngine_ChoiceAndRollHandlers(t *testing.T) {
	scenes := diceScenes()
	scenes[0].Dialogues[0].Choices[0].Effects = []conditionals.Effect{
		{Variable: "Courage", Operation: conditionals.OpAdd, Value: 2},
	}

	var (
		order      []string
		gotDelta   conditionals.StatDelta
		rollingNow bool
	)
	var e *Engine
	e = newTestEngine(t, scenes, nil,
		WithChoiceHandler(func(c scenario.Choice, delta conditionals.StatDelta) {
			order = append(order, "choice:"+c.ID)
			gotDelta = delta
		}),
		WithRollHandler(func(c scenario.Choice, check scenario.DiceCheck) {
			order = append(order, "roll:"+check.Stat)
			rollingNow = e.DiceState().Rolling
		}),
		WithSceneEndHandler(func(id string) { order = append(order, "end:"+id) }),
	)

	if err := e.ChooseOption(context.Background(), e.CurrentDialogue().Choices[0]); err != nil {
		t.Fatalf("ChooseOption() error = %v", err)
	}
	if len(order) != 2 || order[0] != "choice:left" || order[1] != "roll:Luck" {
		t.Errorf("handler calls = %v, want [choice:left roll:Luck]", order)
	}
	if gotDelta["Courage"] != 2 {
		t.Errorf("delta = %v, want Courage +2", gotDelta)
	}
	if !rollingNow {
		t.Error("roll handler ran outside the rolling state")
	}

	order = nil
	if err := e.ChooseOption(context.Background(), scenario.Choice{ID: "plain"}); err != nil {
		t.Fatalf("ChooseOption() error = %v", err)
	}
	// castle has a single dialogue, so advancing past it ends the scene
	if len(order) != 2 || order[0] != "choice:plain" || order[1] != "end:castle" {
		t.Errorf("handler calls = %v, want [choice:plain end:castle]", order)
	}
}
