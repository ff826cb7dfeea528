package conditionals

import (
	"reflect"
	"testing"
)

func TestComputeDelta(t *testing.T) {
	tests := []struct {
		name     string
		effects  []Effect
		stats    Stats
		expected StatDelta
	}{
		{
			name:     "no effects",
			effects:  nil,
			stats:    Stats{"Physique": 50},
			expected: StatDelta{},
		},
		{
			name:     "add",
			effects:  []Effect{{Variable: "Physique", Operation: OpAdd, Value: 10}},
			stats:    Stats{"Physique": 50},
			expected: StatDelta{"Physique": 10},
		},
		{
			name:     "add negative",
			effects:  []Effect{{Variable: "Physique", Operation: OpAdd, Value: -15}},
			stats:    Stats{"Physique": 50},
			expected: StatDelta{"Physique": -15},
		},
		{
			name:     "set",
			effects:  []Effect{{Variable: "Physique", Operation: OpSet, Value: 20}},
			stats:    Stats{"Physique": 50},
			expected: StatDelta{"Physique": -30},
		},
		{
			name:     "multiply",
			effects:  []Effect{{Variable: "Physique", Operation: OpMultiply, Value: 1.5}},
			stats:    Stats{"Physique": 40},
			expected: StatDelta{"Physique": 20},
		},
		{
			name:     "multiply rounds",
			effects:  []Effect{{Variable: "Physique", Operation: OpMultiply, Value: 0.5}},
			stats:    Stats{"Physique": 25},
			expected: StatDelta{"Physique": -12},
		},
		{
			name:     "add clamps at upper bound",
			effects:  []Effect{{Variable: "Physique", Operation: OpAdd, Value: 500}},
			stats:    Stats{"Physique": 90},
			expected: StatDelta{"Physique": 10},
		},
		{
			name:     "add clamps at lower bound",
			effects:  []Effect{{Variable: "Physique", Operation: OpAdd, Value: -500}},
			stats:    Stats{"Physique": 10},
			expected: StatDelta{"Physique": -10},
		},
		{
			name: "effects on same stat accumulate in order",
			effects: []Effect{
				{Variable: "Physique", Operation: OpSet, Value: 10},
				{Variable: "Physique", Operation: OpMultiply, Value: 3},
				{Variable: "Physique", Operation: OpAdd, Value: 5},
			},
			stats:    Stats{"Physique": 50},
			expected: StatDelta{"Physique": -15},
		},
		{
			name:     "unknown stat starts from zero",
			effects:  []Effect{{Variable: "Courage", Operation: OpAdd, Value: 5}},
			stats:    Stats{},
			expected: StatDelta{"Courage": 5},
		},
		{
			name:     "unknown operation is ignored",
			effects:  []Effect{{Variable: "Physique", Operation: Operation("divide"), Value: 2}},
			stats:    Stats{"Physique": 50},
			expected: StatDelta{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeDelta(tt.effects, tt.stats)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("ComputeDelta() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestComputeDelta_DoesNotMutateSnapshot(t *testing.T) {
	stats := Stats{"Physique": 50}
	ComputeDelta([]Effect{{Variable: "Physique", Operation: OpAdd, Value: 10}}, stats)
	if stats["Physique"] != 50 {
		t.Errorf("snapshot mutated: Physique = %d, want 50", stats["Physique"])
	}
}

func TestApplyDelta_SetIsIdempotent(t *testing.T) {
	effects := []Effect{{Variable: "Mentale", Operation: OpSet, Value: 42}}

	once := ApplyDelta(Stats{"Mentale": 7}, ComputeDelta(effects, Stats{"Mentale": 7}))
	twice := ApplyDelta(once, ComputeDelta(effects, once))

	if once["Mentale"] != 42 {
		t.Errorf("after one set, Mentale = %d, want 42", once["Mentale"])
	}
	if twice["Mentale"] != once["Mentale"] {
		t.Errorf("set not idempotent: once = %d, twice = %d", once["Mentale"], twice["Mentale"])
	}
}

func TestApplyDelta_ClampInvariant(t *testing.T) {
	bases := []int{-50, 0, 10, 50, 90, 100, 150}
	deltas := []int{-1000, -500, -1, 0, 1, 500, 1000}

	for _, base := range bases {
		for _, d := range deltas {
			got := ApplyDelta(Stats{"s": base}, StatDelta{"s": d})["s"]
			if got < StatMin || got > StatMax {
				t.Errorf("ApplyDelta(base=%d, delta=%d) = %d, outside [%d,%d]", base, d, got, StatMin, StatMax)
			}
		}
	}

	if got := ApplyDelta(Stats{"Physique": 90}, ComputeDelta([]Effect{{Variable: "Physique", Operation: OpAdd, Value: 500}}, Stats{"Physique": 90})); got["Physique"] != 100 {
		t.Errorf("add +500 on 90 = %d, want 100", got["Physique"])
	}
}

func TestApplyDelta_DoesNotMutateInput(t *testing.T) {
	stats := Stats{"Physique": 50}
	out := ApplyDelta(stats, StatDelta{"Physique": 5, "Mentale": 3})

	if stats["Physique"] != 50 {
		t.Errorf("input mutated: Physique = %d", stats["Physique"])
	}
	if _, ok := stats["Mentale"]; ok {
		t.Errorf("input gained key Mentale")
	}
	if out["Physique"] != 55 || out["Mentale"] != 3 {
		t.Errorf("ApplyDelta() = %v, want Physique=55 Mentale=3", out)
	}
}

func TestStatDelta_IsEmpty(t *testing.T) {
	if !(StatDelta{}).IsEmpty() {
		t.Error("empty delta should be empty")
	}
	if !(StatDelta{"a": 0}).IsEmpty() {
		t.Error("zero-valued delta should be empty")
	}
	if (StatDelta{"a": 1}).IsEmpty() {
		t.Error("non-zero delta should not be empty")
	}
}
