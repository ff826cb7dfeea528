package conditionals

import "maps"

// Stat bounds. Every stat value is clamped into [StatMin, StatMax] after a delta is applied.
const (
	StatMin = 0
	StatMax = 100
)

// Stats maps a stat name (e.g. "Physique") to its current value.
// A stat that is not present reads as 0.
type Stats map[string]int

// Get returns the value of a stat, or 0 if it is not set. Safe on a nil map.
func (s Stats) Get(name string) int {
	return s[name]
}

// Clone returns a copy of the stats. A nil receiver yields an empty, non-nil map.
func (s Stats) Clone() Stats {
	out := make(Stats, len(s))
	maps.Copy(out, s)
	return out
}

// Operator is a comparison operator used by a Condition.
type Operator string

const (
	OpGreaterOrEqual Operator = ">="
	OpLessOrEqual    Operator = "<="
	OpGreater        Operator = ">"
	OpLess           Operator = "<"
	OpEqual          Operator = "=="
	OpNotEqual       Operator = "!="
)

// Condition is a single stat comparison gating whether a dialogue is reachable.
type Condition struct {
	Variable string   `json:"variable" yaml:"variable"`
	Operator Operator `json:"operator" yaml:"operator"`
	Value    int      `json:"value" yaml:"value"`
}

// Operation is the kind of stat mutation an Effect performs.
type Operation string

const (
	OpAdd      Operation = "add"
	OpSet      Operation = "set"
	OpMultiply Operation = "multiply"
)

// Effect is a stat mutation applied when a choice is taken.
// Value is a float so multiply effects can scale by fractions (e.g. 1.5).
type Effect struct {
	Variable  string    `json:"variable" yaml:"variable"`
	Operation Operation `json:"operation" yaml:"operation"`
	Value     float64   `json:"value" yaml:"value"`
}

// ValidOperator reports whether op is one of the supported comparison operators.
func ValidOperator(op Operator) bool {
	switch op {
	case OpGreaterOrEqual, OpLessOrEqual, OpGreater, OpLess, OpEqual, OpNotEqual:
		return true
	}
	return false
}

// ValidOperation reports whether op is one of the supported effect operations.
func ValidOperation(op Operation) bool {
	switch op {
	case OpAdd, OpSet, OpMultiply:
		return true
	}
	return false
}
