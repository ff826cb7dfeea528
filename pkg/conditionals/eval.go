package conditionals

// Holds reports whether the condition is satisfied by the given stats.
// Unknown operators never hold.
func (c Condition) Holds(stats Stats) bool {
	value := stats.Get(c.Variable)

	switch c.Operator {
	case OpGreaterOrEqual:
		return value >= c.Value
	case OpLessOrEqual:
		return value <= c.Value
	case OpGreater:
		return value > c.Value
	case OpLess:
		return value < c.Value
	case OpEqual:
		return value == c.Value
	case OpNotEqual:
		return value != c.Value
	default:
		return false
	}
}

// Evaluate checks that every condition holds against the stats (AND logic).
// An empty list always evaluates to true.
func Evaluate(conditions []Condition, stats Stats) bool {
	for _, c := range conditions {
		if !c.Holds(stats) {
			return false
		}
	}
	return true
}
