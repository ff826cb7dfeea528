package conditionals

import "math"

// StatDelta is a compact representation of the changes an effect list makes to a
// stats snapshot. Keys are stat names, values are signed differences.
type StatDelta map[string]int

// IsEmpty checks if the delta changes nothing.
func (d StatDelta) IsEmpty() bool {
	for _, v := range d {
		if v != 0 {
			return false
		}
	}
	return true
}

// Clamp bounds a stat value into [StatMin, StatMax].
func Clamp(v int) int {
	return max(StatMin, min(StatMax, v))
}

// ComputeDelta turns a list of effects into a delta against the stats snapshot.
// Effects are applied in order against a running copy of the snapshot, each step
// clamped, so later effects on the same stat see earlier ones. The snapshot is not
// modified.
func ComputeDelta(effects []Effect, stats Stats) StatDelta {
	delta := make(StatDelta, len(effects))
	running := make(map[string]int, len(effects))

	for _, e := range effects {
		current, ok := running[e.Variable]
		if !ok {
			current = stats.Get(e.Variable)
		}

		var next int
		switch e.Operation {
		case OpAdd:
			next = current + round(e.Value)
		case OpSet:
			next = round(e.Value)
		case OpMultiply:
			next = round(float64(current) * e.Value)
		default:
			continue
		}

		next = Clamp(next)
		running[e.Variable] = next
		delta[e.Variable] = next - stats.Get(e.Variable)
	}

	return delta
}

// ApplyDelta returns a new Stats with the delta added to the base values and every
// touched stat clamped. The input stats are not modified.
func ApplyDelta(stats Stats, delta StatDelta) Stats {
	out := stats.Clone()
	for name, d := range delta {
		out[name] = Clamp(out[name] + d)
	}
	return out
}

func round(v float64) int {
	return int(math.Round(v))
}
