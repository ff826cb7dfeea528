package graph

// Fan-out tuning for edges converging on the same node.
const (
	BendMin       = 0.3
	BendMax       = 0.7
	BendDefault   = 0.5
	FanOffsetStep = 12.0
)

// ApplyFanOut returns a copy of edges where every edge carries a Route spreading
// it among the other edges that share its target. Turn connectors are left alone.
// Topology is unchanged.
func ApplyFanOut(edges []Edge) []Edge {
	out := make([]Edge, len(edges))
	copy(out, edges)

	byTarget := make(map[string][]int)
	var order []string
	for i, e := range out {
		if e.Kind == EdgeTurn {
			continue
		}
		if _, ok := byTarget[e.Target]; !ok {
			order = append(order, e.Target)
		}
		byTarget[e.Target] = append(byTarget[e.Target], i)
	}

	for _, target := range order {
		idx := byTarget[target]
		n := len(idx)
		for k, i := range idx {
			out[i].Route = &Route{
				ParallelIndex: k,
				ParallelCount: n,
				BendPosition:  bendPosition(k, n),
				OffsetY:       (float64(k) - float64(n-1)/2) * FanOffsetStep,
			}
		}
	}
	return out
}

func bendPosition(k, n int) float64 {
	if n <= 1 {
		return BendDefault
	}
	return BendMin + (BendMax-BendMin)*float64(k)/float64(n-1)
}
