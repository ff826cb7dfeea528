package layout

import (
	"slices"

	"github.com/jwebster45206/story-graph/pkg/graph"
)

// Direction is the main flow axis of the hierarchical layout.
type Direction string

const (
	TopToBottom Direction = "TB"
	LeftToRight Direction = "LR"
)

// sweeps is the number of down+up barycenter passes used to order ranks.
const sweeps = 4

// Options configure Hierarchical.
type Options struct {
	Direction Direction `json:"direction"`
	NodeSep   float64   `json:"node_sep"` // gap between nodes of the same rank
	RankSep   float64   `json:"rank_sep"` // gap between ranks
	MarginX   float64   `json:"margin_x"`
	MarginY   float64   `json:"margin_y"`
}

// DefaultOptions returns the spacing used by the editor for a direction.
func DefaultOptions(dir Direction) Options {
	if dir == LeftToRight {
		return Options{Direction: LeftToRight, NodeSep: 120, RankSep: 180, MarginX: 50, MarginY: 50}
	}
	return Options{Direction: TopToBottom, NodeSep: 80, RankSep: 220, MarginX: 50, MarginY: 50}
}

// Hierarchical assigns positions to nodes using a layered (Sugiyama-style)
// layout: cycles are broken, nodes are ranked by longest path from a source,
// ranks are ordered by barycenter sweeps, then coordinates follow from node
// sizes and spacing. The result depends only on the input order and content.
// Input nodes are not modified.
func Hierarchical(nodes []graph.Node, edges []graph.Edge, opts Options) []graph.Node {
	out := slices.Clone(nodes)
	if len(out) == 0 {
		return out
	}

	g := newLayered(out, edges)
	g.breakCycles()
	g.rank()
	layers := g.order()
	g.place(out, layers, opts)
	return out
}

// layered is the working graph for one layout run; vertices are node indices.
type layered struct {
	n    int
	succ [][]int
	pred [][]int
	rnk  []int
}

func newLayered(nodes []graph.Node, edges []graph.Edge) *layered {
	index := make(map[string]int, len(nodes))
	for i, n := range nodes {
		index[n.ID] = i
	}

	g := &layered{n: len(nodes), succ: make([][]int, len(nodes))}
	type pair struct{ u, v int }
	seen := make(map[pair]bool)
	for _, e := range edges {
		if e.Kind == graph.EdgeTurn {
			continue
		}
		u, okU := index[e.Source]
		v, okV := index[e.Target]
		if !okU || !okV || u == v || seen[pair{u, v}] {
			continue
		}
		seen[pair{u, v}] = true
		g.succ[u] = append(g.succ[u], v)
	}
	return g
}

// breakCycles reverses DFS back edges so the graph becomes acyclic, then
// derives the predecessor lists.
func (g *layered) breakCycles() {
	const (
		unvisited = iota
		onStack
		done
	)
	state := make([]int, g.n)
	dag := make([][]int, g.n)

	var visit func(u int)
	visit = func(u int) {
		state[u] = onStack
		for _, v := range g.succ[u] {
			switch state[v] {
			case onStack:
				if !slices.Contains(dag[v], u) {
					dag[v] = append(dag[v], u)
				}
			case unvisited:
				dag[u] = append(dag[u], v)
				visit(v)
			default:
				dag[u] = append(dag[u], v)
			}
		}
		state[u] = done
	}
	for u := range g.n {
		if state[u] == unvisited {
			visit(u)
		}
	}

	g.succ = dag
	g.pred = make([][]int, g.n)
	for u, vs := range dag {
		for _, v := range vs {
			g.pred[v] = append(g.pred[v], u)
		}
	}
}

// rank assigns each vertex its longest-path distance from a source.
func (g *layered) rank() {
	g.rnk = make([]int, g.n)
	indeg := make([]int, g.n)
	for v := range g.n {
		indeg[v] = len(g.pred[v])
	}

	queue := make([]int, 0, g.n)
	for v := range g.n {
		if indeg[v] == 0 {
			queue = append(queue, v)
		}
	}
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		for _, v := range g.succ[u] {
			g.rnk[v] = max(g.rnk[v], g.rnk[u]+1)
			indeg[v]--
			if indeg[v] == 0 {
				queue = append(queue, v)
			}
		}
	}
}

// order groups vertices by rank and reduces crossings with barycenter sweeps.
// Ties keep the previous order so the result is stable.
func (g *layered) order() [][]int {
	maxRank := slices.Max(g.rnk)
	layers := make([][]int, maxRank+1)
	for v := range g.n {
		layers[g.rnk[v]] = append(layers[g.rnk[v]], v)
	}

	pos := make([]float64, g.n)
	reindex := func(layer []int) {
		for i, v := range layer {
			pos[v] = float64(i)
		}
	}
	for _, l := range layers {
		reindex(l)
	}

	sortLayer := func(layer []int, neighbours [][]int) {
		bary := make(map[int]float64, len(layer))
		for _, v := range layer {
			ns := neighbours[v]
			if len(ns) == 0 {
				bary[v] = pos[v]
				continue
			}
			var sum float64
			for _, w := range ns {
				sum += pos[w]
			}
			bary[v] = sum / float64(len(ns))
		}
		slices.SortStableFunc(layer, func(a, b int) int {
			switch {
			case bary[a] < bary[b]:
				return -1
			case bary[a] > bary[b]:
				return 1
			}
			return 0
		})
		reindex(layer)
	}

	for range sweeps {
		for r := 1; r < len(layers); r++ {
			sortLayer(layers[r], g.pred)
		}
		for r := len(layers) - 2; r >= 0; r-- {
			sortLayer(layers[r], g.succ)
		}
	}
	return layers
}

// place converts rank/order into top-left positions. Along the rank axis each
// rank is as thick as its largest node; across it, nodes are packed with NodeSep
// and every rank is centred against the widest one.
func (g *layered) place(nodes []graph.Node, layers [][]int, opts Options) {
	lr := opts.Direction == LeftToRight

	// along: extent in the flow direction; across: extent within a rank.
	along := func(n *graph.Node) float64 {
		if lr {
			return n.Width
		}
		return n.Height
	}
	across := func(n *graph.Node) float64 {
		if lr {
			return n.Height
		}
		return n.Width
	}

	thickness := make([]float64, len(layers))
	span := make([]float64, len(layers))
	var widest float64
	for r, layer := range layers {
		for i, v := range layer {
			thickness[r] = max(thickness[r], along(&nodes[v]))
			span[r] += across(&nodes[v])
			if i > 0 {
				span[r] += opts.NodeSep
			}
		}
		widest = max(widest, span[r])
	}

	marginAlong, marginAcross := opts.MarginY, opts.MarginX
	if lr {
		marginAlong, marginAcross = opts.MarginX, opts.MarginY
	}

	rankStart := marginAlong
	for r, layer := range layers {
		centreAlong := rankStart + thickness[r]/2
		cursor := marginAcross + (widest-span[r])/2
		for _, v := range layer {
			n := &nodes[v]
			centreAcross := cursor + across(n)/2
			cursor += across(n) + opts.NodeSep

			if lr {
				n.Position = graph.Position{X: centreAlong - n.Width/2, Y: centreAcross - n.Height/2}
			} else {
				n.Position = graph.Position{X: centreAcross - n.Width/2, Y: centreAlong - n.Height/2}
			}
		}
		rankStart += thickness[r] + opts.RankSep
	}
}
