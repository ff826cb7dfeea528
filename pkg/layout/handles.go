package layout

import (
	"cmp"
	"slices"
	"strings"

	"github.com/jwebster45206/story-graph/pkg/graph"
)

// RowPosition locates a node in the row map.
type RowPosition struct {
	RowIndex      int `json:"row_index"`
	PositionInRow int `json:"position_in_row"`
}

// BuildNodeRowMap derives rows from current node positions: nodes within
// RowThreshold of a row's first Y share the row, and positions within a row
// follow X. Terminal nodes are ignored.
func BuildNodeRowMap(nodes []graph.Node) map[string]RowPosition {
	rows := make(map[string]RowPosition, len(nodes))

	var members []int
	for i := range nodes {
		if nodes[i].Kind != graph.KindTerminal {
			members = append(members, i)
		}
	}
	for r, band := range yBands(nodes, members) {
		slices.SortStableFunc(band, func(a, b int) int {
			return cmp.Compare(nodes[a].Position.X, nodes[b].Position.X)
		})
		for p, i := range band {
			rows[nodes[i].ID] = RowPosition{RowIndex: r, PositionInRow: p}
		}
	}
	return rows
}

// startDirection reads the first row's direction from serpentine data, or ltr.
func startDirection(nodes []graph.Node) graph.FlowDirection {
	for _, n := range nodes {
		if s := n.Data.Serpentine; s != nil && s.RowIndex == 0 {
			return s.FlowDirection
		}
	}
	return graph.FlowLTR
}

// Handles returns the source and target handles for an edge between two rows.
// Choice handles are kept as the source.
func Handles(sourceRow, targetRow int, start graph.FlowDirection, currentSource string) (string, string) {
	keep := strings.HasPrefix(currentSource, graph.ChoiceHandlePrefix)
	pick := func(h string) string {
		if keep {
			return currentSource
		}
		return h
	}

	if sourceRow != targetRow {
		return pick(graph.HandleBottom), graph.HandleTop
	}
	if RowDirection(sourceRow, start) == graph.FlowLTR {
		return pick(graph.HandleRight), graph.HandleLeft
	}
	return pick(graph.HandleLeftOut), graph.HandleRightIn
}

// RecalculateEdgeHandles returns a copy of edges with connection handles derived
// from the nodes' current row membership. Editors call it again after a node is
// dragged across a row boundary.
// Edges touching nodes outside the row map (terminals, unknown ids) are unchanged.
func RecalculateEdgeHandles(nodes []graph.Node, edges []graph.Edge) []graph.Edge {
	out := slices.Clone(edges)
	if len(nodes) == 0 {
		return out
	}

	rows := BuildNodeRowMap(nodes)
	start := startDirection(nodes)
	for i := range out {
		e := &out[i]
		if e.Kind == graph.EdgeTurn {
			continue
		}
		src, okS := rows[e.Source]
		tgt, okT := rows[e.Target]
		if !okS || !okT {
			continue
		}
		e.SourceHandle, e.TargetHandle = Handles(src.RowIndex, tgt.RowIndex, start, e.SourceHandle)
	}
	return out
}

// TurnEdges appends a decorative connector from the last node of each serpentine
// row to the first node of the next row. Nodes without serpentine data are ignored.
func TurnEdges(nodes []graph.Node, edges []graph.Edge, theme *graph.Theme) []graph.Edge {
	var serp []*graph.Node
	for i := range nodes {
		if nodes[i].Data.Serpentine != nil {
			serp = append(serp, &nodes[i])
		}
	}
	slices.SortStableFunc(serp, func(a, b *graph.Node) int {
		return cmp.Or(
			cmp.Compare(a.Data.Serpentine.RowIndex, b.Data.Serpentine.RowIndex),
			cmp.Compare(a.Data.Serpentine.PositionInRow, b.Data.Serpentine.PositionInRow),
		)
	})

	out := slices.Clone(edges)
	if len(serp) < 2 {
		return out
	}

	existing := make(map[string]bool, len(edges))
	for _, e := range edges {
		existing[e.ID] = true
	}

	for i := 0; i+1 < len(serp); i++ {
		curr, next := serp[i], serp[i+1]
		if !curr.Data.Serpentine.IsLastInRow || !next.Data.Serpentine.IsFirstInRow {
			continue
		}
		id := curr.ID + "-serp-turn-" + next.ID
		if existing[id] {
			continue
		}
		out = append(out, graph.Edge{
			ID:           id,
			Source:       curr.ID,
			Target:       next.ID,
			Kind:         graph.EdgeTurn,
			SourceHandle: graph.HandleBottom,
			TargetHandle: graph.HandleTop,
			Style:        theme.EdgeStyle(graph.EdgeTurn),
		})
	}
	return out
}
