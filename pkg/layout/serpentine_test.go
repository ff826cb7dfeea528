package layout

import (
	"fmt"
	"testing"

	"github.com/jwebster45206/story-graph/pkg/graph"
	"github.com/jwebster45206/story-graph/pkg/scenario"
)

func chain(n int) ([]graph.Node, []graph.Edge) {
	nodes := make([]graph.Node, n)
	var edges []graph.Edge
	for i := range nodes {
		nodes[i] = node(graph.NodeID("s", i))
		nodes[i].Data.Index = i
		if i > 0 {
			edges = append(edges, edge(graph.NodeID("s", i-1), graph.NodeID("s", i)))
		}
	}
	return Hierarchical(nodes, edges, DefaultOptions(LeftToRight)), edges
}

func TestSerpentine_RowIntegrity(t *testing.T) {
	tests := []struct {
		name  string
		total int
		group int
		start graph.FlowDirection
	}{
		{"exact rows", 12, 4, graph.FlowLTR},
		{"partial last row", 13, 5, graph.FlowLTR},
		{"single row", 3, 6, graph.FlowLTR},
		{"starting right to left", 7, 3, graph.FlowRTL},
		{"group of one", 4, 1, graph.FlowLTR},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nodes, _ := chain(tt.total)
			out := Serpentine(nodes, SerpentineOptions{Mode: ModeByCount, GroupSize: tt.group, StartDirection: tt.start})

			wantRows := (tt.total + tt.group - 1) / tt.group
			counts := make(map[int]int)
			for i, n := range out {
				s := n.Data.Serpentine
				if s == nil {
					t.Fatalf("node %s has no row info", n.ID)
				}
				counts[s.RowIndex]++

				wantDir := tt.start
				if s.RowIndex%2 == 1 {
					wantDir = tt.start.Opposite()
				}
				if s.FlowDirection != wantDir {
					t.Errorf("row %d direction = %s, want %s", s.RowIndex, s.FlowDirection, wantDir)
				}
				if s.IsFirst != (i == 0) || s.IsLast != (i == tt.total-1) {
					t.Errorf("node %d first/last = %v/%v", i, s.IsFirst, s.IsLast)
				}
				if s.IsFirstInRow != (s.PositionInRow == 0) || s.IsLastInRow != (s.PositionInRow == s.RowLength-1) {
					t.Errorf("node %d row flags wrong: %+v", i, s)
				}
			}

			if len(counts) != wantRows {
				t.Fatalf("rows = %d, want %d", len(counts), wantRows)
			}
			for r := 0; r < wantRows-1; r++ {
				if counts[r] != tt.group {
					t.Errorf("row %d has %d nodes, want %d", r, counts[r], tt.group)
				}
			}
		})
	}
}

func TestSerpentine_Positions(t *testing.T) {
	nodes, _ := chain(6)
	opts := DefaultSerpentineOptions()
	opts.GroupSize = 4
	out := Serpentine(nodes, opts)

	// Row 0 runs left to right, row 1 right to left from the right edge of the widest row.
	right := opts.StartX + 3*opts.NodeSpacing
	want := []graph.Position{
		{X: opts.StartX, Y: opts.StartY},
		{X: opts.StartX + opts.NodeSpacing, Y: opts.StartY},
		{X: opts.StartX + 2*opts.NodeSpacing, Y: opts.StartY},
		{X: right, Y: opts.StartY},
		{X: right, Y: opts.StartY + opts.RowHeight},
		{X: right - opts.NodeSpacing, Y: opts.StartY + opts.RowHeight},
	}
	for i, w := range want {
		if out[i].Position != w {
			t.Errorf("node %d at %v, want %v", i, out[i].Position, w)
		}
	}
	if nodes[0].Data.Serpentine != nil {
		t.Error("input nodes were modified")
	}
}

func TestSerpentine_TerminalsAnchorBelowSource(t *testing.T) {
	ds := []scenario.Dialogue{
		{ID: "d0", Text: "x"},
		{ID: "d1", Text: "x", Choices: []scenario.Choice{
			{ID: "a", Text: "a", NextSceneID: "s2"},
			{ID: "b", Text: "b", NextSceneID: "s3"},
		}},
	}
	g := graph.Build(ds, "s", graph.Options{})
	laid := Hierarchical(g.Nodes, g.Edges, DefaultOptions(LeftToRight))
	out := Serpentine(laid, DefaultSerpentineOptions())

	var src graph.Position
	terms := map[string]graph.Position{}
	for _, n := range out {
		switch {
		case n.ID == "s-d-1":
			src = n.Position
		case n.Kind == graph.KindTerminal:
			if n.Data.Serpentine != nil {
				t.Errorf("terminal %s got row info", n.ID)
			}
			terms[n.ID] = n.Position
		}
	}
	want := map[string]graph.Position{
		"s-d-1-terminal-0": {X: src.X + 50, Y: src.Y + 100},
		"s-d-1-terminal-1": {X: src.X + 50, Y: src.Y + 170},
	}
	for id, w := range want {
		if terms[id] != w {
			t.Errorf("%s at %v, want %v", id, terms[id], w)
		}
	}
}

func TestSerpentine_Modes(t *testing.T) {
	t.Run("by-scene", func(t *testing.T) {
		var nodes []graph.Node
		for i, id := range []string{"intro-d-0", "intro-d-1", "forest-d-0", "intro-cluster-2"} {
			n := node(id)
			n.Data.Index = i
			nodes = append(nodes, n)
		}
		out := Serpentine(nodes, SerpentineOptions{Mode: ModeByScene})
		rows := map[string]int{}
		for _, n := range out {
			rows[n.ID] = n.Data.Serpentine.RowIndex
		}
		if rows["intro-d-0"] != 0 || rows["intro-d-1"] != 0 || rows["intro-cluster-2"] != 0 || rows["forest-d-0"] != 1 {
			t.Errorf("rows = %v", rows)
		}
	})

	t.Run("auto-y follows bands", func(t *testing.T) {
		var nodes []graph.Node
		for i, y := range []float64{0, 20, 300, 320, 330} {
			n := node(fmt.Sprintf("s-d-%d", i))
			n.Data.Index = i
			n.Position.Y = y
			nodes = append(nodes, n)
		}
		out := Serpentine(nodes, SerpentineOptions{Mode: ModeAutoY})
		want := []int{0, 0, 1, 1, 1}
		for i, n := range out {
			if n.Data.Serpentine.RowIndex != want[i] {
				t.Errorf("node %d row = %d, want %d", i, n.Data.Serpentine.RowIndex, want[i])
			}
		}
	})

	t.Run("auto-y on a flat layout chunks by group size", func(t *testing.T) {
		nodes, _ := chain(7)
		out := Serpentine(nodes, SerpentineOptions{Mode: ModeAutoY, GroupSize: 3})
		if got := out[6].Data.Serpentine.RowIndex; got != 2 {
			t.Errorf("last node row = %d, want 2", got)
		}
	})
}
