package layout

import (
	"cmp"
	"slices"
	"strings"

	"github.com/jwebster45206/story-graph/pkg/graph"
)

// Mode selects how nodes are grouped into serpentine rows.
type Mode string

const (
	ModeByCount Mode = "by-count" // chunks of GroupSize in narrative order
	ModeAutoY   Mode = "auto-y"   // rows follow the Y bands of the hierarchical layout
	ModeByScene Mode = "by-scene" // one row per scene
)

// RowThreshold is the Y distance under which two nodes are considered on the same row.
const RowThreshold = 100

// Terminal nodes are re-anchored below their source after the transform.
const (
	terminalOffsetX = 50
	terminalOffsetY = 100
	terminalStepY   = 70
)

// SerpentineOptions configure Serpentine.
type SerpentineOptions struct {
	Mode           Mode                `json:"mode"`
	GroupSize      int                 `json:"group_size"`
	StartDirection graph.FlowDirection `json:"start_direction"`
	NodeSpacing    float64             `json:"node_spacing"`
	RowHeight      float64             `json:"row_height"`
	StartX         float64             `json:"start_x"`
	StartY         float64             `json:"start_y"`
}

// DefaultSerpentineOptions returns rows of six, starting left to right.
func DefaultSerpentineOptions() SerpentineOptions {
	return SerpentineOptions{
		Mode:           ModeByCount,
		GroupSize:      6,
		StartDirection: graph.FlowLTR,
		NodeSpacing:    400,
		RowHeight:      300,
		StartX:         50,
		StartY:         50,
	}
}

func (o SerpentineOptions) withDefaults() SerpentineOptions {
	d := DefaultSerpentineOptions()
	if o.Mode == "" {
		o.Mode = d.Mode
	}
	if o.GroupSize <= 0 {
		o.GroupSize = d.GroupSize
	}
	if o.StartDirection != graph.FlowRTL {
		o.StartDirection = graph.FlowLTR
	}
	if o.NodeSpacing <= 0 {
		o.NodeSpacing = d.NodeSpacing
	}
	if o.RowHeight <= 0 {
		o.RowHeight = d.RowHeight
	}
	// Rows closer than RowThreshold would merge when handles are recalculated.
	o.RowHeight = max(o.RowHeight, RowThreshold)
	return o
}

// RowDirection returns the flow direction of a row given the first row's direction.
func RowDirection(row int, start graph.FlowDirection) graph.FlowDirection {
	if row%2 == 0 {
		return start
	}
	return start.Opposite()
}

// Serpentine re-flows laid-out nodes into rows of alternating direction. Terminal
// nodes take no part in rows; they are re-anchored below the node they leave from.
// Input nodes are not modified.
func Serpentine(nodes []graph.Node, opts SerpentineOptions) []graph.Node {
	out := slices.Clone(nodes)
	if len(out) == 0 {
		return out
	}
	opts = opts.withDefaults()

	var members []int
	for i := range out {
		if out[i].Kind != graph.KindTerminal {
			members = append(members, i)
		}
	}
	if len(members) == 0 {
		return out
	}

	rows := groupRows(out, members, opts)

	longest := 0
	for _, r := range rows {
		longest = max(longest, len(r))
	}
	rowWidth := float64(longest-1) * opts.NodeSpacing
	total := len(members)

	seq := 0
	for r, row := range rows {
		dir := RowDirection(r, opts.StartDirection)
		y := opts.StartY + float64(r)*opts.RowHeight
		for p, i := range row {
			x := opts.StartX + float64(p)*opts.NodeSpacing
			if dir == graph.FlowRTL {
				x = opts.StartX + rowWidth - float64(p)*opts.NodeSpacing
			}
			out[i].Position = graph.Position{X: x, Y: y}
			out[i].Data.Serpentine = &graph.RowInfo{
				RowIndex:      r,
				PositionInRow: p,
				RowLength:     len(row),
				FlowDirection: dir,
				IsFirst:       seq == 0,
				IsLast:        seq == total-1,
				IsFirstInRow:  p == 0,
				IsLastInRow:   p == len(row)-1,
			}
			seq++
		}
	}

	anchorTerminals(out)
	return out
}

// groupRows partitions member indices into rows, each sorted by narrative index.
func groupRows(nodes []graph.Node, members []int, opts SerpentineOptions) [][]int {
	byIndex := func(a, b int) int {
		return cmp.Or(cmp.Compare(nodes[a].Data.Index, nodes[b].Data.Index), cmp.Compare(a, b))
	}
	chunk := func(ordered []int) [][]int {
		var rows [][]int
		for start := 0; start < len(ordered); start += opts.GroupSize {
			rows = append(rows, ordered[start:min(start+opts.GroupSize, len(ordered))])
		}
		return rows
	}

	ordered := slices.Clone(members)
	slices.SortStableFunc(ordered, byIndex)

	switch opts.Mode {
	case ModeAutoY:
		bands := yBands(nodes, members)
		if len(bands) <= 1 {
			return chunk(ordered)
		}
		for _, b := range bands {
			slices.SortStableFunc(b, byIndex)
		}
		return bands
	case ModeByScene:
		var rows [][]int
		rowOf := make(map[string]int)
		for _, i := range ordered {
			scene := sceneOf(nodes[i].ID)
			r, ok := rowOf[scene]
			if !ok {
				r = len(rows)
				rowOf[scene] = r
				rows = append(rows, nil)
			}
			rows[r] = append(rows[r], i)
		}
		return rows
	default:
		return chunk(ordered)
	}
}

// yBands groups node indices by Y proximity, top to bottom.
func yBands(nodes []graph.Node, members []int) [][]int {
	byY := slices.Clone(members)
	slices.SortStableFunc(byY, func(a, b int) int {
		return cmp.Compare(nodes[a].Position.Y, nodes[b].Position.Y)
	})

	var bands [][]int
	var bandY float64
	for k, i := range byY {
		y := nodes[i].Position.Y
		if k == 0 || y-bandY >= RowThreshold {
			bands = append(bands, nil)
			bandY = y
		}
		bands[len(bands)-1] = append(bands[len(bands)-1], i)
	}
	return bands
}

// sceneOf extracts the scene id from a dialogue or cluster node id.
func sceneOf(id string) string {
	for _, sep := range []string{"-d-", "-cluster-"} {
		if i := strings.LastIndex(id, sep); i >= 0 {
			return id[:i]
		}
	}
	return id
}

func anchorTerminals(nodes []graph.Node) {
	pos := make(map[string]graph.Position, len(nodes))
	for _, n := range nodes {
		if n.Kind != graph.KindTerminal {
			pos[n.ID] = n.Position
		}
	}

	perSource := make(map[string]int)
	for i := range nodes {
		n := &nodes[i]
		if n.Kind != graph.KindTerminal {
			continue
		}
		src, ok := pos[n.Data.Source]
		if !ok {
			continue
		}
		k := perSource[n.Data.Source]
		perSource[n.Data.Source]++
		n.Position = graph.Position{
			X: src.X + terminalOffsetX,
			Y: src.Y + terminalOffsetY + float64(k)*terminalStepY,
		}
	}
}
