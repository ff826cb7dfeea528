package graph

import "github.com/jwebster45206/story-graph/pkg/scenario"

// ColorSet is the paint for one node.
type ColorSet struct {
	Background string `json:"background"`
	Border     string `json:"border"`
	Text       string `json:"text"`
}

// Size is a node's pixel dimensions. Sizes feed the layout spacing math.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Theme holds the lookup tables used for node sizing and edge styling.
// Topology never depends on the theme.
type Theme struct {
	ID               string                 `json:"id"`
	Name             string                 `json:"name"`
	Nodes            map[NodeKind]ColorSet  `json:"nodes"`
	Sizes            map[NodeKind]Size      `json:"sizes"`
	Edges            map[EdgeKind]EdgeStyle `json:"edges"`
	ConvergenceLabel string                 `json:"convergence_label,omitempty"`
}

const (
	DefaultThemeID = "default"
	CosmosThemeID  = "cosmos"
)

var (
	errorColors   = ColorSet{Background: "#7f1d1d", Border: "#dc2626", Text: "#fecaca"}
	warningColors = ColorSet{Background: "#78350f", Border: "#f59e0b", Text: "#fde68a"}
)

// DefaultTheme returns the standard editor theme.
func DefaultTheme() *Theme {
	return &Theme{
		ID:   DefaultThemeID,
		Name: "Default",
		Nodes: map[NodeKind]ColorSet{
			KindDialogue: {Background: "#1e3a8a", Border: "#3b82f6", Text: "#bfdbfe"},
			KindChoice:   {Background: "#4c1d95", Border: "#8b5cf6", Text: "#e9d5ff"},
			KindCluster:  {Background: "#4c1d95", Border: "#8b5cf6", Text: "#e9d5ff"},
			KindTerminal: {Background: "#78350f", Border: "#f59e0b", Text: "#fef3c7"},
		},
		Sizes: map[NodeKind]Size{
			KindDialogue: {Width: 320, Height: 140},
			KindChoice:   {Width: 320, Height: 140},
			KindCluster:  {Width: 320, Height: 80},
			KindTerminal: {Width: 200, Height: 60},
		},
		Edges: map[EdgeKind]EdgeStyle{
			EdgeLinear:       {Stroke: "#64748b", StrokeWidth: 2},
			EdgeChoice:       {Stroke: "#8b5cf6", StrokeWidth: 2, Animated: true},
			EdgeConvergence:  {Stroke: "#22c55e", StrokeWidth: 2, DashArray: "4,4"},
			EdgeTerminalJump: {Stroke: "#f59e0b", StrokeWidth: 2, DashArray: "5,5", Animated: true},
			EdgeTurn:         {Stroke: "#94a3b8", StrokeWidth: 1.5, DashArray: "6,4"},
		},
		ConvergenceLabel: "↩ rejoins",
	}
}

// CosmosTheme returns the large, high-contrast theme. Convergence edges are
// unlabelled; fan-out separates them instead.
func CosmosTheme() *Theme {
	return &Theme{
		ID:   CosmosThemeID,
		Name: "Cosmos",
		Nodes: map[NodeKind]ColorSet{
			KindDialogue: {Background: "#0a1a3e", Border: "#3b82f6", Text: "#bfdbfe"},
			KindChoice:   {Background: "#1a0a2e", Border: "#a855f7", Text: "#e9d5ff"},
			KindCluster:  {Background: "#1a0a2e", Border: "#a855f7", Text: "#e9d5ff"},
			KindTerminal: {Background: "#0a1a3e", Border: "#f59e0b", Text: "#fef3c7"},
		},
		Sizes: map[NodeKind]Size{
			KindDialogue: {Width: 360, Height: 140},
			KindChoice:   {Width: 360, Height: 140},
			KindCluster:  {Width: 360, Height: 80},
			KindTerminal: {Width: 200, Height: 60},
		},
		Edges: map[EdgeKind]EdgeStyle{
			EdgeLinear:       {Stroke: "url(#cosmos-linear-gradient)", StrokeWidth: 3, Animated: true},
			EdgeChoice:       {Stroke: "url(#cosmos-choice-gradient)", StrokeWidth: 5, Animated: true},
			EdgeConvergence:  {Stroke: "url(#cosmos-convergence-gradient)", StrokeWidth: 4, DashArray: "10,5", Animated: true},
			EdgeTerminalJump: {Stroke: "url(#cosmos-scene-gradient)", StrokeWidth: 5, DashArray: "12,6", Animated: true},
			EdgeTurn:         {Stroke: "#94a3b8", StrokeWidth: 2, DashArray: "6,4"},
		},
	}
}

// ThemeByID returns the named theme, falling back to the default theme.
func ThemeByID(id string) *Theme {
	if id == CosmosThemeID {
		return CosmosTheme()
	}
	return DefaultTheme()
}

// NodeSize returns the size for a kind, falling back to the default theme's table.
func (t *Theme) NodeSize(kind NodeKind) Size {
	if t != nil {
		if s, ok := t.Sizes[kind]; ok {
			return s
		}
	}
	return DefaultTheme().Sizes[kind]
}

// EdgeStyle returns the style for a kind, falling back to the default theme's table.
func (t *Theme) EdgeStyle(kind EdgeKind) EdgeStyle {
	if t != nil {
		if s, ok := t.Edges[kind]; ok {
			return s
		}
	}
	return DefaultTheme().Edges[kind]
}

// NodeColors returns the paint for a node. Errors and warnings override the kind colors.
func (t *Theme) NodeColors(kind NodeKind, issues []scenario.Issue) ColorSet {
	var warn bool
	for _, i := range issues {
		if i.Type == scenario.IssueError {
			return errorColors
		}
		warn = true
	}
	if warn {
		return warningColors
	}
	if t != nil {
		if c, ok := t.Nodes[kind]; ok {
			return c
		}
	}
	return DefaultTheme().Nodes[kind]
}
