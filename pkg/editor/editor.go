package editor

import (
	"github.com/jwebster45206/story-graph/pkg/graph"
	"github.com/jwebster45206/story-graph/pkg/layout"
	"github.com/jwebster45206/story-graph/pkg/scenario"
)

// Request is everything BuildAndLayout needs to produce a laid-out scene graph.
type Request struct {
	SceneID    string                    `json:"scene_id"`
	Dialogues  []scenario.Dialogue       `json:"dialogues"`
	Validation scenario.Validation       `json:"validation,omitempty"`
	Direction  layout.Direction          `json:"direction,omitempty"`
	Theme      string                    `json:"theme,omitempty"`
	Serpentine *layout.SerpentineOptions `json:"serpentine,omitempty"` // nil disables the transform
	Collapse   bool                      `json:"collapse,omitempty"`
	Expanded   map[string]bool           `json:"expanded,omitempty"`
	Page       *graph.Page               `json:"page,omitempty"`
}

// BuildAndLayout builds the scene graph and positions it. The serpentine
// transform only applies to left-to-right layouts.
func BuildAndLayout(req Request) graph.Graph {
	theme := graph.ThemeByID(req.Theme)
	dir := req.Direction
	if dir != layout.LeftToRight {
		dir = layout.TopToBottom
	}

	g := graph.Build(req.Dialogues, req.SceneID, graph.Options{
		Validation: req.Validation,
		Theme:      theme,
		Collapse:   req.Collapse,
		Expanded:   req.Expanded,
		Page:       req.Page,
	})

	g.Nodes = layout.Hierarchical(g.Nodes, g.Edges, layout.DefaultOptions(dir))

	if dir == layout.LeftToRight && req.Serpentine != nil {
		g.Nodes = layout.Serpentine(g.Nodes, *req.Serpentine)
		g.Edges = layout.RecalculateEdgeHandles(g.Nodes, g.Edges)
		g.Edges = layout.TurnEdges(g.Nodes, g.Edges, theme)
	}

	g.Edges = graph.ApplyFanOut(g.Edges)
	return g
}
