package graph

import (
	"fmt"
	"strconv"

	"github.com/jwebster45206/story-graph/pkg/scenario"
)

// NodeKind discriminates graph nodes.
type NodeKind string

const (
	KindDialogue NodeKind = "dialogue"
	KindChoice   NodeKind = "choice"
	KindCluster  NodeKind = "cluster"
	KindTerminal NodeKind = "terminal"
)

// EdgeKind discriminates graph edges.
type EdgeKind string

const (
	EdgeLinear       EdgeKind = "linear"
	EdgeChoice       EdgeKind = "choice"
	EdgeConvergence  EdgeKind = "convergence"
	EdgeTerminalJump EdgeKind = "terminal-jump"
	EdgeTurn         EdgeKind = "turn" // decorative serpentine row connector
)

// Connection handle ids. Left-out and right-in exist for right-to-left rows,
// where edges leave from the left side and enter from the right.
const (
	HandleTop     = "top"
	HandleBottom  = "bottom"
	HandleLeft    = "left"
	HandleRight   = "right"
	HandleLeftOut = "left-out"
	HandleRightIn = "right-in"

	ChoiceHandlePrefix = "choice-"
)

// ChoiceHandle returns the source handle id for the i-th choice of a node.
func ChoiceHandle(i int) string {
	return ChoiceHandlePrefix + strconv.Itoa(i)
}

// NodeID returns the id of the dialogue node at a window-local index.
func NodeID(sceneID string, local int) string {
	return fmt.Sprintf("%s-d-%d", sceneID, local)
}

// ClusterID returns the id of the cluster rooted at the dialogue with the given index.
func ClusterID(sceneID string, index int) string {
	return fmt.Sprintf("%s-cluster-%d", sceneID, index)
}

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// FlowDirection is the horizontal direction of a serpentine row.
type FlowDirection string

const (
	FlowLTR FlowDirection = "ltr"
	FlowRTL FlowDirection = "rtl"
)

// Opposite returns the other direction.
func (f FlowDirection) Opposite() FlowDirection {
	if f == FlowRTL {
		return FlowLTR
	}
	return FlowRTL
}

// RowInfo is the serpentine placement of a node.
type RowInfo struct {
	RowIndex      int           `json:"row_index"`
	PositionInRow int           `json:"position_in_row"`
	RowLength     int           `json:"row_length"`
	FlowDirection FlowDirection `json:"flow_direction"`
	IsFirst       bool          `json:"is_first"`
	IsLast        bool          `json:"is_last"`
	IsFirstInRow  bool          `json:"is_first_in_row"`
	IsLastInRow   bool          `json:"is_last_in_row"` // drives the "continues below" cue
}

// NodeData is the payload of a node. Which fields are set depends on the node kind.
type NodeData struct {
	Index    int                `json:"index"` // original (pre-pagination) dialogue index
	Dialogue *scenario.Dialogue `json:"dialogue,omitempty"`
	Issues   []scenario.Issue   `json:"issues,omitempty"`

	// cluster
	ContainedIndices []int    `json:"contained_indices,omitempty"`
	Speaker          string   `json:"speaker,omitempty"`
	ChoicePreview    []string `json:"choice_preview,omitempty"`
	ResponseCount    int      `json:"response_count,omitempty"`

	// terminal
	SceneID    string `json:"scene_id,omitempty"`
	Label      string `json:"label,omitempty"`
	ChoiceText string `json:"choice_text,omitempty"`
	Source     string `json:"source,omitempty"` // node the jump leaves from

	Serpentine *RowInfo `json:"serpentine,omitempty"`
}

type Node struct {
	ID       string   `json:"id"`
	Kind     NodeKind `json:"kind"`
	Position Position `json:"position"` // top-left corner
	Width    float64  `json:"width"`
	Height   float64  `json:"height"`
	Data     NodeData `json:"data"`
}

// Center returns the center point of the node.
func (n *Node) Center() Position {
	return Position{X: n.Position.X + n.Width/2, Y: n.Position.Y + n.Height/2}
}

type EdgeStyle struct {
	Stroke      string  `json:"stroke"`
	StrokeWidth float64 `json:"stroke_width"`
	DashArray   string  `json:"dash_array,omitempty"`
	Animated    bool    `json:"animated,omitempty"`
}

// Route carries fan-out hints for edges sharing a target.
type Route struct {
	ParallelIndex int     `json:"parallel_index"`
	ParallelCount int     `json:"parallel_count"`
	BendPosition  float64 `json:"bend_position"` // fraction of the path where the edge bends
	OffsetY       float64 `json:"offset_y"`
}

type Edge struct {
	ID           string    `json:"id"`
	Source       string    `json:"source"`
	Target       string    `json:"target"`
	Kind         EdgeKind  `json:"kind"`
	Label        string    `json:"label,omitempty"`
	SourceHandle string    `json:"source_handle,omitempty"`
	TargetHandle string    `json:"target_handle,omitempty"`
	Style        EdgeStyle `json:"style"`
	Route        *Route    `json:"route,omitempty"`
}

// Graph is a derived view of a scene. It is never persisted.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Node returns the node with the given id, or nil.
func (g *Graph) Node(id string) *Node {
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			return &g.Nodes[i]
		}
	}
	return nil
}
