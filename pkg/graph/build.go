package graph

import (
	"fmt"

	"github.com/jwebster45206/story-graph/pkg/scenario"
)

const labelMaxRunes = 20

// Page selects a contiguous window of dialogues. Index is zero-based.
type Page struct {
	Index int `json:"index"`
	Size  int `json:"size"`
}

// Window returns the [start, end) bounds of the page over n dialogues. A nil page,
// a non-positive size or n <= size selects everything.
func (p *Page) Window(n int) (int, int) {
	if p == nil || p.Size <= 0 || n <= p.Size {
		return 0, n
	}
	start := max(0, p.Index) * p.Size
	if start >= n {
		start = ((n - 1) / p.Size) * p.Size
	}
	return start, min(start+p.Size, n)
}

// Options tune Build. The zero value builds the full scene with the default theme.
type Options struct {
	Validation scenario.Validation
	Theme      *Theme
	Collapse   bool            // collapse choice+response groups into cluster nodes
	Expanded   map[string]bool // cluster ids the author expanded
	Page       *Page
}

// Build turns a scene's dialogues into typed nodes and edges. Nodes carry no
// position yet. References to dialogues outside the scene (or outside the page
// window) produce no edge.
func Build(dialogues []scenario.Dialogue, sceneID string, opts Options) Graph {
	theme := opts.Theme
	if theme == nil {
		theme = DefaultTheme()
	}

	start, end := opts.Page.Window(len(dialogues))
	window := dialogues[start:end]

	b := &builder{
		sceneID: sceneID,
		theme:   theme,
		window:  window,
		offset:  start,
		index:   make(map[string]int, len(window)),
	}
	for i, d := range window {
		if _, dup := b.index[d.ID]; !dup {
			b.index[d.ID] = i
		}
	}

	for i := range window {
		b.addDialogueNode(i, opts.Validation)
	}
	for i := range window {
		b.addEdges(i)
	}

	g := Graph{Nodes: b.nodes, Edges: b.edges}
	if opts.Collapse {
		g = collapseClusters(g, window, start, sceneID, theme, opts.Expanded)
	}
	return g
}

type builder struct {
	sceneID string
	theme   *Theme
	window  []scenario.Dialogue
	offset  int
	index   map[string]int
	nodes   []Node
	edges   []Edge
}

func (b *builder) addDialogueNode(i int, validation scenario.Validation) {
	d := &b.window[i]
	kind := KindDialogue
	if d.HasChoices() {
		kind = KindChoice
	}
	size := b.theme.NodeSize(kind)
	b.nodes = append(b.nodes, Node{
		ID:     NodeID(b.sceneID, i),
		Kind:   kind,
		Width:  size.Width,
		Height: size.Height,
		Data: NodeData{
			Index:    b.offset + i,
			Dialogue: d,
			Issues:   validation[d.ID],
			Speaker:  d.Speaker,
		},
	})
}

func (b *builder) addEdges(i int) {
	d := &b.window[i]
	src := NodeID(b.sceneID, i)

	switch {
	case d.NextDialogueID != "":
		if t, ok := b.index[d.NextDialogueID]; ok {
			b.edge(Edge{
				ID:           fmt.Sprintf("%s-converge-to-%s", src, NodeID(b.sceneID, t)),
				Source:       src,
				Target:       NodeID(b.sceneID, t),
				Kind:         EdgeConvergence,
				Label:        b.theme.ConvergenceLabel,
				SourceHandle: HandleRight,
				TargetHandle: HandleLeft,
			})
		}
	case d.IsResponse:
		for t := i + 1; t < len(b.window); t++ {
			if b.window[t].IsResponse {
				continue
			}
			b.edge(Edge{
				ID:           fmt.Sprintf("%s-response-converge-to-%s", src, NodeID(b.sceneID, t)),
				Source:       src,
				Target:       NodeID(b.sceneID, t),
				Kind:         EdgeConvergence,
				Label:        b.theme.ConvergenceLabel,
				SourceHandle: HandleRight,
				TargetHandle: HandleLeft,
			})
			break
		}
	case !d.HasChoices() && i < len(b.window)-1:
		b.edge(Edge{
			ID:           fmt.Sprintf("%s-to-%s", src, NodeID(b.sceneID, i+1)),
			Source:       src,
			Target:       NodeID(b.sceneID, i+1),
			Kind:         EdgeLinear,
			SourceHandle: HandleRight,
			TargetHandle: HandleLeft,
		})
	}

	for ci := range d.Choices {
		c := &d.Choices[ci]
		label := choiceLabel(c.Text, ci)
		b.destination(src, ci, "", label, c.Text, c.NextDialogueID, c.NextSceneID)

		if dc := c.DiceCheck; dc != nil {
			if br := dc.Success; br != nil {
				b.destination(src, ci, "success", "✓ "+label, c.Text, br.NextDialogueID, br.NextSceneID)
			}
			if br := dc.Failure; br != nil {
				b.destination(src, ci, "failure", "✗ "+label, c.Text, br.NextDialogueID, br.NextSceneID)
			}
		}
	}
}

// destination emits the edges for one choice outcome. branch is empty for the
// choice itself and names the dice branch otherwise.
func (b *builder) destination(src string, ci int, branch, label, text, nextDialogue, nextScene string) {
	suffix := fmt.Sprintf("choice-%d", ci)
	if branch != "" {
		suffix += "-" + branch
	}

	if nextDialogue != "" {
		if t, ok := b.index[nextDialogue]; ok {
			target := NodeID(b.sceneID, t)
			b.edge(Edge{
				ID:           fmt.Sprintf("%s-%s-to-%s", src, suffix, target),
				Source:       src,
				Target:       target,
				Kind:         EdgeChoice,
				Label:        label,
				SourceHandle: ChoiceHandle(ci),
				TargetHandle: HandleLeft,
			})
		}
	}

	if nextScene != "" {
		terminalID := fmt.Sprintf("%s-terminal-%d", src, ci)
		if branch != "" {
			terminalID += "-" + branch
		}
		size := b.theme.NodeSize(KindTerminal)
		b.nodes = append(b.nodes, Node{
			ID:     terminalID,
			Kind:   KindTerminal,
			Width:  size.Width,
			Height: size.Height,
			Data: NodeData{
				Index:      -1,
				SceneID:    nextScene,
				Label:      "→ Scene: " + nextScene,
				ChoiceText: text,
				Source:     src,
			},
		})

		jumpLabel := label
		if text == "" && branch == "" {
			jumpLabel = "Jump to scene"
		}
		b.edge(Edge{
			ID:           fmt.Sprintf("%s-%s-to-terminal", src, suffix),
			Source:       src,
			Target:       terminalID,
			Kind:         EdgeTerminalJump,
			Label:        jumpLabel,
			SourceHandle: ChoiceHandle(ci),
			TargetHandle: HandleLeft,
		})
	}
}

func (b *builder) edge(e Edge) {
	e.Style = b.theme.EdgeStyle(e.Kind)
	b.edges = append(b.edges, e)
}

func choiceLabel(text string, ci int) string {
	if text == "" {
		return fmt.Sprintf("Choice %d", ci+1)
	}
	return Truncate(text, labelMaxRunes)
}

// Truncate shortens s to n runes, appending "..." when it was cut.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
