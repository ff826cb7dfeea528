package graph

import "github.com/jwebster45206/story-graph/pkg/scenario"

// clusterGroup is a choice dialogue followed by its consecutive responses,
// as window-local indices [root, last].
type clusterGroup struct {
	root, last int
}

// findClusters returns the choice+response groups in the window.
func findClusters(window []scenario.Dialogue) []clusterGroup {
	var groups []clusterGroup
	for i := 0; i < len(window); i++ {
		if !window[i].HasChoices() {
			continue
		}
		j := i
		for j+1 < len(window) && window[j+1].IsResponse {
			j++
		}
		if j > i {
			groups = append(groups, clusterGroup{root: i, last: j})
			i = j
		}
	}
	return groups
}

// collapseClusters replaces each non-expanded group by a single cluster node.
// Edges touching members are rerouted to the cluster, internal edges are dropped
// and rerouted duplicates are removed by (source, target).
func collapseClusters(g Graph, window []scenario.Dialogue, offset int, sceneID string, theme *Theme, expanded map[string]bool) Graph {
	groups := findClusters(window)
	if len(groups) == 0 {
		return g
	}

	remap := make(map[string]string)
	clusters := make(map[string]Node)
	for _, grp := range groups {
		id := ClusterID(sceneID, offset+grp.root)
		if expanded[id] {
			continue
		}

		root := &window[grp.root]
		preview := make([]string, 0, len(root.Choices))
		for ci, c := range root.Choices {
			preview = append(preview, choiceLabel(c.Text, ci))
		}

		var issues []scenario.Issue
		indices := make([]int, 0, grp.last-grp.root+1)
		for i := grp.root; i <= grp.last; i++ {
			remap[NodeID(sceneID, i)] = id
			indices = append(indices, offset+i)
			for _, n := range g.Nodes {
				if n.ID == NodeID(sceneID, i) {
					issues = append(issues, n.Data.Issues...)
				}
			}
		}

		size := theme.NodeSize(KindCluster)
		clusters[NodeID(sceneID, grp.root)] = Node{
			ID:     id,
			Kind:   KindCluster,
			Width:  size.Width,
			Height: size.Height,
			Data: NodeData{
				Index:            offset + grp.root,
				Dialogue:         root,
				Issues:           issues,
				ContainedIndices: indices,
				Speaker:          root.Speaker,
				ChoicePreview:    preview,
				ResponseCount:    grp.last - grp.root,
			},
		}
	}
	if len(remap) == 0 {
		return g
	}

	out := Graph{Nodes: make([]Node, 0, len(g.Nodes))}
	for _, n := range g.Nodes {
		if c, ok := clusters[n.ID]; ok {
			out.Nodes = append(out.Nodes, c)
			continue
		}
		if _, member := remap[n.ID]; member {
			continue
		}
		if c, ok := remap[n.Data.Source]; ok && n.Kind == KindTerminal {
			n.Data.Source = c
		}
		out.Nodes = append(out.Nodes, n)
	}

	type pair struct{ source, target string }
	seen := make(map[pair]bool)
	for _, e := range g.Edges {
		src, srcMoved := remap[e.Source]
		if !srcMoved {
			src = e.Source
		}
		tgt, tgtMoved := remap[e.Target]
		if !tgtMoved {
			tgt = e.Target
		}
		if !srcMoved && !tgtMoved {
			out.Edges = append(out.Edges, e)
			continue
		}
		if src == tgt {
			continue
		}
		p := pair{src, tgt}
		if seen[p] {
			continue
		}
		seen[p] = true

		e.Source, e.Target = src, tgt
		if srcMoved {
			e.SourceHandle = HandleRight
		}
		if tgtMoved {
			e.TargetHandle = HandleLeft
		}
		out.Edges = append(out.Edges, e)
	}
	return out
}
