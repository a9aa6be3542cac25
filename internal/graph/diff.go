package graph

import "sort"

// Change summarises how a graph moved between two layout passes. Hosts use
// it to reconcile rendered widgets by their stable identifiers.
type Change struct {
	AddedNodes   []string `json:"added_nodes,omitempty"`
	RemovedNodes []string `json:"removed_nodes,omitempty"`
	MovedNodes   []string `json:"moved_nodes,omitempty"`
	AddedEdges   []string `json:"added_edges,omitempty"`
	RemovedEdges []string `json:"removed_edges,omitempty"`
}

// Empty reports whether nothing changed.
func (c Change) Empty() bool {
	return len(c.AddedNodes)+len(c.RemovedNodes)+len(c.MovedNodes)+
		len(c.AddedEdges)+len(c.RemovedEdges) == 0
}

// Diff compares two graphs by identifier. A node counts as moved when its
// position or boundary changed. prev may be nil.
func Diff(prev, next *Graph) Change {
	if prev == nil {
		prev = &Graph{}
	}
	if next == nil {
		next = &Graph{}
	}

	var c Change
	before := make(map[string]Node, len(prev.Nodes))
	for _, n := range prev.Nodes {
		before[n.ID] = n
	}
	seen := make(map[string]bool, len(next.Nodes))
	for _, n := range next.Nodes {
		seen[n.ID] = true
		old, ok := before[n.ID]
		switch {
		case !ok:
			c.AddedNodes = append(c.AddedNodes, n.ID)
		case old.X != n.X || old.Y != n.Y || old.Boundary != n.Boundary:
			c.MovedNodes = append(c.MovedNodes, n.ID)
		}
	}
	for id := range before {
		if !seen[id] {
			c.RemovedNodes = append(c.RemovedNodes, id)
		}
	}

	beforeEdges := make(map[string]bool, len(prev.Edges))
	for _, e := range prev.Edges {
		beforeEdges[e.ID] = true
	}
	nextEdges := make(map[string]bool, len(next.Edges))
	for _, e := range next.Edges {
		nextEdges[e.ID] = true
		if !beforeEdges[e.ID] {
			c.AddedEdges = append(c.AddedEdges, e.ID)
		}
	}
	for id := range beforeEdges {
		if !nextEdges[id] {
			c.RemovedEdges = append(c.RemovedEdges, id)
		}
	}

	sort.Strings(c.RemovedNodes)
	sort.Strings(c.RemovedEdges)
	return c
}
