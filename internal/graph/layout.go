package graph

import "github.com/rendis/flowlayout/internal/boundary"

// NodeMap is an insertion-ordered map from a role name to the node or
// nodes playing it. Order is part of the output contract: flattening walks
// roles in the order they were set.
type NodeMap struct {
	roles []string
	nodes map[string][]*GraphNode
}

// Set assigns nodes to role, keeping the role's first insertion position.
func (m *NodeMap) Set(role string, nodes ...*GraphNode) {
	if m.nodes == nil {
		m.nodes = make(map[string][]*GraphNode)
	}
	if _, ok := m.nodes[role]; !ok {
		m.roles = append(m.roles, role)
	}
	m.nodes[role] = nodes
}

// Get returns the single node playing role, or nil.
func (m *NodeMap) Get(role string) *GraphNode {
	list := m.nodes[role]
	if len(list) == 0 {
		return nil
	}
	return list[0]
}

// List returns every node playing role.
func (m *NodeMap) List(role string) []*GraphNode {
	return m.nodes[role]
}

// Roles returns role names in insertion order.
func (m *NodeMap) Roles() []string {
	return m.roles
}

// Len returns the total number of nodes across roles.
func (m *NodeMap) Len() int {
	n := 0
	for _, list := range m.nodes {
		n += len(list)
	}
	return n
}

// Each visits every node in role order.
func (m *NodeMap) Each(fn func(role string, node *GraphNode)) {
	for _, role := range m.roles {
		for _, node := range m.nodes[role] {
			fn(role, node)
		}
	}
}

// GraphLayout is the geometry of one subtree in its own local frame: the
// overall boundary, the nodes it placed and the edges wiring them.
type GraphLayout struct {
	Boundary boundary.Boundary
	Nodes    NodeMap
	Edges    []Edge
}
