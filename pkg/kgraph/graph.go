package kgraph

import "slices"

// Graph is an immutable snapshot of a [Store]. Ancestor resolution, subgraph
// extraction and serialization all run against a Graph, so a store mutation
// during a traversal can never be observed half-way.
//
// A Graph is safe for concurrent reads.
type Graph struct {
	nodes      map[string]*Node
	order      []*Node
	dependents map[string][]string // from -> ids that depend on it
	edgeCount  int
	generation uint64
}

func newGraph(nodes map[string]*Node, order []string, gen uint64) *Graph {
	g := &Graph{
		nodes:      make(map[string]*Node, len(nodes)),
		order:      make([]*Node, 0, len(order)),
		dependents: make(map[string][]string),
		generation: gen,
	}
	for _, id := range order {
		n := nodes[id]
		g.nodes[id] = n
		g.order = append(g.order, n)
		for _, d := range n.Dependencies {
			g.edgeCount++
			if !slices.Contains(g.dependents[d.From], id) {
				g.dependents[d.From] = append(g.dependents[d.From], id)
			}
		}
	}
	return g
}

// Node returns the node with the given ID.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Lookup returns the node with the given ID or a [LookupError].
func (g *Graph) Lookup(id string) (*Node, error) {
	if n, ok := g.nodes[id]; ok {
		return n, nil
	}
	return nil, &LookupError{ID: id}
}

// Nodes returns all nodes in store insertion order. The slice is a copy;
// the nodes themselves are shared and must not be modified.
func (g *Graph) Nodes() []*Node { return slices.Clone(g.order) }

// Dependents returns the ids of nodes that list id as a direct dependency.
// The slice is a copy.
func (g *Graph) Dependents(id string) []string { return slices.Clone(g.dependents[id]) }

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.order) }

// EdgeCount returns the number of dependency edges, duplicates included.
func (g *Graph) EdgeCount() int { return g.edgeCount }

// Generation returns the store generation this snapshot was taken at.
func (g *Graph) Generation() uint64 { return g.generation }

// Validate checks that every dependency source exists and that the
// dependency relation is acyclic. It returns the first [LookupError] or
// [CycleError] found, scanning nodes in insertion order.
//
// Cycle detection uses depth-first search with white/gray/black coloring and
// runs in O(N+E).
func (g *Graph) Validate() error {
	for _, n := range g.order {
		for _, d := range n.Dependencies {
			if _, ok := g.nodes[d.From]; !ok {
				return &LookupError{ID: d.From, Referrer: n.ID}
			}
		}
	}
	return g.detectCycles()
}

func (g *Graph) detectCycles() error {
	const (
		white = iota
		gray
		black
	)

	color := make(map[string]int, len(g.nodes))
	var path []string
	var cycle []string

	var dfs func(id string) bool
	dfs = func(id string) bool {
		color[id] = gray
		path = append(path, id)
		for _, dep := range g.nodes[id].DependencyIDs() {
			switch color[dep] {
			case white:
				if dfs(dep) {
					return true
				}
			case gray:
				start := slices.Index(path, dep)
				cycle = append(slices.Clone(path[start:]), dep)
				return true
			}
		}
		path = path[:len(path)-1]
		color[id] = black
		return false
	}

	for _, n := range g.order {
		if color[n.ID] == white && dfs(n.ID) {
			return &CycleError{Path: cycle}
		}
	}
	return nil
}
