package subgraph

import (
	"errors"
	"fmt"

	"github.com/matzehuels/knowmap/pkg/kgraph"
	"github.com/matzehuels/knowmap/pkg/kgraph/ancestry"
)

// DefaultDepth is the number of BFS levels expanded when the caller does not
// choose one.
const DefaultDepth = 1

// ErrInvalidDepth is returned by [Extract] for a negative depth.
var ErrInvalidDepth = errors.New("invalid depth")

// Subgraph is the node and edge set extracted around a focal node, in
// discovery order.
type Subgraph struct {
	Focal  string         // empty for a full-graph extraction
	Depth  int            // requested depth; 0 for a full-graph extraction
	Nodes  []*kgraph.Node // each node at most once
	Edges  []kgraph.Edge  // dependency → dependent, one per unique-dependency relation
	Levels map[string]int // BFS level per node id; empty for a full-graph extraction
}

// IsFull reports whether s covers the whole graph rather than a focal
// neighbourhood.
func (s *Subgraph) IsFull() bool { return s.Focal == "" }

// NodeIDs returns the node ids in discovery order.
func (s *Subgraph) NodeIDs() []string {
	ids := make([]string, len(s.Nodes))
	for i, n := range s.Nodes {
		ids[i] = n.ID
	}
	return ids
}

// Contains reports whether id is part of the subgraph.
func (s *Subgraph) Contains(id string) bool {
	for _, n := range s.Nodes {
		if n.ID == id {
			return true
		}
	}
	return false
}

// Extract builds the minimal subgraph that shows focal and its
// unique-dependency ancestry out to depth levels.
//
// The traversal is level-synchronous: every node of the current frontier is
// expanded before any node of the next. A dependency seen for the first time
// is emitted and queued; one already visited is still linked to its
// dependent but never expanded again, so reconverging paths cost nothing
// extra. Depth 0 yields the focal node alone.
//
// Unknown ids surface as [*kgraph.LookupError], cycles met while reducing a
// node as [*kgraph.CycleError].
func Extract(r *ancestry.Resolver, focal string, depth int) (*Subgraph, error) {
	if depth < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDepth, depth)
	}
	g := r.Graph()
	root, err := g.Lookup(focal)
	if err != nil {
		return nil, err
	}

	sg := &Subgraph{
		Focal:  focal,
		Depth:  depth,
		Nodes:  []*kgraph.Node{root},
		Levels: map[string]int{focal: 0},
	}
	frontier := []*kgraph.Node{root}

	for level := 1; level <= depth && len(frontier) > 0; level++ {
		var next []*kgraph.Node
		for _, n := range frontier {
			deps, err := r.UniqueDependencies(n.ID)
			if err != nil {
				return nil, err
			}
			for _, id := range deps {
				sg.Edges = append(sg.Edges, edge(n, id))
				if _, seen := sg.Levels[id]; seen {
					continue
				}
				d, err := g.Lookup(id)
				if err != nil {
					return nil, err
				}
				sg.Levels[id] = level
				sg.Nodes = append(sg.Nodes, d)
				next = append(next, d)
			}
		}
		frontier = next
	}
	return sg, nil
}

// Full emits every node of the graph in store order and, for each node, one
// edge per unique dependency: a global one-level transitive reduction.
func Full(r *ancestry.Resolver) (*Subgraph, error) {
	g := r.Graph()
	sg := &Subgraph{
		Nodes:  g.Nodes(),
		Levels: map[string]int{},
	}
	for _, n := range sg.Nodes {
		deps, err := r.UniqueDependencies(n.ID)
		if err != nil {
			return nil, err
		}
		for _, id := range deps {
			sg.Edges = append(sg.Edges, edge(n, id))
		}
	}
	return sg, nil
}

// edge returns the stored dependency edge from id to n, keeping its reason and
// visibility.
func edge(n *kgraph.Node, id string) kgraph.Edge {
	if e, ok := n.Dependency(id); ok {
		return e
	}
	return kgraph.Edge{From: id, To: n.ID}
}
