package ancestry

import (
	"maps"
	"slices"
	"sync"

	"github.com/matzehuels/knowmap/pkg/kgraph"
)

// Set is a set of node ids.
type Set map[string]struct{}

// Has reports whether id is in the set.
func (s Set) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the members in ascending order.
func (s Set) Sorted() []string {
	return slices.Sorted(maps.Keys(s))
}

// Resolver computes and memoizes ancestor sets and unique dependencies for
// the nodes of one [kgraph.Graph] snapshot.
//
// The memo lives in the Resolver, not on the nodes, so its lifetime is
// explicit: a Resolver is valid for exactly one snapshot. When the store
// changes, take a new snapshot and a new Resolver; nothing needs to be
// invalidated piecemeal.
//
// Resolver is safe for concurrent use.
type Resolver struct {
	g *kgraph.Graph

	mu        sync.Mutex
	ancestors map[string]Set
	unique    map[string][]string
}

// New creates a Resolver over g.
func New(g *kgraph.Graph) *Resolver {
	return &Resolver{
		g:         g,
		ancestors: make(map[string]Set),
		unique:    make(map[string][]string),
	}
}

// Graph returns the snapshot this resolver works on.
func (r *Resolver) Graph() *kgraph.Graph { return r.g }

// Ancestors returns every node id reachable from id by following one or more
// dependency edges backward, excluding id itself.
//
// It returns a [*kgraph.LookupError] if id, or any dependency source on the
// way, is missing from the graph, and a [*kgraph.CycleError] if a dependency
// chain loops back onto itself. A failed call leaves earlier results intact.
//
// The returned set is a copy and may be modified by the caller.
func (r *Resolver) Ancestors(id string) (Set, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.resolveRoot(id); err != nil {
		return nil, err
	}
	return maps.Clone(r.ancestors[id]), nil
}

// UniqueDependencies returns the direct dependencies of id that are not
// already implied by another direct dependency, that is, not contained in
// the ancestor set of any sibling dependency. Duplicate edges count once.
// The order follows the node's dependency list.
//
// The result is a subset of the node's direct dependencies and equals them
// exactly when no dependency is reachable through another. Errors are the
// same as for [Resolver.Ancestors].
func (r *Resolver) UniqueDependencies(id string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.resolveRoot(id); err != nil {
		return nil, err
	}
	return slices.Clone(r.unique[id]), nil
}

// IsAncestor reports whether candidate is an ancestor of id.
func (r *Resolver) IsAncestor(id, candidate string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.resolveRoot(id); err != nil {
		return false, err
	}
	return r.ancestors[id].Has(candidate), nil
}

// IsUniqueDependency reports whether dep is a unique dependency of id.
func (r *Resolver) IsUniqueDependency(id, dep string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.resolveRoot(id); err != nil {
		return false, err
	}
	return slices.Contains(r.unique[id], dep), nil
}

// Resolved returns how many nodes currently have memoized results.
func (r *Resolver) Resolved() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ancestors)
}

func (r *Resolver) resolveRoot(id string) error {
	if _, ok := r.ancestors[id]; ok {
		return nil
	}
	w := walk{visiting: make(map[string]bool)}
	_, err := r.resolve(id, "", &w)
	return err
}

// walk tracks the current recursion path for cycle detection.
type walk struct {
	visiting map[string]bool
	path     []string
}

// resolve computes the ancestor set and unique dependencies of id in a
// single pass and memoizes both. Results are stored only once a node is
// fully resolved, so an error never leaves a partial entry behind.
func (r *Resolver) resolve(id, referrer string, w *walk) (Set, error) {
	if s, ok := r.ancestors[id]; ok {
		return s, nil
	}
	n, ok := r.g.Node(id)
	if !ok {
		return nil, &kgraph.LookupError{ID: id, Referrer: referrer}
	}
	if w.visiting[id] {
		start := slices.Index(w.path, id)
		return nil, &kgraph.CycleError{Path: append(slices.Clone(w.path[start:]), id)}
	}

	w.visiting[id] = true
	w.path = append(w.path, id)
	defer func() {
		delete(w.visiting, id)
		w.path = w.path[:len(w.path)-1]
	}()

	deps := n.DependencyIDs()
	inherited := make(Set)
	for _, d := range deps {
		da, err := r.resolve(d, id, w)
		if err != nil {
			return nil, err
		}
		for a := range da {
			inherited[a] = struct{}{}
		}
	}

	unique := make([]string, 0, len(deps))
	all := inherited
	for _, d := range deps {
		if !inherited.Has(d) {
			unique = append(unique, d)
		}
		all[d] = struct{}{}
	}

	r.ancestors[id] = all
	r.unique[id] = unique
	return all, nil
}
