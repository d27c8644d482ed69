package kgraph

import (
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// ChangeKind identifies the mutation that produced a [Change].
type ChangeKind int

const (
	// ChangeNodeAdded is published when a new node enters the store.
	ChangeNodeAdded ChangeKind = iota
	// ChangeNodeReplaced is published when PutNode overwrites a node.
	ChangeNodeReplaced
	// ChangeNodeRemoved is published by RemoveNode.
	ChangeNodeRemoved
	// ChangeDependencies is published when a node's dependency edges change.
	ChangeDependencies
	// ChangeStoreReplaced is published by Replace; NodeID is empty.
	ChangeStoreReplaced
)

var changeKindNames = map[ChangeKind]string{
	ChangeNodeAdded:     "node_added",
	ChangeNodeReplaced:  "node_replaced",
	ChangeNodeRemoved:   "node_removed",
	ChangeDependencies:  "dependencies_changed",
	ChangeStoreReplaced: "store_replaced",
}

func (k ChangeKind) String() string {
	if s, ok := changeKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("ChangeKind(%d)", int(k))
}

// Change describes one successful store mutation. Subscribers receive it
// after the store lock is released, so they may read the store freely.
// Persistence collaborators can use ID to deduplicate deliveries.
type Change struct {
	ID         uuid.UUID
	Kind       ChangeKind
	NodeID     string
	Generation uint64
}

// Store is the mutable id → node mapping backing the knowledge graph.
//
// Store is safe for concurrent use. Traversals never run against the Store
// directly: take a [Graph] with [Store.Snapshot] and traverse that. Every
// mutation increments the generation, which is how derived caches (ancestor
// sets, unique dependencies, labels) learn they are stale.
type Store struct {
	mu    sync.RWMutex
	nodes map[string]*Node
	order []string
	gen   uint64
	snap  *Graph

	subsMu sync.Mutex
	subs   map[int]func(Change)
	nextID int
}

// New creates an empty store.
func New() *Store {
	return &Store{
		nodes: make(map[string]*Node),
		subs:  make(map[int]func(Change)),
	}
}

// AddNode inserts a new node. Returns ErrInvalidNodeID for an empty ID,
// ErrDuplicateNodeID if the ID is taken, or a [MalformedInputError] if a
// dependency edge targets a different node. Dependency edges with an empty
// To are attached to n.
//
// AddNode does not check that dependency sources exist; dangling sources are
// reported by ancestor resolution or [Store.Validate].
func (s *Store) AddNode(n Node) error {
	node, err := prepare(n)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if _, exists := s.nodes[node.ID]; exists {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicateNodeID, node.ID)
	}
	s.insertLocked(node)
	c := s.bumpLocked(ChangeNodeAdded, node.ID)
	s.mu.Unlock()

	s.publish(c)
	return nil
}

// PutNode inserts n, replacing any node with the same ID. A replaced node
// keeps its position in insertion order.
func (s *Store) PutNode(n Node) error {
	node, err := prepare(n)
	if err != nil {
		return err
	}

	s.mu.Lock()
	kind := ChangeNodeAdded
	if _, exists := s.nodes[node.ID]; exists {
		kind = ChangeNodeReplaced
		s.nodes[node.ID] = node
	} else {
		s.insertLocked(node)
	}
	c := s.bumpLocked(kind, node.ID)
	s.mu.Unlock()

	s.publish(c)
	return nil
}

// SetDependencies replaces the dependency edges of node id.
// Returns a [LookupError] if the node does not exist.
func (s *Store) SetDependencies(id string, deps []Edge) error {
	s.mu.Lock()
	old, ok := s.nodes[id]
	if !ok {
		s.mu.Unlock()
		return &LookupError{ID: id}
	}
	node := old.clone()
	node.Dependencies = slices.Clone(deps)
	if err := attach(node); err != nil {
		s.mu.Unlock()
		return err
	}
	s.nodes[id] = node
	c := s.bumpLocked(ChangeDependencies, id)
	s.mu.Unlock()

	s.publish(c)
	return nil
}

// AddDependency appends e to the dependencies of node e.To.
// Returns a [LookupError] if e.To is not in the store.
func (s *Store) AddDependency(e Edge) error {
	if e.From == "" || e.To == "" {
		return &MalformedInputError{NodeID: e.To, Reason: "edge needs both from and to"}
	}

	s.mu.Lock()
	old, ok := s.nodes[e.To]
	if !ok {
		s.mu.Unlock()
		return &LookupError{ID: e.To}
	}
	node := old.clone()
	node.Dependencies = append(node.Dependencies, e)
	s.nodes[e.To] = node
	c := s.bumpLocked(ChangeDependencies, e.To)
	s.mu.Unlock()

	s.publish(c)
	return nil
}

// RemoveNode deletes node id. Edges elsewhere that name id as their source
// are left in place and will surface as lookup errors during resolution.
func (s *Store) RemoveNode(id string) error {
	s.mu.Lock()
	if _, ok := s.nodes[id]; !ok {
		s.mu.Unlock()
		return &LookupError{ID: id}
	}
	delete(s.nodes, id)
	s.order = slices.DeleteFunc(s.order, func(o string) bool { return o == id })
	c := s.bumpLocked(ChangeNodeRemoved, id)
	s.mu.Unlock()

	s.publish(c)
	return nil
}

// Replace atomically swaps the whole content of the store, as done after a
// fresh fetch. On error the store is left unchanged.
func (s *Store) Replace(nodes []Node) error {
	fresh := make(map[string]*Node, len(nodes))
	order := make([]string, 0, len(nodes))
	for _, n := range nodes {
		node, err := prepare(n)
		if err != nil {
			return err
		}
		if _, dup := fresh[node.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateNodeID, node.ID)
		}
		fresh[node.ID] = node
		order = append(order, node.ID)
	}

	s.mu.Lock()
	s.nodes = fresh
	s.order = order
	c := s.bumpLocked(ChangeStoreReplaced, "")
	s.mu.Unlock()

	s.publish(c)
	return nil
}

// Node returns the node with the given ID.
func (s *Store) Node(id string) (*Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	return n, ok
}

// Nodes returns all nodes in insertion order.
func (s *Store) Nodes() []*Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Node, len(s.order))
	for i, id := range s.order {
		out[i] = s.nodes[id]
	}
	return out
}

// NodeCount returns the number of nodes in the store.
func (s *Store) NodeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// Generation returns a counter that increases on every mutation.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// Snapshot returns an immutable view of the current store content. The same
// *Graph is returned until the next mutation.
func (s *Store) Snapshot() *Graph {
	s.mu.RLock()
	if g := s.snap; g != nil {
		s.mu.RUnlock()
		return g
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap == nil {
		s.snap = newGraph(s.nodes, s.order, s.gen)
	}
	return s.snap
}

// Validate checks the current content for dangling dependency sources and
// dependency cycles. See [Graph.Validate].
func (s *Store) Validate() error {
	return s.Snapshot().Validate()
}

// Subscribe registers fn to receive every future [Change]. The returned
// function removes the subscription.
func (s *Store) Subscribe(fn func(Change)) (unsubscribe func()) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Store) insertLocked(n *Node) {
	s.nodes[n.ID] = n
	s.order = append(s.order, n.ID)
}

func (s *Store) bumpLocked(kind ChangeKind, id string) Change {
	s.gen++
	s.snap = nil
	return Change{ID: uuid.New(), Kind: kind, NodeID: id, Generation: s.gen}
}

func (s *Store) publish(c Change) {
	s.subsMu.Lock()
	subs := make([]func(Change), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.subsMu.Unlock()

	for _, fn := range subs {
		fn(c)
	}
}

// prepare copies n into a fresh stored value and attaches its edges.
func prepare(n Node) (*Node, error) {
	if n.ID == "" {
		return nil, ErrInvalidNodeID
	}
	node := n.clone()
	if err := attach(node); err != nil {
		return nil, err
	}
	return node, nil
}

// attach fills empty To fields with the node ID and rejects edges that
// belong to another node or have no source.
func attach(n *Node) error {
	for i := range n.Dependencies {
		d := &n.Dependencies[i]
		if d.From == "" {
			return &MalformedInputError{NodeID: n.ID, Reason: fmt.Sprintf("dependency %d has no source", i)}
		}
		if d.To == "" {
			d.To = n.ID
		}
		if d.To != n.ID {
			return &MalformedInputError{NodeID: n.ID, Reason: fmt.Sprintf("dependency %s->%s targets another node", d.From, d.To)}
		}
	}
	return nil
}
