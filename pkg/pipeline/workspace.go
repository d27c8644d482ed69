package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/matzehuels/knowmap/pkg/io"
	"github.com/matzehuels/knowmap/pkg/kgraph"
	"github.com/matzehuels/knowmap/pkg/kgraph/ancestry"
	"github.com/matzehuels/knowmap/pkg/observability"
	"github.com/matzehuels/knowmap/pkg/render/dot"
	"github.com/matzehuels/knowmap/pkg/source"
)

// View is the derived layer for one store generation. Everything in it is
// computed from Graph alone and is discarded as a whole when the store
// changes.
type View struct {
	Graph    *kgraph.Graph
	Resolver *ancestry.Resolver
	Labeler  *dot.Labeler
	Hash     string
}

// Workspace pairs a store with the view of its current generation. It is
// safe for concurrent use.
type Workspace struct {
	store *kgraph.Store

	mu   sync.Mutex
	view *View
}

// NewWorkspace wraps s. A nil s starts from an empty store.
func NewWorkspace(s *kgraph.Store) *Workspace {
	if s == nil {
		s = kgraph.New()
	}
	return &Workspace{store: s}
}

// Store returns the underlying store. Mutations through it are picked up by
// the next call to Current.
func (w *Workspace) Store() *kgraph.Store { return w.store }

// Current returns the view of the store's current generation, rebuilding
// resolver, labeler and hash when the generation has moved.
func (w *Workspace) Current() *View {
	snap := w.store.Snapshot()

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.view != nil && w.view.Graph.Generation() == snap.Generation() {
		return w.view
	}
	w.view = &View{
		Graph:    snap,
		Resolver: ancestry.New(snap),
		Labeler:  dot.NewLabeler(),
		Hash:     io.Hash(snap),
	}
	return w.view
}

// Reload replaces the store contents with the whole graph from src. The
// store is left untouched when loading or validation fails.
func (w *Workspace) Reload(ctx context.Context, src source.Source) (int, error) {
	start := time.Now()
	n, err := w.reload(ctx, src)
	observability.Store().OnReload(ctx, src.Name(), n, time.Since(start), err)
	return n, err
}

func (w *Workspace) reload(ctx context.Context, src source.Source) (int, error) {
	doc, err := src.Load(ctx, "")
	if err != nil {
		return 0, err
	}
	if err := io.Populate(w.store, doc); err != nil {
		return 0, err
	}
	return w.store.NodeCount(), nil
}

// NodeInfo describes one node and its position in the graph.
type NodeInfo struct {
	Node               *kgraph.Node
	Ancestors          []string // sorted
	UniqueDependencies []string // dependency order
	Dependents         []string
}

// Inspect resolves id's ancestors and unique dependencies.
func (v *View) Inspect(id string) (*NodeInfo, error) {
	n, err := v.Graph.Lookup(id)
	if err != nil {
		return nil, err
	}
	anc, err := v.Resolver.Ancestors(id)
	if err != nil {
		return nil, err
	}
	uniq, err := v.Resolver.UniqueDependencies(id)
	if err != nil {
		return nil, err
	}
	return &NodeInfo{
		Node:               n,
		Ancestors:          anc.Sorted(),
		UniqueDependencies: uniq,
		Dependents:         v.Graph.Dependents(id),
	}, nil
}
