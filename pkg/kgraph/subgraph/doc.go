// Package subgraph extracts the bounded neighbourhood of a focal node.
//
// [Extract] walks prerequisites breadth-first, one level per iteration,
// following only unique dependencies (see package ancestry). The result is
// the smallest node and edge set that still explains the focal topic to the
// requested depth:
//
//	r := ancestry.New(store.Snapshot())
//	sg, err := subgraph.Extract(r, "pca", subgraph.DefaultDepth)
//
// [Full] applies the same reduction to every node instead of a bounded walk.
package subgraph
