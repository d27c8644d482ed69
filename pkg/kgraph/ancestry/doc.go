// Package ancestry resolves transitive prerequisites in a knowledge graph.
//
// # Ancestors
//
// The ancestor set of a node is every node reachable by walking dependency
// edges backward: its prerequisites, their prerequisites, and so on. The node
// itself is never included.
//
//	ancestors(n) = ∪ over dependencies d of n: {d} ∪ ancestors(d)
//
// # Unique Dependencies
//
// A direct dependency is unique when no sibling dependency already reaches it.
// If calculus requires both limits and functions, and limits itself requires
// functions, then the calculus→functions edge is implied and only limits is
// a unique dependency of calculus. This is a one-level transitive reduction:
// drawing only unique dependencies removes redundant arrows while keeping
// every prerequisite reachable.
//
// # Memoization and Safety
//
// [Resolver] computes both values in one pass per node and keeps them for the
// lifetime of the resolver. The recursion carries an explicit "visiting" path,
// so a cyclic graph yields a [*kgraph.CycleError] instead of unbounded
// recursion, and a dangling dependency yields a [*kgraph.LookupError] instead
// of being silently skipped.
package ancestry
