// Package kgraph holds the knowledge graph: topics ([Node]) linked by
// "requires" edges ([Edge]).
//
// # Model
//
// An edge From→To means that To requires From as a prerequisite. Each node
// owns its incoming edges as an ordered Dependencies list, mirroring how the
// content service delivers records:
//
//	linear_algebra  <-  eigenvalues  <-  pca
//
//	pca.Dependencies = [{From: "eigenvalues", To: "pca"}]
//
// # Store and Graph
//
// [Store] is the mutable, concurrency-safe mapping from id to node. It is
// populated once per fetch (see package io) and treated as append/replace
// only. Every mutation bumps [Store.Generation] and publishes a [Change] to
// subscribers.
//
// [Graph] is an immutable snapshot returned by [Store.Snapshot]. All derived
// computations (package ancestry, package subgraph, package render/dot) take
// a Graph, which gives every traversal a stable view without holding a lock.
//
// # Errors
//
// Missing nodes surface as [*LookupError], dependency cycles as
// [*CycleError] and rejected records as [*MalformedInputError]. Each matches
// its sentinel ([ErrNodeNotFound], [ErrCycle], [ErrMalformedInput]) under
// errors.Is.
package kgraph
