package kgraph

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidNodeID is returned by [Store.AddNode] and [Store.PutNode] when
	// the node ID is empty. All nodes must have non-empty identifiers.
	ErrInvalidNodeID = errors.New("node ID must not be empty")

	// ErrDuplicateNodeID is returned by [Store.AddNode] when a node with the
	// same ID already exists in the store.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrNodeNotFound matches every [LookupError]. Use errors.Is to test for
	// a missing node without caring which reference was dangling.
	ErrNodeNotFound = errors.New("node not found")

	// ErrCycle matches every [CycleError].
	ErrCycle = errors.New("dependency cycle")

	// ErrMalformedInput matches every [MalformedInputError].
	ErrMalformedInput = errors.New("malformed input")
)

// LookupError reports a node id that is absent from the graph, either as a
// requested focal node or as the source of a dependency edge.
type LookupError struct {
	ID       string // Missing node id
	Referrer string // Node whose dependency named ID; empty for direct lookups
}

func (e *LookupError) Error() string {
	if e.Referrer != "" {
		return fmt.Sprintf("unknown node %q (dependency of %q)", e.ID, e.Referrer)
	}
	return fmt.Sprintf("unknown node %q", e.ID)
}

// Is makes errors.Is(err, ErrNodeNotFound) true for any LookupError.
func (e *LookupError) Is(target error) bool { return target == ErrNodeNotFound }

// CycleError reports a dependency chain that returns to a node already on the
// current resolution path. Path starts and ends with the repeated node.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return "dependency cycle: " + strings.Join(e.Path, " -> ")
}

// Is makes errors.Is(err, ErrCycle) true for any CycleError.
func (e *CycleError) Is(target error) bool { return target == ErrCycle }

// MalformedInputError reports a record rejected at ingestion.
type MalformedInputError struct {
	NodeID string
	Reason string
}

func (e *MalformedInputError) Error() string {
	if e.NodeID == "" {
		return "malformed input: " + e.Reason
	}
	return fmt.Sprintf("malformed input in node %q: %s", e.NodeID, e.Reason)
}

// Is makes errors.Is(err, ErrMalformedInput) true for any MalformedInputError.
func (e *MalformedInputError) Is(target error) bool { return target == ErrMalformedInput }
