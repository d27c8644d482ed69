package kgraph

import (
	"slices"
	"strings"
)

// Edge is a directed "requires" relation: To requires From as a prerequisite.
// Edges are values; once part of a node's dependency list they are never
// modified in place.
type Edge struct {
	ID      string // Explicit identity; empty means From+To
	From    string // Prerequisite node id (from_tag)
	To      string // Dependent node id (to_tag)
	Reason  string // Free-text justification, carried for display
	Visible bool   // Rendering hint, not consumed by traversal
}

// EdgeID returns the explicit ID if set, otherwise From+To.
func (e Edge) EdgeID() string {
	if e.ID != "" {
		return e.ID
	}
	return e.From + e.To
}

// Resource is a learning resource attached to a node. The core carries
// resources but never inspects them.
type Resource struct {
	Title        string
	Location     string
	URL          string
	ResourceType string
	Free         bool
	Edition      string
	Authors      []string
	Dependencies []string
	Mark         []string
	Extra        []string
	Note         []string
}

// Question is a comprehension question attached to a node.
type Question struct {
	Text string
}

// Node is a topic in the knowledge graph.
//
// Nodes are immutable once added to a [Store]: mutating operations replace
// the stored value, so a *Node obtained from a [Graph] snapshot never changes
// underneath a traversal.
type Node struct {
	ID           string
	Title        string
	Summary      string
	Pointers     string
	Dependencies []Edge // Ordered; every edge has To == ID
	Outlinks     []Edge
	Resources    []Resource
	Questions    []Question
}

// DisplayTitle returns Title, or the ID with underscores replaced by spaces
// when Title is empty.
func (n *Node) DisplayTitle() string {
	if n.Title != "" {
		return n.Title
	}
	return strings.ReplaceAll(n.ID, "_", " ")
}

// DependencyIDs returns the From of each dependency edge, deduplicated, in
// first-occurrence order.
func (n *Node) DependencyIDs() []string {
	ids := make([]string, 0, len(n.Dependencies))
	for _, d := range n.Dependencies {
		if !slices.Contains(ids, d.From) {
			ids = append(ids, d.From)
		}
	}
	return ids
}

// Dependency returns the first dependency edge whose source is from.
func (n *Node) Dependency(from string) (Edge, bool) {
	for _, d := range n.Dependencies {
		if d.From == from {
			return d, true
		}
	}
	return Edge{}, false
}

// clone returns a deep copy that shares no slice memory with n.
func (n *Node) clone() *Node {
	c := *n
	c.Dependencies = slices.Clone(n.Dependencies)
	c.Outlinks = slices.Clone(n.Outlinks)
	c.Questions = slices.Clone(n.Questions)
	if n.Resources != nil {
		c.Resources = make([]Resource, len(n.Resources))
		for i, r := range n.Resources {
			c.Resources[i] = r.clone()
		}
	}
	return &c
}

func (r Resource) clone() Resource {
	r.Authors = slices.Clone(r.Authors)
	r.Dependencies = slices.Clone(r.Dependencies)
	r.Mark = slices.Clone(r.Mark)
	r.Extra = slices.Clone(r.Extra)
	r.Note = slices.Clone(r.Note)
	return r
}
