package io

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	errs "github.com/matzehuels/knowmap/pkg/errors"
	"github.com/matzehuels/knowmap/pkg/kgraph"
	"github.com/matzehuels/knowmap/pkg/kgraph/subgraph"
)

// ToDocument converts a graph snapshot back into its serialized form.
func ToDocument(g *kgraph.Graph, keyNode string) *Document {
	doc := &Document{KeyNode: keyNode, Nodes: make(map[string]NodeRecord, g.NodeCount())}
	for _, n := range g.Nodes() {
		doc.Nodes[n.ID] = toRecord(n)
	}
	return doc
}

func toRecord(n *kgraph.Node) NodeRecord {
	rec := NodeRecord{
		Title:        n.Title,
		Summary:      n.Summary,
		Pointers:     n.Pointers,
		Dependencies: edgeRecords(n.Dependencies),
		Outlinks:     edgeRecords(n.Outlinks),
	}
	for _, r := range n.Resources {
		rec.Resources = append(rec.Resources, resourceToRecord(r))
	}
	for _, q := range n.Questions {
		rec.Questions = append(rec.Questions, QuestionRecord{Text: q.Text})
	}
	return rec
}

// WriteDocument encodes doc to w in the given format.
func WriteDocument(doc *Document, w io.Writer, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case FormatTOML:
		if err := toml.NewEncoder(w).Encode(doc); err != nil {
			return fmt.Errorf("encode toml: %w", err)
		}
	default:
		return errs.New(errs.ErrCodeInvalidFormat, "unsupported graph format %q", format)
	}
	return nil
}

// WriteJSON encodes a graph as a JSON document and writes it to w.
// The output can be re-imported with [ReadJSON].
func WriteJSON(g *kgraph.Graph, w io.Writer) error {
	return WriteDocument(ToDocument(g, ""), w, FormatJSON)
}

// Export writes doc to path, choosing the format from the extension.
func Export(doc *Document, path string) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteDocument(doc, f, format); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Hash returns a content hash of g: the hex SHA-256 of its JSON document.
// Map keys are encoded in sorted order, so equal graphs hash equally
// regardless of insertion order.
func Hash(g *kgraph.Graph) string {
	data, _ := json.Marshal(ToDocument(g, ""))
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// SubgraphDocument is the JSON view of an extracted subgraph for API
// consumers: display titles are resolved and each node carries its BFS level.
type SubgraphDocument struct {
	Focal string         `json:"focal,omitempty"`
	Depth int            `json:"depth"`
	Nodes []SubgraphNode `json:"nodes"`
	Edges []SubgraphEdge `json:"edges"`
}

// SubgraphNode is a node in a [SubgraphDocument].
type SubgraphNode struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Summary string `json:"summary,omitempty"`
	Level   *int   `json:"level,omitempty"`
}

// SubgraphEdge is an edge in a [SubgraphDocument].
type SubgraphEdge struct {
	ID     string `json:"id"`
	From   string `json:"from"`
	To     string `json:"to"`
	Reason string `json:"reason,omitempty"`
}

// NewSubgraphDocument builds the JSON view of sg.
func NewSubgraphDocument(sg *subgraph.Subgraph) *SubgraphDocument {
	out := &SubgraphDocument{
		Focal: sg.Focal,
		Depth: sg.Depth,
		Nodes: make([]SubgraphNode, len(sg.Nodes)),
		Edges: make([]SubgraphEdge, len(sg.Edges)),
	}
	for i, n := range sg.Nodes {
		sn := SubgraphNode{ID: n.ID, Title: n.DisplayTitle(), Summary: n.Summary}
		if lvl, ok := sg.Levels[n.ID]; ok {
			sn.Level = &lvl
		}
		out.Nodes[i] = sn
	}
	for i, e := range sg.Edges {
		out.Edges[i] = SubgraphEdge{ID: e.EdgeID(), From: e.From, To: e.To, Reason: e.Reason}
	}
	return out
}

// WriteSubgraphJSON encodes sg as a [SubgraphDocument] and writes it to w.
func WriteSubgraphJSON(sg *subgraph.Subgraph, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(NewSubgraphDocument(sg)); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}
