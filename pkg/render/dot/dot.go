package dot

import (
	"bytes"
	"fmt"

	"github.com/matzehuels/knowmap/pkg/kgraph/subgraph"
)

// DefaultWrapWidth is the label column width used by [DefaultOptions].
const DefaultWrapWidth = 12

// Options configures DOT serialization.
type Options struct {
	// BottomToTop emits rankdir=BT so prerequisite arrows point upward.
	BottomToTop bool
	// WrapWidth is the label column width passed to [WrapText].
	// Zero or negative disables wrapping.
	WrapWidth int
	// Labeler memoizes labels across calls. When nil a throwaway Labeler is
	// used.
	Labeler *Labeler
}

// DefaultOptions returns bottom-to-top layout with labels wrapped at
// [DefaultWrapWidth].
func DefaultOptions() Options {
	return Options{BottomToTop: true, WrapWidth: DefaultWrapWidth}
}

// ToDOT serializes sg into Graphviz DOT source.
//
// Nodes are declared first, then edges, both in the order the extractor
// discovered them. Ids and labels are always quoted and escaped, so the
// output parses for any node id. A nil or empty subgraph yields an empty
// digraph block. The result can be rendered with [RenderSVG] or [RenderPNG].
func ToDOT(sg *subgraph.Subgraph, opts Options) string {
	labels := opts.Labeler
	if labels == nil {
		labels = NewLabeler()
	}

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	if opts.BottomToTop {
		buf.WriteString("  rankdir=BT;\n")
	}
	if sg != nil {
		for _, n := range sg.Nodes {
			fmt.Fprintf(&buf, "  \"%s\" [label=\"%s\"];\n", Escape(n.ID), labels.Label(n, opts.WrapWidth))
		}
		for _, e := range sg.Edges {
			fmt.Fprintf(&buf, "  \"%s\" -> \"%s\";\n", Escape(e.From), Escape(e.To))
		}
	}
	buf.WriteString("}\n")
	return buf.String()
}
