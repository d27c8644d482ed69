package subgraph

import (
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/matzehuels/knowmap/pkg/kgraph"
	"github.com/matzehuels/knowmap/pkg/kgraph/ancestry"
)

func resolver(t *testing.T, deps map[string][]string, order ...string) *ancestry.Resolver {
	t.Helper()
	s := kgraph.New()
	for _, id := range order {
		n := kgraph.Node{ID: id}
		for _, from := range deps[id] {
			n.Dependencies = append(n.Dependencies, kgraph.Edge{From: from})
		}
		if err := s.AddNode(n); err != nil {
			t.Fatalf("AddNode(%s): %v", id, err)
		}
	}
	return ancestry.New(s.Snapshot())
}

func edgeStrings(sg *Subgraph) []string {
	out := make([]string, len(sg.Edges))
	for i, e := range sg.Edges {
		out[i] = e.From + "->" + e.To
	}
	return out
}

func TestExtractEndToEnd(t *testing.T) {
	r := resolver(t, map[string][]string{"B": {"A"}, "C": {"A", "B"}}, "A", "B", "C")

	sg, err := Extract(r, "C", 2)
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}
	if got, want := sg.NodeIDs(), []string{"C", "B", "A"}; !slices.Equal(got, want) {
		t.Errorf("nodes = %v, want %v", got, want)
	}
	if got, want := edgeStrings(sg), []string{"B->C", "A->B"}; !slices.Equal(got, want) {
		t.Errorf("edges = %v, want %v", got, want)
	}
	if sg.Levels["C"] != 0 || sg.Levels["B"] != 1 || sg.Levels["A"] != 2 {
		t.Errorf("levels = %v", sg.Levels)
	}
}

func TestExtractDiamond(t *testing.T) {
	// A requires B and C, both of which require D.
	r := resolver(t, map[string][]string{
		"A": {"B", "C"},
		"B": {"D"},
		"C": {"D"},
	}, "D", "B", "C", "A")

	sg, err := Extract(r, "A", 5)
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}
	if got, want := sg.NodeIDs(), []string{"A", "B", "C", "D"}; !slices.Equal(got, want) {
		t.Errorf("nodes = %v, want %v", got, want)
	}
	if got, want := edgeStrings(sg), []string{"B->A", "C->A", "D->B", "D->C"}; !slices.Equal(got, want) {
		t.Errorf("edges = %v, want %v", got, want)
	}
}

func TestExtractDepth(t *testing.T) {
	r := resolver(t, map[string][]string{"b": {"a"}, "c": {"b"}, "d": {"c"}}, "a", "b", "c", "d")

	tests := []struct {
		depth     int
		wantNodes []string
		wantEdges int
	}{
		{0, []string{"d"}, 0},
		{1, []string{"d", "c"}, 1},
		{2, []string{"d", "c", "b"}, 2},
		{10, []string{"d", "c", "b", "a"}, 3},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("depth=%d", tt.depth), func(t *testing.T) {
			sg, err := Extract(r, "d", tt.depth)
			if err != nil {
				t.Fatalf("Extract error: %v", err)
			}
			if !slices.Equal(sg.NodeIDs(), tt.wantNodes) {
				t.Errorf("nodes = %v, want %v", sg.NodeIDs(), tt.wantNodes)
			}
			if len(sg.Edges) != tt.wantEdges {
				t.Errorf("edges = %v, want %d", edgeStrings(sg), tt.wantEdges)
			}
		})
	}
}

func TestExtractLinksVisitedNodes(t *testing.T) {
	// x is a unique dependency of both p and q: linked twice, emitted once.
	r := resolver(t, map[string][]string{
		"f": {"p", "q"},
		"p": {"x"},
		"q": {"x", "r"},
		"r": {},
	}, "x", "r", "p", "q", "f")

	sg, err := Extract(r, "f", 2)
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}
	count := 0
	for _, id := range sg.NodeIDs() {
		if id == "x" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("x emitted %d times, want 1", count)
	}
	if got, want := edgeStrings(sg), []string{"p->f", "q->f", "x->p", "x->q", "r->q"}; !slices.Equal(got, want) {
		t.Errorf("edges = %v, want %v", got, want)
	}
}

func TestExtractErrors(t *testing.T) {
	r := resolver(t, map[string][]string{"b": {"ghost"}, "loop": {"loop"}}, "b", "loop")

	if _, err := Extract(r, "b", -1); !errors.Is(err, ErrInvalidDepth) {
		t.Errorf("negative depth = %v, want ErrInvalidDepth", err)
	}
	if _, err := Extract(r, "missing", 1); !errors.Is(err, kgraph.ErrNodeNotFound) {
		t.Errorf("unknown focal = %v, want ErrNodeNotFound", err)
	}
	if _, err := Extract(r, "b", 0); err != nil {
		t.Errorf("depth 0 should not resolve dependencies, got %v", err)
	}
	if _, err := Extract(r, "b", 1); !errors.Is(err, kgraph.ErrNodeNotFound) {
		t.Errorf("dangling dependency = %v, want ErrNodeNotFound", err)
	}
	if _, err := Extract(r, "loop", 1); !errors.Is(err, kgraph.ErrCycle) {
		t.Errorf("self loop = %v, want ErrCycle", err)
	}
}

func TestExtractKeepsEdgeAttributes(t *testing.T) {
	s := kgraph.New()
	_ = s.AddNode(kgraph.Node{ID: "a"})
	_ = s.AddNode(kgraph.Node{ID: "b", Dependencies: []kgraph.Edge{{From: "a", Reason: "basics", Visible: true}}})

	sg, err := Extract(ancestry.New(s.Snapshot()), "b", DefaultDepth)
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}
	if len(sg.Edges) != 1 || sg.Edges[0].Reason != "basics" || !sg.Edges[0].Visible {
		t.Errorf("edges = %+v, want stored edge with reason", sg.Edges)
	}
}

func TestFull(t *testing.T) {
	r := resolver(t, map[string][]string{"B": {"A"}, "C": {"A", "B"}}, "A", "B", "C")

	sg, err := Full(r)
	if err != nil {
		t.Fatalf("Full error: %v", err)
	}
	if !sg.IsFull() {
		t.Error("IsFull() = false")
	}
	if got, want := sg.NodeIDs(), []string{"A", "B", "C"}; !slices.Equal(got, want) {
		t.Errorf("nodes = %v, want %v", got, want)
	}
	if got, want := edgeStrings(sg), []string{"A->B", "B->C"}; !slices.Equal(got, want) {
		t.Errorf("edges = %v, want %v", got, want)
	}
}

func TestContains(t *testing.T) {
	r := resolver(t, map[string][]string{"b": {"a"}}, "a", "b")
	sg, _ := Extract(r, "b", 0)
	if !sg.Contains("b") || sg.Contains("a") {
		t.Errorf("Contains mismatch for %v", sg.NodeIDs())
	}
}
