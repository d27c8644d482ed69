package dot

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/matzehuels/knowmap/pkg/kgraph"
	"github.com/matzehuels/knowmap/pkg/kgraph/ancestry"
	"github.com/matzehuels/knowmap/pkg/kgraph/subgraph"
)

func extract(t *testing.T, focal string, depth int, nodes ...kgraph.Node) *subgraph.Subgraph {
	t.Helper()
	s := kgraph.New()
	for _, n := range nodes {
		if err := s.AddNode(n); err != nil {
			t.Fatalf("AddNode(%s): %v", n.ID, err)
		}
	}
	sg, err := subgraph.Extract(ancestry.New(s.Snapshot()), focal, depth)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	return sg
}

func TestWrapText(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"Linear Algebra Fundamentals", 12, `Linear Algebra\nFundamentals `},
		{"Short", 12, "Short "},
		{"two words", 12, "two words "},
		{"exactly twelve", 12, `exactly twelve\n`},
		{"Überkomplexität ok", 12, `Überkomplexität\nok `},
		{`say "hi"`, 12, `say \"hi\" `},
		{`back\slash`, 12, `back\\slash `},
		{"no wrap at all here", 0, "no wrap at all here "},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := WrapText(tt.in, tt.width); got != tt.want {
				t.Errorf("WrapText(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
			}
		})
	}
}

func TestWrapTextShortTitleHasNoBreak(t *testing.T) {
	if got := WrapText("Calculus", 12); strings.Contains(got, LineBreak) {
		t.Errorf("WrapText(Calculus) = %q, want no break", got)
	}
	if got := WrapText("Linear Algebra Fundamentals", 12); strings.Count(got, LineBreak) != 1 {
		t.Errorf("WrapText = %q, want exactly one break", got)
	}
}

func TestEscape(t *testing.T) {
	tests := []struct{ in, want string }{
		{"a\"b\\c", `a\"b\\c`},
		{"a\nb", `a\nb`},
		{"a\r\nb", `a\r\nb`},
		{`a\nb`, `a\\nb`},
	}
	for _, tt := range tests {
		if got := Escape(tt.in); got != tt.want {
			t.Errorf("Escape(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestToDOTEmpty(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want string
	}{
		{"bottom to top", DefaultOptions(), "digraph G {\n  rankdir=BT;\n}\n"},
		{"top down", Options{WrapWidth: 12}, "digraph G {\n}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToDOT(&subgraph.Subgraph{}, tt.opts); got != tt.want {
				t.Errorf("ToDOT(empty) = %q, want %q", got, tt.want)
			}
			if got := ToDOT(nil, tt.opts); got != tt.want {
				t.Errorf("ToDOT(nil) = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestToDOT(t *testing.T) {
	sg := extract(t, "C", 2,
		kgraph.Node{ID: "A", Title: "Linear Algebra Fundamentals"},
		kgraph.Node{ID: "B", Dependencies: []kgraph.Edge{{From: "A"}}},
		kgraph.Node{ID: "C", Dependencies: []kgraph.Edge{{From: "A"}, {From: "B"}}},
	)

	want := "digraph G {\n" +
		"  rankdir=BT;\n" +
		"  \"C\" [label=\"C \"];\n" +
		"  \"B\" [label=\"B \"];\n" +
		"  \"A\" [label=\"Linear Algebra\\nFundamentals \"];\n" +
		"  \"B\" -> \"C\";\n" +
		"  \"A\" -> \"B\";\n" +
		"}\n"
	if got := ToDOT(sg, DefaultOptions()); got != want {
		t.Errorf("ToDOT =\n%s\nwant\n%s", got, want)
	}
}

func TestToDOTEscapesIDs(t *testing.T) {
	sg := extract(t, `say "x"`, 0, kgraph.Node{ID: `say "x"`})
	got := ToDOT(sg, DefaultOptions())
	if !strings.Contains(got, `"say \"x\"" [label="say \"x\" "];`) {
		t.Errorf("ToDOT did not escape id:\n%s", got)
	}
}

func TestToDOTKeepsLineBreakIDsDistinct(t *testing.T) {
	sg := extract(t, "c", 1,
		kgraph.Node{ID: "ab", Title: "plain"},
		kgraph.Node{ID: "a\nb", Title: "newline"},
		kgraph.Node{ID: "c", Dependencies: []kgraph.Edge{{From: "ab"}, {From: "a\nb"}}},
	)
	got := ToDOT(sg, Options{WrapWidth: 12})
	for _, line := range []string{
		`"ab" [label="plain "];`,
		`"a\nb" [label="newline "];`,
		`"ab" -> "c";`,
		`"a\nb" -> "c";`,
	} {
		if strings.Count(got, line) != 1 {
			t.Errorf("want exactly one %s in:\n%s", line, got)
		}
	}
}

func TestToDOTHumanizesIDs(t *testing.T) {
	sg := extract(t, "linear_algebra", 0, kgraph.Node{ID: "linear_algebra"})
	got := ToDOT(sg, DefaultOptions())
	if !strings.Contains(got, `[label="linear algebra "]`) {
		t.Errorf("ToDOT label not humanized:\n%s", got)
	}
}

func TestLabelerMemoizes(t *testing.T) {
	l := NewLabeler()
	n := &kgraph.Node{ID: "a", Title: "Linear Algebra Fundamentals"}

	first := l.Label(n, 12)
	changed := &kgraph.Node{ID: "a", Title: "Other"}
	if got := l.Label(changed, 12); got != first {
		t.Errorf("Label not memoized: %q != %q", got, first)
	}
	if got := l.Label(n, 40); got != "Linear Algebra Fundamentals " {
		t.Errorf("Label(width 40) = %q", got)
	}
	if l.Len() != 2 {
		t.Errorf("Len() = %d, want 2", l.Len())
	}
}

func TestLabelerConcurrent(t *testing.T) {
	l := NewLabeler()
	n := &kgraph.Node{ID: "a", Title: "Linear Algebra Fundamentals"}
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = l.Label(n, 12)
		}()
	}
	wg.Wait()
	if l.Len() != 1 {
		t.Errorf("Len() = %d, want 1", l.Len())
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="100pt" height="50pt" viewBox="0.00 0.00 100.00 50.00" xmlns="http://www.w3.org/2000/svg"><g/></svg>`)
	got := string(normalizeViewBox(in))
	want := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100.00 50.00" width="100" height="50"><g/></svg>`
	if got != want {
		t.Errorf("normalizeViewBox =\n%s\nwant\n%s", got, want)
	}

	plain := []byte(`<svg><g/></svg>`)
	if string(normalizeViewBox(plain)) != string(plain) {
		t.Error("normalizeViewBox changed an svg without viewBox")
	}
}

func TestRenderSVG(t *testing.T) {
	sg := extract(t, "b", 1,
		kgraph.Node{ID: "a"},
		kgraph.Node{ID: "b", Dependencies: []kgraph.Edge{{From: "a"}}},
	)
	svg, err := RenderSVG(context.Background(), ToDOT(sg, DefaultOptions()))
	if err != nil {
		t.Fatalf("RenderSVG error: %v", err)
	}
	if !strings.Contains(string(svg), "<svg") {
		t.Error("RenderSVG output has no svg element")
	}
}

func TestRenderInvalidDOT(t *testing.T) {
	if _, err := RenderSVG(context.Background(), "digraph {"); err == nil {
		t.Error("RenderSVG accepted invalid DOT")
	}
}
