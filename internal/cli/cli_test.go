package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/knowmap/pkg/io"
	"github.com/matzehuels/knowmap/pkg/kgraph"
)

const mapJSON = `{
  "nodes": {
    "vectors": {"title": "Vectors"},
    "matrices": {"title": "Matrices", "dependencies": [{"from_tag": "vectors"}]},
    "eigenvalues": {"dependencies": [{"from_tag": "matrices"}, {"from_tag": "vectors"}]},
    "pca": {"title": "Principal Component Analysis", "dependencies": [{"from_tag": "eigenvalues"}]}
  }
}`

// isolate points config and cache lookups at empty temp directories.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// run executes the root command and returns what it wrote to its output.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var logs, out bytes.Buffer
	c := New(&logs, LogInfo)
	root := c.RootCommand()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&logs)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRenderToStdout(t *testing.T) {
	isolate(t)
	path := writeFile(t, "map.json", mapJSON)

	out, err := run(t, "render", path, "--node", "eigenvalues", "--no-cache")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	want := "digraph G {\n" +
		"  rankdir=BT;\n" +
		"  \"eigenvalues\" [label=\"eigenvalues \"];\n" +
		"  \"matrices\" [label=\"Matrices \"];\n" +
		"  \"matrices\" -> \"eigenvalues\";\n" +
		"}\n"
	if out != want {
		t.Errorf("output =\n%s\nwant\n%s", out, want)
	}
}

func TestRenderFlagsOverrideConfig(t *testing.T) {
	isolate(t)
	path := writeFile(t, "map.json", mapJSON)
	cfg := writeFile(t, "config.toml", "[graph]\ndepth = 0\nbottom_to_top = false\n")

	out, err := run(t, "--config", cfg, "render", path, "-n", "pca", "--no-cache")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "rankdir") || strings.Contains(out, "eigenvalues") {
		t.Errorf("config depth/orientation not applied:\n%s", out)
	}

	out, err = run(t, "--config", cfg, "render", path, "-n", "pca", "--depth", "2", "--top-down=false", "--no-cache")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "rankdir=BT;") || !strings.Contains(out, `"matrices" -> "eigenvalues";`) {
		t.Errorf("flags did not override config:\n%s", out)
	}
}

func TestRenderWritesFiles(t *testing.T) {
	isolate(t)
	path := writeFile(t, "map.json", mapJSON)
	base := filepath.Join(t.TempDir(), "pca")

	if _, err := run(t, "render", path, "-n", "pca", "-f", "dot,json", "-o", base+".out"); err != nil {
		t.Fatal(err)
	}
	for _, ext := range []string{".dot", ".json"} {
		if _, err := os.Stat(base + ext); err != nil {
			t.Errorf("missing %s: %v", ext, err)
		}
	}
	data, _ := os.ReadFile(base + ".json")
	if !bytes.Contains(data, []byte(`"focal": "pca"`)) && !bytes.Contains(data, []byte(`"focal":"pca"`)) {
		t.Errorf("json artifact = %s", data)
	}
}

func TestRenderErrors(t *testing.T) {
	isolate(t)
	path := writeFile(t, "map.json", mapJSON)

	tests := []struct {
		name string
		args []string
		is   error
	}{
		{"unknown node", []string{"render", path, "-n", "topology", "--no-cache"}, kgraph.ErrNodeNotFound},
		{"missing file", []string{"render", filepath.Join(t.TempDir(), "nope.json"), "--no-cache"}, os.ErrNotExist},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			if !errors.Is(err, tt.is) {
				t.Errorf("err = %v, want %v", err, tt.is)
			}
		})
	}

	if _, err := run(t, "render", path, "-f", "pdf"); err == nil {
		t.Error("unsupported format accepted")
	}
	if _, err := run(t, "render", "--no-cache"); err == nil {
		t.Error("render without a file or configured source succeeded")
	}
}

func TestValidateCommand(t *testing.T) {
	isolate(t)
	if _, err := run(t, "validate", writeFile(t, "map.json", mapJSON)); err != nil {
		t.Errorf("valid graph: %v", err)
	}

	cyclic := writeFile(t, "cyclic.yaml", `
nodes:
  a:
    dependencies: [{from_tag: b}]
  b:
    dependencies: [{from_tag: a}]
`)
	if _, err := run(t, "validate", cyclic); !errors.Is(err, kgraph.ErrCycle) {
		t.Errorf("cyclic graph: err = %v, want ErrCycle", err)
	}

	dangling := writeFile(t, "dangling.toml", "[nodes.a]\ndependencies = [{from_tag = \"ghost\"}]\n")
	if _, err := run(t, "validate", dangling); !errors.Is(err, kgraph.ErrNodeNotFound) {
		t.Errorf("dangling graph: err = %v, want ErrNodeNotFound", err)
	}
}

func TestNodesTable(t *testing.T) {
	isolate(t)
	out, err := run(t, "nodes", writeFile(t, "map.json", mapJSON), "--filter", "ma")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "matrices") {
		t.Errorf("table missing matrices:\n%s", out)
	}
	if strings.Contains(out, "vectors") {
		t.Errorf("filter not applied:\n%s", out)
	}
}

func TestFetchFileToYAML(t *testing.T) {
	isolate(t)
	in := writeFile(t, "map.json", mapJSON)
	out := filepath.Join(t.TempDir(), "map.yaml")

	if _, err := run(t, "fetch", in, "-o", out); err != nil {
		t.Fatal(err)
	}
	store, err := io.Import(out)
	if err != nil {
		t.Fatalf("re-import: %v", err)
	}
	if store.NodeCount() != 4 {
		t.Errorf("NodeCount = %d", store.NodeCount())
	}
}

func TestCachePath(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	cfg := writeFile(t, "config.toml", "[cache]\ndir = \""+filepath.ToSlash(dir)+"\"\n")

	out, err := run(t, "--config", cfg, "cache", "path")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != filepath.ToSlash(dir) {
		t.Errorf("cache path = %q, want %q", out, dir)
	}
}

func TestParseFormats(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "dot"},
		{"svg", "svg"},
		{"SVG, png,,json", "svg,png,json"},
	}
	for _, tt := range tests {
		if got := strings.Join(parseFormats(tt.in), ","); got != tt.want {
			t.Errorf("parseFormats(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		name   string
		output string
		focal  string
		format string
		multi  bool
		want   string
	}{
		{"dot to stdout", "", "pca", "dot", false, ""},
		{"json to stdout", "", "", "json", false, ""},
		{"svg default name", "", "pca", "svg", false, "pca.svg"},
		{"full graph default name", "", "", "png", false, "graph.png"},
		{"multi default name", "", "pca", "dot", true, "pca.dot"},
		{"explicit single", "out.svg", "pca", "svg", false, "out.svg"},
		{"explicit multi", "out/pca.svg", "pca", "png", true, "out/pca.png"},
		{"dash forces stdout", "-", "pca", "png", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := outputPath(tt.output, tt.focal, tt.format, tt.multi); got != tt.want {
				t.Errorf("outputPath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNodePicker(t *testing.T) {
	store, err := io.Build(&io.Document{Nodes: map[string]io.NodeRecord{
		"vectors":     {},
		"matrices":    {Dependencies: []io.EdgeRecord{{FromTag: "vectors"}}},
		"eigenvalues": {Dependencies: []io.EdgeRecord{{FromTag: "matrices"}}},
	}})
	if err != nil {
		t.Fatal(err)
	}
	m := NewNodePickerModel(store.Snapshot())
	if len(m.Visible) != 3 || m.Visible[0].ID != "eigenvalues" {
		t.Fatalf("initial list = %v", m.Visible)
	}

	step := func(msg tea.Msg) {
		next, _ := m.Update(msg)
		m = next.(NodePickerModel)
	}
	step(tea.KeyMsg{Type: tea.KeyDown})
	step(tea.KeyMsg{Type: tea.KeyDown})
	step(tea.KeyMsg{Type: tea.KeyDown})
	if m.Cursor != 2 {
		t.Errorf("cursor = %d, want 2 (clamped)", m.Cursor)
	}

	step(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("matx")})
	if len(m.Visible) != 0 || !strings.Contains(m.View(), "no matching nodes") {
		t.Errorf("filter 'matx' = %v", m.Visible)
	}
	step(tea.KeyMsg{Type: tea.KeyBackspace})
	if len(m.Visible) != 1 || m.Cursor != 0 {
		t.Fatalf("filter 'mat' = %v (cursor %d)", m.Visible, m.Cursor)
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if sel := next.(NodePickerModel).Selected; sel == nil || sel.ID != "matrices" {
		t.Errorf("Selected = %v", sel)
	}
	if cmd == nil {
		t.Error("enter should quit")
	}
}

func TestFilterNodes(t *testing.T) {
	nodes := []*kgraph.Node{
		{ID: "linear_algebra"},
		{ID: "pca", Title: "Principal Component Analysis"},
		{ID: "calculus"},
	}
	got := filterNodes(nodes, "ALGEBRA")
	if len(got) != 1 || got[0].ID != "linear_algebra" {
		t.Errorf("by id = %v", got)
	}
	got = filterNodes(nodes, "component")
	if len(got) != 1 || got[0].ID != "pca" {
		t.Errorf("by title = %v", got)
	}
	if got = filterNodes(nodes, ""); got[0].ID != "calculus" {
		t.Errorf("unfiltered order = %v", got)
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, log.InfoLevel)
	logger.Debug("hidden")
	if buf.Len() != 0 {
		t.Error("debug logged at info level")
	}

	ctx := withLogger(context.Background(), logger)
	if loggerFromContext(ctx) != logger {
		t.Error("loggerFromContext lost the logger")
	}
	if loggerFromContext(context.Background()) == nil {
		t.Error("loggerFromContext without logger returned nil")
	}

	newProgress(logger).done("Loaded 4 nodes from file")
	if !strings.Contains(buf.String(), "Loaded 4 nodes from file (") {
		t.Errorf("progress output = %q", buf.String())
	}
}

func TestSpinnerStops(t *testing.T) {
	var buf bytes.Buffer
	s := newSpinner(context.Background(), "Rendering...")
	s.out = &buf
	s.Start()
	s.Stop()
	s.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	s = newSpinner(ctx, "Fetching...")
	s.out = &buf
	s.Start()
	cancel()
	s.Stop()
}

func TestCompleteNodeIDs(t *testing.T) {
	isolate(t)
	path := writeFile(t, "map.json", mapJSON)
	c := New(&bytes.Buffer{}, LogInfo)

	got, _ := c.completeNodeIDs(nil, []string{path}, "ma")
	if len(got) != 1 || !strings.HasPrefix(got[0], "matrices\t") {
		t.Errorf("completions = %q", got)
	}
	if got, _ := c.completeNodeIDs(nil, nil, ""); len(got) != 0 {
		t.Errorf("without a graph file: %q", got)
	}
}
