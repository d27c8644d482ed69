package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/knowmap/pkg/cache"
	errs "github.com/matzehuels/knowmap/pkg/errors"
	"github.com/matzehuels/knowmap/pkg/io"
	"github.com/matzehuels/knowmap/pkg/kgraph"
	"github.com/matzehuels/knowmap/pkg/observability/prom"
	"github.com/matzehuels/knowmap/pkg/pipeline"
	"github.com/matzehuels/knowmap/pkg/source"
)

func testDocument() *io.Document {
	return &io.Document{Nodes: map[string]io.NodeRecord{
		"vectors":     {Title: "Vectors"},
		"matrices":    {Title: "Matrices", Dependencies: []io.EdgeRecord{{FromTag: "vectors", Reason: "rows and columns"}}},
		"eigenvalues": {Dependencies: []io.EdgeRecord{{FromTag: "matrices"}, {FromTag: "vectors"}}},
		"pca":         {Title: "Principal Component Analysis", Dependencies: []io.EdgeRecord{{FromTag: "eigenvalues"}}},
	}}
}

type fixture struct {
	srv     *Server
	handler http.Handler
	metrics *prom.Metrics
	logs    *bytes.Buffer
}

func newFixture(t *testing.T, src source.Source) *fixture {
	t.Helper()
	store, err := io.Build(testDocument())
	if err != nil {
		t.Fatal(err)
	}
	mem, err := cache.NewMemoryCache(64)
	if err != nil {
		t.Fatal(err)
	}
	logs := &bytes.Buffer{}
	logger := log.New(logs)
	metrics := prom.New()
	srv := New(Config{
		Workspace: pipeline.NewWorkspace(store),
		Runner:    pipeline.NewRunner(mem, nil, logger),
		Source:    src,
		Defaults:  pipeline.DefaultOptions(),
		Metrics:   metrics,
		Logger:    logger,
	})
	t.Cleanup(srv.Close)
	return &fixture{srv: srv, handler: srv.Handler(), metrics: metrics, logs: logs}
}

func (f *fixture) do(t *testing.T, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestHealth(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(t, http.MethodGet, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	h := decode[healthResponse](t, rec)
	if h.Status != "ok" || h.Nodes != 4 {
		t.Errorf("health = %+v", h)
	}
}

func TestListNodes(t *testing.T) {
	f := newFixture(t, nil)
	nodes := decode[[]NodeSummary](t, f.do(t, http.MethodGet, "/nodes"))

	var ids []string
	for _, n := range nodes {
		ids = append(ids, n.ID)
	}
	if got := strings.Join(ids, ","); got != "eigenvalues,matrices,pca,vectors" {
		t.Errorf("ids = %s", got)
	}
	if nodes[0].Title != "eigenvalues" || len(nodes[0].Dependencies) != 2 {
		t.Errorf("eigenvalues = %+v", nodes[0])
	}
	if nodes[3].Dependencies == nil {
		t.Error("dependencies should encode as [] not null")
	}
}

func TestGetNode(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(t, http.MethodGet, "/nodes/pca")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	d := decode[NodeDetail](t, rec)
	if d.Title != "Principal Component Analysis" {
		t.Errorf("Title = %q", d.Title)
	}
	if got := strings.Join(d.Ancestors, ","); got != "eigenvalues,matrices,vectors" {
		t.Errorf("Ancestors = %s", got)
	}
	if got := strings.Join(d.UniqueDependencies, ","); got != "eigenvalues" {
		t.Errorf("UniqueDependencies = %s", got)
	}

	m := decode[NodeDetail](t, f.do(t, http.MethodGet, "/nodes/matrices"))
	if len(m.Dependencies) != 1 || m.Dependencies[0].Reason != "rows and columns" {
		t.Errorf("matrices dependencies = %+v", m.Dependencies)
	}
	if strings.Join(m.Dependents, ",") != "eigenvalues" {
		t.Errorf("matrices dependents = %v", m.Dependents)
	}
}

func TestErrors(t *testing.T) {
	f := newFixture(t, nil)
	tests := []struct {
		name   string
		method string
		target string
		status int
		code   errs.Code
	}{
		{"unknown node", http.MethodGet, "/nodes/topology", http.StatusNotFound, errs.ErrCodeNotFound},
		{"unknown focal", http.MethodGet, "/nodes/topology/graph.dot", http.StatusNotFound, errs.ErrCodeNotFound},
		{"invalid node id", http.MethodGet, "/nodes/a%01b", http.StatusBadRequest, errs.ErrCodeInvalidNodeID},
		{"double dot id is looked up", http.MethodGet, "/nodes/intro..advanced", http.StatusNotFound, errs.ErrCodeNotFound},
		{"bad format", http.MethodGet, "/nodes/pca/graph.pdf", http.StatusBadRequest, errs.ErrCodeInvalidFormat},
		{"non-integer depth", http.MethodGet, "/nodes/pca/graph.dot?depth=two", http.StatusBadRequest, errs.ErrCodeInvalidDepth},
		{"negative depth", http.MethodGet, "/nodes/pca/graph.dot?depth=-1", http.StatusBadRequest, errs.ErrCodeInvalidDepth},
		{"bad top_down", http.MethodGet, "/graph.dot?top_down=maybe", http.StatusBadRequest, errs.ErrCodeInvalidInput},
		{"reload without source", http.MethodPost, "/reload", http.StatusNotImplemented, errs.ErrCodeUnsupported},
		{"no route", http.MethodGet, "/nope", http.StatusNotFound, errs.ErrCodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, tt.method, tt.target)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d (%s)", rec.Code, tt.status, rec.Body)
			}
			body := decode[errorResponse](t, rec)
			if body.Code != tt.code {
				t.Errorf("code = %q, want %q", body.Code, tt.code)
			}
			if body.Message == "" {
				t.Error("empty message")
			}
		})
	}
}

func TestFocalGraph(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/nodes/eigenvalues/graph.dot")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/vnd.graphviz") {
		t.Errorf("Content-Type = %q", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "rankdir=BT;") || !strings.Contains(body, `"matrices" -> "eigenvalues";`) {
		t.Errorf("unexpected DOT:\n%s", body)
	}
	if rec.Header().Get("X-Cache") != "miss" {
		t.Errorf("first X-Cache = %q", rec.Header().Get("X-Cache"))
	}
	if rec.Header().Get("X-Graph-Hash") == "" {
		t.Error("missing X-Graph-Hash")
	}

	again := f.do(t, http.MethodGet, "/nodes/eigenvalues/graph.dot")
	if again.Header().Get("X-Cache") != "hit" {
		t.Errorf("second X-Cache = %q", again.Header().Get("X-Cache"))
	}

	topDown := f.do(t, http.MethodGet, "/nodes/eigenvalues/graph.dot?top_down=true&depth=0")
	if strings.Contains(topDown.Body.String(), "rankdir") {
		t.Error("top_down=true should drop rankdir")
	}
	if strings.Contains(topDown.Body.String(), "matrices") {
		t.Error("depth=0 should emit the focal node only")
	}
}

func TestFullGraphJSON(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(t, http.MethodGet, "/graph.json")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	doc := decode[io.SubgraphDocument](t, rec)
	if len(doc.Nodes) != 4 || len(doc.Edges) != 3 {
		t.Errorf("nodes=%d edges=%d", len(doc.Nodes), len(doc.Edges))
	}
}

func TestReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.yaml")
	doc := &io.Document{Nodes: map[string]io.NodeRecord{
		"sets":      {},
		"functions": {Dependencies: []io.EdgeRecord{{FromTag: "sets"}}},
	}}
	out, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := io.WriteDocument(doc, out, io.FormatYAML); err != nil {
		t.Fatal(err)
	}
	out.Close()

	f := newFixture(t, source.File{Path: path})
	before := decode[healthResponse](t, f.do(t, http.MethodGet, "/healthz"))

	rec := f.do(t, http.MethodPost, "/reload")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	res := decode[reloadResponse](t, rec)
	if res.Nodes != 2 || res.Source != "file" || res.Generation <= before.Generation {
		t.Errorf("reload = %+v (before gen %d)", res, before.Generation)
	}

	if got := len(decode[[]NodeSummary](t, f.do(t, http.MethodGet, "/nodes"))); got != 2 {
		t.Errorf("nodes after reload = %d", got)
	}
	if f.do(t, http.MethodGet, "/nodes/pca").Code != http.StatusNotFound {
		t.Error("old node still served after reload")
	}

	if !strings.Contains(f.logs.String(), "kind=store_replaced") || !strings.Contains(f.logs.String(), "change_id=") {
		t.Errorf("store change not logged:\n%s", f.logs)
	}
	metrics := f.do(t, http.MethodGet, "/metrics").Body.String()
	if !strings.Contains(metrics, `knowmap_store_changes_total{kind="store_replaced"} 1`) {
		t.Error("store change not counted")
	}
}

func TestCloseStopsWatchingStore(t *testing.T) {
	f := newFixture(t, nil)
	f.srv.Close()
	f.srv.Close()

	if err := f.srv.ws.Store().AddNode(kgraph.Node{ID: "determinants"}); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(f.logs.String(), "store changed") {
		t.Errorf("change observed after Close:\n%s", f.logs)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, nil)
	f.do(t, http.MethodGet, "/healthz")
	f.do(t, http.MethodGet, "/nodes/pca")

	rec := f.do(t, http.MethodGet, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{`route="/healthz"`, `route="/nodes/{id}"`} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %s", want)
		}
	}
	if strings.Contains(body, `route="/nodes/pca"`) {
		t.Error("raw path leaked into route label")
	}
}
