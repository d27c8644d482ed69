package server

import (
	"encoding/json"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	errs "github.com/matzehuels/knowmap/pkg/errors"
	"github.com/matzehuels/knowmap/pkg/pipeline"
)

type healthResponse struct {
	Status     string `json:"status"`
	Nodes      int    `json:"nodes"`
	Generation uint64 `json:"generation"`
}

// NodeSummary is one entry of GET /nodes.
type NodeSummary struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Dependencies []string `json:"dependencies"`
}

// NodeDetail is the body of GET /nodes/{id}.
type NodeDetail struct {
	ID                 string           `json:"id"`
	Title              string           `json:"title"`
	Summary            string           `json:"summary,omitempty"`
	Pointers           string           `json:"pointers,omitempty"`
	Dependencies       []DependencyLink `json:"dependencies"`
	UniqueDependencies []string         `json:"unique_dependencies"`
	Ancestors          []string         `json:"ancestors"`
	Dependents         []string         `json:"dependents"`
	Resources          int              `json:"resources"`
	Questions          int              `json:"questions"`
}

// DependencyLink is one incoming edge of a node.
type DependencyLink struct {
	From   string `json:"from"`
	Reason string `json:"reason,omitempty"`
}

type reloadResponse struct {
	Source     string `json:"source"`
	Nodes      int    `json:"nodes"`
	Generation uint64 `json:"generation"`
}

type errorResponse struct {
	Code    errs.Code `json:"code"`
	Message string    `json:"message"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	store := s.ws.Store()
	writeJSON(w, http.StatusOK, healthResponse{
		Status:     "ok",
		Nodes:      store.NodeCount(),
		Generation: store.Generation(),
	})
}

func (s *Server) listNodes(w http.ResponseWriter, r *http.Request) {
	nodes := s.ws.Current().Graph.Nodes()
	out := make([]NodeSummary, len(nodes))
	for i, n := range nodes {
		out[i] = NodeSummary{ID: n.ID, Title: n.DisplayTitle(), Dependencies: nonNil(n.DependencyIDs())}
	}
	slices.SortFunc(out, func(a, b NodeSummary) int { return strings.Compare(a.ID, b.ID) })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getNode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := errs.ValidateNodeID(id); err != nil {
		writeError(w, s.logger, err)
		return
	}
	info, err := s.ws.Current().Inspect(id)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, nodeDetail(info))
}

func nodeDetail(info *pipeline.NodeInfo) NodeDetail {
	n := info.Node
	deps := make([]DependencyLink, len(n.Dependencies))
	for i, e := range n.Dependencies {
		deps[i] = DependencyLink{From: e.From, Reason: e.Reason}
	}
	return NodeDetail{
		ID:                 n.ID,
		Title:              n.DisplayTitle(),
		Summary:            n.Summary,
		Pointers:           n.Pointers,
		Dependencies:       deps,
		UniqueDependencies: nonNil(info.UniqueDependencies),
		Ancestors:          nonNil(info.Ancestors),
		Dependents:         nonNil(info.Dependents),
		Resources:          len(n.Resources),
		Questions:          len(n.Questions),
	}
}

// graph serves both the full graph and focal subgraphs; the {id} parameter
// is empty on the full-graph route.
func (s *Server) graph(w http.ResponseWriter, r *http.Request) {
	opts, err := s.graphOptions(r)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	res, err := s.runner.Execute(r.Context(), s.ws, opts)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	format := opts.Formats[0]
	cacheStatus := "miss"
	if slices.Contains(res.CacheInfo.ArtifactHits, format) || (format == pipeline.FormatDOT && res.CacheInfo.DOTHit) {
		cacheStatus = "hit"
	}
	w.Header().Set("Content-Type", pipeline.ContentType(format))
	w.Header().Set("X-Graph-Hash", res.GraphHash)
	w.Header().Set("X-Cache", cacheStatus)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Artifacts[format])
}

func (s *Server) graphOptions(r *http.Request) (pipeline.Options, error) {
	opts := s.defaults
	opts.Focal = chi.URLParam(r, "id")
	opts.Formats = []string{chi.URLParam(r, "format")}
	opts.Refresh = false

	q := r.URL.Query()
	if v := q.Get("depth"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return opts, errs.New(errs.ErrCodeInvalidDepth, "depth must be an integer, got %q", v)
		}
		opts.Depth = n
	}
	if v := q.Get("top_down"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, errs.New(errs.ErrCodeInvalidInput, "top_down must be a boolean, got %q", v)
		}
		opts.BottomToTop = !b
	}
	if v := q.Get("wrap"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return opts, errs.New(errs.ErrCodeInvalidInput, "wrap must be an integer, got %q", v)
		}
		opts.WrapWidth = n
	}
	if v := q.Get("refresh"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, errs.New(errs.ErrCodeInvalidInput, "refresh must be a boolean, got %q", v)
		}
		opts.Refresh = b
	}
	return opts, nil
}

func (s *Server) reload(w http.ResponseWriter, r *http.Request) {
	if s.source == nil {
		writeError(w, s.logger, errs.New(errs.ErrCodeUnsupported, "no reload source configured"))
		return
	}

	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	n, err := s.ws.Reload(r.Context(), s.source)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	s.logger.Info("reloaded graph", "source", s.source.Name(), "nodes", n)
	writeJSON(w, http.StatusOK, reloadResponse{
		Source:     s.source.Name(),
		Nodes:      n,
		Generation: s.ws.Store().Generation(),
	})
}

func errNoRoute(r *http.Request) error {
	return errs.New(errs.ErrCodeNotFound, "no route for %s %s", r.Method, r.URL.Path)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError classifies err and writes it as JSON. Internal errors are
// logged and their message is withheld from the client.
func writeError(w http.ResponseWriter, logger *log.Logger, err error) {
	code := errs.Classify(err)
	status := errs.HTTPStatus(code)
	msg := errs.UserMessage(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "code", code, "err", err)
		if code == errs.ErrCodeInternal {
			msg = "internal error"
		}
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
