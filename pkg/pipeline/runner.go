package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/knowmap/pkg/cache"
	"github.com/matzehuels/knowmap/pkg/io"
	"github.com/matzehuels/knowmap/pkg/kgraph/subgraph"
	"github.com/matzehuels/knowmap/pkg/observability"
	"github.com/matzehuels/knowmap/pkg/render/dot"
)

// Runner executes render requests with caching. It holds no per-request
// state, so one Runner may serve many goroutines.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner. A nil keyer selects the default keyer, a nil
// cache disables caching and a nil logger selects log.Default().
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Cache: c, Keyer: keyer, Logger: logger}
}

// Execute extracts the requested subgraph from the workspace's current view,
// serializes it and renders every requested format.
func (r *Runner) Execute(ctx context.Context, ws *Workspace, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	view := ws.Current()
	result := &Result{
		GraphHash: view.Hash,
		Artifacts: make(map[string][]byte, len(opts.Formats)),
	}

	extractStart := time.Now()
	sg, err := r.Extract(ctx, view, opts)
	if err != nil {
		return nil, err
	}
	result.Subgraph = sg
	result.Stats.ExtractTime = time.Since(extractStart)
	result.Stats.NodeCount = len(sg.Nodes)
	result.Stats.EdgeCount = len(sg.Edges)
	result.Titles = make(map[string]string, len(sg.Nodes))
	for _, n := range sg.Nodes {
		result.Titles[n.ID] = n.DisplayTitle()
	}

	r.Logger.Debug("extracted subgraph",
		"focal", opts.Focal,
		"depth", opts.Depth,
		"nodes", result.Stats.NodeCount,
		"edges", result.Stats.EdgeCount,
		"duration", result.Stats.ExtractTime)

	renderStart := time.Now()
	src, hit := r.serialize(ctx, view, sg, opts)
	result.DOT = src
	result.CacheInfo.DOTHit = hit

	dotHash := cache.Hash([]byte(src))
	for _, format := range opts.Formats {
		data, hit, err := r.artifact(ctx, format, dotHash, src, sg, opts.Refresh)
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		result.Artifacts[format] = data
		if hit {
			result.CacheInfo.ArtifactHits = append(result.CacheInfo.ArtifactHits, format)
		}
	}
	result.Stats.RenderTime = time.Since(renderStart)

	r.Logger.Info("rendered graph",
		"focal", opts.Focal,
		"formats", opts.Formats,
		"nodes", result.Stats.NodeCount,
		"cached", len(result.CacheInfo.ArtifactHits),
		"duration", result.Stats.ExtractTime+result.Stats.RenderTime)

	return result, nil
}

// Extract runs the subgraph extractor for opts against view.
func (r *Runner) Extract(ctx context.Context, view *View, opts Options) (*subgraph.Subgraph, error) {
	hooks := observability.Pipeline()
	hooks.OnExtractStart(ctx, opts.Focal, opts.Depth)
	start := time.Now()

	var (
		sg  *subgraph.Subgraph
		err error
	)
	if opts.Focal == "" {
		sg, err = subgraph.Full(view.Resolver)
	} else {
		sg, err = subgraph.Extract(view.Resolver, opts.Focal, opts.Depth)
	}

	nodes, edges := 0, 0
	if sg != nil {
		nodes, edges = len(sg.Nodes), len(sg.Edges)
	}
	hooks.OnExtractComplete(ctx, opts.Focal, nodes, edges, time.Since(start), err)
	return sg, err
}

// serialize returns the DOT source for sg, from the cache when possible.
func (r *Runner) serialize(ctx context.Context, view *View, sg *subgraph.Subgraph, opts Options) (string, bool) {
	key := r.Keyer.DOTKey(view.Hash, opts.DOTKeyOpts())
	if !opts.Refresh {
		if data, ok := r.lookup(ctx, "dot", key); ok {
			return string(data), true
		}
	}

	src := dot.ToDOT(sg, dot.Options{
		BottomToTop: opts.BottomToTop,
		WrapWidth:   opts.WrapWidth,
		Labeler:     view.Labeler,
	})
	r.store(ctx, "dot", key, []byte(src), cache.TTLDOT)
	return src, false
}

// artifact produces one output format. SVG and PNG go through the cache,
// keyed by the DOT source; DOT and JSON are derived directly.
func (r *Runner) artifact(ctx context.Context, format, dotHash, src string, sg *subgraph.Subgraph, refresh bool) ([]byte, bool, error) {
	hooks := observability.Pipeline()
	hooks.OnRenderStart(ctx, format)
	start := time.Now()

	var (
		data []byte
		hit  bool
		err  error
	)
	switch format {
	case FormatDOT:
		data = []byte(src)
	case FormatJSON:
		var buf bytes.Buffer
		err = io.WriteSubgraphJSON(sg, &buf)
		data = buf.Bytes()
	case FormatSVG, FormatPNG:
		key := r.Keyer.ArtifactKey(dotHash, cache.ArtifactKeyOpts{Format: format})
		if !refresh {
			data, hit = r.lookup(ctx, "artifact", key)
		}
		if !hit {
			data, err = renderLayout(ctx, format, src)
			if err == nil {
				r.store(ctx, "artifact", key, data, cache.TTLArtifact)
			}
		}
	default:
		err = fmt.Errorf("unsupported format %q", format)
	}

	hooks.OnRenderComplete(ctx, format, len(data), time.Since(start), err)
	return data, hit, err
}

func renderLayout(ctx context.Context, format, src string) ([]byte, error) {
	if format == FormatPNG {
		return dot.RenderPNG(ctx, src)
	}
	return dot.RenderSVG(ctx, src)
}

func (r *Runner) lookup(ctx context.Context, keyType, key string) ([]byte, bool) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Warn("cache read failed", "type", keyType, "err", err)
		return nil, false
	}
	if hit {
		observability.Cache().OnCacheHit(ctx, keyType)
	} else {
		observability.Cache().OnCacheMiss(ctx, keyType)
	}
	return data, hit
}

func (r *Runner) store(ctx context.Context, keyType, key string, data []byte, ttl time.Duration) {
	if err := r.Cache.Set(ctx, key, data, ttl); err != nil {
		r.Logger.Warn("cache write failed", "type", keyType, "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, keyType, len(data))
}

// Close releases the cache.
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}
