// Package pipeline runs the extract → serialize → render flow shared by the
// CLI and the HTTP server.
//
// A [Workspace] owns a graph store and the derived layer built from its
// current snapshot (ancestor resolver, label memo, content hash). A [Runner]
// executes one request against a workspace and caches DOT and rendered
// artifacts:
//
//	ws := pipeline.NewWorkspace(store)
//	runner := pipeline.NewRunner(c, nil, logger)
//	opts := pipeline.DefaultOptions()
//	opts.Focal = "principal_component_analysis"
//	opts.Formats = []string{pipeline.FormatSVG}
//	res, err := runner.Execute(ctx, ws, opts)
//	svg := res.Artifacts[pipeline.FormatSVG]
package pipeline

import (
	"slices"
	"time"

	"github.com/matzehuels/knowmap/pkg/cache"
	errs "github.com/matzehuels/knowmap/pkg/errors"
	"github.com/matzehuels/knowmap/pkg/kgraph/subgraph"
	"github.com/matzehuels/knowmap/pkg/render/dot"
)

// Output formats.
const (
	FormatDOT  = "dot"
	FormatSVG  = "svg"
	FormatPNG  = "png"
	FormatJSON = "json"
)

// Formats lists every supported output format.
var Formats = []string{FormatDOT, FormatSVG, FormatPNG, FormatJSON}

// ContentType returns the MIME type served for format.
func ContentType(format string) string {
	switch format {
	case FormatSVG:
		return "image/svg+xml"
	case FormatPNG:
		return "image/png"
	case FormatJSON:
		return "application/json"
	}
	return "text/vnd.graphviz; charset=utf-8"
}

// Options describes one render request. An empty Focal renders the whole
// graph, in which case Depth is ignored.
type Options struct {
	Focal       string   `json:"focal,omitempty"`
	Depth       int      `json:"depth"`
	BottomToTop bool     `json:"bottom_to_top"`
	WrapWidth   int      `json:"wrap_width"`
	Formats     []string `json:"formats,omitempty"`
	Refresh     bool     `json:"refresh,omitempty"` // bypass cached DOT and artifacts
}

// DefaultOptions renders DOT of the depth-1 neighbourhood, bottom to top,
// wrapping labels at 12 characters.
func DefaultOptions() Options {
	return Options{
		Depth:       subgraph.DefaultDepth,
		BottomToTop: true,
		WrapWidth:   dot.DefaultWrapWidth,
		Formats:     []string{FormatDOT},
	}
}

// Validate checks the options and normalizes Formats (DOT when empty,
// duplicates removed, order kept).
func (o *Options) Validate() error {
	if o.Focal != "" {
		if err := errs.ValidateNodeID(o.Focal); err != nil {
			return err
		}
	}
	if err := errs.ValidateDepth(o.Depth); err != nil {
		return err
	}
	if o.WrapWidth < 0 {
		return errs.New(errs.ErrCodeInvalidInput, "wrap width must be >= 0, got %d", o.WrapWidth)
	}
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatDOT}
	}
	seen := make(map[string]bool, len(o.Formats))
	formats := o.Formats[:0:0]
	for _, f := range o.Formats {
		if err := errs.ValidateFormat(f, Formats...); err != nil {
			return err
		}
		if !seen[f] {
			seen[f] = true
			formats = append(formats, f)
		}
	}
	o.Formats = formats
	return nil
}

// HasFormat reports whether format was requested.
func (o *Options) HasFormat(format string) bool {
	return slices.Contains(o.Formats, format)
}

// DOTKeyOpts returns the cache key options for serialized DOT.
func (o *Options) DOTKeyOpts() cache.DOTKeyOpts {
	depth := o.Depth
	if o.Focal == "" {
		depth = 0
	}
	return cache.DOTKeyOpts{
		Focal:       o.Focal,
		Depth:       depth,
		BottomToTop: o.BottomToTop,
		WrapWidth:   o.WrapWidth,
	}
}

// Result holds the outputs of one run.
type Result struct {
	Subgraph  *subgraph.Subgraph
	DOT       string
	GraphHash string
	// Artifacts are keyed by format.
	Artifacts map[string][]byte
	// Titles maps every emitted node id to its display title.
	Titles    map[string]string
	Stats     Stats
	CacheInfo CacheInfo
}

// Stats contains run statistics.
type Stats struct {
	NodeCount   int
	EdgeCount   int
	ExtractTime time.Duration
	RenderTime  time.Duration
}

// CacheInfo records which outputs came from the cache.
type CacheInfo struct {
	DOTHit       bool
	ArtifactHits []string // formats served from the cache
}
