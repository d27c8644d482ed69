// Package cli implements the knowmap command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/knowmap/pkg/buildinfo"
	"github.com/matzehuels/knowmap/pkg/cache"
	"github.com/matzehuels/knowmap/pkg/config"
	errs "github.com/matzehuels/knowmap/pkg/errors"
	"github.com/matzehuels/knowmap/pkg/httputil"
	"github.com/matzehuels/knowmap/pkg/pipeline"
	"github.com/matzehuels/knowmap/pkg/source"
	"github.com/matzehuels/knowmap/pkg/source/content"
	"github.com/matzehuels/knowmap/pkg/source/mongo"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the binary name used in help text and suggested commands.
const appName = "knowmap"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands. Config is loaded by the root
// command before any subcommand runs.
type CLI struct {
	Logger *log.Logger
	Config *config.Config

	configPath string
	verbose    bool
}

// New creates a CLI that logs to w at level. Config starts at the built-in
// defaults.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: config.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "knowmap renders readable neighbourhoods of a knowledge map",
		Long: `knowmap loads a directed knowledge-dependency graph (topics linked by
"requires" edges) and renders the minimal-depth subgraph around a focal
topic as Graphviz DOT, SVG, PNG or JSON.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if c.verbose {
				c.SetLogLevel(LogDebug)
			}
			cfg, err := config.Load(c.configPath)
			if err != nil {
				return err
			}
			c.Config = cfg
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: $XDG_CONFIG_HOME/knowmap/config.toml)")

	root.AddCommand(c.renderCommand())
	root.AddCommand(c.ancestorsCommand())
	root.AddCommand(c.nodesCommand())
	root.AddCommand(c.pickCommand())
	root.AddCommand(c.fetchCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.validateCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Cache
// =============================================================================

// openCache opens the configured backend. An unusable file cache degrades
// to no caching; other backends fail loudly.
func (c *CLI) openCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	opts := c.Config.CacheOptions()
	backend, err := cache.Open(ctx, opts)
	if err != nil {
		if opts.Backend == cache.BackendFile || opts.Backend == "" {
			c.Logger.Warn("file cache unavailable, continuing without cache", "err", err)
			return cache.NewNullCache(), nil
		}
		return nil, fmt.Errorf("open %s cache: %w", opts.Backend, err)
	}
	return backend, nil
}

// =============================================================================
// Graph Sources
// =============================================================================

// openSource resolves where the graph comes from: an explicit file argument
// wins, then the configured source. kind overrides the configured kind when
// non-empty. The returned close function is never nil.
func (c *CLI) openSource(ctx context.Context, path, kind string, backend cache.Cache) (source.Source, func(), error) {
	noop := func() {}
	if path != "" {
		return source.File{Path: path}, noop, nil
	}

	cfg := c.Config.Source
	if kind == "" {
		kind = cfg.Kind
	}
	switch kind {
	case config.SourceContent:
		if cfg.ContentURL == "" {
			return nil, noop, errs.New(errs.ErrCodeInvalidConfig, "source.content_url is not configured")
		}
		client, err := content.NewClient(cfg.ContentURL,
			content.WithCache(httputil.NewCache(backend, nil, c.Config.Cache.TTL)))
		if err != nil {
			return nil, noop, err
		}
		return client, noop, nil
	case config.SourceMongo:
		if cfg.MongoURI == "" {
			return nil, noop, errs.New(errs.ErrCodeInvalidConfig, "source.mongo_uri is not configured")
		}
		m, err := mongo.Open(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection)
		if err != nil {
			return nil, noop, err
		}
		return m, func() { _ = m.Close(context.Background()) }, nil
	case config.SourceFile, "":
		if cfg.Path == "" {
			return nil, noop, errs.New(errs.ErrCodeInvalidInput, "no graph file given and source.path is not configured")
		}
		return source.File{Path: cfg.Path}, noop, nil
	}
	return nil, noop, errs.New(errs.ErrCodeInvalidInput, "unknown source %q (want file, content or mongo)", kind)
}

// loadWorkspace loads the whole graph from the file argument (if any) or
// the configured source.
func (c *CLI) loadWorkspace(ctx context.Context, args []string, backend cache.Cache) (*pipeline.Workspace, error) {
	src, closeSrc, err := c.openSource(ctx, fileArg(args), "", backend)
	if err != nil {
		return nil, err
	}
	defer closeSrc()

	prog := newProgress(c.Logger)
	ws := pipeline.NewWorkspace(nil)
	n, err := ws.Reload(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("load graph from %s: %w", src.Name(), err)
	}
	prog.done(fmt.Sprintf("Loaded %d nodes from %s", n, src.Name()))
	return ws, nil
}

func fileArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}

// =============================================================================
// Options Helpers
// =============================================================================

// defaultOptions returns pipeline options seeded from the [graph] config.
func (c *CLI) defaultOptions() pipeline.Options {
	opts := pipeline.DefaultOptions()
	opts.Depth = c.Config.Graph.Depth
	opts.BottomToTop = c.Config.Graph.BottomToTop
	opts.WrapWidth = c.Config.Graph.WrapWidth
	return opts
}

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{pipeline.FormatDOT}
	}
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
			out = append(out, f)
		}
	}
	return out
}
