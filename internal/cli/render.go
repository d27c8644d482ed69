package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/knowmap/pkg/pipeline"
)

// renderFlags are shared by render and pick.
type renderFlags struct {
	node    string
	depth   int
	topDown bool
	wrap    int
	formats string
	output  string
	noCache bool
	refresh bool
}

func (f *renderFlags) register(cmd *cobra.Command, withNode bool) {
	if withNode {
		cmd.Flags().StringVarP(&f.node, "node", "n", "", "focal node id (default: whole graph)")
	}
	cmd.Flags().IntVarP(&f.depth, "depth", "d", -1, "levels of unique dependencies to include (default from config)")
	cmd.Flags().BoolVar(&f.topDown, "top-down", false, "lay out top to bottom instead of bottom to top")
	cmd.Flags().IntVar(&f.wrap, "wrap", -1, "wrap labels at this many characters, 0 disables (default from config)")
	cmd.Flags().StringVarP(&f.formats, "format", "f", "", "output format(s): dot (default), svg, png, json (comma-separated)")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "output file (single format) or base path (multiple); - for stdout")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&f.refresh, "refresh", false, "ignore cached results and re-render")
}

// options overlays explicitly set flags on the configured defaults.
func (f *renderFlags) options(cmd *cobra.Command, defaults pipeline.Options) pipeline.Options {
	opts := defaults
	opts.Focal = f.node
	if cmd.Flags().Changed("depth") {
		opts.Depth = f.depth
	}
	if cmd.Flags().Changed("top-down") {
		opts.BottomToTop = !f.topDown
	}
	if cmd.Flags().Changed("wrap") {
		opts.WrapWidth = f.wrap
	}
	opts.Formats = parseFormats(f.formats)
	opts.Refresh = f.refresh
	return opts
}

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	var flags renderFlags

	cmd := &cobra.Command{
		Use:   "render [file]",
		Short: "Render a focal subgraph or the whole graph",
		Long: `Render the subgraph around a focal node, or the whole graph when --node
is omitted.

The subgraph holds the focal node and, level by level up to --depth, the
unique dependencies of every node already included: prerequisites that are
not already implied by another prerequisite.

The graph is read from [file] (.json, .yaml or .toml) or, without an
argument, from the source configured in config.toml.

Without -o, dot and json are written to stdout and svg/png to
<node>.<format> (graph.<format> for the whole graph).`,
		Example: `  knowmap render map.json --node eigenvalues
  knowmap render map.yaml -n pca --depth 2 -f svg,png -o pca
  knowmap render -f json -o - | jq .nodes`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := flags.options(cmd, c.defaultOptions())
			if err := opts.Validate(); err != nil {
				return err
			}
			ctx := cmd.Context()
			backend, err := c.openCache(ctx, flags.noCache)
			if err != nil {
				return err
			}
			defer backend.Close()

			ws, err := c.loadWorkspace(ctx, args, backend)
			if err != nil {
				return err
			}
			runner := pipeline.NewRunner(backend, nil, c.Logger)
			return c.runRender(ctx, cmd.OutOrStdout(), runner, ws, opts, flags.output)
		},
	}

	flags.register(cmd, true)
	_ = cmd.RegisterFlagCompletionFunc("node", c.completeNodeIDs)
	return cmd
}

// runRender executes opts and writes every artifact.
func (c *CLI) runRender(ctx context.Context, stdout io.Writer, runner *pipeline.Runner, ws *pipeline.Workspace, opts pipeline.Options, output string) error {
	spinner := newSpinner(ctx, "Rendering...")
	spinner.Start()
	res, err := runner.Execute(ctx, ws, opts)
	if err != nil {
		spinner.StopWithError("Render failed")
		return err
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	var written []string
	for _, format := range opts.Formats {
		path := outputPath(output, opts.Focal, format, len(opts.Formats) > 1)
		data := res.Artifacts[format]
		if path == "" {
			if _, err := stdout.Write(data); err != nil {
				return err
			}
			continue
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		written = append(written, path)
	}

	// Keep stdout clean when it carries the artifact.
	if len(written) == 0 {
		return nil
	}
	target := opts.Focal
	if target == "" {
		target = "whole graph"
	}
	printSuccess("Rendered %s", StyleHighlight.Render(target))
	for _, p := range written {
		printFile(p)
	}
	printStats(res.Stats.NodeCount, res.Stats.EdgeCount, res.CacheInfo.DOTHit)
	return nil
}

// outputPath decides where one format goes; "" means stdout.
func outputPath(output, focal, format string, multi bool) string {
	switch {
	case output == "-":
		return ""
	case output == "" && !multi && (format == pipeline.FormatDOT || format == pipeline.FormatJSON):
		return ""
	case output == "":
		base := focal
		if base == "" {
			base = "graph"
		}
		return base + "." + format
	case multi:
		return strings.TrimSuffix(output, filepath.Ext(output)) + "." + format
	}
	return output
}
