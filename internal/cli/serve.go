package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/knowmap/internal/server"
	"github.com/matzehuels/knowmap/pkg/cache"
	"github.com/matzehuels/knowmap/pkg/observability/prom"
	"github.com/matzehuels/knowmap/pkg/pipeline"
)

// serveCommand starts the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve [file]",
		Short: "Serve the graph over HTTP",
		Long: `Serve the graph over HTTP until interrupted.

Endpoints:
  GET  /healthz
  GET  /nodes
  GET  /nodes/{id}
  GET  /graph.{dot,svg,png,json}
  GET  /nodes/{id}/graph.{dot,svg,png,json}?depth=&top_down=&wrap=
  POST /reload
  GET  /metrics

POST /reload re-reads the graph from the same file or configured source.
The server uses the configured cache backend; "memory" keeps rendered
graphs in an in-process LRU.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if !cmd.Flags().Changed("addr") {
				addr = c.Config.Server.Addr
			}

			backend, err := c.openCache(ctx, noCache)
			if err != nil {
				return err
			}
			defer backend.Close()

			src, closeSrc, err := c.openSource(ctx, fileArg(args), "", backend)
			if err != nil {
				return err
			}
			defer closeSrc()

			metrics := prom.New()
			metrics.Register()

			ws := pipeline.NewWorkspace(nil)
			prog := newProgress(c.Logger)
			n, err := ws.Reload(ctx, src)
			if err != nil {
				return err
			}
			prog.done("Loaded graph")

			logger := loggerFromContext(ctx)
			srv := server.New(server.Config{
				Workspace: ws,
				Runner:    pipeline.NewRunner(backend, cache.NewScopedKeyer(nil, "server:"), logger),
				Source:    src,
				Defaults:  c.defaultOptions(),
				Metrics:   metrics,
				Logger:    logger,
			})

			printSuccess("Serving %d nodes from %s on %s", n, src.Name(), StyleHighlight.Render(addr))
			return srv.ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address (default from config)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	return cmd
}
