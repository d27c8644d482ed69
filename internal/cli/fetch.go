package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	errs "github.com/matzehuels/knowmap/pkg/errors"
	"github.com/matzehuels/knowmap/pkg/io"
	"github.com/matzehuels/knowmap/pkg/source"
	"github.com/matzehuels/knowmap/pkg/source/content"
	"github.com/matzehuels/knowmap/pkg/source/mongo"
)

// fetchCommand pulls node records through a source and saves them.
func (c *CLI) fetchCommand() *cobra.Command {
	var (
		kind      string
		node      string
		output    string
		noCache   bool
		refresh   bool
		saveMongo bool
	)

	cmd := &cobra.Command{
		Use:   "fetch [file]",
		Short: "Download node records and save them as a graph file",
		Long: `Download node records from the content service or MongoDB and save them
as a graph document (.json, .yaml or .toml by extension of -o, JSON on
stdout without -o).

With --node only the records around that node are fetched. With
--save-mongo the records are also upserted into the configured MongoDB
collection, which makes "knowmap fetch map.yaml --save-mongo" a way to
seed it from a file.`,
		Example: `  knowmap fetch --source content -o map.json
  knowmap fetch --source mongo --node eigenvalues -o eigen.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			backend, err := c.openCache(ctx, noCache)
			if err != nil {
				return err
			}
			defer backend.Close()

			src, closeSrc, err := c.openSource(ctx, fileArg(args), kind, backend)
			if err != nil {
				return err
			}
			defer closeSrc()

			doc, err := c.fetch(ctx, src, node, refresh)
			if err != nil {
				return err
			}

			if saveMongo {
				if err := c.saveToMongo(ctx, doc); err != nil {
					return err
				}
			}

			if output == "" {
				return io.WriteDocument(doc, cmd.OutOrStdout(), io.FormatJSON)
			}
			if err := io.Export(doc, output); err != nil {
				return err
			}
			printSuccess("Fetched %d nodes from %s", len(doc.Nodes), src.Name())
			printFile(output)
			printNewline()
			if node != "" {
				printNextStep("Render", fmt.Sprintf("%s render %s --node %s", appName, output, node))
			} else {
				printNextStep("Render", fmt.Sprintf("%s render %s", appName, output))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&kind, "source", "s", "", "source: content, mongo or file (default from config)")
	cmd.Flags().StringVarP(&node, "node", "n", "", "fetch only the records around this node")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout as JSON)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the HTTP response cache")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass cached responses")
	cmd.Flags().BoolVar(&saveMongo, "save-mongo", false, "also upsert the records into the configured MongoDB collection")
	_ = cmd.RegisterFlagCompletionFunc("source", cobra.FixedCompletions([]string{"content", "mongo", "file"}, cobra.ShellCompDirectiveNoFileComp))
	return cmd
}

// fetch loads and validates one document.
func (c *CLI) fetch(ctx context.Context, src source.Source, node string, refresh bool) (*io.Document, error) {
	if node != "" {
		if err := errs.ValidateNodeID(node); err != nil {
			return nil, err
		}
	}

	spinner := newSpinner(ctx, fmt.Sprintf("Fetching from %s...", src.Name()))
	spinner.Start()
	prog := newProgress(c.Logger)

	var (
		doc *io.Document
		err error
	)
	if client, ok := src.(*content.Client); ok {
		doc, err = client.Fetch(ctx, node, refresh)
	} else {
		doc, err = src.Load(ctx, node)
	}
	if err != nil {
		spinner.StopWithError("Fetch failed")
		return nil, err
	}
	spinner.Stop()

	if _, err := io.Build(doc); err != nil {
		return nil, fmt.Errorf("fetched records are invalid: %w", err)
	}
	prog.done(fmt.Sprintf("Fetched %d nodes from %s", len(doc.Nodes), src.Name()))
	return doc, nil
}

func (c *CLI) saveToMongo(ctx context.Context, doc *io.Document) error {
	cfg := c.Config.Source
	if cfg.MongoURI == "" {
		return errs.New(errs.ErrCodeInvalidConfig, "--save-mongo needs source.mongo_uri in the config")
	}
	m, err := mongo.Open(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection)
	if err != nil {
		return err
	}
	defer m.Close(context.Background())

	n, err := m.Save(ctx, doc)
	if err != nil {
		return err
	}
	c.Logger.Info("saved records to mongo", "nodes", n)
	return nil
}
