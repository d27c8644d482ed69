package cli

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/knowmap/pkg/cache"
	"github.com/matzehuels/knowmap/pkg/kgraph"
)

// ancestorsCommand prints a node's ancestor set and unique dependencies.
func (c *CLI) ancestorsCommand() *cobra.Command {
	var node string

	cmd := &cobra.Command{
		Use:   "ancestors [file] --node id",
		Short: "Show everything a node transitively depends on",
		Long: `Show a node's full ancestor set (every transitive prerequisite) and its
unique dependencies: the direct prerequisites that are not already implied
by another direct prerequisite.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := c.loadWorkspace(cmd.Context(), args, cache.NewNullCache())
			if err != nil {
				return err
			}
			info, err := ws.Current().Inspect(node)
			if err != nil {
				return err
			}

			fmt.Println(StyleTitle.Render(info.Node.DisplayTitle()) + " " + StyleDim.Render("("+info.Node.ID+")"))
			printKeyValue("dependencies", idList(info.Node.DependencyIDs()))
			printKeyValue("unique dependencies", idList(info.UniqueDependencies))
			printKeyValue("dependents", idList(info.Dependents))
			printKeyValue("ancestors", strconv.Itoa(len(info.Ancestors)))
			for _, id := range info.Ancestors {
				printDetail("%s", id)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&node, "node", "n", "", "node id")
	_ = cmd.MarkFlagRequired("node")
	_ = cmd.RegisterFlagCompletionFunc("node", c.completeNodeIDs)
	return cmd
}

// nodesCommand lists every node as a table.
func (c *CLI) nodesCommand() *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "nodes [file]",
		Short: "List nodes with their titles and dependency counts",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := c.loadWorkspace(cmd.Context(), args, cache.NewNullCache())
			if err != nil {
				return err
			}
			g := ws.Current().Graph
			nodes := filterNodes(g.Nodes(), filter)
			rows := make([][]string, len(nodes))
			for i, n := range nodes {
				rows[i] = []string{
					n.ID,
					n.DisplayTitle(),
					strconv.Itoa(len(n.DependencyIDs())),
					strconv.Itoa(len(g.Dependents(n.ID))),
				}
			}
			renderTable(cmd.OutOrStdout(), []string{"ID", "Title", "Requires", "Required by"}, rows)
			printDetail("%d of %d nodes", len(nodes), g.NodeCount())
			return nil
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "", "only show nodes whose id or title contains this text")
	return cmd
}

// filterNodes keeps nodes matching query (case-insensitive, id or title)
// and sorts them by id.
func filterNodes(nodes []*kgraph.Node, query string) []*kgraph.Node {
	query = strings.ToLower(query)
	out := make([]*kgraph.Node, 0, len(nodes))
	for _, n := range nodes {
		if query == "" ||
			strings.Contains(strings.ToLower(n.ID), query) ||
			strings.Contains(strings.ToLower(n.DisplayTitle()), query) {
			out = append(out, n)
		}
	}
	slices.SortFunc(out, func(a, b *kgraph.Node) int { return strings.Compare(a.ID, b.ID) })
	return out
}

// validateCommand checks for dangling dependencies and cycles.
func (c *CLI) validateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Check a graph for unknown dependencies and cycles",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := c.loadWorkspace(cmd.Context(), args, cache.NewNullCache())
			if err != nil {
				return err
			}
			store := ws.Store()
			if err := store.Validate(); err != nil {
				printError("Graph is invalid")
				return err
			}
			printSuccess("Graph is valid")
			printDetail("%d nodes, %d edges", store.NodeCount(), ws.Current().Graph.EdgeCount())
			return nil
		},
	}
}
