package cli

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/knowmap/pkg/config"
	"github.com/matzehuels/knowmap/pkg/io"
)

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for knowmap.

Bash:
  $ source <(knowmap completion bash)

Zsh:
  $ knowmap completion zsh > "${fpath[1]}/_knowmap"

Fish:
  $ knowmap completion fish | source

PowerShell:
  PS> knowmap completion powershell | Out-String | Invoke-Expression

Node ids complete after --node when the graph file is given as the first
argument or configured as source.path.`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(out, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
}

// completeNodeIDs offers node ids from the file argument or the configured
// file source. Completion never reaches the network.
func (c *CLI) completeNodeIDs(cmd *cobra.Command, args []string, toComplete string) ([]cobra.Completion, cobra.ShellCompDirective) {
	path := fileArg(args)
	if path == "" {
		cfg, err := config.Load(c.configPath)
		if err != nil || cfg.Source.Kind != config.SourceFile {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		path = cfg.Source.Path
	}
	if _, err := os.Stat(path); err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	store, err := io.Import(path)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	var out []cobra.Completion
	for _, n := range filterNodes(store.Nodes(), "") {
		if strings.HasPrefix(n.ID, toComplete) {
			out = append(out, cobra.CompletionWithDesc(n.ID, n.DisplayTitle()))
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}
