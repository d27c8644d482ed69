package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/knowmap/pkg/pipeline"
)

// pickCommand lets the user choose a focal node interactively and renders it.
func (c *CLI) pickCommand() *cobra.Command {
	var flags renderFlags

	cmd := &cobra.Command{
		Use:   "pick [file]",
		Short: "Pick a focal node interactively, then render it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			final, err := tea.NewProgram(NewNodePickerModel(ws.Current().Graph), tea.WithContext(ctx)).Run()
			if err != nil {
				return fmt.Errorf("node picker: %w", err)
			}
			picked := final.(NodePickerModel).Selected
			if picked == nil {
				printInfo("No node selected")
				return nil
			}

			flags.node = picked.ID
			opts := flags.options(cmd, c.defaultOptions())
			if err := opts.Validate(); err != nil {
				return err
			}
			if err := c.runRender(ctx, cmd.OutOrStdout(), pipeline.NewRunner(backend, nil, c.Logger), ws, opts, flags.output); err != nil {
				return err
			}
			printNewline()
			printNextStep("Render again", fmt.Sprintf("%s render %s--node %s", appName, argPrefix(args), picked.ID))
			return nil
		},
	}

	flags.register(cmd, false)
	return cmd
}

func argPrefix(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0] + " "
}
