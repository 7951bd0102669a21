package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/sarchlab/skidbuffer/harness"
	"github.com/spf13/cobra"
)

func newScenariosCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "scenarios",
		Short: "List the scenarios that can be run.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)

			for _, name := range harness.ScenarioNames() {
				s, err := harness.ScenarioByName(name)
				if err != nil {
					return err
				}

				fmt.Fprintf(tw, "%s\t%d cycles\t%s\n",
					name, s.Len(), s.Description)
			}

			return tw.Flush()
		},
	}
}
