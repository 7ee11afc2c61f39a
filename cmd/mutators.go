package cmd

import (
	"github.com/spf13/cobra"
)

func newMutatorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mutators",
		Short: "List the available mutators",
		Long:  "List every mutator id with its tags and a short description. Ids are accepted by generate --mutator.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			workflow, closeFn, err := openWorkflow(cmd, nil)
			if err != nil {
				return err
			}
			defer closeFn()

			return workflow.ListMutators(cmd.Context())
		},
	}
}

// mutatorsCmd represents the mutators command.
var mutatorsCmd = newMutatorsCmd()

func init() {
	rootCmd.AddCommand(mutatorsCmd)
}
