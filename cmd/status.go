package cmd

import (
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	var projectID int64

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show patch states and the mutation score",
		Long:  "Tally patches by state for one project, or for every project when --project is omitted, and print the mutation score.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			workflow, closeFn, err := openWorkflow(cmd, nil)
			if err != nil {
				return err
			}
			defer closeFn()

			return workflow.Status(cmd.Context(), projectID)
		},
	}

	cmd.Flags().Int64VarP(&projectID, projectFlagName, "p", 0, "restrict the tally to one project")

	return cmd
}

// statusCmd represents the status command.
var statusCmd = newStatusCmd()

func init() {
	rootCmd.AddCommand(statusCmd)
}
