package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"mutate.dev/pkg/mutate/internal/domain"
)

const (
	projectFlagName = "project"
	mutatorFlagName = "mutator"
	spillFlagName   = "spill-dir"
)

var errMissingProject = errors.New("--project is required")

func newGenerateCmd() *cobra.Command {
	var (
		projectID  int64
		mutatorIDs []string
		spillDir   string
	)

	cmd := &cobra.Command{
		Use:   "generate --project ID [--mutator id]... FILE...",
		Short: "Generate patches for source files",
		Long: `Run the selected mutators (all of them by default) over every line of the
given files and store one incomplete patch per mutant. Files must live inside
the project's workdir.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if projectID == 0 {
				return errMissingProject
			}

			workflow, closeFn, err := openWorkflow(cmd, nil)
			if err != nil {
				return err
			}
			defer closeFn()

			_, err = workflow.Generate(cmd.Context(), domain.GenerateArgs{
				ProjectID:  projectID,
				Files:      parsePaths(args),
				MutatorIDs: mutatorIDs,
				SpillDir:   spillDir,
			})

			return err
		},
	}

	cmd.Flags().Int64VarP(&projectID, projectFlagName, "p", 0, "id of the project the files belong to")
	cmd.Flags().StringArrayVarP(&mutatorIDs, mutatorFlagName, "m", nil, "mutator id to apply (can be repeated, default all)")
	cmd.Flags().StringVar(&spillDir, spillFlagName, "", "directory for the temporary patch spill file (default system temp dir)")

	return cmd
}

// generateCmd represents the generate command.
var generateCmd = newGenerateCmd()

func init() {
	rootCmd.AddCommand(generateCmd)
}
