package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"mutate.dev/pkg/mutate/internal/controller"
)

const formatFlagName = "format"

// viewCmd represents the view command.
var viewCmd = newViewCmd()

func newViewCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "view PATCH_ID",
		Short: "Show a patch with its recorded runs",
		Long:  "Show a patch's diff, state and every recorded step run, as a table or as YAML.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patchID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid patch id %q: %w", args[0], err)
			}

			patchFormat, err := controller.ParsePatchFormat(format)
			if err != nil {
				return err
			}

			workflow, closeFn, err := openWorkflow(cmd, nil)
			if err != nil {
				return err
			}
			defer closeFn()

			return workflow.View(cmd.Context(), patchID, patchFormat)
		},
	}

	cmd.Flags().StringVarP(&format, formatFlagName, "f", string(controller.FormatTable), "output format (table or yaml)")

	return cmd
}

func init() {
	rootCmd.AddCommand(viewCmd)
}
