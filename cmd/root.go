// Package cmd provides the root command and CLI setup for mutate.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"mutate.dev/pkg/mutate/internal/adapter"
	"mutate.dev/pkg/mutate/internal/controller"
	"mutate.dev/pkg/mutate/internal/domain"
	m "mutate.dev/pkg/mutate/internal/model"
)

// dbPathFlag is a root-level flag naming the SQLite database shared by all commands.
var dbPathFlag string

var verboseFlag bool

var logFileFlag string

// openWorkflow builds the workflow a command runs against and returns a
// function releasing its resources. metrics may be nil.
var openWorkflow = defaultOpenWorkflow

const rootLongDescription = `mutate is a line-oriented mutation testing tool for compiled projects.

It stores projects and generated patches in a local SQLite database, applies
each patch to an isolated copy of the project, runs the configured build,
quickcheck and test commands, and reports which mutants survived.

Typical session:
  mutate project add -f project.yaml
  mutate generate --project 1 src/*.c
  mutate run --parallel 4
  mutate status`

// rootCmd represents the base command when called without any subcommands.
var rootCmd = newRootCmd()

func baseRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "mutate",
		Short:        "Mutation testing for compiled projects",
		Long:         rootLongDescription,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			configureLogger(viper.GetString(logFilenameKey), viper.GetBool(logVerboseKey))
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
}

func newRootCmd() *cobra.Command {
	cmd := baseRootCmd()
	configureRootFlags(cmd)

	return cmd
}

func configureRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&dbPathFlag, dbFlagName, viper.GetString(dbPathKey), "path of the SQLite database")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(dbFlagName), dbPathKey)

	cmd.PersistentFlags().BoolVarP(&verboseFlag, verboseFlagName, "v", viper.GetBool(logVerboseKey), "log at debug level")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(verboseFlagName), logVerboseKey)

	cmd.PersistentFlags().StringVar(&logFileFlag, logFileFlagName, viper.GetString(logFilenameKey), "log file path")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(logFileFlagName), logFilenameKey)
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

func defaultOpenWorkflow(cmd *cobra.Command, metrics *adapter.Metrics) (domain.Workflow, func(), error) {
	dbPath := viper.GetString(dbPathKey)

	store, err := adapter.OpenSQLiteStore(cmd.Context(), dbPath)
	if err != nil {
		slog.Error("Failed to open store", "path", dbPath, "error", err)
		return nil, nil, fmt.Errorf("failed to open store %s: %w", dbPath, err)
	}

	fsAdapter := adapter.NewLocalSourceFSAdapter()
	runner := adapter.NewLocalCommandRunner()
	patchTool := adapter.NewExternalPatchTool(runner, viper.GetString(patchBinaryKey))
	ui := controller.NewUI(cmd, controller.IsTTY(cmd.OutOrStdout()))

	workflow := domain.NewWorkflow(
		store,
		fsAdapter,
		ui,
		domain.NewMutantGenerator(fsAdapter),
		domain.NewPatchEvaluator(runner, patchTool, fsAdapter, metrics),
		metrics,
	)

	closeFn := func() {
		if err := store.Close(); err != nil {
			slog.Error("Failed to close store", "path", dbPath, "error", err)
		}
	}

	return workflow, closeFn, nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func parsePaths(args []string) []m.Path {
	paths := make([]m.Path, 0, len(args))
	for _, arg := range args {
		paths = append(paths, m.Path(arg))
	}

	return paths
}
