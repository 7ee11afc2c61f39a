package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"mutate.dev/pkg/mutate/internal/adapter"
	"mutate.dev/pkg/mutate/internal/domain"
)

const metricsShutdownTimeout = 5 * time.Second

const runLongDescription = `Evaluate every incomplete patch in the database.

Each patch is applied to a private copy of its project, then the project's
build, quickcheck and test commands run in order. A failing step kills the
mutant; a mutant that passes every step survives. The original files are never
touched in parallel mode. Interrupting (q, Ctrl+C or SIGTERM) stops handing out
new patches and lets in-flight ones finish.`

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evaluate pending patches",
		Long:  runLongDescription,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			metrics := adapter.NewMetrics()

			workflow, closeFn, err := openWorkflow(cmd, metrics)
			if err != nil {
				return err
			}
			defer closeFn()

			if addr := viper.GetString(metricsAddrKey); addr != "" {
				shutdown := serveMetrics(addr, metrics)
				defer shutdown()
			}

			return workflow.Run(ctx, domain.RunArgs{
				Sequential: viper.GetBool(runSequentialKey),
				Workers:    viper.GetInt(runParallelConfigKey),
			})
		},
	}

	cmd.Flags().IntP(runParallelFlagName, "p", viper.GetInt(runParallelConfigKey), "number of patches evaluated concurrently")
	bindFlagToConfig(cmd.Flags().Lookup(runParallelFlagName), runParallelConfigKey)

	cmd.Flags().Bool(sequentialFlagName, viper.GetBool(runSequentialKey), "evaluate patches one at a time directly in the project workdir")
	bindFlagToConfig(cmd.Flags().Lookup(sequentialFlagName), runSequentialKey)

	cmd.Flags().String(metricsAddrFlagName, viper.GetString(metricsAddrKey), "serve Prometheus metrics on this address while running")
	bindFlagToConfig(cmd.Flags().Lookup(metricsAddrFlagName), metricsAddrKey)

	return cmd
}

// serveMetrics exposes metrics on addr and returns a function that stops the server.
func serveMetrics(addr string, metrics *adapter.Metrics) func() {
	server := adapter.NewMetricsServer(addr, metrics)

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server failed", "addr", addr, "error", err)
		}
	}()

	slog.Info("Serving metrics", "addr", addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Failed to stop metrics server", "addr", addr, "error", err)
		}
	}
}

// runCmd represents the run command.
var runCmd = newRunCmd()

func init() {
	rootCmd.AddCommand(runCmd)
}
