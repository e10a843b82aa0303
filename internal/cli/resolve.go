package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/netcrawl/netcrawl/internal/daemon"
)

func init() {
	resolveCmd.Flags().StringVar(&resolveMetrics, "metrics-listen", "", "serve /metrics on this address (overrides config)")
	rootCmd.AddCommand(resolveCmd)
}

var resolveMetrics string

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Annotate reachable nodes with hostnames and GeoIP data",
	Long: `Wait for snapshot tokens, resolve every reachable address, commit the
results in one batch, and republish the token on the resolve channel.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDaemon(cmd, func(ctx context.Context, d *daemon.Daemon) error {
			if resolveMetrics != "" {
				d.Config.Resolve.MetricsListen = resolveMetrics
			}
			return d.RunResolve(ctx)
		})
	},
}
