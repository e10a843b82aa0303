package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/netcrawl/netcrawl/internal/daemon"
)

func init() {
	apiCmd.Flags().StringVar(&apiHost, "host", "", "Host to listen on (overrides config)")
	apiCmd.Flags().IntVar(&apiPort, "port", 0, "Port to listen on (overrides config)")
	rootCmd.AddCommand(apiCmd)
}

var (
	apiHost string
	apiPort int
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Serve the read-only node map API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDaemon(cmd, func(ctx context.Context, d *daemon.Daemon) error {
			if apiHost != "" {
				d.Config.API.Host = apiHost
			}
			if apiPort > 0 {
				d.Config.API.Port = apiPort
			}
			return d.ServeAPI(ctx)
		})
	},
}
