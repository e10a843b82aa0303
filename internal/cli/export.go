package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/netcrawl/netcrawl/internal/daemon"
)

func init() {
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write per-snapshot node and aggregate JSON files",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDaemon(cmd, func(ctx context.Context, d *daemon.Daemon) error {
			return d.RunExport(ctx)
		})
	},
}
