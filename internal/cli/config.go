package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/netcrawl/netcrawl/internal/daemon"
)

func init() {
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the default configuration as TOML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return daemon.WriteConfig(os.Stdout, daemon.DefaultConfig())
	},
}
