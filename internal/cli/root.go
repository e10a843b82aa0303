// Package cli implements the netcrawl command-line interface using Cobra.
// Each subcommand runs one pipeline stage or inspects its state.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/netcrawl/netcrawl/internal/daemon"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "netcrawl",
	Short: "netcrawl: network crawler pipeline stages",
	Long: `netcrawl runs the post-crawl stages of the network crawler pipeline.

resolve annotates reachable nodes with hostnames and GeoIP/ASN data,
export writes per-snapshot JSON documents, and api serves node maps.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "netcrawl.toml", "path to the TOML config file")
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

// runDaemon loads config, connects, and runs fn until a signal arrives.
func runDaemon(cmd *cobra.Command, fn func(context.Context, *daemon.Daemon) error) error {
	cfg, err := daemon.LoadConfig(configPath)
	if err != nil {
		return err
	}
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	d, err := daemon.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer d.Close()
	return fn(ctx, d)
}
