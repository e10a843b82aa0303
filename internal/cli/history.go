package cli

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/netcrawl/netcrawl/internal/daemon"
	"github.com/netcrawl/netcrawl/internal/domain"
	"github.com/netcrawl/netcrawl/internal/infra/sqlite"
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of cycles to show")
	rootCmd.AddCommand(historyCmd)
}

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent resolution cycles from the journal",
	RunE:  runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := daemon.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if cfg.Journal.Dir == "" {
		return fmt.Errorf("%w: journal.dir is not set", domain.ErrInvalidConfig)
	}

	db, err := sqlite.Open(cfg.Journal.Dir)
	if err != nil {
		return err
	}
	defer db.Close()

	cycles, err := db.RecentCycles(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}
	if len(cycles) == 0 {
		fmt.Println("No cycles recorded yet.")
		return nil
	}
	return printCycles(os.Stdout, cycles)
}

func printCycles(out io.Writer, cycles []domain.CycleSummary) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FINISHED\tTOKEN\tADDRESSES\tGEOIP\tCANDIDATES\tHOSTNAMES\tABANDONED\tELAPSED")
	for _, c := range cycles {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%s\n",
			c.FinishedAt.Format("2006-01-02 15:04:05"),
			c.Token,
			c.Addresses,
			c.GeoIPResolved,
			c.HostnameCandidates,
			c.HostnamesResolved,
			c.Abandoned,
			c.Elapsed.Round(time.Millisecond),
		)
	}
	return w.Flush()
}
