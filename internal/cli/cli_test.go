package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/netcrawl/netcrawl/internal/domain"
)

func TestRootCommands(t *testing.T) {
	want := map[string]bool{"resolve": false, "export": false, "api": false, "history": false, "config": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
	if rootCmd.PersistentFlags().Lookup("config") == nil {
		t.Error("--config flag missing")
	}
}

func TestPrintCycles(t *testing.T) {
	cycles := []domain.CycleSummary{{
		ID:                 "c1",
		Token:              1700000000,
		Addresses:          120,
		GeoIPResolved:      110,
		HostnameCandidates: 12,
		HostnamesResolved:  9,
		Abandoned:          1,
		Elapsed:            2345678 * time.Microsecond,
		FinishedAt:         time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
	}}

	var buf bytes.Buffer
	if err := printCycles(&buf, cycles); err != nil {
		t.Fatalf("printCycles() error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2:\n%s", len(lines), buf.String())
	}
	fields := strings.Fields(lines[1])
	if fields[2] != "1700000000" || fields[3] != "120" || fields[len(fields)-1] != "2.346s" {
		t.Errorf("row = %q", lines[1])
	}
}
