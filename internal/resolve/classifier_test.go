package resolve

import (
	"testing"
	"time"

	"github.com/netcrawl/netcrawl/internal/domain"
)

func TestClassifier_NeedsHostname(t *testing.T) {
	cls := Classifier{TTL: 1000 * time.Second, Max: 1000}

	tests := []struct {
		name      string
		addr      domain.Address
		remaining time.Duration
		selected  int
		want      bool
	}{
		{"missing record", "203.0.113.5", -2, 0, true},
		{"no expiry", "203.0.113.5", -1, 0, true},
		{"zero", "203.0.113.5", 0, 0, true},
		{"just below threshold", "203.0.113.5", 99 * time.Second, 0, true},
		{"at threshold", "203.0.113.5", 100 * time.Second, 0, false},
		{"fresh", "203.0.113.5", 900 * time.Second, 0, false},
		{"onion", "xyz1234567890abcd.onion", 0, 0, false},
		{"cap reached", "203.0.113.5", 0, 1000, false},
		{"last slot", "203.0.113.5", 0, 999, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cls.NeedsHostname(tt.addr, tt.remaining, tt.selected)
			if got != tt.want {
				t.Errorf("NeedsHostname(%q, %v, %d) = %v, want %v", tt.addr, tt.remaining, tt.selected, got, tt.want)
			}
		})
	}
}

func TestConfig_Defaults(t *testing.T) {
	cfg := Config{TTL: time.Hour}.withDefaults()
	if cfg.HostnameDeadline != 15*time.Second {
		t.Errorf("HostnameDeadline = %v, want 15s", cfg.HostnameDeadline)
	}
	if cfg.MaxHostnames != 1000 {
		t.Errorf("MaxHostnames = %d, want 1000", cfg.MaxHostnames)
	}
}
