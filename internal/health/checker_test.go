package health

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/netcrawl/netcrawl/internal/infra/metrics"
	"github.com/netcrawl/netcrawl/internal/infra/redisstore"
	"github.com/netcrawl/netcrawl/internal/infra/sqlite"
)

func okCheck(name string) Check {
	return Check{Name: name, CheckFn: func(ctx context.Context) error { return nil }}
}

func failCheck(name string) Check {
	return Check{Name: name, CheckFn: func(ctx context.Context) error { return errors.New("down") }}
}

// ─── Checker Tests ──────────────────────────────────────────────────────────

func TestChecker_RunOnceHealthy(t *testing.T) {
	c := NewChecker(nil, okCheck("a"), okCheck("b"))
	c.RunOnce(context.Background())

	statuses := c.Statuses()
	if len(statuses) != 2 {
		t.Fatalf("Statuses() = %d, want 2", len(statuses))
	}
	for _, s := range statuses {
		if !s.Healthy {
			t.Errorf("check %q should be healthy, got error: %s", s.Name, s.Error)
		}
		if s.CheckedAt.IsZero() {
			t.Errorf("check %q has zero CheckedAt", s.Name)
		}
	}
	if !c.IsHealthy() {
		t.Error("IsHealthy() should be true when all checks pass")
	}
}

func TestChecker_IsHealthy_BeforeRun(t *testing.T) {
	c := NewChecker(nil, failCheck("x"))

	// No statuses yet, so vacuously healthy.
	if !c.IsHealthy() {
		t.Error("IsHealthy() should be true before first run")
	}
}

func TestChecker_FailingCheck(t *testing.T) {
	c := NewChecker(nil, okCheck("ok"), failCheck("flaky"))
	c.RunOnce(context.Background())

	if c.IsHealthy() {
		t.Error("IsHealthy() should be false with a failing check")
	}
	s := c.Statuses()[1]
	if s.Healthy || s.Error != "down" {
		t.Errorf("status = %+v, want unhealthy with error down", s)
	}
	if got := testutil.ToFloat64(metrics.HealthCheckStatus.WithLabelValues("flaky")); got != 0 {
		t.Errorf("health gauge for flaky = %v, want 0", got)
	}
	if got := testutil.ToFloat64(metrics.HealthCheckStatus.WithLabelValues("ok")); got != 1 {
		t.Errorf("health gauge for ok = %v, want 1", got)
	}
}

func TestChecker_StatusesIsCopy(t *testing.T) {
	c := NewChecker(nil, okCheck("a"))
	c.RunOnce(context.Background())

	s := c.Statuses()
	s[0].Healthy = false
	if !c.Statuses()[0].Healthy {
		t.Error("Statuses() returned internal slice")
	}
}

func TestChecker_RunStopsOnCancel(t *testing.T) {
	var runs atomic.Int32
	c := NewChecker(nil, Check{Name: "count", CheckFn: func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}})
	c.SetInterval(10 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(5 * time.Second)
	for runs.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if runs.Load() < 3 {
		t.Errorf("runs = %d, want >= 3", runs.Load())
	}
}

// ─── Check Implementations ──────────────────────────────────────────────────

func TestRedisCheck(t *testing.T) {
	mr := miniredis.RunT(t)
	store, err := redisstore.Open(context.Background(), redisstore.Options{Address: mr.Addr()}, nil)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	check := RedisCheck(store)
	if err := check.CheckFn(context.Background()); err != nil {
		t.Errorf("redis check: %v", err)
	}

	mr.Close()
	if err := check.CheckFn(context.Background()); err == nil {
		t.Error("redis check should fail once the server is gone")
	}
}

func TestJournalCheck(t *testing.T) {
	db, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	check := JournalCheck(db.Ping)
	if err := check.CheckFn(context.Background()); err != nil {
		t.Errorf("journal check: %v", err)
	}

	db.Close()
	if err := check.CheckFn(context.Background()); err == nil {
		t.Error("journal check should fail on a closed database")
	}
}

func TestFilesCheck(t *testing.T) {
	dir := t.TempDir()
	city := filepath.Join(dir, "GeoLite2-City.mmdb")
	asn := filepath.Join(dir, "GeoLite2-ASN.mmdb")
	if err := os.WriteFile(city, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		paths   []string
		wantErr bool
	}{
		{"present", []string{city}, false},
		{"missing", []string{city, asn}, true},
		{"directory", []string{dir}, true},
		{"none", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := FilesCheck("geoip", tt.paths...).CheckFn(context.Background())
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
