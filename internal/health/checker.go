// Package health runs periodic dependency checks for the long-running
// commands and exposes the latest results to the API.
package health

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/netcrawl/netcrawl/internal/infra/metrics"
)

// DefaultInterval is the pause between check rounds.
const DefaultInterval = 30 * time.Second

// Check defines a single health check.
type Check struct {
	Name    string
	CheckFn func(ctx context.Context) error
}

// Status represents the result of a health check.
type Status struct {
	Name      string    `json:"name"`
	Healthy   bool      `json:"healthy"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Checker runs periodic health checks.
type Checker struct {
	mu       sync.RWMutex
	checks   []Check
	statuses []Status
	interval time.Duration
	log      *zap.Logger
}

// NewChecker creates a checker over the given checks.
func NewChecker(log *zap.Logger, checks ...Check) *Checker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Checker{interval: DefaultInterval, checks: checks, log: log}
}

// SetInterval overrides DefaultInterval.
func (c *Checker) SetInterval(d time.Duration) {
	if d > 0 {
		c.interval = d
	}
}

// Run starts the health check loop. Call in a goroutine.
func (c *Checker) Run(ctx context.Context) {
	c.RunOnce(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.RunOnce(ctx)
		}
	}
}

// RunOnce runs every check once and stores the results.
func (c *Checker) RunOnce(ctx context.Context) {
	statuses := make([]Status, len(c.checks))
	for i, check := range c.checks {
		s := Status{
			Name:      check.Name,
			CheckedAt: time.Now(),
		}
		if err := check.CheckFn(ctx); err != nil {
			s.Error = err.Error()
			c.log.Warn("health check failed", zap.String("check", check.Name), zap.Error(err))
		} else {
			s.Healthy = true
		}
		statuses[i] = s

		v := 0.0
		if s.Healthy {
			v = 1
		}
		metrics.HealthCheckStatus.WithLabelValues(check.Name).Set(v)
	}

	c.mu.Lock()
	c.statuses = statuses
	c.mu.Unlock()
}

// Statuses returns the latest health check results.
func (c *Checker) Statuses() []Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]Status, len(c.statuses))
	copy(result, c.statuses)
	return result
}

// IsHealthy returns true if all checks pass.
func (c *Checker) IsHealthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.statuses {
		if !s.Healthy {
			return false
		}
	}
	return true
}

// ─── Check Implementations ──────────────────────────────────────────────────

// Pinger is anything with a context-aware liveness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RedisCheck pings the cache store.
func RedisCheck(p Pinger) Check {
	return Check{Name: "redis", CheckFn: p.Ping}
}

// JournalCheck pings the cycle journal.
func JournalCheck(ping func() error) Check {
	return Check{
		Name:    "journal",
		CheckFn: func(ctx context.Context) error { return ping() },
	}
}

// FilesCheck verifies that every path exists and is a regular file.
func FilesCheck(name string, paths ...string) Check {
	return Check{
		Name: name,
		CheckFn: func(ctx context.Context) error {
			for _, p := range paths {
				if err := checkFile(p); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func checkFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("check %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return nil
}
