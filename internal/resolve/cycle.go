package resolve

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/netcrawl/netcrawl/internal/domain"
	"github.com/netcrawl/netcrawl/internal/infra/metrics"
)

// Config controls cycle policy. It is built once at startup.
type Config struct {
	// TTL is applied to a record whenever its hostname is written.
	TTL time.Duration

	// HostnameDeadline bounds the concurrent hostname phase.
	HostnameDeadline time.Duration

	// MaxHostnames caps hostname candidates per cycle.
	MaxHostnames int
}

func (c Config) withDefaults() Config {
	if c.HostnameDeadline <= 0 {
		c.HostnameDeadline = DefaultHostnameDeadline
	}
	if c.MaxHostnames <= 0 {
		c.MaxHostnames = DefaultMaxHostnames
	}
	return c
}

// Resolver holds the long-lived collaborators of resolution cycles. Each Run
// builds its own working state, so nothing carries over between cycles.
type Resolver struct {
	cfg   Config
	store domain.ResolveStore
	geo   domain.GeoLocator
	names domain.HostnameResolver
	log   *zap.Logger
}

// NewResolver creates a resolver.
func NewResolver(cfg Config, store domain.ResolveStore, geo domain.GeoLocator, names domain.HostnameResolver, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{
		cfg:   cfg.withDefaults(),
		store: store,
		geo:   geo,
		names: names,
		log:   log,
	}
}

// cycle is the working state of one Run. Never shared or reused.
type cycle struct {
	id         string
	addrs      []domain.Address
	geoip      map[domain.Address]domain.GeoIP
	candidates []domain.Address
	hostnames  map[domain.Address]string
	abandoned  int
}

// Run resolves addrs and commits the result. Store errors are returned and
// are fatal for the caller; lookup failures never are.
func (r *Resolver) Run(ctx context.Context, addrs []domain.Address) (domain.CycleSummary, error) {
	start := time.Now()
	c := &cycle{
		id:        uuid.NewString(),
		addrs:     dedupe(addrs),
		geoip:     make(map[domain.Address]domain.GeoIP, len(addrs)),
		hostnames: make(map[domain.Address]string),
	}
	log := r.log.With(zap.String("cycle", c.id))

	if err := r.classify(ctx, c); err != nil {
		return domain.CycleSummary{}, err
	}
	log.Info("classified", zap.Int("geoip", len(c.addrs)), zap.Int("hostname", len(c.candidates)))

	r.resolveGeoIP(c)
	r.resolveHostnames(ctx, c, log)
	if err := ctx.Err(); err != nil {
		return domain.CycleSummary{}, err
	}

	summary, err := r.commit(ctx, c)
	if err != nil {
		return domain.CycleSummary{}, err
	}
	summary.Elapsed = time.Since(start)
	summary.FinishedAt = time.Now()

	metrics.CyclesTotal.Inc()
	metrics.CycleDuration.Observe(summary.Elapsed.Seconds())
	metrics.CycleAddresses.Set(float64(summary.Addresses))
	metrics.HostnameCandidates.Set(float64(summary.HostnameCandidates))
	metrics.GeoIPResolved.Add(float64(summary.GeoIPResolved))

	log.Info("committed",
		zap.Int("geoip_resolved", summary.GeoIPResolved),
		zap.Int("hostnames_resolved", summary.HostnamesResolved),
		zap.Int("abandoned", summary.Abandoned),
		zap.Duration("elapsed", summary.Elapsed),
	)
	return summary, nil
}

func (r *Resolver) classify(ctx context.Context, c *cycle) error {
	ttls, err := r.store.RemainingTTL(ctx, c.addrs)
	if err != nil {
		return fmt.Errorf("classify: %w", err)
	}

	cls := Classifier{TTL: r.cfg.TTL, Max: r.cfg.MaxHostnames}
	for _, a := range c.addrs {
		if cls.NeedsHostname(a, ttls[a], len(c.candidates)) {
			c.candidates = append(c.candidates, a)
		}
	}
	return nil
}

// resolveGeoIP looks up every address in turn; the databases are local.
func (r *Resolver) resolveGeoIP(c *cycle) {
	for _, a := range c.addrs {
		c.geoip[a] = r.geo.Lookup(a)
	}
}

type hostnameResult struct {
	addr domain.Address
	name string
}

// resolveHostnames starts one lookup per candidate and collects results
// until all are in or the deadline passes. Lookups still running at the
// deadline are abandoned: they finish in the background and their result is
// dropped into the buffered channel nobody reads any more.
func (r *Resolver) resolveHostnames(ctx context.Context, c *cycle, log *zap.Logger) {
	n := len(c.candidates)
	if n == 0 {
		return
	}

	results := make(chan hostnameResult, n)
	for _, a := range c.candidates {
		go func(a domain.Address) {
			results <- hostnameResult{addr: a, name: r.names.Hostname(ctx, a)}
		}(a)
	}

	deadline := time.NewTimer(r.cfg.HostnameDeadline)
	defer deadline.Stop()

	for len(c.hostnames) < n {
		select {
		case res := <-results:
			c.hostnames[res.addr] = res.name
		case <-deadline.C:
			c.abandoned = n - len(c.hostnames)
			log.Info("hostname deadline reached",
				zap.Duration("deadline", r.cfg.HostnameDeadline),
				zap.Int("completed", len(c.hostnames)),
				zap.Int("abandoned", c.abandoned),
			)
			return
		case <-ctx.Done():
			return
		}
	}
}

// commit merges the cycle into one batch: geoip for every address, hostname
// (and with it a TTL reset) only for lookups that completed.
func (r *Resolver) commit(ctx context.Context, c *cycle) (domain.CycleSummary, error) {
	s := domain.CycleSummary{
		ID:                 c.id,
		Addresses:          len(c.addrs),
		HostnameCandidates: len(c.candidates),
		HostnamesCommitted: len(c.hostnames),
		Abandoned:          c.abandoned,
	}

	updates := make([]domain.Update, 0, len(c.addrs))
	for _, a := range c.addrs {
		g := c.geoip[a]
		if g.Resolved() {
			s.GeoIPResolved++
		}
		u := domain.Update{Address: a, GeoIP: &g}
		if name, ok := c.hostnames[a]; ok {
			u.Hostname = &name
			if name != string(a) {
				s.HostnamesResolved++
			}
		}
		updates = append(updates, u)
	}

	if err := r.store.Commit(ctx, updates, r.cfg.TTL); err != nil {
		return domain.CycleSummary{}, fmt.Errorf("commit: %w", err)
	}

	metrics.HostnameLookups.WithLabelValues("resolved").Add(float64(s.HostnamesResolved))
	metrics.HostnameLookups.WithLabelValues("fallback").Add(float64(s.HostnamesCommitted - s.HostnamesResolved))
	metrics.HostnameLookups.WithLabelValues("abandoned").Add(float64(s.Abandoned))
	return s, nil
}

func dedupe(addrs []domain.Address) []domain.Address {
	seen := make(map[domain.Address]struct{}, len(addrs))
	out := make([]domain.Address, 0, len(addrs))
	for _, a := range addrs {
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out
}
