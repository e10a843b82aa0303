package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/netcrawl/netcrawl/internal/api"
	"github.com/netcrawl/netcrawl/internal/export"
	"github.com/netcrawl/netcrawl/internal/health"
	"github.com/netcrawl/netcrawl/internal/infra/geoip"
	"github.com/netcrawl/netcrawl/internal/infra/rdns"
	"github.com/netcrawl/netcrawl/internal/infra/redisstore"
	"github.com/netcrawl/netcrawl/internal/infra/sqlite"
	"github.com/netcrawl/netcrawl/internal/resolve"
)

// shutdownTimeout bounds HTTP server draining.
const shutdownTimeout = 10 * time.Second

// Daemon holds the resources shared by every stage: config, logger, and the
// cache store connection.
type Daemon struct {
	Config Config
	Log    *zap.Logger
	Store  *redisstore.Store
}

// New builds the logger and connects to the cache store. Store failures are
// fatal.
func New(ctx context.Context, cfg Config) (*Daemon, error) {
	log, err := NewLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}
	store, err := redisstore.Open(ctx, redisstore.Options{
		Address:  cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, log.Named("redis"))
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("connect store: %w", err)
	}
	return &Daemon{Config: cfg, Log: log, Store: store}, nil
}

// Close releases the store and flushes the logger.
func (d *Daemon) Close() {
	_ = d.Store.Close()
	_ = d.Log.Sync()
}

// OpenJournal opens the cycle journal, or returns nil when it is disabled.
func (d *Daemon) OpenJournal() (*sqlite.DB, error) {
	if d.Config.Journal.Dir == "" {
		return nil, nil
	}
	db, err := sqlite.Open(d.Config.Journal.Dir)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return db, nil
}

// ─── Resolve ────────────────────────────────────────────────────────────────

// RunResolve runs the resolver orchestrator until ctx is cancelled, plus the
// optional metrics listener and the health loop.
func (d *Daemon) RunResolve(ctx context.Context) error {
	rc := d.Config.Resolve

	geo, err := geoip.Open(rc.GeoIPCity, rc.GeoIPASN, d.Log.Named("geoip"))
	if err != nil {
		return err
	}
	defer geo.Close()

	names, err := rdns.New(rc.Nameservers, rc.Timeout(), d.Log.Named("rdns"))
	if err != nil {
		return err
	}

	resolver := resolve.NewResolver(resolve.Config{
		TTL:              rc.TTLDuration(),
		HostnameDeadline: rc.Deadline(),
		MaxHostnames:     rc.MaxHostnames,
	}, d.Store, geo, names, d.Log.Named("cycle"))

	orch := resolve.NewOrchestrator(d.Store, d.Store, resolver,
		redisstore.ChannelSnapshot, redisstore.ChannelResolve, d.Log.Named("resolve"))

	checks := []health.Check{
		health.RedisCheck(d.Store),
		health.FilesCheck("geoip", rc.GeoIPCity, rc.GeoIPASN),
	}
	journal, err := d.OpenJournal()
	if err != nil {
		return err
	}
	if journal != nil {
		defer journal.Close()
		orch.SetJournal(journal)
		checks = append(checks, health.JournalCheck(journal.Ping))
	}
	checker := health.NewChecker(d.Log.Named("health"), checks...)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		checker.Run(ctx)
		return nil
	})
	if rc.MetricsListen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		g.Go(func() error { return d.serveHTTP(ctx, rc.MetricsListen, mux) })
	}
	g.Go(func() error {
		d.Log.Info("resolver started",
			zap.Int("ttl", rc.TTL),
			zap.Duration("hostname_deadline", rc.Deadline()),
			zap.Int("max_hostnames", rc.MaxHostnames))
		return orch.Run(ctx)
	})
	return stopOnExit(g)
}

// ─── Export ─────────────────────────────────────────────────────────────────

// RunExport runs the export stage until ctx is cancelled.
func (d *Daemon) RunExport(ctx context.Context) error {
	ex, err := export.New(export.Config{
		NodesDir:      d.Config.Export.Dir,
		AggregatesDir: d.Config.Export.AggrDir,
	}, d.Store, d.Store, redisstore.ChannelResolve, redisstore.ChannelExport, d.Log.Named("export"))
	if err != nil {
		return err
	}
	d.Log.Info("exporter started",
		zap.String("export_dir", d.Config.Export.Dir),
		zap.String("export_aggr_dir", d.Config.Export.AggrDir))
	return ex.Run(ctx)
}

// ─── API ────────────────────────────────────────────────────────────────────

// ServeAPI serves the read API until ctx is cancelled.
func (d *Daemon) ServeAPI(ctx context.Context) error {
	srv := api.NewServer(d.Store, d.Log.Named("api"))
	if d.Config.API.Metrics {
		srv.EnableMetrics()
	}
	checker := health.NewChecker(d.Log.Named("health"), health.RedisCheck(d.Store))
	srv.SetHealth(checker)

	addr := net.JoinHostPort(d.Config.API.Host, strconv.Itoa(d.Config.API.Port))
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		checker.Run(ctx)
		return nil
	})
	g.Go(func() error { return d.serveHTTP(ctx, addr, srv.Handler()) })
	return stopOnExit(g)
}

// serveHTTP listens on addr until ctx is cancelled, then drains.
func (d *Daemon) serveHTTP(ctx context.Context, addr string, h http.Handler) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		d.Log.Info("http listening", zap.String("addr", addr))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// stopOnExit waits for the group. Members that return nil on cancellation
// leave the group error nil.
func stopOnExit(g *errgroup.Group) error {
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
