package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/netcrawl/netcrawl/internal/domain"
	"github.com/netcrawl/netcrawl/internal/infra/metrics"
)

// Source is the read side of the cache store that export needs.
// Implemented by infra/redisstore.Store.
type Source interface {
	domain.ReachableSource
	Heights(ctx context.Context, nodes []domain.Node) ([]int64, error)
	Records(ctx context.Context, addrs []domain.Address) (map[domain.Address]domain.ResolveRecord, map[domain.Address]error, error)
}

// Config holds the output directories.
type Config struct {
	NodesDir      string
	AggregatesDir string
}

// Exporter writes per-snapshot JSON files.
type Exporter struct {
	cfg Config
	src Source
	bus domain.EventBus
	log *zap.Logger

	in, out string
}

// New creates an exporter and makes sure both output directories exist.
func New(cfg Config, src Source, bus domain.EventBus, in, out string, log *zap.Logger) (*Exporter, error) {
	if log == nil {
		log = zap.NewNop()
	}
	for _, dir := range []string{cfg.NodesDir, cfg.AggregatesDir} {
		if dir == "" {
			return nil, fmt.Errorf("%w: export directory not set", domain.ErrInvalidConfig)
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return &Exporter{cfg: cfg, src: src, bus: bus, in: in, out: out, log: log}, nil
}

// Rows joins every reachable node with its height and resolve record.
// A record that fails to decode is exported with default annotation.
func (e *Exporter) Rows(ctx context.Context) ([]Row, error) {
	nodes, err := e.src.ReachableNodes(ctx)
	if err != nil {
		return nil, err
	}
	heights, err := e.src.Heights(ctx, nodes)
	if err != nil {
		return nil, err
	}
	recs, bad, err := e.src.Records(ctx, domain.AddressSet(nodes))
	if err != nil {
		return nil, err
	}
	for addr, err := range bad {
		e.log.Warn("undecodable resolve record", zap.Stringer("addr", addr), zap.Error(err))
	}

	rows := make([]Row, len(nodes))
	for i, n := range nodes {
		rec := recs[n.Address]
		rows[i] = Row{Node: n, Height: heights[i], Hostname: rec.Hostname, GeoIP: rec.GeoIP}
	}
	return rows, nil
}

// Export writes <token>.json into both output directories.
func (e *Exporter) Export(ctx context.Context, token int64) error {
	start := time.Now()
	rows, err := e.Rows(ctx)
	if err != nil {
		return err
	}

	name := strconv.FormatInt(token, 10) + ".json"
	nodesPath := filepath.Join(e.cfg.NodesDir, name)
	if err := writeJSON(nodesPath, rows); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(e.cfg.AggregatesDir, name), Aggregate(rows)); err != nil {
		return err
	}

	elapsed := time.Since(start)
	metrics.ExportsTotal.Inc()
	metrics.ExportDuration.Observe(elapsed.Seconds())
	e.log.Info("exported", zap.Int64("token", token), zap.Int("rows", len(rows)),
		zap.String("path", nodesPath), zap.Duration("elapsed", elapsed))
	return nil
}

// Run exports once per token received on the input channel and forwards the
// token on the output channel. Returns nil when ctx is cancelled.
func (e *Exporter) Run(ctx context.Context) error {
	sub, err := e.bus.Subscribe(ctx, e.in)
	if err != nil {
		return err
	}
	defer sub.Close()

	for {
		token, err := sub.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, domain.ErrBadToken) {
				e.log.Warn("ignoring trigger", zap.Error(err))
				continue
			}
			return err
		}
		if err := e.Export(ctx, token); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := e.bus.Publish(ctx, e.out, token); err != nil {
			return err
		}
	}
}

// writeJSON writes v to path through a temp file so readers never see a
// partial document.
func writeJSON(path string, v interface{}) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".export-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := json.NewEncoder(tmp).Encode(v); err != nil {
		tmp.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
