// Package redisstore is the shared cache every pipeline stage talks to.
//
// It owns the key layout: the reachable-node set written by discovery, the
// per-address resolve records written by the resolver, block heights and
// node peer maps read by export and the API, and the pub/sub channels that
// chain the stages together.
package redisstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/netcrawl/netcrawl/internal/domain"
)

// Key layout and channel names.
const (
	ReachableKey    = "opendata"
	resolvePrefix   = "resolve:"
	heightPrefix    = "height:"
	nodeMapPrefix   = "node-map:"
	fieldHostname   = "hostname"
	fieldGeoIP      = "geoip"
	fieldSchema     = "v"
	ChannelSnapshot = "snapshot"
	ChannelResolve  = "resolve"
	ChannelExport   = "export"
)

// Options configures the redis connection.
type Options struct {
	// Address is host:port, unix:///path/to/socket, or a redis:// URL.
	Address  string
	Password string
	DB       int
}

// Store wraps a redis client with the pipeline's key layout.
type Store struct {
	client *redis.Client
	log    *zap.Logger
}

// Open connects and pings redis. An unreachable store is fatal for every
// stage, so the error wraps domain.ErrStoreUnavailable.
func Open(ctx context.Context, opts Options, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	ropts, err := clientOptions(opts)
	if err != nil {
		return nil, err
	}
	s := &Store{client: redis.NewClient(ropts), log: log}
	if err := s.Ping(ctx); err != nil {
		s.client.Close()
		return nil, err
	}
	return s, nil
}

func clientOptions(opts Options) (*redis.Options, error) {
	addr := opts.Address
	switch {
	case strings.HasPrefix(addr, "redis://"), strings.HasPrefix(addr, "rediss://"):
		ropts, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("%w: redis address: %v", domain.ErrInvalidConfig, err)
		}
		if opts.Password != "" {
			ropts.Password = opts.Password
		}
		return ropts, nil
	case strings.HasPrefix(addr, "unix://"):
		return &redis.Options{
			Network:  "unix",
			Addr:     strings.TrimPrefix(addr, "unix://"),
			Password: opts.Password,
			DB:       opts.DB,
		}, nil
	case strings.HasPrefix(addr, "/"):
		return &redis.Options{Network: "unix", Addr: addr, Password: opts.Password, DB: opts.DB}, nil
	}
	if addr == "" {
		addr = "127.0.0.1:6379"
	}
	return &redis.Options{Addr: addr, Password: opts.Password, DB: opts.DB}, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.client.Close()
}

// ResolveKey is the hash holding one address's resolve record.
func ResolveKey(addr domain.Address) string {
	return resolvePrefix + string(addr)
}

// HeightKey is the block height reported by one node.
func HeightKey(n domain.Node) string {
	return fmt.Sprintf("%s%s-%d-%d", heightPrefix, n.Address, n.Port, n.Services)
}

// NodeMapKey is the JSON peer list of one ip:port endpoint.
func NodeMapKey(ip string, port int) string {
	return fmt.Sprintf("%s%s-%d", nodeMapPrefix, ip, port)
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrStoreUnavailable, op, err)
}
