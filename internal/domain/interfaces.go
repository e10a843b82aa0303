package domain

import (
	"context"
	"time"
)

// ─── Service Interfaces ─────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; the resolve and export stages depend on them.

// GeoLocator annotates an address with geolocation and ASN data.
// Implemented by infra/geoip.Reader.
type GeoLocator interface {
	// Lookup never fails: unknown fields stay nil/zero.
	Lookup(addr Address) GeoIP
}

// HostnameResolver performs reverse DNS for one address.
// Implemented by infra/rdns.Resolver.
type HostnameResolver interface {
	// Hostname returns the resolved name, or the address itself on failure.
	Hostname(ctx context.Context, addr Address) string
}

// Update is one address's contribution to a cycle's batched write.
// A nil Hostname leaves both the hostname field and the TTL untouched.
type Update struct {
	Address  Address
	GeoIP    *GeoIP
	Hostname *string
}

// ResolveStore is the shared cache the resolver reads TTLs from and commits to.
// Implemented by infra/redisstore.Store.
type ResolveStore interface {
	// RemainingTTL returns the remaining TTL per address. Missing keys and
	// keys without expiry map to a non-positive duration.
	RemainingTTL(ctx context.Context, addrs []Address) (map[Address]time.Duration, error)

	// Commit applies all updates atomically, resetting the TTL of every
	// record whose hostname is written.
	Commit(ctx context.Context, updates []Update, ttl time.Duration) error
}

// ReachableSource reads the reachable-node set owned by the discovery stage.
type ReachableSource interface {
	ReachableNodes(ctx context.Context) ([]Node, error)
}

// Subscription is a single-consumer, in-order stream of correlation tokens.
type Subscription interface {
	// Next blocks until a token arrives or ctx ends. A payload that is not an
	// integer yields an error wrapping ErrBadToken; the subscription stays
	// usable after it.
	Next(ctx context.Context) (int64, error)
	Close() error
}

// EventBus carries correlation tokens between pipeline stages.
type EventBus interface {
	Subscribe(ctx context.Context, channel string) (Subscription, error)
	Publish(ctx context.Context, channel string, token int64) error
}
