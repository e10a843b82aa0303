// Package resolve annotates reachable node addresses with hostnames and
// geolocation data.
//
// A Resolver runs one cycle per trigger: every address gets a fresh geoip
// lookup, while only addresses whose cached record is close to expiry get a
// reverse DNS lookup. Hostname lookups run concurrently under one group
// deadline; whatever finished by then is committed together with all geoip
// results in a single atomic write.
package resolve

import (
	"time"

	"github.com/netcrawl/netcrawl/internal/domain"
)

const (
	// DefaultMaxHostnames caps hostname candidates per cycle.
	DefaultMaxHostnames = 1000

	// DefaultHostnameDeadline bounds the hostname phase of a cycle.
	DefaultHostnameDeadline = 15 * time.Second

	// refreshFraction of the configured TTL below which a record's hostname
	// is refreshed.
	refreshFraction = 0.1
)

// Classifier decides which addresses are due for a hostname refresh.
type Classifier struct {
	TTL time.Duration
	Max int
}

// NeedsHostname reports whether addr should be reverse-resolved this cycle.
// remaining is the record's remaining TTL; absent, expired and non-expiring
// records all arrive here as a non-positive duration. selected is the number
// of candidates already chosen this cycle.
func (c Classifier) NeedsHostname(addr domain.Address, remaining time.Duration, selected int) bool {
	if addr.IsOnion() {
		return false
	}
	if selected >= c.Max {
		return false
	}
	return remaining.Seconds() < refreshFraction*c.TTL.Seconds()
}
