// Package domain holds the pure types shared by every stage of the crawler
// pipeline: node addresses, node descriptors and the per-address resolve
// record. Nothing in here talks to the network or the cache store.
package domain

import (
	"net"
	"strings"
)

// OnionSuffix marks an address as a hidden service name.
const OnionSuffix = ".onion"

// OnionOrg is the ASN organization recorded for every onion address.
const OnionOrg = "TOR Tor network"

// Address identifies a node's network endpoint: an IPv4 or IPv6 literal, or
// an onion service name. Equality is exact string equality.
type Address string

// IsOnion reports whether the address is an onion service name.
func (a Address) IsOnion() bool {
	return strings.HasSuffix(string(a), OnionSuffix)
}

// IP parses the address as an IP literal. Returns nil for onion names and
// anything else that is not an IP.
func (a Address) IP() net.IP {
	return net.ParseIP(string(a))
}

func (a Address) String() string { return string(a) }

// AddressSet de-duplicates node addresses while keeping first-seen order so
// that hostname candidate selection is stable for a given reachable set.
func AddressSet(nodes []Node) []Address {
	seen := make(map[Address]struct{}, len(nodes))
	out := make([]Address, 0, len(nodes))
	for _, n := range nodes {
		if _, ok := seen[n.Address]; ok {
			continue
		}
		seen[n.Address] = struct{}{}
		out = append(out, n.Address)
	}
	return out
}
