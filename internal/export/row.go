// Package export is the pipeline stage after the resolver. For every
// resolve token it joins the reachable-node set with block heights and
// resolve records, writes one JSON row per node and an aggregate document,
// and announces the token on the export channel.
package export

import (
	"encoding/json"

	"github.com/netcrawl/netcrawl/internal/domain"
)

// Row is one exported node: the descriptor, its height and its annotation.
// Encoded as a flat JSON array:
// [address, port, version, user_agent, timestamp, services, tls, height,
// hostname, city, country, latitude, longitude, timezone, asn, org].
type Row struct {
	Node     domain.Node
	Height   int64
	Hostname *string
	GeoIP    domain.GeoIP
}

// MarshalJSON encodes the flat row.
func (r Row) MarshalJSON() ([]byte, error) {
	n, g := r.Node, r.GeoIP
	return json.Marshal([]interface{}{
		string(n.Address), n.Port, n.Version, n.UserAgent, n.Timestamp, n.Services, n.TLS,
		r.Height,
		r.Hostname,
		g.City, g.CountryCode, g.Latitude, g.Longitude, g.Timezone, g.ASN, g.Org,
	})
}
