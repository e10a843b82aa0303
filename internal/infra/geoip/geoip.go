// Package geoip annotates node addresses with MaxMind GeoLite2 City and ASN
// data. Both databases are local files opened once at startup; lookups are
// in-memory and never fail outward.
package geoip

import (
	"errors"
	"fmt"
	"math"
	"net"

	"github.com/oschwald/geoip2-golang"
	"go.uber.org/zap"

	"github.com/netcrawl/netcrawl/internal/domain"
)

// coordPrecision rounds coordinates to 6 decimal digits.
const coordPrecision = 1e6

type cityDB interface {
	City(ip net.IP) (*geoip2.City, error)
}

type asnDB interface {
	ASN(ip net.IP) (*geoip2.ASN, error)
}

// Reader looks up geolocation and ASN data for addresses.
// Safe for concurrent use; the underlying mmdb readers are read-only.
type Reader struct {
	city cityDB
	asn  asnDB
	log  *zap.Logger

	closers []func() error
}

// Open opens the City and ASN databases. A missing or unreadable database
// is a startup error wrapping domain.ErrGeoIPDatabase.
func Open(cityPath, asnPath string, log *zap.Logger) (*Reader, error) {
	city, err := geoip2.Open(cityPath)
	if err != nil {
		return nil, fmt.Errorf("%w: city %s: %v", domain.ErrGeoIPDatabase, cityPath, err)
	}
	asn, err := geoip2.Open(asnPath)
	if err != nil {
		city.Close()
		return nil, fmt.Errorf("%w: asn %s: %v", domain.ErrGeoIPDatabase, asnPath, err)
	}

	r := newReader(city, asn, log)
	r.closers = []func() error{city.Close, asn.Close}
	return r, nil
}

func newReader(city cityDB, asn asnDB, log *zap.Logger) *Reader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reader{city: city, asn: asn, log: log}
}

// Close releases both databases.
func (r *Reader) Close() error {
	var errs []error
	for _, c := range r.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Lookup returns the GeoIP tuple for addr. Onion addresses skip both
// databases and get the fixed Tor organization.
func (r *Reader) Lookup(addr domain.Address) domain.GeoIP {
	var g domain.GeoIP

	if addr.IsOnion() {
		g.Org = domain.StringPtr(domain.OnionOrg)
		return g
	}

	ip := addr.IP()
	if ip == nil {
		r.log.Debug("invalid address", zap.Stringer("addr", addr))
		return g
	}

	r.lookupCity(ip, &g)
	r.lookupASN(ip, &g)
	return g
}

func (r *Reader) lookupCity(ip net.IP, g *domain.GeoIP) {
	rec, err := r.city.City(ip)
	if err != nil {
		r.log.Debug("city lookup failed", zap.Stringer("ip", ip), zap.Error(err))
		return
	}
	if rec == nil {
		return
	}
	g.City = domain.StringPtr(rec.City.Names["en"])
	g.CountryCode = domain.StringPtr(rec.Country.IsoCode)
	g.Latitude = round(rec.Location.Latitude)
	g.Longitude = round(rec.Location.Longitude)
	g.Timezone = domain.StringPtr(rec.Location.TimeZone)
	if g.CountryCode == nil && g.City == nil {
		r.log.Debug("no city record", zap.Stringer("ip", ip))
	}
}

func (r *Reader) lookupASN(ip net.IP, g *domain.GeoIP) {
	rec, err := r.asn.ASN(ip)
	if err != nil {
		r.log.Debug("asn lookup failed", zap.Stringer("ip", ip), zap.Error(err))
		return
	}
	if rec == nil {
		return
	}
	if rec.AutonomousSystemNumber != 0 {
		n := rec.AutonomousSystemNumber
		g.ASN = &n
	}
	g.Org = domain.StringPtr(rec.AutonomousSystemOrganization)
}

func round(v float64) float64 {
	return math.Round(v*coordPrecision) / coordPrecision
}
