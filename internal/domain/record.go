package domain

import (
	"encoding/json"
	"fmt"
)

// RecordSchema is the version tag stored alongside every resolve record.
const RecordSchema = 1

// geoipFields is the fixed arity of an encoded GeoIP tuple.
const geoipFields = 7

// GeoIP is the geolocation and network-operator annotation for one address.
// Nil pointers mean "unknown". Encoded as
// [city, country_code, latitude, longitude, timezone, asn, org].
type GeoIP struct {
	City        *string
	CountryCode *string
	Latitude    float64
	Longitude   float64
	Timezone    *string
	ASN         *uint
	Org         *string
}

// Resolved reports whether the lookup produced a country or an ASN.
func (g GeoIP) Resolved() bool {
	return g.CountryCode != nil || g.ASN != nil
}

// MarshalJSON encodes the fixed 7-element tuple.
func (g GeoIP) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{
		g.City, g.CountryCode, g.Latitude, g.Longitude, g.Timezone, g.ASN, g.Org,
	})
}

// UnmarshalJSON decodes the fixed 7-element tuple. Optional fields accept
// null; coordinates must be numbers.
func (g *GeoIP) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: geoip: %v", ErrMalformedRecord, err)
	}
	if len(raw) != geoipFields {
		return fmt.Errorf("%w: geoip has %d fields, want %d", ErrMalformedRecord, len(raw), geoipFields)
	}

	var out GeoIP
	targets := []struct {
		name     string
		dst      interface{}
		nullable bool
	}{
		{"city", &out.City, true},
		{"country", &out.CountryCode, true},
		{"latitude", &out.Latitude, false},
		{"longitude", &out.Longitude, false},
		{"timezone", &out.Timezone, true},
		{"asn", &out.ASN, true},
		{"org", &out.Org, true},
	}
	for i, t := range targets {
		if isNull(raw[i]) && !t.nullable {
			return fmt.Errorf("%w: geoip %s is null", ErrMalformedRecord, t.name)
		}
		if err := json.Unmarshal(raw[i], t.dst); err != nil {
			return fmt.Errorf("%w: geoip %s: %v", ErrMalformedRecord, t.name, err)
		}
	}
	*g = out
	return nil
}

// DecodeGeoIP parses a stored geoip field. Every failure, including input
// that is not JSON at all, wraps ErrMalformedRecord.
func DecodeGeoIP(data []byte) (GeoIP, error) {
	var g GeoIP
	err := g.UnmarshalJSON(data)
	return g, err
}

// ResolveRecord is the cached annotation for one address. The whole record
// shares one TTL owned by the cache store.
type ResolveRecord struct {
	Hostname *string
	GeoIP    GeoIP
}

// StringPtr returns nil for the empty string, otherwise a pointer to s.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
