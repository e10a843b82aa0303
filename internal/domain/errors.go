package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors carry no infrastructure dependency.

var (
	// Decode errors
	ErrMalformedNode   = errors.New("malformed node descriptor")
	ErrMalformedRecord = errors.New("malformed resolve record")
	ErrUnknownSchema   = errors.New("unknown resolve record schema version")

	// Store errors
	ErrStoreUnavailable = errors.New("cache store is unreachable")
	ErrNotFound         = errors.New("no mapping stored")
	ErrBadToken         = errors.New("correlation token is not an integer")

	// Startup errors
	ErrGeoIPDatabase = errors.New("geoip database unavailable")
	ErrInvalidConfig = errors.New("invalid configuration")
)
