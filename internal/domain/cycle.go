package domain

import "time"

// CycleSummary is the outcome of one committed resolution cycle.
type CycleSummary struct {
	ID                 string        `json:"id"`
	Token              int64         `json:"token"`
	Addresses          int           `json:"addresses"`
	GeoIPResolved      int           `json:"geoip_resolved"`
	HostnameCandidates int           `json:"hostname_candidates"`
	HostnamesCommitted int           `json:"hostnames_committed"`
	HostnamesResolved  int           `json:"hostnames_resolved"`
	Abandoned          int           `json:"abandoned"`
	Elapsed            time.Duration `json:"elapsed"`
	FinishedAt         time.Time     `json:"finished_at"`
}
