// Package metrics provides Prometheus metrics for the crawler pipeline
// stages: resolution cycles, hostname lookups, exports and the read API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Resolve ────────────────────────────────────────────────────────────────

// CyclesTotal counts committed resolution cycles.
var CyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "netcrawl",
	Name:      "resolve_cycles_total",
	Help:      "Total committed resolution cycles.",
})

// CycleDuration tracks wall-clock time of a full resolution cycle.
var CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "netcrawl",
	Name:      "resolve_cycle_duration_seconds",
	Help:      "Resolution cycle duration in seconds.",
	Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 15, 20, 30, 60},
})

// CycleAddresses tracks the number of distinct addresses in the last cycle.
var CycleAddresses = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "netcrawl",
	Name:      "resolve_cycle_addresses",
	Help:      "Distinct reachable addresses in the last cycle.",
})

// GeoIPResolved counts geoip entries with a country or ASN set.
var GeoIPResolved = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "netcrawl",
	Name:      "resolve_geoip_resolved_total",
	Help:      "GeoIP entries written with a country or ASN.",
})

// HostnameLookups counts hostname lookups by outcome
// (resolved, fallback, abandoned).
var HostnameLookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "netcrawl",
	Name:      "resolve_hostname_lookups_total",
	Help:      "Hostname lookups by outcome.",
}, []string{"outcome"})

// HostnameCandidates tracks how many addresses were selected for hostname
// refresh in the last cycle.
var HostnameCandidates = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "netcrawl",
	Name:      "resolve_hostname_candidates",
	Help:      "Addresses selected for hostname refresh in the last cycle.",
})

// ResolverState is the orchestrator loop state: 0 idle, 1 cycling.
var ResolverState = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "netcrawl",
	Name:      "resolve_state",
	Help:      "Resolver loop state (0 idle, 1 cycling).",
})

// MalformedNodes counts reachable-set members that failed to decode.
var MalformedNodes = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "netcrawl",
	Name:      "malformed_nodes_total",
	Help:      "Reachable-set descriptors skipped because they failed to decode.",
})

// ─── Export ─────────────────────────────────────────────────────────────────

// ExportsTotal counts completed exports.
var ExportsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "netcrawl",
	Name:      "exports_total",
	Help:      "Total completed snapshot exports.",
})

// ExportDuration tracks time to build and write one export.
var ExportDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "netcrawl",
	Name:      "export_duration_seconds",
	Help:      "Export duration in seconds.",
	Buckets:   prometheus.DefBuckets,
})

// ─── API ────────────────────────────────────────────────────────────────────

// APIRequests counts read API requests by route and status code.
var APIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "netcrawl",
	Name:      "api_requests_total",
	Help:      "Read API requests by route and status.",
}, []string{"route", "status"})

// ─── Health ─────────────────────────────────────────────────────────────────

// HealthCheckStatus tracks health check results (1=healthy, 0=unhealthy).
var HealthCheckStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "netcrawl",
	Name:      "health_check_status",
	Help:      "Health check result per component (1=healthy, 0=unhealthy).",
}, []string{"check"})
