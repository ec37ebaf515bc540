// Package metrics provides Prometheus metrics for porkddns.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every metric name.
const Namespace = "porkddns"

var (
	// BuildInfo is always 1, labelled with version information.
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "build_info",
		Help:      "Build information for porkddns.",
	}, []string{"version", "go_version"})

	// CyclesTotal counts reconciliation cycles by outcome (updated, unchanged, error).
	CyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "cycles_total",
		Help:      "Total reconciliation cycles by outcome.",
	}, []string{"outcome"})

	// CycleDuration observes the wall time of each reconciliation cycle.
	CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "cycle_duration_seconds",
		Help:      "Duration of reconciliation cycles.",
		Buckets:   prometheus.DefBuckets,
	})

	// RecordUpdatesTotal counts A record update requests by record kind
	// (root, subdomain) and outcome (updated, unchanged, error).
	RecordUpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "record_updates_total",
		Help:      "Total A record update requests.",
	}, []string{"record", "outcome"})

	// APIRequestsTotal counts Porkbun API calls by endpoint and HTTP status code.
	// Transport failures use the code "error".
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "api_requests_total",
		Help:      "Total Porkbun API requests.",
	}, []string{"endpoint", "code"})

	// IPLookupsTotal counts public IP lookups by method and result.
	IPLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "ip_lookups_total",
		Help:      "Total public IP lookups.",
	}, []string{"method", "result"})

	// LastSuccessTimestamp is the unix time of the last cycle that completed without error.
	LastSuccessTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix timestamp of the last successful reconciliation cycle.",
	})
)

// SetBuildInfo records the running version.
func SetBuildInfo(version, goVersion string) {
	BuildInfo.WithLabelValues(version, goVersion).Set(1)
}
