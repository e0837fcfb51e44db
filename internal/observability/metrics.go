package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce        sync.Once
	adminRequestsTotal  *prometheus.CounterVec
	adminLatencySeconds *prometheus.HistogramVec
	adminErrorsTotal    *prometheus.CounterVec
	ledgerAppendsTotal  *prometheus.CounterVec
	retentionRunsTotal  *prometheus.CounterVec
	insightsStoredTotal prometheus.Counter
	analyticsSeconds    prometheus.Histogram
)

// RegisterMetrics initialises the Prometheus collectors used by the service.
func RegisterMetrics() {
	registerOnce.Do(func() {
		adminRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "audit_requests_total",
			Help: "Total number of audit API requests served.",
		}, []string{"method", "route", "status"})

		adminLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "audit_latency_seconds",
			Help:    "Latency distribution for audit API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		adminErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "audit_errors_total",
			Help: "Total number of error responses returned by audit endpoints.",
		}, []string{"method", "route", "status"})

		ledgerAppendsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "audit_ledger_appends_total",
			Help: "Total number of records appended to the activity ledger.",
		}, []string{"actor_type", "severity"})

		retentionRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "audit_retention_runs_total",
			Help: "Total retention scheduler task runs by outcome.",
		}, []string{"task", "outcome"})

		insightsStoredTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "audit_insights_stored_total",
			Help: "Total number of new risk insights persisted after deduplication.",
		})

		analyticsSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "audit_analytics_pass_seconds",
			Help:    "Duration of full analytics passes over the ledger.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		})

		prometheus.MustRegister(
			adminRequestsTotal,
			adminLatencySeconds,
			adminErrorsTotal,
			ledgerAppendsTotal,
			retentionRunsTotal,
			insightsStoredTotal,
			analyticsSeconds,
		)
	})
}

// AdminRequests exposes the counter for audit API requests.
func AdminRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return adminRequestsTotal
}

// AdminLatency exposes the latency histogram for audit API requests.
func AdminLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return adminLatencySeconds
}

// AdminErrors exposes the counter for audit API error responses.
func AdminErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return adminErrorsTotal
}

// LedgerAppends exposes the counter for ledger appends.
func LedgerAppends() *prometheus.CounterVec {
	RegisterMetrics()
	return ledgerAppendsTotal
}

// RetentionRuns exposes the counter for retention task runs.
func RetentionRuns() *prometheus.CounterVec {
	RegisterMetrics()
	return retentionRunsTotal
}

// InsightsStored exposes the counter for persisted insights.
func InsightsStored() prometheus.Counter {
	RegisterMetrics()
	return insightsStoredTotal
}

// AnalyticsDuration exposes the histogram for analytics pass duration.
func AnalyticsDuration() prometheus.Histogram {
	RegisterMetrics()
	return analyticsSeconds
}
