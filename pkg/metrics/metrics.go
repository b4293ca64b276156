package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Signups records persistence outcomes (created|duplicate|conflict|invalid|error).
	Signups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spryntr_waitlist_signups_total",
			Help: "Total number of waitlist submissions by outcome",
		},
		[]string{"outcome"},
	)

	// SpamRejections counts submissions silently dropped by the anti-spam guard.
	SpamRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spryntr_waitlist_spam_rejections_total",
			Help: "Total number of submissions rejected by the anti-spam guard",
		},
		[]string{"reason"},
	)

	// Notifications counts welcome email attempts by stage (sent|validate|config|provider|server)
	// and sender mode (verified|sandbox).
	Notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spryntr_waitlist_notifications_total",
			Help: "Total number of welcome email attempts",
		},
		[]string{"stage", "mode"},
	)

	// BlogCache counts blog feed cache lookups (hit|miss|error).
	BlogCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spryntr_blog_cache_total",
			Help: "Blog feed cache lookups",
		},
		[]string{"result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "spryntr_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// RequestsInFlight tracks requests currently being served.
	RequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "spryntr_api_requests_in_flight",
			Help: "HTTP requests currently being served",
		},
	)

	// MaintenanceRuns counts background job executions by job and result.
	MaintenanceRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spryntr_maintenance_runs_total",
			Help: "Background maintenance job runs",
		},
		[]string{"job", "result"},
	)

	// MaintenanceDuration measures background job run time.
	MaintenanceDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "spryntr_maintenance_duration_seconds",
			Help:    "Background maintenance job duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"job"},
	)
)
