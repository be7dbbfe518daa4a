package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records authentication attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "omnikit_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// ActiveSessions tracks active sessions (not expired/revoked).
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "omnikit_active_sessions",
			Help: "Number of active sessions",
		},
	)

	// MenuMutations counts menu tree mutations by operation and result (success|failure).
	MenuMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "omnikit_menu_mutations_total",
			Help: "Total number of menu tree mutations",
		},
		[]string{"operation", "result"},
	)

	// MenuTreeCache counts tree cache lookups (hit|miss).
	MenuTreeCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "omnikit_menu_tree_cache_total",
			Help: "Menu tree cache lookups",
		},
		[]string{"result"},
	)

	// UpstreamRequests measures calls to third-party APIs (AI providers, GitHub).
	UpstreamRequests = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "omnikit_upstream_request_seconds",
			Help:    "Latency of outbound integration requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"integration", "status"},
	)

	// AccessChecks records authorization guard outcomes by check and result (allowed|denied|error).
	AccessChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "omnikit_access_checks_total",
			Help: "Total number of authorization checks",
		},
		[]string{"check", "result"},
	)

	// RateLimited counts requests rejected by the rate limiter.
	RateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "omnikit_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"route"},
	)

	// MaintenanceRuns counts background maintenance jobs by job and result.
	MaintenanceRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "omnikit_maintenance_runs_total",
			Help: "Background maintenance job executions",
		},
		[]string{"job", "result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "omnikit_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// APIInFlight tracks requests currently being served.
	APIInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "omnikit_api_in_flight_requests",
			Help: "HTTP requests currently being served",
		},
	)
)
