package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BackendRequests counts calls to the attendance backend by endpoint and outcome.
	BackendRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_backend_requests_total",
		Help: "Requests issued to the attendance backend.",
	}, []string{"endpoint", "outcome"})

	// BackendLatency observes backend round trips.
	BackendLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dashboard_backend_request_duration_seconds",
		Help:    "Latency of attendance backend requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	// Overrides counts manual override submissions by outcome.
	Overrides = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_overrides_total",
		Help: "Manual attendance overrides submitted.",
	}, []string{"outcome"})

	// StaleRefreshes counts board refreshes whose result was discarded.
	StaleRefreshes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dashboard_stale_refreshes_total",
		Help: "Roster refreshes discarded because a newer one started or the view closed.",
	})

	// ActiveSessions tracks sessions holding view state on this instance.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dashboard_active_sessions",
		Help: "Sessions holding a roster board on this instance.",
	})
)
