package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "linkage"

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)

	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "HTTP requests by method, route and status."},
		[]string{"method", "route", "status"},
	)
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Namespace: namespace, Name: "http_request_duration_seconds", Help: "HTTP request latency.", Buckets: prometheus.DefBuckets},
		[]string{"method", "route"},
	)

	// SearchRequests counts VA searches by scoring mode (ai|fallback|plain).
	SearchRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "search_requests_total", Help: "VA relevance searches by scoring mode."},
		[]string{"mode"},
	)

	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "cache_lookups_total", Help: "Cache lookups by backend and result."},
		[]string{"backend", "result"},
	)

	RealtimeConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{Namespace: namespace, Name: "realtime_connections", Help: "Open websocket connections."},
	)
	RealtimeEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "realtime_events_total", Help: "Events delivered to websocket clients."},
		[]string{"event"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(HTTPRequests)
	reg.MustRegister(HTTPDuration)
	reg.MustRegister(SearchRequests)
	reg.MustRegister(CacheLookups)
	reg.MustRegister(RealtimeConnections)
	reg.MustRegister(RealtimeEvents)
}
