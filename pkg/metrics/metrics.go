package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Backend (advisory API) calls made by the data-fetch client
	BackendRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "krishi_console_backend_requests_total",
		Help: "Total number of advisory API requests by operation and status code (0 = transport error)",
	}, []string{"operation", "code"})
	BackendLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "krishi_console_backend_request_duration_seconds",
		Help:    "Latency of advisory API requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	LoginAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "krishi_console_login_attempts_total",
		Help: "Officer login attempts by result (success, invalid, error, rate_limited)",
	}, []string{"result"})
	ResponsesSubmitted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "krishi_console_responses_submitted_total",
		Help: "Escalation responses submitted by result (success, rejected, failed)",
	}, []string{"result"})

	// Query cache
	CacheFetches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "krishi_console_cache_fetches_total",
		Help: "Query cache reads by result (hit, miss, error)",
	}, []string{"result"})
	CacheInvalidations = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "krishi_console_cache_invalidations_total",
		Help: "Number of cache entries marked stale by mutations",
	})

	SessionEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "krishi_console_session_events_total",
		Help: "Session lifecycle events (created, destroyed, expired)",
	}, []string{"event"})
	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "krishi_console_active_sessions",
		Help: "Sessions held by the in-memory store",
	})

	RateLimitedRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "krishi_console_rate_limited_requests_total",
		Help: "Requests rejected by the rate limiter by route",
	}, []string{"route"})

	// Audit trail
	AuditEventsProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "krishi_console_audit_events_processed_total",
		Help: "Audit events delivered to sinks by event type",
	}, []string{"event_type"})
	AuditEventsDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "krishi_console_audit_events_dropped_total",
		Help: "Audit events dropped because the queue was full or closed",
	}, []string{"reason"})
	AuditSinkErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "krishi_console_audit_sink_errors_total",
		Help: "Audit sink write failures by sink and error kind",
	}, []string{"sink", "kind"})
	AuditSinkLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "krishi_console_audit_sink_write_duration_seconds",
		Help:    "Time spent writing audit events to a sink",
		Buckets: prometheus.DefBuckets,
	}, []string{"sink"})
	AuditQueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "krishi_console_audit_queue_depth",
		Help: "Audit events waiting for a worker",
	})
	AuditCircuitState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "krishi_console_audit_circuit_state",
		Help: "Circuit breaker state per audit sink (0 = closed, 1 = open, 2 = half-open)",
	}, []string{"sink"})
)

func init() {
	prometheus.MustRegister(BackendRequests)
	prometheus.MustRegister(BackendLatency)
	prometheus.MustRegister(LoginAttempts)
	prometheus.MustRegister(ResponsesSubmitted)
	prometheus.MustRegister(CacheFetches)
	prometheus.MustRegister(CacheInvalidations)
	prometheus.MustRegister(SessionEvents)
	prometheus.MustRegister(ActiveSessions)
	prometheus.MustRegister(RateLimitedRequests)
	prometheus.MustRegister(AuditEventsProcessed)
	prometheus.MustRegister(AuditEventsDropped)
	prometheus.MustRegister(AuditSinkErrors)
	prometheus.MustRegister(AuditSinkLatency)
	prometheus.MustRegister(AuditQueueDepth)
	prometheus.MustRegister(AuditCircuitState)
}

// ObserveBackend records one advisory API call. It matches the client
// observer signature.
func ObserveBackend(operation string, code int, d time.Duration) {
	BackendRequests.WithLabelValues(operation, strconv.Itoa(code)).Inc()
	BackendLatency.WithLabelValues(operation).Observe(d.Seconds())
}

// MetricsHandler returns an http.Handler exposing Prometheus metrics.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
