package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Access control metrics
	AccessChecksTotal   *prometheus.CounterVec
	AccessCheckDuration *prometheus.HistogramVec

	// Membership metrics
	MembershipChangesTotal *prometheus.CounterVec

	// Database metrics
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge
}

// Access check outcomes recorded by AccessChecksTotal
const (
	OutcomeAllowed = "allowed"
	OutcomeDenied  = "denied"
	OutcomeError   = "error"
)

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "farmbook_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "farmbook_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		AccessChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "farmbook_access_checks_total",
				Help: "Total number of farm access decisions",
			},
			[]string{"check", "outcome"},
		),
		AccessCheckDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "farmbook_access_check_duration_seconds",
				Help:    "Farm access decision duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"check"},
		),
		MembershipChangesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "farmbook_membership_changes_total",
				Help: "Total number of farm membership mutations",
			},
			[]string{"operation", "status"},
		),
		DBConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "farmbook_db_connections_active",
				Help: "Number of active database connections",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "farmbook_db_connections_idle",
				Help: "Number of idle database connections",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AccessChecksTotal,
		m.AccessCheckDuration,
		m.MembershipChangesTotal,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
	)

	return m
}

// RecordAccessCheck records the outcome and duration of one access decision
func (m *Metrics) RecordAccessCheck(check, outcome string, duration time.Duration) {
	m.AccessChecksTotal.WithLabelValues(check, outcome).Inc()
	m.AccessCheckDuration.WithLabelValues(check).Observe(duration.Seconds())
}

// RecordMembershipChange records a membership mutation
func (m *Metrics) RecordMembershipChange(operation, status string) {
	m.MembershipChangesTotal.WithLabelValues(operation, status).Inc()
}

// statusRecorder captures the response status for metrics
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// HTTPMiddleware instruments an HTTP handler with request metrics
func (m *Metrics) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		m.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(rec.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration.Seconds())
	})
}

// Handler returns the /metrics endpoint handler for the given registry
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
