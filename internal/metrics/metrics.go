package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds all Prometheus metric collectors for the SportsBro API.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics.
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Team membership metrics.
	TeamOperationsTotal     *prometheus.CounterVec
	TeamOperationDuration   *prometheus.HistogramVec
	TeamWriteConflictsTotal *prometheus.CounterVec
	EventsPublishedTotal    *prometheus.CounterVec

	// Rate limiting metrics.
	RateLimitRejectionsTotal *prometheus.CounterVec

	// Auth metrics.
	AuthFailuresTotal  *prometheus.CounterVec
	AuthSuccessesTotal prometheus.Counter

	// Server lifecycle.
	ServerStartTime prometheus.Gauge
}

// New creates and registers all Prometheus metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sportsbro_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path_pattern", "status_code"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sportsbro_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path_pattern"}),

		HTTPResponseSize: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sportsbro_http_response_size_bytes",
			Help:    "HTTP response size in bytes.",
			Buckets: prometheus.ExponentialBuckets(100, 10, 6),
		}, []string{"method", "path_pattern"}),

		TeamOperationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sportsbro_team_operations_total",
			Help: "Total number of team membership operations by outcome.",
		}, []string{"operation", "outcome"}),

		TeamOperationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sportsbro_team_operation_duration_seconds",
			Help:    "Team membership operation duration in seconds, including retries.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),

		TeamWriteConflictsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sportsbro_team_write_conflicts_total",
			Help: "Total number of optimistic-concurrency conflicts on team writes.",
		}, []string{"operation"}),

		EventsPublishedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sportsbro_events_published_total",
			Help: "Total number of team events published, by status.",
		}, []string{"event_type", "status"}),

		RateLimitRejectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sportsbro_ratelimit_rejections_total",
			Help: "Total number of rate limit rejections.",
		}, []string{"scope"}),

		AuthFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sportsbro_auth_failures_total",
			Help: "Total number of authentication failures.",
		}, []string{"reason"}),

		AuthSuccessesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sportsbro_auth_logins_total",
			Help: "Total number of successful logins.",
		}),

		ServerStartTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sportsbro_server_start_time_seconds",
			Help: "Unix timestamp when the server started.",
		}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPResponseSize,
		m.TeamOperationsTotal,
		m.TeamOperationDuration,
		m.TeamWriteConflictsTotal,
		m.EventsPublishedTotal,
		m.RateLimitRejectionsTotal,
		m.AuthFailuresTotal,
		m.AuthSuccessesTotal,
		m.ServerStartTime,
	)

	m.ServerStartTime.Set(float64(time.Now().Unix()))

	// Register Go runtime and process collectors.
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return m
}

// Registry returns the private Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RegisterDBPoolCollector registers a pool stats collector for the given
// storage driver.
func (m *Metrics) RegisterDBPoolCollector(driver string, statFunc DBPoolStatFunc) {
	m.registry.MustRegister(NewDBPoolCollector(driver, statFunc))
}

// ObserveOperation records the outcome and duration of a team operation.
func (m *Metrics) ObserveOperation(op, code string, d time.Duration) {
	m.TeamOperationsTotal.WithLabelValues(op, code).Inc()
	m.TeamOperationDuration.WithLabelValues(op).Observe(d.Seconds())
}

// ObserveWriteConflict counts a lost optimistic-concurrency race.
func (m *Metrics) ObserveWriteConflict(op string) {
	m.TeamWriteConflictsTotal.WithLabelValues(op).Inc()
}

// ObserveEventPublished counts a publish attempt.
func (m *Metrics) ObserveEventPublished(eventType string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.EventsPublishedTotal.WithLabelValues(eventType, status).Inc()
}

// IncAuthFailure increments the auth failure counter for the given reason.
func (m *Metrics) IncAuthFailure(reason string) {
	m.AuthFailuresTotal.WithLabelValues(reason).Inc()
}

// IncAuthSuccess increments the successful login counter.
func (m *Metrics) IncAuthSuccess() {
	m.AuthSuccessesTotal.Inc()
}

// IncRateLimitRejection increments the rate limit rejection counter.
func (m *Metrics) IncRateLimitRejection(scope string) {
	m.RateLimitRejectionsTotal.WithLabelValues(scope).Inc()
}
