// Package metrics holds the Prometheus collectors for sign-in, backfill,
// session enrichment, directory search and HTTP traffic.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Backfill outcomes
const (
	BackfillScheduled = "scheduled"
	BackfillNoMatch   = "no_match"
	BackfillAssigned  = "assigned"
	BackfillRetry     = "retry"
	BackfillDropped   = "dropped"
	BackfillError     = "error"
)

// Sign-in outcomes
const (
	SignInNew      = "new"
	SignInExisting = "existing"
	SignInError    = "error"
)

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	signIns        *prometheus.CounterVec
	backfills      *prometheus.CounterVec
	enrichDegraded prometheus.Counter
	searches       *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

// New builds the collectors and registers them with reg. A nil reg leaves
// them unregistered, which is what tests want.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{}

	m.signIns = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clubhub_signins_total",
			Help: "sign-in hook invocations by outcome",
		},
		[]string{"outcome"},
	)
	m.backfills = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clubhub_college_backfill_total",
			Help: "college backfill events by outcome",
		},
		[]string{"outcome"},
	)
	m.enrichDegraded = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "clubhub_session_enrich_degraded_total",
			Help: "session reads served without enrichment because the store failed",
		},
	)
	m.searches = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clubhub_directory_searches_total",
			Help: "organization listings, split by whether a filter was given",
		},
		[]string{"filtered"},
	)
	m.httpRequests = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clubhub_http_requests_total",
			Help: "HTTP requests by method, route pattern and status",
		},
		[]string{"method", "route", "status"},
	)
	m.httpDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clubhub_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	return m
}

func (m *Metrics) SignIn(outcome string) {
	if m == nil {
		return
	}
	m.signIns.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Backfill(outcome string) {
	if m == nil {
		return
	}
	m.backfills.WithLabelValues(outcome).Inc()
}

func (m *Metrics) EnrichDegraded() {
	if m == nil {
		return
	}
	m.enrichDegraded.Inc()
}

func (m *Metrics) Search(filtered bool) {
	if m == nil {
		return
	}
	m.searches.WithLabelValues(strconv.FormatBool(filtered)).Inc()
}

// ObserveHTTP records one finished request. route is the chi route
// pattern, not the raw path, to keep label cardinality bounded.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
