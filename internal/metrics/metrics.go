// Package metrics holds the prometheus collectors for the coordination workflows.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides observability for applications, provisioning, matching and connections.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	ApplicationsSubmitted  prometheus.Counter
	ApplicationTransitions *prometheus.CounterVec
	ProvisioningOutcomes   *prometheus.CounterVec
	ConnectionsProposed    prometheus.Counter
	ConnectionsResolved    *prometheus.CounterVec
	MatchingDuration       *prometheus.HistogramVec
	HTTPRequests           *prometheus.CounterVec
	HTTPDuration           *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New registers all collectors with reg. Pass prometheus.NewRegistry() in tests.
func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ApplicationsSubmitted: f.NewCounter(prometheus.CounterOpts{
			Name: "applications_submitted_total",
			Help: "Hospital applications accepted for review",
		}),
		ApplicationTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "application_transitions_total",
			Help: "Successful review transitions by action",
		}, []string{"action"}),
		ProvisioningOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "provisioning_outcomes_total",
			Help: "Provisioning runs by outcome",
		}, []string{"outcome"}), // outcome: "complete", "partial", "failed"
		ConnectionsProposed: f.NewCounter(prometheus.CounterOpts{
			Name: "connections_proposed_total",
			Help: "Donation connections proposed by donors",
		}),
		ConnectionsResolved: f.NewCounterVec(prometheus.CounterOpts{
			Name: "connections_resolved_total",
			Help: "Donation connections resolved by hospital staff",
		}, []string{"status"}),
		MatchingDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "matching_query_duration_seconds",
			Help:    "Duration of proximity queries",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"kind"}), // kind: "donors", "requests"
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by method and route",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		gatherer: reg,
	}
}

func (m *Metrics) IncSubmitted() {
	if m != nil {
		m.ApplicationsSubmitted.Inc()
	}
}

func (m *Metrics) IncTransition(action string) {
	if m != nil {
		m.ApplicationTransitions.WithLabelValues(action).Inc()
	}
}

func (m *Metrics) IncProvisioning(outcome string) {
	if m != nil {
		m.ProvisioningOutcomes.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncProposed() {
	if m != nil {
		m.ConnectionsProposed.Inc()
	}
}

func (m *Metrics) IncResolved(status string) {
	if m != nil {
		m.ConnectionsResolved.WithLabelValues(status).Inc()
	}
}

// ObserveMatching records the duration of a proximity query of the given kind.
func (m *Metrics) ObserveMatching(kind string, d time.Duration) {
	if m != nil {
		m.MatchingDuration.WithLabelValues(kind).Observe(d.Seconds())
	}
}

// Middleware instruments every request using the matched route template as label.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
