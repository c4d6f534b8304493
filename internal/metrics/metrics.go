// Package metrics defines the Prometheus collectors exported by the gateway.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var latencyBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0}

// Metrics groups the gateway collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	// Traffic
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Replica fan-out
	ReplicaCallsTotal *prometheus.CounterVec
	FanOutDuration    *prometheus.HistogramVec

	// Consistency
	ReadRepairsTotal *prometheus.CounterVec

	// Membership
	RingNodes prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status_code"}),

		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gateway_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: latencyBuckets,
		}, []string{"method", "route"}),

		ReplicaCallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_replica_calls_total",
			Help: "Total number of calls to storage nodes",
		}, []string{"operation", "outcome"}),

		FanOutDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gateway_fanout_duration_seconds",
			Help:    "Duration of a replica fan-out in seconds",
			Buckets: latencyBuckets,
		}, []string{"operation"}),

		ReadRepairsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_read_repairs_total",
			Help: "Total number of read repair writes",
		}, []string{"outcome"}),

		RingNodes: factory.NewGauge(prometheus.GaugeOpts{
			Name: "gateway_ring_nodes",
			Help: "Number of nodes on the hash ring",
		}),
	}
}

// Outcome labels.
const (
	OutcomeOK          = "ok"
	OutcomeRejected    = "rejected"
	OutcomeUnreachable = "unreachable"
)

// ObserveReplicaCall counts one replica call.
func (m *Metrics) ObserveReplicaCall(op, outcome string) {
	if m == nil {
		return
	}
	m.ReplicaCallsTotal.WithLabelValues(op, outcome).Inc()
}

// ObserveFanOut records how long a fan-out took.
func (m *Metrics) ObserveFanOut(op string, seconds float64) {
	if m == nil {
		return
	}
	m.FanOutDuration.WithLabelValues(op).Observe(seconds)
}

// ObserveRepair counts read repair writes by outcome.
func (m *Metrics) ObserveRepair(repaired, failed int) {
	if m == nil {
		return
	}
	if repaired > 0 {
		m.ReadRepairsTotal.WithLabelValues(OutcomeOK).Add(float64(repaired))
	}
	if failed > 0 {
		m.ReadRepairsTotal.WithLabelValues(OutcomeUnreachable).Add(float64(failed))
	}
}

// SetRingNodes records the ring size.
func (m *Metrics) SetRingNodes(n int) {
	if m == nil {
		return
	}
	m.RingNodes.Set(float64(n))
}

// ObserveHTTP records one served HTTP request.
func (m *Metrics) ObserveHTTP(method, route, code string, seconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, code).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(seconds)
}
