package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gathered returns the value of the sample of family name whose labels
// include all of want.
func gathered(t *testing.T, reg *prometheus.Registry, name string, want map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			matched := 0
			for _, lp := range m.GetLabel() {
				if v, ok := want[lp.GetName()]; ok && v == lp.GetValue() {
					matched++
				}
			}
			if matched != len(want) {
				continue
			}
			switch {
			case m.GetCounter() != nil:
				return m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				return m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				return float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	t.Fatalf("no sample %s%v", name, want)
	return 0
}

func TestNew_RegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveReplicaCall("put", OutcomeOK)
	m.ObserveReplicaCall("put", OutcomeOK)
	m.ObserveReplicaCall("get", OutcomeUnreachable)
	m.ObserveRepair(2, 1)
	m.SetRingNodes(3)
	m.ObserveHTTP("GET", "/get/{key}", "200", 0.01)
	m.ObserveFanOut("get", 0.02)

	assert.Equal(t, 2.0, gathered(t, reg, "gateway_replica_calls_total", map[string]string{"operation": "put", "outcome": OutcomeOK}))
	assert.Equal(t, 1.0, gathered(t, reg, "gateway_replica_calls_total", map[string]string{"operation": "get", "outcome": OutcomeUnreachable}))
	assert.Equal(t, 2.0, gathered(t, reg, "gateway_read_repairs_total", map[string]string{"outcome": OutcomeOK}))
	assert.Equal(t, 1.0, gathered(t, reg, "gateway_read_repairs_total", map[string]string{"outcome": OutcomeUnreachable}))
	assert.Equal(t, 3.0, gathered(t, reg, "gateway_ring_nodes", nil))
	assert.Equal(t, 1.0, gathered(t, reg, "gateway_http_requests_total", map[string]string{"route": "/get/{key}", "status_code": "200"}))
	assert.Equal(t, 1.0, gathered(t, reg, "gateway_fanout_duration_seconds", map[string]string{"operation": "get"}))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 6)
}

func TestNew_FreshRegistryPerInstance(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveReplicaCall("put", OutcomeOK)
		m.ObserveRepair(1, 1)
		m.SetRingNodes(1)
		m.ObserveHTTP("GET", "/", "200", 0)
		m.ObserveFanOut("get", 0)
	})
}
