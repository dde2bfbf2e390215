package runtime

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/streambind/streambind/engine"
)

// BinderMetrics publishes engine instance and store lookup metrics to
// Prometheus. All methods are safe on a nil receiver so callers never need to
// guard the optional collaborator.
type BinderMetrics struct {
	instances      prometheus.Gauge
	instanceStates *prometheus.GaugeVec
	lookupAttempts *prometheus.CounterVec
	lookupFailures *prometheus.CounterVec
}

// NewBinderMetrics registers the binder metric families with reg.
func NewBinderMetrics(reg prometheus.Registerer) *BinderMetrics {
	factory := promauto.With(reg)
	return &BinderMetrics{
		instances: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "streambind",
			Name:      "engine_instances",
			Help:      "Number of engine instances registered with the binder.",
		}),
		instanceStates: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "streambind",
			Name:      "engine_instance_state",
			Help:      "Lifecycle state of each engine instance (0=created, 1=rebalancing, 2=running, 3=closed, 4=error).",
		}, []string{"instance_id"}),
		lookupAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "streambind",
			Name:      "store_lookup_attempts_total",
			Help:      "Store lookup attempts, including retries.",
		}, []string{"store"}),
		lookupFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "streambind",
			Name:      "store_lookup_failures_total",
			Help:      "Store lookups that failed after exhausting retries.",
		}, []string{"store"}),
	}
}

// InstanceRegistered records a newly registered instance and its current state.
func (m *BinderMetrics) InstanceRegistered(inst engine.Instance) {
	if m == nil {
		return
	}
	m.instances.Inc()
	m.instanceStates.WithLabelValues(inst.ID()).Set(float64(inst.State()))
}

// InstanceDeregistered removes an instance's series.
func (m *BinderMetrics) InstanceDeregistered(inst engine.Instance) {
	if m == nil {
		return
	}
	m.instances.Dec()
	m.instanceStates.DeleteLabelValues(inst.ID())
}

// InstanceState records a lifecycle transition.
func (m *BinderMetrics) InstanceState(instanceID string, state engine.State) {
	if m == nil {
		return
	}
	m.instanceStates.WithLabelValues(instanceID).Set(float64(state))
}

// StoreLookupAttempt counts one call into an engine instance's store lookup.
func (m *BinderMetrics) StoreLookupAttempt(store string) {
	if m == nil {
		return
	}
	m.lookupAttempts.WithLabelValues(store).Inc()
}

// StoreLookupFailure counts a lookup that failed after exhausting retries.
func (m *BinderMetrics) StoreLookupFailure(store string) {
	if m == nil {
		return
	}
	m.lookupFailures.WithLabelValues(store).Inc()
}
