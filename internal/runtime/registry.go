package runtime

import (
	"sync"

	"github.com/streambind/streambind/engine"
)

// Registry tracks the engine instances owned by this process, one per started
// topology. Registration happens at topology start; every interactive query
// reads the set, so access is guarded by an RWMutex.
type Registry struct {
	mu      sync.RWMutex
	byID    map[string]engine.Instance
	ordered []engine.Instance

	metrics *BinderMetrics
}

// NewRegistry creates an instance registry. metrics may be nil.
func NewRegistry(metrics *BinderMetrics) *Registry {
	return &Registry{
		byID:    make(map[string]engine.Instance),
		metrics: metrics,
	}
}

// RegisterInstance adds an instance to the tracked set and notifies the
// metrics collaborator. Registering the same instance twice is a no-op.
func (r *Registry) RegisterInstance(inst engine.Instance) {
	if inst == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[inst.ID()]; ok {
		return
	}
	r.byID[inst.ID()] = inst
	r.ordered = append(r.ordered, inst)

	r.metrics.InstanceRegistered(inst)
}

// DeregisterInstance removes an instance. The minimal binder contract never
// removes instances; this supports dynamic topology shutdown.
func (r *Registry) DeregisterInstance(inst engine.Instance) {
	if inst == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[inst.ID()]; !ok {
		return
	}
	delete(r.byID, inst.ID())
	for idx, candidate := range r.ordered {
		if candidate.ID() == inst.ID() {
			r.ordered = append(r.ordered[:idx], r.ordered[idx+1:]...)
			break
		}
	}

	r.metrics.InstanceDeregistered(inst)
}

// Instances returns a snapshot of the registered instances in registration
// order. The order carries no semantic meaning; it only makes iteration
// deterministic.
func (r *Registry) Instances() []engine.Instance {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]engine.Instance, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Size returns the number of registered instances.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
