// Package engine defines the contract between streambind and a running
// stream-processing engine instance: instance lifecycle states, queryable
// state store capabilities, and the partition-ownership metadata surface.
// Engine implementations (see engine/local) are registered with the binder's
// instance registry and queried through the interactive query service.
package engine

// State describes the lifecycle of an engine instance as observed by the
// query layer. Stores are only queryable while the instance is running.
type State int32

const (
	StateCreated State = iota
	StateRebalancing
	StateRunning
	StateClosed
	StateError
)

var stateNames = map[State]string{
	StateCreated:     "created",
	StateRebalancing: "rebalancing",
	StateRunning:     "running",
	StateClosed:      "closed",
	StateError:       "error",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Queryable reports whether stores hosted by an instance in this state may
// serve reads.
func (s State) Queryable() bool {
	return s == StateRunning
}

// Instance is one running process-local execution of a topology. Multiple
// instances may be live in the same process, one per started topology.
// Implementations must tolerate concurrent calls without external locking.
type Instance interface {
	// ID returns a unique identifier for this instance.
	ID() string

	// State returns the current lifecycle state.
	State() State

	// Stores lists the names of the materialized stores this instance defines,
	// regardless of whether they are currently queryable.
	Stores() []string

	// Store resolves the named store with the requested capability set.
	// While the instance is rebalancing or still restoring state the error is
	// transient (IsTransient); a store that is not defined by this instance's
	// topology, or an instance that is closed, yields a permanent error.
	Store(name string, typ StoreType) (StateStore, error)

	// KeyOwner reports the host that owns the partition holding the given
	// serialized key for the named store. The second return value is false
	// when the store is unknown to the instance's assignment metadata; that
	// is an ordinary absent answer, not an error.
	KeyOwner(store string, key []byte) (HostInfo, bool)
}

// StoreType discriminates the capability set expected from a queryable store,
// e.g. key-value versus windowed access. Store lookups fail permanently when
// the resolved store does not accept the requested type.
type StoreType struct {
	name    string
	accepts func(StateStore) bool
}

func (t StoreType) Name() string { return t.name }

// Accepts reports whether the candidate store exposes this type's capability set.
func (t StoreType) Accepts(s StateStore) bool {
	if t.accepts == nil || s == nil {
		return false
	}
	return t.accepts(s)
}

var (
	// KeyValueStoreType matches stores exposing point lookups and range scans.
	KeyValueStoreType = StoreType{
		name: "key-value",
		accepts: func(s StateStore) bool {
			_, ok := s.(ReadOnlyKeyValueStore)
			return ok
		},
	}

	// WindowStoreType matches stores exposing time-windowed fetches.
	WindowStoreType = StoreType{
		name: "window",
		accepts: func(s StateStore) bool {
			_, ok := s.(ReadOnlyWindowStore)
			return ok
		},
	}

	// SessionStoreType matches stores exposing session-windowed fetches.
	SessionStoreType = StoreType{
		name: "session",
		accepts: func(s StateStore) bool {
			_, ok := s.(ReadOnlySessionStore)
			return ok
		},
	}
)
