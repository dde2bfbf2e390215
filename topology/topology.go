// Package topology describes application-defined processing graphs that
// streambind binds to broker topics. A Builder assembles sources, processors,
// materialized stores, and sinks, validates the graph, and produces an
// immutable Topology that an engine instance executes.
package topology

import (
	"errors"
	"fmt"

	"github.com/streambind/streambind/engine"
	"github.com/streambind/streambind/serde"
)

// Validation errors returned by Builder.Build, matchable with errors.Is.
var (
	ErrNoName         = errors.New("topology: name is required")
	ErrNoSource       = errors.New("topology: at least one source is required")
	ErrDuplicateNode  = errors.New("topology: duplicate node name")
	ErrDuplicateStore = errors.New("topology: duplicate store name")
	ErrUnknownParent  = errors.New("topology: unknown parent node")
	ErrUnknownStore   = errors.New("topology: processor references unknown store")
	ErrNilProcessor   = errors.New("topology: processor function is required")
)

// UnprocessableRecordError marks a record that cannot be decoded or otherwise
// processed. The engine applies the configured serde-error policy (log and
// continue, log and fail, or forward to the dead letter topic) when a
// processor returns one.
type UnprocessableRecordError struct {
	Err error
}

func (e *UnprocessableRecordError) Error() string {
	return "unprocessable record: " + e.Err.Error()
}

func (e *UnprocessableRecordError) Unwrap() error { return e.Err }

// Unprocessable wraps err so the engine treats the current record as poison
// rather than as a processing fault.
func Unprocessable(err error) error {
	return &UnprocessableRecordError{Err: err}
}

// ProcessorContext is handed to each processor invocation. Forwarded records
// flow to the node's children; stores are the materialized views declared for
// the processor.
type ProcessorContext interface {
	// Forward emits a record to all children of the current node.
	Forward(key, value []byte)

	// KeyValueStore returns a declared key-value store by name. It panics if
	// the store was not declared for this processor; declarations are
	// validated at build time so this only fires on engine bugs.
	KeyValueStore(name string) engine.KeyValueStore

	// WindowStore returns a declared window store by name, with the same
	// declaration contract as KeyValueStore.
	WindowStore(name string) engine.WindowStore
}

// ProcessorFunc transforms one record. Returning an error wrapped by
// Unprocessable invokes the serde-error policy; any other error fails the
// record's delivery.
type ProcessorFunc func(ctx ProcessorContext, key, value []byte) error

// Source binds a node to a broker topic.
type Source struct {
	Name  string
	Topic string
}

// Processor is an intermediate node applying a ProcessorFunc to records from
// its parent.
type Processor struct {
	Name   string
	Parent string
	Fn     ProcessorFunc
	Stores []string
}

// Sink publishes records forwarded by its parent to a broker topic.
type Sink struct {
	Name   string
	Parent string
	Topic  string
}

// StoreSpec declares a materialized store by name and capability type.
type StoreSpec struct {
	Name string
	Type engine.StoreType
}

// Builder accumulates nodes and produces a validated Topology.
type Builder struct {
	name       string
	sources    []Source
	processors []Processor
	sinks      []Sink
	stores     []StoreSpec
}

// NewBuilder starts a topology with the given name. The name doubles as the
// default application id when the binder starts the topology.
func NewBuilder(name string) *Builder {
	return &Builder{name: name}
}

// AddSource registers a node consuming from topic.
func (b *Builder) AddSource(name, topic string) *Builder {
	b.sources = append(b.sources, Source{Name: name, Topic: topic})
	return b
}

// AddProcessor registers fn as a child of parent. Store names listed in
// stores become accessible through the ProcessorContext.
func (b *Builder) AddProcessor(name, parent string, fn ProcessorFunc, stores ...string) *Builder {
	b.processors = append(b.processors, Processor{Name: name, Parent: parent, Fn: fn, Stores: stores})
	return b
}

// AddSink registers a node publishing records forwarded by parent to topic.
func (b *Builder) AddSink(name, parent, topic string) *Builder {
	b.sinks = append(b.sinks, Sink{Name: name, Parent: parent, Topic: topic})
	return b
}

// AddStore declares a materialized store.
func (b *Builder) AddStore(name string, typ engine.StoreType) *Builder {
	b.stores = append(b.stores, StoreSpec{Name: name, Type: typ})
	return b
}

// AddCount registers a counting processor as a child of parent, materialized
// into a key-value store named storeName. Each record increments a per-key
// count; the updated count is forwarded as a big-endian int64 value under the
// record's key.
func (b *Builder) AddCount(name, parent, storeName string) *Builder {
	b.AddStore(storeName, engine.KeyValueStoreType)
	return b.AddProcessor(name, parent, func(ctx ProcessorContext, key, value []byte) error {
		store := ctx.KeyValueStore(storeName)

		var count int64
		if prev, ok := store.Get(key); ok {
			decoded, err := serde.Int64.Deserialize(prev)
			if err != nil {
				return fmt.Errorf("count state for store %q is corrupt: %w", storeName, err)
			}
			count = decoded
		}
		count++

		encoded, err := serde.Int64.Serialize(count)
		if err != nil {
			return err
		}
		store.Put(key, encoded)
		ctx.Forward(key, encoded)
		return nil
	}, storeName)
}

// Build validates the graph and returns an immutable Topology.
func (b *Builder) Build() (*Topology, error) {
	if b.name == "" {
		return nil, ErrNoName
	}
	if len(b.sources) == 0 {
		return nil, ErrNoSource
	}

	nodes := make(map[string]struct{})
	addNode := func(name string) error {
		if _, ok := nodes[name]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicateNode, name)
		}
		nodes[name] = struct{}{}
		return nil
	}

	stores := make(map[string]StoreSpec, len(b.stores))
	for _, s := range b.stores {
		if _, ok := stores[s.Name]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateStore, s.Name)
		}
		stores[s.Name] = s
	}

	for _, s := range b.sources {
		if err := addNode(s.Name); err != nil {
			return nil, err
		}
	}
	for _, p := range b.processors {
		if err := addNode(p.Name); err != nil {
			return nil, err
		}
		if p.Fn == nil {
			return nil, fmt.Errorf("%w: %q", ErrNilProcessor, p.Name)
		}
		for _, store := range p.Stores {
			if _, ok := stores[store]; !ok {
				return nil, fmt.Errorf("%w: processor %q references %q", ErrUnknownStore, p.Name, store)
			}
		}
	}
	for _, s := range b.sinks {
		if err := addNode(s.Name); err != nil {
			return nil, err
		}
	}

	// Parent references are resolved after all node names are known so
	// declaration order does not matter.
	for _, p := range b.processors {
		if _, ok := nodes[p.Parent]; !ok {
			return nil, fmt.Errorf("%w: processor %q parent %q", ErrUnknownParent, p.Name, p.Parent)
		}
	}
	for _, s := range b.sinks {
		if _, ok := nodes[s.Parent]; !ok {
			return nil, fmt.Errorf("%w: sink %q parent %q", ErrUnknownParent, s.Name, s.Parent)
		}
	}

	t := &Topology{
		name:       b.name,
		sources:    append([]Source(nil), b.sources...),
		processors: append([]Processor(nil), b.processors...),
		sinks:      append([]Sink(nil), b.sinks...),
		stores:     append([]StoreSpec(nil), b.stores...),
	}
	return t, nil
}

// MustBuild is Build for static topologies; it panics on validation failure.
func (b *Builder) MustBuild() *Topology {
	t, err := b.Build()
	if err != nil {
		panic(err)
	}
	return t
}

// Topology is a validated, immutable processing graph.
type Topology struct {
	name       string
	sources    []Source
	processors []Processor
	sinks      []Sink
	stores     []StoreSpec
}

func (t *Topology) Name() string { return t.name }

// Sources returns the topic-bound entry nodes.
func (t *Topology) Sources() []Source {
	return append([]Source(nil), t.sources...)
}

// Stores returns the declared materialized stores.
func (t *Topology) Stores() []StoreSpec {
	return append([]StoreSpec(nil), t.stores...)
}

// Processors returns the processors whose parent is the named node.
func (t *Topology) Processors(parent string) []Processor {
	var out []Processor
	for _, p := range t.processors {
		if p.Parent == parent {
			out = append(out, p)
		}
	}
	return out
}

// Sinks returns the sinks whose parent is the named node.
func (t *Topology) Sinks(parent string) []Sink {
	var out []Sink
	for _, s := range t.sinks {
		if s.Parent == parent {
			out = append(out, s)
		}
	}
	return out
}
