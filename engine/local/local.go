// Package local implements a process-local engine instance that executes a
// topology on a Watermill router. It subscribes to each source topic through
// the configured transport, drives records through the processor graph,
// maintains the topology's materialized stores in memory, and serves the
// engine.Instance contract to the interactive query service.
package local

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/streambind/streambind/engine"
	"github.com/streambind/streambind/internal/runtime/config"
	errspkg "github.com/streambind/streambind/internal/runtime/errors"
	"github.com/streambind/streambind/internal/runtime/ids"
	"github.com/streambind/streambind/internal/runtime/logging"
	"github.com/streambind/streambind/topology"
	"github.com/streambind/streambind/transport"
)

// MetadataKeyRecordKey carries the record key across the broker, since the
// transports move opaque payloads with metadata.
const MetadataKeyRecordKey = "streambind_record_key"

// StateListener observes instance lifecycle transitions. The binder wires the
// metrics collaborator through it.
type StateListener func(instanceID string, state engine.State)

// Instance executes one topology. It satisfies engine.Instance.
type Instance struct {
	id   string
	topo *topology.Topology
	conf *config.Config

	logger     logging.ServiceLogger
	publisher  message.Publisher
	subscriber message.Subscriber
	router     *message.Router

	hostInfo engine.HostInfo
	stores   map[string]engine.StateStore

	state    atomic.Int32
	running  chan struct{}
	runOnce  sync.Once
	listener StateListener
}

// New builds an instance for the topology using the supplied transport. The
// instance does not consume records until Run is called.
func New(topo *topology.Topology, tr transport.Transport, conf *config.Config, log logging.ServiceLogger) (*Instance, error) {
	if topo == nil {
		return nil, errspkg.ErrTopologyRequired
	}
	if conf == nil {
		return nil, errspkg.ErrConfigRequired
	}
	if log == nil {
		return nil, errspkg.ErrLoggerRequired
	}

	var hostInfo engine.HostInfo
	if conf.ApplicationServer != "" {
		parsed, err := engine.ParseHostInfo(conf.ApplicationServer)
		if err != nil {
			return nil, err
		}
		hostInfo = parsed
	}

	stores := make(map[string]engine.StateStore)
	for _, spec := range topo.Stores() {
		stores[spec.Name] = engine.NewStore(spec.Name, spec.Type)
	}

	router, err := message.NewRouter(message.RouterConfig{}, logging.NewWatermillAdapter(log))
	if err != nil {
		return nil, err
	}

	i := &Instance{
		id:         ids.NewInstanceID(),
		topo:       topo,
		conf:       conf,
		logger:     log.With(logging.LogFields{"topology": topo.Name()}),
		publisher:  tr.Publisher,
		subscriber: tr.Subscriber,
		router:     router,
		hostInfo:   hostInfo,
		stores:     stores,
		running:    make(chan struct{}),
	}
	i.state.Store(int32(engine.StateCreated))

	for _, src := range topo.Sources() {
		src := src
		router.AddNoPublisherHandler(
			fmt.Sprintf("%s/%s", topo.Name(), src.Name),
			src.Topic,
			i.subscriber,
			func(msg *message.Message) error {
				return i.consume(src, msg)
			},
		)
	}

	return i, nil
}

// SetStateListener registers a lifecycle observer. Must be called before Run.
func (i *Instance) SetStateListener(l StateListener) {
	i.listener = l
}

// Run drives the instance until ctx is cancelled or the router stops. The
// instance moves through rebalancing into running once all source
// subscriptions are established.
func (i *Instance) Run(ctx context.Context) error {
	i.setState(engine.StateRebalancing)

	go func() {
		select {
		case <-i.router.Running():
			i.setState(engine.StateRunning)
			i.runOnce.Do(func() { close(i.running) })
		case <-ctx.Done():
		}
	}()

	err := i.router.Run(ctx)
	if engine.State(i.state.Load()) != engine.StateError {
		i.setState(engine.StateClosed)
	}
	return err
}

// WaitUntilRunning blocks until the instance serves queries or ctx expires.
func (i *Instance) WaitUntilRunning(ctx context.Context) error {
	select {
	case <-i.running:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the router and releases the subscriptions.
func (i *Instance) Close() error {
	err := i.router.Close()
	if engine.State(i.state.Load()) != engine.StateError {
		i.setState(engine.StateClosed)
	}
	return err
}

func (i *Instance) setState(s engine.State) {
	i.state.Store(int32(s))
	if i.listener != nil {
		i.listener(i.id, s)
	}
}

// ID implements engine.Instance.
func (i *Instance) ID() string { return i.id }

// State implements engine.Instance.
func (i *Instance) State() engine.State {
	return engine.State(i.state.Load())
}

// Stores implements engine.Instance.
func (i *Instance) Stores() []string {
	names := make([]string, 0, len(i.stores))
	for name := range i.stores {
		names = append(names, name)
	}
	return names
}

// Store implements engine.Instance. The store map is immutable after New, so
// concurrent lookups need no locking; store contents have their own locks.
func (i *Instance) Store(name string, typ engine.StoreType) (engine.StateStore, error) {
	st, ok := i.stores[name]
	if !ok {
		return nil, engine.NewPermanentStoreError(name, engine.ErrStoreNotFound)
	}

	switch state := i.State(); {
	case state == engine.StateClosed || state == engine.StateError:
		return nil, engine.NewPermanentStoreError(name, engine.ErrInstanceClosed)
	case !state.Queryable():
		return nil, engine.NewTransientStoreError(name, engine.ErrStoreNotReady)
	}

	if !typ.Accepts(st) {
		return nil, engine.NewPermanentStoreError(name,
			fmt.Errorf("%w: want %s", engine.ErrStoreTypeInvalid, typ.Name()))
	}
	return st, nil
}

// KeyOwner implements engine.Instance. The local engine owns every partition
// of the stores it materializes, so any key of a known store resolves to this
// process's advertised endpoint. Unknown stores are an absent answer.
func (i *Instance) KeyOwner(store string, key []byte) (engine.HostInfo, bool) {
	if _, ok := i.stores[store]; !ok {
		return engine.HostInfo{}, false
	}
	if i.hostInfo.IsZero() {
		return engine.HostInfo{}, false
	}
	return i.hostInfo, true
}

func (i *Instance) consume(src topology.Source, msg *message.Message) error {
	key := []byte(msg.Metadata[MetadataKeyRecordKey])

	err := i.dispatch(src.Name, key, msg.Payload)
	if err == nil {
		return nil
	}

	var unprocessable *topology.UnprocessableRecordError
	if !errors.As(err, &unprocessable) {
		return err
	}

	switch i.conf.SerdeError {
	case config.SerdeErrorLogAndContinue:
		i.logger.Error("Dropping unprocessable record", err, logging.LogFields{
			"topic":        src.Topic,
			"message_uuid": msg.UUID,
		})
		return nil
	case config.SerdeErrorSendToDLQ:
		dlqTopic := src.Topic + i.conf.DLQSuffix
		dlqMsg := message.NewMessage(msg.UUID, msg.Payload)
		dlqMsg.Metadata = msg.Metadata
		if pubErr := i.publisher.Publish(dlqTopic, dlqMsg); pubErr != nil {
			return fmt.Errorf("forwarding unprocessable record to %s: %w", dlqTopic, pubErr)
		}
		i.logger.Info("Forwarded unprocessable record to dead letter topic", logging.LogFields{
			"topic":        src.Topic,
			"dlq_topic":    dlqTopic,
			"message_uuid": msg.UUID,
		})
		return nil
	default:
		i.logger.Error("Unprocessable record, failing instance", err, logging.LogFields{
			"topic":        src.Topic,
			"message_uuid": msg.UUID,
		})
		i.setState(engine.StateError)
		return err
	}
}

// dispatch routes one record to the children of the named node.
func (i *Instance) dispatch(node string, key, value []byte) error {
	for _, p := range i.topo.Processors(node) {
		pctx := &procContext{inst: i, node: p.Name, declared: p.Stores}
		if err := p.Fn(pctx, key, value); err != nil {
			return err
		}
		if pctx.err != nil {
			return pctx.err
		}
	}

	for _, s := range i.topo.Sinks(node) {
		msg := message.NewMessage(watermill.NewUUID(), value)
		if len(key) > 0 {
			msg.Metadata.Set(MetadataKeyRecordKey, string(key))
		}
		if err := i.publisher.Publish(s.Topic, msg); err != nil {
			return fmt.Errorf("publishing to sink %q: %w", s.Name, err)
		}
	}
	return nil
}

// procContext carries forwarding and store access for one processor invocation.
type procContext struct {
	inst     *Instance
	node     string
	declared []string
	err      error
}

func (c *procContext) Forward(key, value []byte) {
	if c.err != nil {
		return
	}
	if err := c.inst.dispatch(c.node, key, value); err != nil {
		c.err = err
	}
}

func (c *procContext) KeyValueStore(name string) engine.KeyValueStore {
	st, ok := c.store(name).(engine.KeyValueStore)
	if !ok {
		panic(fmt.Sprintf("streambind: store %q is not a key-value store", name))
	}
	return st
}

func (c *procContext) WindowStore(name string) engine.WindowStore {
	st, ok := c.store(name).(engine.WindowStore)
	if !ok {
		panic(fmt.Sprintf("streambind: store %q is not a window store", name))
	}
	return st
}

func (c *procContext) store(name string) engine.StateStore {
	for _, declared := range c.declared {
		if declared == name {
			return c.inst.stores[name]
		}
	}
	panic(fmt.Sprintf("streambind: processor %q did not declare store %q", c.node, name))
}
