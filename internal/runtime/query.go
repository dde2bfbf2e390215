package runtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/streambind/streambind/engine"
	"github.com/streambind/streambind/internal/runtime/config"
	errspkg "github.com/streambind/streambind/internal/runtime/errors"
	"github.com/streambind/streambind/internal/runtime/logging"
	"github.com/streambind/streambind/serde"
)

// StoreLookupError reports that a store exists but never became queryable
// within the configured retry budget.
type StoreLookupError struct {
	Store    string
	Attempts int
}

func (e *StoreLookupError) Error() string {
	return fmt.Sprintf("streambind: store %q was not available for querying after %d attempts", e.Store, e.Attempts)
}

// StoreNotDefinedError reports that no registered topology defines the store.
// Unlike StoreLookupError this is permanent; retrying cannot help.
type StoreNotDefinedError struct {
	Store string
}

func (e *StoreNotDefinedError) Error() string {
	return fmt.Sprintf("streambind: store %q is not defined in any registered topology", e.Store)
}

// InteractiveQueryService resolves logical store names to queryable store
// handles and answers partition-ownership questions, hiding the window during
// which the engine is still restoring state. Lookups retry transient
// unavailability on the calling goroutine with the configured backoff.
type InteractiveQueryService struct {
	registry *Registry
	conf     *config.Config
	logger   logging.ServiceLogger
	tracer   trace.Tracer
}

// NewInteractiveQueryService builds a query service over the registry.
func NewInteractiveQueryService(registry *Registry, conf *config.Config, log logging.ServiceLogger) *InteractiveQueryService {
	return &InteractiveQueryService{
		registry: registry,
		conf:     conf,
		logger:   log,
		tracer:   otel.Tracer("streambind/query"),
	}
}

// GetQueryableStore resolves the named store with the requested type from the
// registered engine instances. Transient unavailability on an instance is
// retried against that same instance up to the configured maximum attempts,
// sleeping the configured backoff between attempts; ctx can cut the wait
// short. The returned handle is only handed out once the hosting instance
// reports the store as actively serving. When no instance hosts the store the
// failure is permanent (StoreNotDefinedError); when the store exists but
// retries are exhausted the failure is a StoreLookupError carrying the
// attempt count.
func (s *InteractiveQueryService) GetQueryableStore(ctx context.Context, name string, typ engine.StoreType) (engine.StateStore, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	maxAttempts := s.conf.StoreRetryMaxAttempts
	if maxAttempts < 1 {
		maxAttempts = config.DefaultStoreRetryMaxAttempts
	}
	interval := s.conf.StoreRetryBackoff
	if interval <= 0 {
		interval = config.DefaultStoreRetryBackoff
	}

	ctx, span := s.tracer.Start(ctx, "GetQueryableStore")
	defer span.End()
	span.SetAttributes(
		attribute.String("store.name", name),
		attribute.String("store.type", typ.Name()),
		attribute.Int("retry.max_attempts", maxAttempts),
	)

	instances := s.registry.Instances()
	if len(instances) == 0 {
		return nil, fmt.Errorf("%w: cannot resolve store %q", errspkg.ErrNoInstancesRegistered, name)
	}

	metrics := s.registry.metrics
	sawTransient := false

	for _, inst := range instances {
		var store engine.StateStore

		operation := func() error {
			metrics.StoreLookupAttempt(name)
			st, err := inst.Store(name, typ)
			if err != nil {
				if engine.IsTransient(err) {
					return err
				}
				return backoff.Permanent(err)
			}
			store = st
			return nil
		}

		policy := backoff.WithContext(
			backoff.WithMaxRetries(backoff.NewConstantBackOff(interval), uint64(maxAttempts-1)),
			ctx,
		)
		err := backoff.Retry(operation, policy)
		if err == nil {
			return store, nil
		}

		if engine.IsTransient(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			sawTransient = true
		}
		s.logger.Debug("Store lookup failed on instance", logging.LogFields{
			"store":       name,
			"instance_id": inst.ID(),
			"error":       err.Error(),
		})
	}

	metrics.StoreLookupFailure(name)
	if sawTransient {
		return nil, &StoreLookupError{Store: name, Attempts: maxAttempts}
	}
	return nil, &StoreNotDefinedError{Store: name}
}

// GetKeyValueStore is a convenience wrapper resolving a key-value store.
func (s *InteractiveQueryService) GetKeyValueStore(ctx context.Context, name string) (engine.ReadOnlyKeyValueStore, error) {
	st, err := s.GetQueryableStore(ctx, name, engine.KeyValueStoreType)
	if err != nil {
		return nil, err
	}
	kv, ok := st.(engine.ReadOnlyKeyValueStore)
	if !ok {
		return nil, engine.NewPermanentStoreError(name, engine.ErrStoreTypeInvalid)
	}
	return kv, nil
}

// GetCurrentHostInfo returns the endpoint this process advertises to the
// cluster, parsed from the configured application server address. It is a
// configuration read, never retried; without the address the caller cannot
// determine key locality and gets a typed error.
func (s *InteractiveQueryService) GetCurrentHostInfo() (engine.HostInfo, error) {
	if s.conf.ApplicationServer == "" {
		return engine.HostInfo{}, errspkg.ErrApplicationServerNotConfigured
	}
	return engine.ParseHostInfo(s.conf.ApplicationServer)
}

// GetHostInfoRaw reports which host owns the partition holding the serialized
// key for the named store, consulting each registered instance's assignment
// metadata once. An unknown store is an ordinary absent answer, not an error,
// and is never retried: the metadata is locally cached, so asking again
// synchronously cannot change the outcome.
func (s *InteractiveQueryService) GetHostInfoRaw(store string, key []byte) (engine.HostInfo, bool) {
	for _, inst := range s.registry.Instances() {
		if host, ok := inst.KeyOwner(store, key); ok {
			return host, true
		}
	}
	return engine.HostInfo{}, false
}

// GetHostInfo serializes key with ser and resolves the owning host for the
// named store. The serializer must place keys the same way the topology's
// producers do, or the answer is meaningless.
func GetHostInfo[K any](s *InteractiveQueryService, store string, key K, ser serde.Serializer[K]) (engine.HostInfo, bool, error) {
	raw, err := ser(key)
	if err != nil {
		return engine.HostInfo{}, false, fmt.Errorf("serializing key for store %q: %w", store, err)
	}
	host, ok := s.GetHostInfoRaw(store, raw)
	return host, ok, nil
}
