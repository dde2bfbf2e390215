package runtime

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/streambind/streambind/engine"
	"github.com/streambind/streambind/engine/local"
	"github.com/streambind/streambind/internal/runtime/config"
	errspkg "github.com/streambind/streambind/internal/runtime/errors"
	"github.com/streambind/streambind/internal/runtime/logging"
	"github.com/streambind/streambind/topology"
	"github.com/streambind/streambind/transport"
)

// ServiceDependencies holds the optional collaborators the Service can use.
// Leave fields nil for the defaults.
type ServiceDependencies struct {
	// TransportBuilder overrides the registry-based transport construction.
	TransportBuilder transport.Builder

	// Registerer receives the binder metric families. Defaults to the
	// global Prometheus registerer.
	Registerer prometheus.Registerer
}

// Service is the binder: it owns the broker transport, starts topologies as
// engine instances, registers them, and exposes the interactive query
// service over them.
type Service struct {
	Conf   *config.Config
	Logger logging.ServiceLogger

	transport transport.Transport
	registry  *Registry
	metrics   *BinderMetrics
	query     *InteractiveQueryService

	mu        sync.Mutex
	instances []*local.Instance
}

// TryNewService constructs a Service for the supplied configuration,
// normalizing and validating it first. Bind topologies on the returned
// Service before calling Start.
func TryNewService(conf *config.Config, log logging.ServiceLogger, ctx context.Context, deps ServiceDependencies) (*Service, error) {
	if conf == nil {
		return nil, errspkg.ErrConfigRequired
	}
	if log == nil {
		return nil, errspkg.ErrLoggerRequired
	}

	conf.Normalize()
	if err := conf.Validate(); err != nil {
		return nil, errspkg.NewConfigValidationError(err)
	}

	log.Info("Creating streams binder", logging.LogFields{
		"broker_system":  conf.BrokerSystem,
		"application_id": conf.ApplicationID,
	})

	wmLogger := logging.NewWatermillAdapter(log)
	builder := deps.TransportBuilder
	var (
		tr  transport.Transport
		err error
	)
	if builder != nil {
		tr, err = builder(ctx, conf, wmLogger)
	} else {
		tr, err = transport.Build(ctx, conf, wmLogger)
	}
	if err != nil {
		return nil, err
	}

	var metrics *BinderMetrics
	if conf.MetricsEnabled {
		registerer := deps.Registerer
		if registerer == nil {
			registerer = prometheus.DefaultRegisterer
		}
		metrics = NewBinderMetrics(registerer)
	}

	registry := NewRegistry(metrics)
	return &Service{
		Conf:      conf,
		Logger:    log,
		transport: tr,
		registry:  registry,
		metrics:   metrics,
		query:     NewInteractiveQueryService(registry, conf, log),
	}, nil
}

// NewService is TryNewService for static wiring; it panics on failure.
func NewService(conf *config.Config, log logging.ServiceLogger, ctx context.Context, deps ServiceDependencies) *Service {
	s, err := TryNewService(conf, log, ctx, deps)
	if err != nil {
		panic(err)
	}
	return s
}

// BindTopology creates an engine instance for the topology and registers it
// with the instance registry. The instance starts consuming when Start runs.
func (s *Service) BindTopology(t *topology.Topology) (engine.Instance, error) {
	inst, err := local.New(t, s.transport, s.Conf, s.Logger)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		inst.SetStateListener(s.metrics.InstanceState)
	}

	s.mu.Lock()
	s.instances = append(s.instances, inst)
	s.mu.Unlock()

	s.registry.RegisterInstance(inst)
	return inst, nil
}

// Start runs all bound instances until ctx is cancelled or an instance fails.
// It blocks the calling goroutine, mirroring the lifetime of the process.
func (s *Service) Start(ctx context.Context) error {
	s.startMetricsServer()

	s.mu.Lock()
	instances := append([]*local.Instance(nil), s.instances...)
	s.mu.Unlock()

	errs := make(chan error, len(instances))
	var wg sync.WaitGroup
	for _, inst := range instances {
		wg.Add(1)
		go func(inst *local.Instance) {
			defer wg.Done()
			if err := inst.Run(ctx); err != nil {
				errs <- err
			}
		}(inst)
	}
	wg.Wait()
	close(errs)
	return <-errs
}

// WaitUntilRunning blocks until every bound instance serves queries or ctx
// expires. Callers that query stores immediately after Start typically wait
// here first instead of relying on the lookup retry budget.
func (s *Service) WaitUntilRunning(ctx context.Context) error {
	s.mu.Lock()
	instances := append([]*local.Instance(nil), s.instances...)
	s.mu.Unlock()

	for _, inst := range instances {
		if err := inst.WaitUntilRunning(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Close stops all bound instances.
func (s *Service) Close() error {
	s.mu.Lock()
	instances := append([]*local.Instance(nil), s.instances...)
	s.mu.Unlock()

	var firstErr error
	for _, inst := range instances {
		if err := inst.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// QueryService returns the interactive query facade for application code.
func (s *Service) QueryService() *InteractiveQueryService {
	return s.query
}

// Registry returns the instance registry.
func (s *Service) Registry() *Registry {
	return s.registry
}

func (s *Service) startMetricsServer() {
	if s.metrics == nil || s.Conf.MetricsPort <= 0 {
		return
	}

	addr := fmt.Sprintf(":%d", s.Conf.MetricsPort)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	s.Logger.Info("Starting metrics server", logging.LogFields{"address": addr})
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			s.Logger.Error("Metrics server stopped", err, logging.LogFields{"address": addr})
		}
	}()
}
