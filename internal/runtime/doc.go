/*
Package runtime provides the core binder infrastructure for streambind.

# Architecture Overview

The runtime package wires application topologies to a broker transport and
exposes interactive queries over the resulting engine instances. The Service
struct is the central orchestrator:

  - Transport construction through the transport registry
  - Engine instance lifecycle (engine/local) per bound topology
  - Instance registry shared by every interactive query
  - Interactive query service with retrying store lookups
  - Prometheus metrics and the /metrics endpoint

# Interactive Queries

InteractiveQueryService is the application-facing query surface:

  - GetQueryableStore resolves a named, typed store handle, retrying the
    transient window during which the engine is still restoring state
  - GetCurrentHostInfo reads the advertised application server endpoint
  - GetHostInfo answers which host owns the partition holding a key

# Sub-packages

  - config/: Binder configuration with normalization and validation
  - errors/: Sentinel errors and error types
  - ids/: ULID generation for engine instance identities
  - jsoncodec/: JSON marshaling utilities backing the JSON serde
  - logging/: Logger interface and adapters

# Usage Example

	cfg := &streambind.Config{
		BrokerSystem:      "kafka",
		KafkaBrokers:      []string{"localhost:9092"},
		ApplicationName:   "product-counts",
		ApplicationServer: "10.0.0.7:8080",
	}

	svc := streambind.NewService(cfg, logger, ctx, streambind.ServiceDependencies{})
	svc.BindTopology(countsTopology)
	go svc.Start(ctx)

	store, err := svc.QueryService().GetKeyValueStore(ctx, "prod-id-count-store")
*/
package runtime
