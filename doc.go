// Package streambind binds application-defined stream processing topologies
// to broker topics and exposes an interactive query facade over the engine's
// local state stores. It reads the target transport (Kafka or in-memory Go
// channels) from Config, starts each bound topology as a process-local engine
// instance on a Watermill router, and tracks the instances in a registry
// shared by every query.
//
// The centerpiece is the InteractiveQueryService: given a logical store name
// it returns a handle to that store's current state, and given a key it
// reports which cluster node owns the partition holding it. Because the
// engine rebuilds stores asynchronously, a store may not exist at the exact
// moment of lookup; the query service retries that transient window with a
// configurable attempt budget and backoff before failing with a typed error,
// and never hands out a handle to a store that is still restoring.
//
// # Topologies
//
// Topologies are assembled with topology.NewBuilder: sources bind nodes to
// topics, processors transform records and update materialized stores, and
// sinks publish results. AddCount materializes a per-key counter, the common
// aggregation for interactive queries.
//
// # Transports
//
//   - kafka: production broker via Watermill's Kafka transport
//   - channel: in-memory Go channels for tests and local development
//
// # Queries
//
// A minimal setup fills Config, creates a Service, binds topologies, and
// calls Start. Application code then resolves stores through
// Service.QueryService:
//
//	store, err := svc.QueryService().GetKeyValueStore(ctx, "prod-id-count-store")
//	if err != nil {
//		return err
//	}
//	count, ok := store.Get(key)
//
// Host lookups for remote keys use GetHostInfo with the same serializer the
// producing side uses for partition placement.
package streambind
