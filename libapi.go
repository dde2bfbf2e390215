package streambind

import (
	"context"

	"github.com/streambind/streambind/engine"
	runtimepkg "github.com/streambind/streambind/internal/runtime"
	configpkg "github.com/streambind/streambind/internal/runtime/config"
	errspkg "github.com/streambind/streambind/internal/runtime/errors"
	"github.com/streambind/streambind/internal/runtime/jsoncodec"
	loggingpkg "github.com/streambind/streambind/internal/runtime/logging"
	"github.com/streambind/streambind/serde"
	newtransport "github.com/streambind/streambind/transport"
)

type (
	Config              = configpkg.Config
	SerdeErrorPolicy    = configpkg.SerdeErrorPolicy
	Service             = runtimepkg.Service
	ServiceDependencies = runtimepkg.ServiceDependencies

	Registry                = runtimepkg.Registry
	InteractiveQueryService = runtimepkg.InteractiveQueryService
	BinderMetrics           = runtimepkg.BinderMetrics
	StoreLookupError        = runtimepkg.StoreLookupError
	StoreNotDefinedError    = runtimepkg.StoreNotDefinedError

	// Engine contract types
	Instance              = engine.Instance
	InstanceState         = engine.State
	HostInfo              = engine.HostInfo
	StoreType             = engine.StoreType
	StateStore            = engine.StateStore
	ReadOnlyKeyValueStore = engine.ReadOnlyKeyValueStore
	ReadOnlyWindowStore   = engine.ReadOnlyWindowStore
	ReadOnlySessionStore  = engine.ReadOnlySessionStore
	StoreError            = engine.StoreError

	LogFields     = loggingpkg.LogFields
	ServiceLogger = loggingpkg.ServiceLogger

	ConfigValidationError = errspkg.ConfigValidationError

	// Modular transport types
	Transport         = newtransport.Transport
	TransportBuilder  = newtransport.Builder
	TransportConfig   = newtransport.Config
	TransportRegistry = newtransport.Registry
)

var (
	NewService     = runtimepkg.NewService
	TryNewService  = runtimepkg.TryNewService
	ValidateConfig = configpkg.ValidateConfig

	NewRegistry                = runtimepkg.NewRegistry
	NewInteractiveQueryService = runtimepkg.NewInteractiveQueryService
	NewBinderMetrics           = runtimepkg.NewBinderMetrics

	// Engine helpers
	ParseHostInfo = engine.ParseHostInfo
	IsTransient   = engine.IsTransient
	IsPermanent   = engine.IsPermanent

	// Store type discriminators
	KeyValueStoreType = engine.KeyValueStoreType
	WindowStoreType   = engine.WindowStoreType
	SessionStoreType  = engine.SessionStoreType

	// Serde error policies
	SerdeErrorLogAndContinue = configpkg.SerdeErrorLogAndContinue
	SerdeErrorLogAndFail     = configpkg.SerdeErrorLogAndFail
	SerdeErrorSendToDLQ      = configpkg.SerdeErrorSendToDLQ

	NewSlogServiceLogger      = loggingpkg.NewSlogServiceLogger
	NewWatermillServiceLogger = loggingpkg.NewWatermillServiceLogger
	NewNopServiceLogger       = loggingpkg.NewNopServiceLogger

	Marshal   = jsoncodec.Marshal
	Unmarshal = jsoncodec.Unmarshal
	Encode    = jsoncodec.Encode
	Decode    = jsoncodec.Decode

	ErrConfigRequired                 = errspkg.ErrConfigRequired
	ErrLoggerRequired                 = errspkg.ErrLoggerRequired
	ErrTopologyRequired               = errspkg.ErrTopologyRequired
	ErrNoInstancesRegistered          = errspkg.ErrNoInstancesRegistered
	ErrApplicationServerNotConfigured = errspkg.ErrApplicationServerNotConfigured

	// Modular transport registry.
	// Import individual transports via: _ "github.com/streambind/streambind/transport/kafka"
	DefaultTransportRegistry = newtransport.DefaultRegistry
	RegisterTransport        = newtransport.Register
	BuildTransport           = newtransport.Build
)

// GetQueryableStore resolves the named store with the requested type through
// the service's query facade without requiring a context at the call site.
func GetQueryableStore(svc *Service, name string, typ StoreType) (StateStore, error) {
	return svc.QueryService().GetQueryableStore(context.Background(), name, typ)
}

// GetHostInfo serializes key with ser and reports which host owns the
// partition holding it for the named store. The second result is false when
// the store is unknown to the cluster's assignment metadata.
func GetHostInfo[K any](qs *InteractiveQueryService, store string, key K, ser serde.Serializer[K]) (HostInfo, bool, error) {
	return runtimepkg.GetHostInfo(qs, store, key, ser)
}
