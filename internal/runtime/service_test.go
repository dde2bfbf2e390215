package runtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streambind/streambind/engine"
	"github.com/streambind/streambind/engine/local"
	"github.com/streambind/streambind/internal/runtime/config"
	errspkg "github.com/streambind/streambind/internal/runtime/errors"
	"github.com/streambind/streambind/internal/runtime/logging"
	"github.com/streambind/streambind/serde"
	"github.com/streambind/streambind/topology"
	"github.com/streambind/streambind/transport"
)

func serviceConfig() *config.Config {
	return &config.Config{
		BrokerSystem:      "channel",
		ApplicationName:   "service-test",
		ApplicationServer: "127.0.0.1:9092",
		StoreRetryBackoff: 10 * time.Millisecond,
	}
}

// sharedChannelBuilder hands the service an in-memory transport the test keeps
// a publishing handle on.
func sharedChannelBuilder(pubSub *gochannel.GoChannel) transport.Builder {
	return func(ctx context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (transport.Transport, error) {
		return transport.Transport{Publisher: pubSub, Subscriber: pubSub}, nil
	}
}

func TestTryNewServiceValidation(t *testing.T) {
	ctx := context.Background()
	log := logging.NewNopServiceLogger()
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	deps := ServiceDependencies{TransportBuilder: sharedChannelBuilder(pubSub)}

	t.Run("nil config", func(t *testing.T) {
		_, err := TryNewService(nil, log, ctx, deps)
		assert.ErrorIs(t, err, errspkg.ErrConfigRequired)
	})

	t.Run("nil logger", func(t *testing.T) {
		_, err := TryNewService(serviceConfig(), nil, ctx, deps)
		assert.ErrorIs(t, err, errspkg.ErrLoggerRequired)
	})

	t.Run("invalid config", func(t *testing.T) {
		conf := &config.Config{BrokerSystem: "channel"}
		_, err := TryNewService(conf, log, ctx, deps)

		var cfgErr errspkg.ConfigValidationError
		assert.True(t, errors.As(err, &cfgErr))
	})

	t.Run("valid", func(t *testing.T) {
		svc, err := TryNewService(serviceConfig(), log, ctx, deps)
		require.NoError(t, err)
		assert.NotNil(t, svc.QueryService())
		assert.Equal(t, 0, svc.Registry().Size())
	})
}

func TestNewServicePanicsOnInvalidConfig(t *testing.T) {
	assert.Panics(t, func() {
		NewService(nil, logging.NewNopServiceLogger(), context.Background(), ServiceDependencies{})
	})
}

// startService binds nothing extra and runs the service until the test ends.
func startService(t *testing.T, svc *Service) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = svc.Start(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()
	require.NoError(t, svc.WaitUntilRunning(waitCtx))
}

func TestServiceEndToEndQuery(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	deps := ServiceDependencies{
		TransportBuilder: sharedChannelBuilder(pubSub),
		Registerer:       prometheus.NewRegistry(),
	}

	svc, err := TryNewService(serviceConfig(), logging.NewNopServiceLogger(), context.Background(), deps)
	require.NoError(t, err)

	topo := topology.NewBuilder("prod-counts").
		AddSource("src", "products").
		AddCount("count", "src", "prod-id-count-store").
		MustBuild()

	inst, err := svc.BindTopology(topo)
	require.NoError(t, err)
	assert.Equal(t, 1, svc.Registry().Size())

	startService(t, svc)
	assert.Equal(t, engine.StateRunning, inst.State())

	msg := message.NewMessage(watermill.NewUUID(), []byte("product"))
	msg.Metadata.Set(local.MetadataKeyRecordKey, "123")
	require.NoError(t, pubSub.Publish("products", msg))

	qs := svc.QueryService()
	kv, err := qs.GetKeyValueStore(context.Background(), "prod-id-count-store")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		raw, ok := kv.Get([]byte("123"))
		if !ok {
			return false
		}
		count, err := serde.Int64.Deserialize(raw)
		return err == nil && count == 1
	}, 5*time.Second, 10*time.Millisecond)

	t.Run("current host info round trips", func(t *testing.T) {
		host, err := qs.GetCurrentHostInfo()
		require.NoError(t, err)
		assert.Equal(t, "127.0.0.1:9092", host.String())
	})

	t.Run("host lookup finds the owning instance", func(t *testing.T) {
		host, ok, err := GetHostInfo(qs, "prod-id-count-store", "123", serde.String.Serialize)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "127.0.0.1", host.Host)
	})

	t.Run("unknown store fails without retrying forever", func(t *testing.T) {
		_, err := qs.GetQueryableStore(context.Background(), "nonexistent", engine.KeyValueStoreType)

		var notDefined *StoreNotDefinedError
		assert.True(t, errors.As(err, &notDefined))
	})
}

func TestServiceClose(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	deps := ServiceDependencies{TransportBuilder: sharedChannelBuilder(pubSub)}

	svc, err := TryNewService(serviceConfig(), logging.NewNopServiceLogger(), context.Background(), deps)
	require.NoError(t, err)

	topo := topology.NewBuilder("closer").
		AddSource("src", "topic").
		MustBuild()
	inst, err := svc.BindTopology(topo)
	require.NoError(t, err)

	startService(t, svc)
	require.NoError(t, svc.Close())
	assert.Equal(t, engine.StateClosed, inst.State())
}
