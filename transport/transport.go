// Package transport defines the broker abstraction streambind topologies run
// against. Each backend (kafka, channel) lives in its own sub-package and
// registers itself with the transport registry.
package transport

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// Transport combines the publisher and subscriber pair produced by a builder.
type Transport struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
}

// Builder is the function signature for creating a transport from config.
// Each transport package should provide a Builder function that can be registered.
type Builder func(ctx context.Context, cfg Config, logger watermill.LoggerAdapter) (Transport, error)

// Config provides the configuration values needed by transports. This
// interface allows transports to access only the config they need without
// depending on the full config package.
type Config interface {
	// GetBrokerSystem returns the transport type name.
	GetBrokerSystem() string

	// Kafka
	GetKafkaBrokers() []string

	// GetApplicationID returns the consumer group / application identifier.
	GetApplicationID() string
}
