package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// SerdeErrorPolicy selects what the engine does with records that cannot be
// deserialized or otherwise processed.
type SerdeErrorPolicy string

const (
	// SerdeErrorLogAndContinue logs the poison record and keeps processing.
	SerdeErrorLogAndContinue SerdeErrorPolicy = "logAndContinue"
	// SerdeErrorLogAndFail logs the poison record and stops the instance.
	SerdeErrorLogAndFail SerdeErrorPolicy = "logAndFail"
	// SerdeErrorSendToDLQ forwards the poison record to the topic's dead
	// letter topic and keeps processing.
	SerdeErrorSendToDLQ SerdeErrorPolicy = "sendToDlq"
)

const (
	// DefaultStoreRetryMaxAttempts bounds store lookups racing topology startup.
	DefaultStoreRetryMaxAttempts = 3
	// DefaultStoreRetryBackoff is the pause between store lookup attempts.
	DefaultStoreRetryBackoff = time.Second
	// DefaultDLQSuffix is appended to a source topic to form its dead letter topic.
	DefaultDLQSuffix = ".dlq"

	// defaultBrokerPlaceholder mirrors the conventional local broker address;
	// an empty kafka broker list normalizes to it.
	defaultBrokerPlaceholder = "localhost:9092"
)

// Config groups the binder settings required to start topologies and serve
// interactive queries. Each transport only uses the keys relevant to it.
type Config struct {
	// BrokerSystem selects the backing broker transport. Supported values:
	// "kafka" or "channel" (in-memory, for tests and local development).
	BrokerSystem string

	// Kafka configuration.
	KafkaBrokers []string

	// ApplicationID identifies the topology's consumer group. When empty it
	// falls back to ApplicationName.
	ApplicationID string

	// ApplicationName is the logical name of the application hosting the
	// binder, used as the ApplicationID fallback.
	ApplicationName string

	// ApplicationServer is the "host:port" endpoint this process advertises to
	// the cluster for interactive queries. Leave empty if callers never need
	// host lookups; GetCurrentHostInfo then fails with a typed error.
	ApplicationServer string

	// Store lookup retry tuning. Zero values fall back to the defaults above.
	StoreRetryMaxAttempts int
	StoreRetryBackoff     time.Duration

	// SerdeError selects the poison record policy. Defaults to logAndFail.
	SerdeError SerdeErrorPolicy

	// DLQSuffix forms dead letter topic names when SerdeError is sendToDlq.
	DLQSuffix string

	// Metrics configuration.
	MetricsEnabled bool
	// MetricsPort is the port where Prometheus metrics will be exposed.
	MetricsPort int
}

// Getter methods to implement the transport.Config interface.
func (c *Config) GetBrokerSystem() string   { return c.BrokerSystem }
func (c *Config) GetKafkaBrokers() []string { return c.KafkaBrokers }
func (c *Config) GetApplicationID() string  { return c.ApplicationID }

func (c Config) String() string {
	// Type alias avoids infinite recursion when printing.
	type configAlias Config
	return fmt.Sprintf("%+v", configAlias(c))
}

// Normalize applies defaults and fallbacks in place. The binder calls it once
// at startup before Validate.
func (c *Config) Normalize() {
	if c.ApplicationID == "" {
		c.ApplicationID = c.ApplicationName
	}
	if c.StoreRetryMaxAttempts <= 0 {
		c.StoreRetryMaxAttempts = DefaultStoreRetryMaxAttempts
	}
	if c.StoreRetryBackoff <= 0 {
		c.StoreRetryBackoff = DefaultStoreRetryBackoff
	}
	if c.SerdeError == "" {
		c.SerdeError = SerdeErrorLogAndFail
	}
	if c.DLQSuffix == "" {
		c.DLQSuffix = DefaultDLQSuffix
	}
	if strings.EqualFold(c.BrokerSystem, "kafka") && len(c.KafkaBrokers) == 0 {
		c.KafkaBrokers = []string{defaultBrokerPlaceholder}
	}
}

// Validate checks that the configuration has all required fields for the
// selected transport. Returns an error describing any missing or invalid
// configuration. Validation of broker system values is lenient to allow
// custom transport builders.
func (c *Config) Validate() error {
	var errs []error

	errs = append(errs, c.validateTransport()...)
	errs = append(errs, c.validateRetry()...)
	errs = append(errs, c.validatePolicies()...)

	return errors.Join(errs...)
}

func (c *Config) validateTransport() []error {
	var errs []error
	if strings.EqualFold(c.BrokerSystem, "kafka") && len(c.KafkaBrokers) == 0 {
		errs = append(errs, errors.New("kafka: brokers are required"))
	}
	if c.ApplicationID == "" {
		errs = append(errs, errors.New("application id or application name is required"))
	}
	return errs
}

func (c *Config) validateRetry() []error {
	var errs []error
	if c.StoreRetryMaxAttempts < 1 {
		errs = append(errs, errors.New("store retry: max attempts must be at least 1"))
	}
	if c.StoreRetryBackoff < 0 {
		errs = append(errs, errors.New("store retry: backoff cannot be negative"))
	}
	return errs
}

func (c *Config) validatePolicies() []error {
	var errs []error
	switch c.SerdeError {
	case "", SerdeErrorLogAndContinue, SerdeErrorLogAndFail, SerdeErrorSendToDLQ:
	default:
		errs = append(errs, fmt.Errorf("serde error: unknown policy %q", c.SerdeError))
	}
	if c.MetricsPort < 0 || c.MetricsPort > 65535 {
		errs = append(errs, fmt.Errorf("metrics: invalid port %d", c.MetricsPort))
	}
	return errs
}

// ValidateConfig is a convenience function to validate a config pointer.
// Returns nil if the config is valid.
func ValidateConfig(c *Config) error {
	if c == nil {
		return errors.New("config is nil")
	}
	return c.Validate()
}
