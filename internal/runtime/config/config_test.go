package config

import (
	"strings"
	"testing"
	"time"
)

// Transport validation tests
func TestConfigValidate_ChannelTransport(t *testing.T) {
	tests := []struct {
		name   string
		config Config
	}{
		{"channel needs no brokers", Config{BrokerSystem: "channel", ApplicationID: "app"}},
		{"case-insensitive", Config{BrokerSystem: "Channel", ApplicationID: "app"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.config.Validate(); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestConfigValidate_KafkaTransport(t *testing.T) {
	t.Run("missing brokers", func(t *testing.T) {
		cfg := Config{BrokerSystem: "kafka", ApplicationID: "app"}
		err := cfg.Validate()
		assertErrorContains(t, err, "kafka: brokers are required")
	})

	t.Run("valid", func(t *testing.T) {
		cfg := Config{
			BrokerSystem:  "kafka",
			KafkaBrokers:  []string{"localhost:9092"},
			ApplicationID: "app",
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestConfigValidate_CustomTransport(t *testing.T) {
	cfg := Config{BrokerSystem: "custom-transport", ApplicationID: "app"}
	if err := cfg.Validate(); err != nil {
		t.Errorf("custom transport should be allowed: %v", err)
	}
}

func TestConfigValidate_ApplicationID(t *testing.T) {
	t.Run("missing id and name", func(t *testing.T) {
		cfg := Config{BrokerSystem: "channel"}
		err := cfg.Validate()
		assertErrorContains(t, err, "application id or application name is required")
	})

	t.Run("name alone normalizes into id", func(t *testing.T) {
		cfg := Config{BrokerSystem: "channel", ApplicationName: "orders-service"}
		cfg.Normalize()
		if cfg.ApplicationID != "orders-service" {
			t.Errorf("ApplicationID = %q, want %q", cfg.ApplicationID, "orders-service")
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("explicit id wins over name", func(t *testing.T) {
		cfg := Config{ApplicationID: "explicit", ApplicationName: "fallback"}
		cfg.Normalize()
		if cfg.ApplicationID != "explicit" {
			t.Errorf("ApplicationID = %q, want %q", cfg.ApplicationID, "explicit")
		}
	})
}

// Retry configuration tests
func TestConfigValidate_RetryConfig(t *testing.T) {
	t.Run("zero attempts rejected before normalization", func(t *testing.T) {
		cfg := Config{BrokerSystem: "channel", ApplicationID: "app"}
		err := cfg.Validate()
		assertErrorContains(t, err, "store retry: max attempts must be at least 1")
	})

	t.Run("negative backoff", func(t *testing.T) {
		cfg := Config{
			BrokerSystem:          "channel",
			ApplicationID:         "app",
			StoreRetryMaxAttempts: 3,
			StoreRetryBackoff:     -1 * time.Second,
		}
		err := cfg.Validate()
		assertErrorContains(t, err, "store retry: backoff cannot be negative")
	})

	t.Run("valid retry config", func(t *testing.T) {
		cfg := Config{
			BrokerSystem:          "channel",
			ApplicationID:         "app",
			StoreRetryMaxAttempts: 5,
			StoreRetryBackoff:     250 * time.Millisecond,
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestConfigValidate_SerdeErrorPolicy(t *testing.T) {
	t.Run("unknown policy", func(t *testing.T) {
		cfg := Config{
			BrokerSystem:          "channel",
			ApplicationID:         "app",
			StoreRetryMaxAttempts: 3,
			SerdeError:            "explode",
		}
		err := cfg.Validate()
		assertErrorContains(t, err, "serde error: unknown policy")
	})

	t.Run("known policies", func(t *testing.T) {
		for _, policy := range []SerdeErrorPolicy{SerdeErrorLogAndContinue, SerdeErrorLogAndFail, SerdeErrorSendToDLQ} {
			cfg := Config{
				BrokerSystem:          "channel",
				ApplicationID:         "app",
				StoreRetryMaxAttempts: 3,
				SerdeError:            policy,
			}
			if err := cfg.Validate(); err != nil {
				t.Errorf("policy %q: unexpected error: %v", policy, err)
			}
		}
	})
}

// Port configuration tests
func TestConfigValidate_Ports(t *testing.T) {
	t.Run("invalid metrics port high", func(t *testing.T) {
		cfg := Config{
			BrokerSystem:          "channel",
			ApplicationID:         "app",
			StoreRetryMaxAttempts: 3,
			MetricsPort:           70000,
		}
		err := cfg.Validate()
		assertErrorContains(t, err, "metrics: invalid port")
	})

	t.Run("valid port", func(t *testing.T) {
		cfg := Config{
			BrokerSystem:          "channel",
			ApplicationID:         "app",
			StoreRetryMaxAttempts: 3,
			MetricsPort:           9090,
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestNormalizeDefaults(t *testing.T) {
	cfg := Config{BrokerSystem: "kafka", ApplicationName: "orders"}
	cfg.Normalize()

	if cfg.StoreRetryMaxAttempts != DefaultStoreRetryMaxAttempts {
		t.Errorf("StoreRetryMaxAttempts = %d, want %d", cfg.StoreRetryMaxAttempts, DefaultStoreRetryMaxAttempts)
	}
	if cfg.StoreRetryBackoff != DefaultStoreRetryBackoff {
		t.Errorf("StoreRetryBackoff = %v, want %v", cfg.StoreRetryBackoff, DefaultStoreRetryBackoff)
	}
	if cfg.SerdeError != SerdeErrorLogAndFail {
		t.Errorf("SerdeError = %q, want %q", cfg.SerdeError, SerdeErrorLogAndFail)
	}
	if cfg.DLQSuffix != DefaultDLQSuffix {
		t.Errorf("DLQSuffix = %q, want %q", cfg.DLQSuffix, DefaultDLQSuffix)
	}
	if len(cfg.KafkaBrokers) != 1 || cfg.KafkaBrokers[0] != "localhost:9092" {
		t.Errorf("KafkaBrokers = %v, want the localhost placeholder", cfg.KafkaBrokers)
	}
}

func TestNormalizeKeepsExplicitValues(t *testing.T) {
	cfg := Config{
		BrokerSystem:          "kafka",
		KafkaBrokers:          []string{"broker-a:9092", "broker-b:9092"},
		ApplicationID:         "app",
		StoreRetryMaxAttempts: 7,
		StoreRetryBackoff:     50 * time.Millisecond,
		SerdeError:            SerdeErrorSendToDLQ,
		DLQSuffix:             ".dead",
	}
	cfg.Normalize()

	if cfg.StoreRetryMaxAttempts != 7 {
		t.Errorf("StoreRetryMaxAttempts = %d, want 7", cfg.StoreRetryMaxAttempts)
	}
	if cfg.StoreRetryBackoff != 50*time.Millisecond {
		t.Errorf("StoreRetryBackoff = %v, want 50ms", cfg.StoreRetryBackoff)
	}
	if cfg.SerdeError != SerdeErrorSendToDLQ {
		t.Errorf("SerdeError = %q, want %q", cfg.SerdeError, SerdeErrorSendToDLQ)
	}
	if cfg.DLQSuffix != ".dead" {
		t.Errorf("DLQSuffix = %q, want %q", cfg.DLQSuffix, ".dead")
	}
	if len(cfg.KafkaBrokers) != 2 {
		t.Errorf("KafkaBrokers = %v, want the explicit pair", cfg.KafkaBrokers)
	}
}

func TestValidateConfigNil(t *testing.T) {
	err := ValidateConfig(nil)
	if err == nil {
		t.Error("expected error for nil config")
	}
	if !strings.Contains(err.Error(), "nil") {
		t.Errorf("expected error message to mention nil, got %q", err.Error())
	}
}

func TestValidateConfigValid(t *testing.T) {
	cfg := &Config{
		BrokerSystem:          "channel",
		ApplicationID:         "app",
		StoreRetryMaxAttempts: 3,
	}
	err := ValidateConfig(cfg)
	if err != nil {
		t.Errorf("unexpected error for valid config: %v", err)
	}
}

// assertErrorContains is a test helper that checks if an error contains a substring.
func assertErrorContains(t *testing.T, err error, want string) {
	t.Helper()
	if err == nil {
		t.Errorf("expected error containing %q, got nil", want)
		return
	}
	if !strings.Contains(err.Error(), want) {
		t.Errorf("expected error containing %q, got %q", want, err.Error())
	}
}

// Test getter methods
func TestConfigGetters(t *testing.T) {
	cfg := Config{
		BrokerSystem:  "kafka",
		KafkaBrokers:  []string{"broker1", "broker2"},
		ApplicationID: "test-group",
	}

	if got := cfg.GetBrokerSystem(); got != "kafka" {
		t.Errorf("GetBrokerSystem() = %v, want %v", got, "kafka")
	}
	if got := cfg.GetKafkaBrokers(); len(got) != 2 || got[0] != "broker1" {
		t.Errorf("GetKafkaBrokers() = %v, want [broker1, broker2]", got)
	}
	if got := cfg.GetApplicationID(); got != "test-group" {
		t.Errorf("GetApplicationID() = %v, want %v", got, "test-group")
	}
}
