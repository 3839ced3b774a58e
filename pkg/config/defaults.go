package config

import (
	"strings"
	"time"

	"github.com/fedcore/corefed/internal/bytesize"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyMetricsDefaults(&cfg.Metrics)
	applyShutdownDefaults(cfg)
	if cfg.MaxMessageSize == 0 {
		cfg.MaxMessageSize = 16 * bytesize.MiB
	}
	applyCoreDefaults(&cfg.Core)
	applyBrokerDefaults(&cfg.Broker)
	applyFederateDefaults(&cfg.Federate)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyTelemetryDefaults sets OpenTelemetry defaults.
func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}

	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}

	applyProfilingDefaults(&cfg.Profiling)
}

// applyProfilingDefaults sets Pyroscope profiling defaults.
func applyProfilingDefaults(cfg *ProfilingConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:4040"
	}

	if len(cfg.ProfileTypes) == 0 {
		cfg.ProfileTypes = []string{
			"cpu",
			"alloc_objects",
			"alloc_space",
			"inuse_objects",
			"inuse_space",
			"goroutines",
		}
	}
}

// applyMetricsDefaults sets metrics defaults.
func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// applyShutdownDefaults sets the graceful shutdown timeout default.
func applyShutdownDefaults(cfg *Config) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

// applyCoreDefaults sets core gateway defaults.
func applyCoreDefaults(cfg *CoreConfig) {
	if cfg.Name == "" {
		cfg.Name = "core"
	}
	if cfg.CommsType == "" {
		cfg.CommsType = "tcp"
	}
	if cfg.BrokerAddress == "" {
		cfg.BrokerAddress = "127.0.0.1"
	}
	if cfg.BrokerPort == 0 {
		cfg.BrokerPort = 23404 // HELICS's well-known broker port, kept for familiarity
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 5
	}
	if cfg.ForceConnectionLinger == 0 {
		cfg.ForceConnectionLinger = 1050 * time.Millisecond
	}
}

// applyBrokerDefaults sets broker defaults.
func applyBrokerDefaults(cfg *BrokerConfig) {
	if cfg.Name == "" {
		cfg.Name = "broker"
	}
	if cfg.CommsType == "" {
		cfg.CommsType = "tcp"
	}
	if cfg.ParentPort == 0 && !cfg.Root {
		cfg.ParentPort = 23404
	}
}

// applyFederateDefaults sets the default per-federate time parameters.
func applyFederateDefaults(cfg *FederateConfig) {
	// TimeDelta, InputDelay, OutputDelay, Period, Offset all default to 0
	// (no artificial delay). MaxIterations defaults to 10, matching the
	// teacher's conservative retry-count defaults elsewhere in the config.
	if cfg.MaxIterations == 0 {
		cfg.MaxIterations = 10
	}
	if cfg.Name == "" {
		cfg.Name = "federate"
	}
	if cfg.ID == 0 {
		cfg.ID = 1
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for generating sample configuration files, testing, and
// documentation.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
