package config

import (
	"fmt"
	"strings"
)

// Validate checks a Config for internal consistency, reproducing the subset
// of struct-tag semantics (required, oneof, min/max, gte/lte) that the
// config actually uses. corefed has no persisted state to validate against
// an external schema registry, so a small hand-rolled validator replaces
// the teacher's go-playground/validator dependency here; see DESIGN.md for
// why that dependency was dropped rather than carried forward unused.
func Validate(cfg *Config) error {
	var errs []string

	if err := validateLogging(&cfg.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateTelemetry(&cfg.Telemetry); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateMetrics(&cfg.Metrics); err != nil {
		errs = append(errs, err.Error())
	}
	if cfg.ShutdownTimeout <= 0 {
		errs = append(errs, "shutdown_timeout: required,gt=0: must be greater than zero")
	}
	if err := validateCore(&cfg.Core); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateBroker(&cfg.Broker); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
}

func validateLogging(cfg *LoggingConfig) error {
	if cfg.Level == "" {
		return fmt.Errorf("logging.level: required: must not be empty")
	}
	if !isOneOf(cfg.Level, "DEBUG", "INFO", "WARN", "ERROR", "debug", "info", "warn", "error") {
		return fmt.Errorf("logging.level: oneof=DEBUG INFO WARN ERROR: got %q", cfg.Level)
	}
	if cfg.Format == "" {
		return fmt.Errorf("logging.format: required: must not be empty")
	}
	if !isOneOf(cfg.Format, "text", "json") {
		return fmt.Errorf("logging.format: oneof=text json: got %q", cfg.Format)
	}
	if cfg.Output == "" {
		return fmt.Errorf("logging.output: required: must not be empty")
	}
	return nil
}

func validateTelemetry(cfg *TelemetryConfig) error {
	if cfg.Enabled && cfg.Endpoint == "" {
		return fmt.Errorf("telemetry.endpoint: required when telemetry.enabled=true")
	}
	if cfg.SampleRate < 0 || cfg.SampleRate > 1 {
		return fmt.Errorf("telemetry.sample_rate: gte=0,lte=1: got %v", cfg.SampleRate)
	}
	return nil
}

func validateMetrics(cfg *MetricsConfig) error {
	if cfg.Port != 0 && (cfg.Port < 1 || cfg.Port > 65535) {
		return fmt.Errorf("metrics.port: min=1,max=65535: got %d", cfg.Port)
	}
	return nil
}

func validateCore(cfg *CoreConfig) error {
	if !isOneOf(cfg.CommsType, "tcp", "udp", "inproc") {
		return fmt.Errorf("core.comms_type: oneof=tcp udp inproc: got %q", cfg.CommsType)
	}
	if cfg.BrokerPort != 0 && (cfg.BrokerPort < 1 || cfg.BrokerPort > 65535) {
		return fmt.Errorf("core.broker_port: min=1,max=65535: got %d", cfg.BrokerPort)
	}
	if cfg.LocalPort < 0 || cfg.LocalPort > 65535 {
		return fmt.Errorf("core.local_port: min=0,max=65535: got %d", cfg.LocalPort)
	}
	if cfg.MaxRetries < 0 {
		return fmt.Errorf("core.max_retries: min=0: got %d", cfg.MaxRetries)
	}
	return nil
}

func validateBroker(cfg *BrokerConfig) error {
	if !isOneOf(cfg.CommsType, "tcp", "udp", "inproc") {
		return fmt.Errorf("broker.comms_type: oneof=tcp udp inproc: got %q", cfg.CommsType)
	}
	if cfg.ParentPort != 0 && (cfg.ParentPort < 0 || cfg.ParentPort > 65535) {
		return fmt.Errorf("broker.parent_port: min=0,max=65535: got %d", cfg.ParentPort)
	}
	return nil
}

func isOneOf(v string, choices ...string) bool {
	for _, c := range choices {
		if v == c {
			return true
		}
	}
	return false
}
