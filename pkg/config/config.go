package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/fedcore/corefed/internal/bytesize"
)

// Config represents the corefed runtime configuration.
//
// This structure captures the static configuration of a single corefed
// process, which may run a broker, a core, or both:
//   - Logging configuration
//   - Telemetry/tracing and profiling configuration
//   - Metrics server configuration
//   - Core configuration (federate-facing local gateway)
//   - Broker configuration (routing hub)
//   - Federate configuration (per-federate time coordination parameters)
//
// There is no persisted state: federates, routes, and interfaces all live
// in memory for the lifetime of the process (see DESIGN.md).
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (COREFED_*)
//  3. Configuration file (YAML or TOML)
//  4. Default values (lowest priority)
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry distributed tracing
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`

	// Metrics contains Prometheus metrics server configuration
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// MaxMessageSize bounds the size of a single framed ActionMessage
	// accepted off the wire (see internal/action.MaxFrameSize), rejecting
	// anything larger before it is fully buffered. Accepts human-readable
	// forms like "16MB" or "1Gi".
	MaxMessageSize bytesize.ByteSize `mapstructure:"max_message_size" yaml:"max_message_size"`

	// Core contains the federate-facing local gateway configuration.
	Core CoreConfig `mapstructure:"core" yaml:"core"`

	// Broker contains the routing hub configuration.
	Broker BrokerConfig `mapstructure:"broker" yaml:"broker"`

	// Federate contains default per-federate time coordination parameters.
	// Individual federates registering with a core may override these via
	// their own registration message.
	Federate FederateConfig `mapstructure:"federate" yaml:"federate"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry distributed tracing.
// When enabled, trace data is exported to an OTLP-compatible collector
// (e.g., Jaeger, Tempo, or any OTLP receiver).
type TelemetryConfig struct {
	// Enabled controls whether distributed tracing is enabled
	// Default: false (opt-in for telemetry)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the OTLP collector endpoint (host:port)
	// Default: "localhost:4317" (standard OTLP gRPC port)
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// Insecure controls whether to use insecure (non-TLS) connection
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`

	// SampleRate controls the trace sampling rate (0.0 to 1.0)
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`

	// Profiling contains Pyroscope continuous profiling configuration
	Profiling ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`
}

// ProfilingConfig controls Pyroscope continuous profiling.
type ProfilingConfig struct {
	// Enabled controls whether continuous profiling is enabled
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the Pyroscope server endpoint (URL)
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// ProfileTypes specifies which profile types to collect
	ProfileTypes []string `mapstructure:"profile_types" yaml:"profile_types"`
}

// MetricsConfig configures the Prometheus metrics HTTP server.
// When Enabled is false, no metrics are collected (zero overhead).
type MetricsConfig struct {
	// Enabled controls whether metrics collection and HTTP server are enabled
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP port for the metrics endpoint
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// CoreConfig configures the federate-facing local gateway.
type CoreConfig struct {
	// Name is the human-readable name of this core.
	Name string `mapstructure:"name" yaml:"name"`

	// BrokerAddress is the hostname/IP of the broker this core connects to.
	BrokerAddress string `mapstructure:"broker_address" yaml:"broker_address"`

	// BrokerPort is the well-known port the broker listens on.
	BrokerPort int `mapstructure:"broker_port" validate:"omitempty,min=1,max=65535" yaml:"broker_port"`

	// LocalPort is the port this core's comms layer binds to (0 = auto-allocate).
	LocalPort int `mapstructure:"local_port" validate:"omitempty,min=0,max=65535" yaml:"local_port"`

	// Interface is the local network interface address to bind to.
	Interface string `mapstructure:"interface" yaml:"interface"`

	// CommsType selects the transport binding: tcp, udp, or inproc.
	CommsType string `mapstructure:"comms_type" validate:"required,oneof=tcp udp inproc" yaml:"comms_type"`

	// AutoBroker starts an in-process broker if one is not reachable.
	AutoBroker bool `mapstructure:"auto_broker" yaml:"auto_broker"`

	// MaxRetries is the number of connection attempts before giving up.
	MaxRetries int `mapstructure:"max_retries" validate:"omitempty,min=0" yaml:"max_retries"`

	// Encrypted is a passthrough flag recorded on outgoing connections.
	// corefed performs no cryptographic authentication; see DESIGN.md.
	Encrypted bool `mapstructure:"encrypted" yaml:"encrypted"`

	// ForceConnection rebinds a busy port after ForceConnectionLinger.
	ForceConnection bool `mapstructure:"force_connection" yaml:"force_connection"`

	// ForceConnectionLinger is the delay before rebinding a forced connection.
	ForceConnectionLinger time.Duration `mapstructure:"force_connection_linger" yaml:"force_connection_linger"`

	// NoAckConnection skips waiting for a connection acknowledgment.
	NoAckConnection bool `mapstructure:"no_ack_connection" yaml:"no_ack_connection"`

	// UseJSONSerialization uses the JSON ActionMessage encoding instead of
	// the binary encoding (useful for debugging over TCP/inproc).
	UseJSONSerialization bool `mapstructure:"use_json_serialization" yaml:"use_json_serialization"`

	// AppendNameToAddress appends the core's name to its advertised address.
	AppendNameToAddress bool `mapstructure:"append_name_to_address" yaml:"append_name_to_address"`

	// ReuseAddress sets SO_REUSEADDR on listening sockets.
	ReuseAddress bool `mapstructure:"reuse_address" yaml:"reuse_address"`
}

// BrokerConfig configures a routing hub.
type BrokerConfig struct {
	// Name is the human-readable name of this broker.
	Name string `mapstructure:"name" yaml:"name"`

	// Root marks this broker as the root of the broker tree.
	Root bool `mapstructure:"root" yaml:"root"`

	// ParentAddress is the hostname/IP of the parent broker (non-root only).
	ParentAddress string `mapstructure:"parent_address" yaml:"parent_address"`

	// ParentPort is the port of the parent broker (non-root only).
	ParentPort int `mapstructure:"parent_port" validate:"omitempty,min=0,max=65535" yaml:"parent_port"`

	// ServerMode starts a BrokerServer that listens on the well-known port
	// and negotiates ports for incoming cores/brokers.
	ServerMode bool `mapstructure:"server_mode" yaml:"server_mode"`

	// CommsType selects the transport binding: tcp, udp, or inproc.
	CommsType string `mapstructure:"comms_type" validate:"required,oneof=tcp udp inproc" yaml:"comms_type"`
}

// FederateConfig contains default per-federate time coordination parameters.
type FederateConfig struct {
	// Name is the federate `corefed core` registers itself as.
	Name string `mapstructure:"name" yaml:"name"`

	// ID is the federate's global id, unique within the federation.
	ID int32 `mapstructure:"id" validate:"omitempty,min=1" yaml:"id"`

	// TimeDelta is the minimum time between sequential grants.
	TimeDelta float64 `mapstructure:"time_delta" validate:"omitempty,gte=0" yaml:"time_delta"`

	// InputDelay delays the visibility of incoming messages by this amount.
	InputDelay float64 `mapstructure:"input_delay" validate:"omitempty,gte=0" yaml:"input_delay"`

	// OutputDelay delays the send time of outgoing messages by this amount.
	OutputDelay float64 `mapstructure:"output_delay" validate:"omitempty,gte=0" yaml:"output_delay"`

	// Period constrains grants to multiples of this value.
	Period float64 `mapstructure:"period" validate:"omitempty,gte=0" yaml:"period"`

	// Offset shifts the Period grid.
	Offset float64 `mapstructure:"offset" validate:"omitempty,gte=0" yaml:"offset"`

	// MaxIterations bounds the number of iterative rounds at a single time.
	MaxIterations uint32 `mapstructure:"max_iterations" yaml:"max_iterations"`

	// Uninterruptible prevents granting a time before the requested time.
	Uninterruptible bool `mapstructure:"uninterruptible" yaml:"uninterruptible"`

	// OnlyTransmitOnChange suppresses publication sends when the value is unchanged.
	OnlyTransmitOnChange bool `mapstructure:"only_transmit_on_change" yaml:"only_transmit_on_change"`

	// OnlyUpdateOnChange suppresses input updates when the value is unchanged.
	OnlyUpdateOnChange bool `mapstructure:"only_update_on_change" yaml:"only_update_on_change"`

	// WaitForCurrentTimeUpdates delays grant until same-time updates settle.
	WaitForCurrentTimeUpdates bool `mapstructure:"wait_for_current_time_updates" yaml:"wait_for_current_time_updates"`

	// SourceOnly marks a federate as producing but never requesting time.
	SourceOnly bool `mapstructure:"source_only" yaml:"source_only"`

	// Observer marks a federate as consuming but never producing.
	Observer bool `mapstructure:"observer" yaml:"observer"`

	// RealTimeMode paces time grants to wall-clock time. This is the one
	// wall-clock passthrough permitted; see SPEC_FULL.md Non-goals.
	RealTimeMode bool `mapstructure:"real_time_mode" yaml:"real_time_mode"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (COREFED_*)
//  2. Configuration file
//  3. Default values
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	configFileFound, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	if !configFileFound {
		cfg := GetDefaultConfig()
		return cfg, nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration with helpful error messages.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize a configuration file first:\n"+
				"  corefed init\n\n"+
				"Or specify a custom config file:\n"+
				"  corefed <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s\n\n"+
				"Please create the configuration file:\n"+
				"  corefed init --config %s",
				configPath, configPath)
		}
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to the specified file path.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use COREFED_ prefix and underscores
	// Example: COREFED_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("COREFED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		configDir := getConfigDir()
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
// Returns (fileFound, error) where fileFound indicates if a config file was found.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}

	return true, nil
}

// configDecodeHooks returns a combined decode hook for all custom types.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		durationDecodeHook(),
		mapstructure.TextUnmarshallerHookFunc(),
	)
}

// durationDecodeHook returns a mapstructure decode hook that converts strings
// to time.Duration. This enables config files to use human-readable durations
// like "30s", "5m", "1h".
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "corefed")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "corefed")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default location.
func DefaultConfigExists() bool {
	path := GetDefaultConfigPath()
	_, err := os.Stat(path)
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for init command).
func GetConfigDir() string {
	return getConfigDir()
}
