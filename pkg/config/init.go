package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// sampleConfigTemplate is the sample YAML written by InitConfig/InitConfigToPath.
// It documents the CoreConfig/BrokerConfig/FederateConfig surface so an
// operator can see every knob without consulting documentation.
const sampleConfigTemplate = `# corefed Configuration File
#
# This file configures a single corefed process, which can run a broker,
# a core, or both depending on which subcommand you invoke.

logging:
  level: "INFO"
  format: "text"
  output: "stdout"

shutdown_timeout: 30s

# Largest ActionMessage accepted off the wire. Accepts "16MB", "1Gi", or a
# plain byte count.
max_message_size: 16MB

telemetry:
  enabled: false
  endpoint: "localhost:4317"
  insecure: true
  sample_rate: 1.0
  profiling:
    enabled: false
    endpoint: "http://localhost:4040"

metrics:
  enabled: false
  port: 9090

core:
  name: "core"
  broker_address: "127.0.0.1"
  broker_port: 23404
  local_port: 0
  comms_type: "tcp"
  auto_broker: true
  max_retries: 5

broker:
  name: "broker"
  root: true
  comms_type: "tcp"
  server_mode: false

federate:
  name: federate
  id: 1
  time_delta: 0
  input_delay: 0
  output_delay: 0
  period: 0
  offset: 0
  max_iterations: 10
`

// InitConfig creates a sample configuration file at the default location.
// Returns the path to the created file.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath creates a sample configuration file at the given path.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("configuration file already exists at %s (use --force to overwrite)", path)
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(sampleConfigTemplate), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
