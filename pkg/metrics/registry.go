// Package metrics defines metric interfaces for corefed subsystems without
// tying them to a specific backend. Concrete collectors live in
// pkg/metrics/prometheus and register themselves into this package at
// init time, which keeps kernel/comms/action code free of a direct
// prometheus import.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	mu       sync.RWMutex
	enabled  bool
	registry *prometheus.Registry
)

// InitRegistry enables metrics collection and creates the Prometheus
// registry that subsequent New*Metrics constructors register into.
// Must be called before any New*Metrics constructor for metrics to be
// collected; otherwise those constructors return nil and callers fall
// back to zero-overhead no-op behavior.
func InitRegistry() *prometheus.Registry {
	mu.Lock()
	defer mu.Unlock()

	registry = prometheus.NewRegistry()
	enabled = true
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

// GetRegistry returns the active registry, or nil if metrics are disabled.
func GetRegistry() *prometheus.Registry {
	mu.RLock()
	defer mu.RUnlock()
	return registry
}

// Reset tears down the registry. Intended for tests that need a clean
// metrics state between cases.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	registry = nil
	enabled = false
}
