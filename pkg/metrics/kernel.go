package metrics

// KernelMetrics provides observability for core/broker kernel time
// coordination. Pass nil to disable collection with zero overhead.
type KernelMetrics interface {
	// RecordTimeGranted records the simulation time most recently
	// granted to a federate by TimeCoordinator.
	RecordTimeGranted(federateID int32, grantedTime float64)

	// RecordTimeExec records the execution-mode entry time for a
	// federate.
	RecordTimeExec(federateID int32, execTime float64)

	// RecordIteration records the current iteration count for a
	// federate's in-progress time request.
	RecordIteration(federateID int32, iteration uint32)
}

// NewKernelMetrics returns a Prometheus-backed KernelMetrics, or nil if
// metrics are not enabled (InitRegistry not called).
func NewKernelMetrics() KernelMetrics {
	if !IsEnabled() {
		return nil
	}
	return newPrometheusKernelMetrics()
}

// newPrometheusKernelMetrics is implemented in pkg/metrics/prometheus/kernel.go.
var newPrometheusKernelMetrics func() KernelMetrics

// RegisterKernelMetricsConstructor is called by
// pkg/metrics/prometheus/kernel.go during package initialization.
func RegisterKernelMetricsConstructor(constructor func() KernelMetrics) {
	newPrometheusKernelMetrics = constructor
}
