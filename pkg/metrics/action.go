package metrics

// ActionMetrics provides observability for ActionMessage routing
// through a core or broker kernel. Pass nil to disable collection with
// zero overhead.
type ActionMetrics interface {
	// RecordActionMessage counts a processed ActionMessage by its
	// action code.
	RecordActionMessage(actionCode int)

	// RecordActionMessageSize records the serialized size of a
	// processed ActionMessage by its action code.
	RecordActionMessageSize(actionCode int, bytes int)
}

// NewActionMetrics returns a Prometheus-backed ActionMetrics, or nil if
// metrics are not enabled (InitRegistry not called).
func NewActionMetrics() ActionMetrics {
	if !IsEnabled() {
		return nil
	}
	return newPrometheusActionMetrics()
}

// newPrometheusActionMetrics is implemented in pkg/metrics/prometheus/action.go.
var newPrometheusActionMetrics func() ActionMetrics

// RegisterActionMetricsConstructor is called by
// pkg/metrics/prometheus/action.go during package initialization.
func RegisterActionMetricsConstructor(constructor func() ActionMetrics) {
	newPrometheusActionMetrics = constructor
}
