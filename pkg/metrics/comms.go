package metrics

// CommsMetrics provides observability for a CommsInterface transport
// (tcp, udp, inproc). Pass nil to disable collection with zero overhead.
type CommsMetrics interface {
	// SetTxQueueDepth records the current depth of the outgoing
	// transmit queue for a connection.
	SetTxQueueDepth(connectionID string, depth int)

	// SetConnectionStatus records a connection's liveness. status
	// should be one of "connecting", "connected", "disconnected".
	SetConnectionStatus(connectionID string, status string)

	// SetRouteCount records the number of routes known to a comms
	// broker.
	SetRouteCount(count int)

	// RecordBytesTransferred records bytes sent or received on a
	// connection. direction is "tx" or "rx".
	RecordBytesTransferred(connectionID string, direction string, bytes uint64)
}

// NewCommsMetrics returns a Prometheus-backed CommsMetrics, or nil if
// metrics are not enabled (InitRegistry not called).
func NewCommsMetrics() CommsMetrics {
	if !IsEnabled() {
		return nil
	}
	return newPrometheusCommsMetrics()
}

// newPrometheusCommsMetrics is implemented in pkg/metrics/prometheus/comms.go.
var newPrometheusCommsMetrics func() CommsMetrics

// RegisterCommsMetricsConstructor is called by
// pkg/metrics/prometheus/comms.go during package initialization.
func RegisterCommsMetricsConstructor(constructor func() CommsMetrics) {
	newPrometheusCommsMetrics = constructor
}
