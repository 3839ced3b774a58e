package prometheus

import (
	"github.com/fedcore/corefed/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// commsMetrics is the Prometheus implementation of metrics.CommsMetrics.
type commsMetrics struct {
	txQueueDepth     *prometheus.GaugeVec
	connectionStatus *prometheus.GaugeVec
	routeCount       prometheus.Gauge
	bytesTransferred *prometheus.CounterVec
}

// NewCommsMetrics creates a new Prometheus-backed CommsMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewCommsMetrics() metrics.CommsMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &commsMetrics{
		txQueueDepth: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "corefed_comms_tx_queue_depth",
				Help: "Current depth of the outgoing transmit queue per connection",
			},
			[]string{"connection_id"},
		),
		connectionStatus: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "corefed_comms_connection_status",
				Help: "Connection liveness (1 if the reported status is current, 0 otherwise) per connection and status label",
			},
			[]string{"connection_id", "status"},
		),
		routeCount: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "corefed_route_count",
				Help: "Number of routes known to a comms broker",
			},
		),
		bytesTransferred: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "corefed_comms_bytes_transferred_total",
				Help: "Total bytes sent or received per connection and direction",
			},
			[]string{"connection_id", "direction"},
		),
	}
}

func (m *commsMetrics) SetTxQueueDepth(connectionID string, depth int) {
	if m == nil {
		return
	}
	m.txQueueDepth.WithLabelValues(connectionID).Set(float64(depth))
}

func (m *commsMetrics) SetConnectionStatus(connectionID string, status string) {
	if m == nil {
		return
	}
	for _, s := range []string{"connecting", "connected", "disconnected"} {
		value := 0.0
		if s == status {
			value = 1.0
		}
		m.connectionStatus.WithLabelValues(connectionID, s).Set(value)
	}
}

func (m *commsMetrics) SetRouteCount(count int) {
	if m == nil {
		return
	}
	m.routeCount.Set(float64(count))
}

func (m *commsMetrics) RecordBytesTransferred(connectionID string, direction string, bytes uint64) {
	if m == nil {
		return
	}
	m.bytesTransferred.WithLabelValues(connectionID, direction).Add(float64(bytes))
}

func init() {
	metrics.RegisterCommsMetricsConstructor(NewCommsMetrics)
}
