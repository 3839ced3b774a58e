package prometheus

import (
	"strconv"

	"github.com/fedcore/corefed/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// actionMetrics is the Prometheus implementation of metrics.ActionMetrics.
type actionMetrics struct {
	messagesTotal *prometheus.CounterVec
	messageBytes  *prometheus.HistogramVec
}

// NewActionMetrics creates a new Prometheus-backed ActionMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewActionMetrics() metrics.ActionMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &actionMetrics{
		messagesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "corefed_action_messages_total",
				Help: "Total number of ActionMessages processed by action code",
			},
			[]string{"action_code"},
		),
		messageBytes: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "corefed_action_message_bytes",
				Help: "Distribution of serialized ActionMessage sizes by action code",
				Buckets: []float64{
					32, 64, 128, 256, 512, 1024, 4096, 16384,
				},
			},
			[]string{"action_code"},
		),
	}
}

func (m *actionMetrics) RecordActionMessage(actionCode int) {
	if m == nil {
		return
	}
	m.messagesTotal.WithLabelValues(strconv.Itoa(actionCode)).Inc()
}

func (m *actionMetrics) RecordActionMessageSize(actionCode int, bytes int) {
	if m == nil {
		return
	}
	m.messageBytes.WithLabelValues(strconv.Itoa(actionCode)).Observe(float64(bytes))
}

func init() {
	metrics.RegisterActionMetricsConstructor(NewActionMetrics)
}
