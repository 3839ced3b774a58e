package prometheus

import (
	"strconv"

	"github.com/fedcore/corefed/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// kernelMetrics is the Prometheus implementation of metrics.KernelMetrics.
type kernelMetrics struct {
	timeGranted *prometheus.GaugeVec
	timeExec    *prometheus.GaugeVec
	iterations  *prometheus.GaugeVec
}

// NewKernelMetrics creates a new Prometheus-backed KernelMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewKernelMetrics() metrics.KernelMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &kernelMetrics{
		timeGranted: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "corefed_time_granted",
				Help: "Simulation time most recently granted to a federate",
			},
			[]string{"federate_id"},
		),
		timeExec: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "corefed_time_exec",
				Help: "Execution-mode entry time for a federate",
			},
			[]string{"federate_id"},
		),
		iterations: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "corefed_iteration_count",
				Help: "Current iteration count for a federate's in-progress time request",
			},
			[]string{"federate_id"},
		),
	}
}

func (m *kernelMetrics) RecordTimeGranted(federateID int32, grantedTime float64) {
	if m == nil {
		return
	}
	m.timeGranted.WithLabelValues(strconv.Itoa(int(federateID))).Set(grantedTime)
}

func (m *kernelMetrics) RecordTimeExec(federateID int32, execTime float64) {
	if m == nil {
		return
	}
	m.timeExec.WithLabelValues(strconv.Itoa(int(federateID))).Set(execTime)
}

func (m *kernelMetrics) RecordIteration(federateID int32, iteration uint32) {
	if m == nil {
		return
	}
	m.iterations.WithLabelValues(strconv.Itoa(int(federateID))).Set(float64(iteration))
}

func init() {
	metrics.RegisterKernelMetricsConstructor(NewKernelMetrics)
}
