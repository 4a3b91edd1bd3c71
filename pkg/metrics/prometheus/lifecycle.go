package prometheus

import (
	"time"

	"github.com/marmos91/plughost/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// lifecycleMetrics is the Prometheus implementation of metrics.LifecycleMetrics.
type lifecycleMetrics struct {
	installs      *prometheus.CounterVec
	phaseRuns     *prometheus.CounterVec
	phaseDuration *prometheus.HistogramVec
	registered    prometheus.Gauge
}

// NewLifecycleMetrics creates a new Prometheus-backed LifecycleMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewLifecycleMetrics() metrics.LifecycleMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &lifecycleMetrics{
		installs: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "plughost_plugin_installs_total",
				Help: "Total number of plugin registration attempts by outcome",
			},
			[]string{"outcome"}, // installed, duplicate, invalid, skipped, failed
		),
		phaseRuns: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "plughost_lifecycle_phase_runs_total",
				Help: "Total number of per-plugin lifecycle phase runs by phase and status",
			},
			[]string{"phase", "status"},
		),
		phaseDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "plughost_lifecycle_phase_duration_milliseconds",
				Help:    "Duration of a single plugin's lifecycle phase in milliseconds",
				Buckets: []float64{0.1, 1, 10, 100, 1000, 10000},
			},
			[]string{"phase"},
		),
		registered: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "plughost_plugins_registered",
				Help: "Number of plugins currently registered",
			},
		),
	}
}

func (m *lifecycleMetrics) RecordInstall(outcome string) {
	if m == nil {
		return
	}
	m.installs.WithLabelValues(outcome).Inc()
}

func (m *lifecycleMetrics) RecordPhase(phase string, success bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.phaseRuns.WithLabelValues(phase, statusLabel(success)).Inc()
	m.phaseDuration.WithLabelValues(phase).Observe(duration.Seconds() * 1000)
}

func (m *lifecycleMetrics) SetRegistered(count int) {
	if m == nil {
		return
	}
	m.registered.Set(float64(count))
}
