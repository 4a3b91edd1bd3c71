// Package prometheus provides the Prometheus implementations of the metrics
// interfaces. Importing it links the implementations into metrics.New*.
package prometheus

import (
	"strconv"
	"time"

	"github.com/marmos91/plughost/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func init() {
	metrics.RegisterDiscoveryMetricsConstructor(NewDiscoveryMetrics)
	metrics.RegisterLifecycleMetricsConstructor(NewLifecycleMetrics)
}

// discoveryMetrics is the Prometheus implementation of metrics.DiscoveryMetrics.
type discoveryMetrics struct {
	resolutions      *prometheus.CounterVec
	resolveDuration  *prometheus.HistogramVec
	moduleLoads      *prometheus.CounterVec
	fallbackScans    prometheus.Counter
	fallbackAdded    prometheus.Counter
	candidateRootsGa prometheus.Gauge
}

// NewDiscoveryMetrics creates a new Prometheus-backed DiscoveryMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewDiscoveryMetrics() metrics.DiscoveryMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &discoveryMetrics{
		resolutions: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "plughost_discovery_resolutions_total",
				Help: "Total number of plugin declarations resolved, by strategy and outcome",
			},
			[]string{"strategy", "found"},
		),
		resolveDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "plughost_discovery_resolve_duration_milliseconds",
				Help: "Duration of plugin declaration resolution in milliseconds",
				Buckets: []float64{
					0.1,  // already loaded
					1,    // 1ms
					5,    // 5ms
					25,   // 25ms - module open
					100,  // 100ms
					500,  // 500ms - directory scan
					2000, // 2s
				},
			},
			[]string{"strategy"},
		),
		moduleLoads: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "plughost_discovery_module_loads_total",
				Help: "Total number of module open attempts by outcome",
			},
			[]string{"status"}, // "success", "error"
		),
		fallbackScans: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "plughost_discovery_fallback_scans_total",
				Help: "Total number of fallback scans over the loaded modules",
			},
		),
		fallbackAdded: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "plughost_discovery_fallback_plugins_total",
				Help: "Total number of plugins added by fallback scans",
			},
		),
		candidateRootsGa: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "plughost_discovery_candidate_roots",
				Help: "Number of directories searched for module files",
			},
		),
	}
}

func (m *discoveryMetrics) RecordResolution(strategy string, found bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(strategy, strconv.FormatBool(found)).Inc()
	m.resolveDuration.WithLabelValues(strategy).Observe(duration.Seconds() * 1000)
}

func (m *discoveryMetrics) RecordModuleLoad(success bool) {
	if m == nil {
		return
	}
	m.moduleLoads.WithLabelValues(statusLabel(success)).Inc()
}

func (m *discoveryMetrics) RecordFallbackScan(added int) {
	if m == nil {
		return
	}
	m.fallbackScans.Inc()
	m.fallbackAdded.Add(float64(added))
}

func (m *discoveryMetrics) SetCandidateRoots(count int) {
	if m == nil {
		return
	}
	m.candidateRootsGa.Set(float64(count))
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
