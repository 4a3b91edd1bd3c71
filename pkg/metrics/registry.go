// Package metrics defines the observability interfaces used by plugin
// discovery and the lifecycle driver.
//
// Metrics are optional. Until InitRegistry is called every constructor in
// this package returns nil, and every recording helper accepts nil, so
// instrumented code pays nothing when metrics are disabled.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	mu       sync.RWMutex
	registry *prometheus.Registry
)

// InitRegistry creates the process registry and enables metrics.
// Go runtime and process collectors are registered alongside.
// Calling it again is a no-op.
func InitRegistry() *prometheus.Registry {
	mu.Lock()
	defer mu.Unlock()

	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return registry != nil
}

// GetRegistry returns the process registry, or nil when metrics are disabled.
func GetRegistry() *prometheus.Registry {
	mu.RLock()
	defer mu.RUnlock()
	return registry
}

// Handler returns an HTTP handler exposing the registry in the Prometheus
// text format. When metrics are disabled it responds 404.
func Handler() http.Handler {
	reg := GetRegistry()
	if reg == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// Reset drops the registry and disables metrics. Intended for tests.
func Reset() {
	mu.Lock()
	registry = nil
	mu.Unlock()

	instanceMu.Lock()
	discoveryInstance = nil
	lifecycleInstance = nil
	instanceMu.Unlock()
}
