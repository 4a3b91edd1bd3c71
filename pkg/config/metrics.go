package config

import (
	"fmt"
	"net/http"

	"github.com/marmos91/plughost/pkg/metrics"
)

// MetricsResult describes the metrics setup produced by InitializeMetrics.
type MetricsResult struct {
	// Enabled reports whether the registry was initialized.
	Enabled bool

	// Server is a dedicated metrics listener, set only when metrics.port is
	// configured. Otherwise /metrics is mounted on the host server.
	Server *http.Server
}

// InitializeMetrics initializes the metrics registry when metrics are
// enabled. It does not start any listener.
func InitializeMetrics(cfg *Config) *MetricsResult {
	if !cfg.Metrics.Enabled {
		return &MetricsResult{}
	}

	metrics.InitRegistry()

	result := &MetricsResult{Enabled: true}
	if cfg.Metrics.Port != 0 {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		result.Server = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler:           mux,
			ReadHeaderTimeout: cfg.Server.ReadTimeout,
		}
	}
	return result
}
