package handlers

import (
	"net/http"
	"time"

	"github.com/marmos91/plughost/pkg/plugin"
)

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	lister    PluginLister
	startTime time.Time
}

// NewHealthHandler creates a health handler. lister may be nil, in which
// case the readiness probe reports unhealthy.
func NewHealthHandler(lister PluginLister) *HealthHandler {
	return &HealthHandler{lister: lister, startTime: time.Now()}
}

// Liveness handles GET /health. It succeeds while the server responds.
func (h *HealthHandler) Liveness(w http.ResponseWriter, _ *http.Request) {
	uptime := time.Since(h.startTime)
	writeJSON(w, http.StatusOK, healthyResponse(map[string]any{
		"service":    "plughost",
		"started_at": h.startTime.UTC().Format(time.RFC3339),
		"uptime":     uptime.Round(time.Second).String(),
		"uptime_sec": int64(uptime.Seconds()),
	}))
}

// Readiness handles GET /health/ready.
//
// It answers 503 when no registry is attached or any plugin failed its
// lifecycle, and 200 with the per-state plugin counts otherwise.
func (h *HealthHandler) Readiness(w http.ResponseWriter, _ *http.Request) {
	if h.lister == nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("plugin registry not initialized", nil))
		return
	}

	counts := stateCounts(h.lister)
	data := map[string]any{
		"plugins": len(h.lister.Plugins()),
		"states":  counts,
	}
	if failed := counts[plugin.Failed.String()]; failed > 0 {
		var failedNames []string
		for _, p := range h.lister.Plugins() {
			id, _ := h.lister.Identity(p)
			if h.lister.State(id) == plugin.Failed {
				failedNames = append(failedNames, p.Name())
			}
		}
		data["failed"] = failedNames
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("one or more plugins failed", data))
		return
	}
	writeJSON(w, http.StatusOK, healthyResponse(data))
}
