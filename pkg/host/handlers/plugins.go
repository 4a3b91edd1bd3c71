package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/marmos91/plughost/pkg/module"
	"github.com/marmos91/plughost/pkg/plugin"
)

// PluginLister is the read side of the plugin registry.
type PluginLister interface {
	Plugins() []plugin.Plugin
	Identity(p plugin.Plugin) (string, bool)
	State(identity string) plugin.State
	Get(identity string) (plugin.Plugin, bool)
}

// PluginInfo describes one installed plugin.
type PluginInfo struct {
	Name          string          `json:"name"`
	Identity      string          `json:"identity"`
	Type          string          `json:"type"`
	Active        bool            `json:"active"`
	State         string          `json:"state"`
	SourceModules []string        `json:"source_modules"`
	Metadata      plugin.Metadata `json:"metadata"`
}

// NewPluginInfo builds the description of p from lister.
func NewPluginInfo(lister PluginLister, p plugin.Plugin) PluginInfo {
	identity, _ := lister.Identity(p)
	sources := p.SourceModules()
	if sources == nil {
		sources = []string{}
	}
	return PluginInfo{
		Name:          p.Name(),
		Identity:      identity,
		Type:          module.TypeName(p),
		Active:        p.IsActive(),
		State:         lister.State(identity).String(),
		SourceModules: sources,
		Metadata:      p.Metadata(),
	}
}

// PluginHandler serves the installed plugin listing.
type PluginHandler struct {
	lister PluginLister
}

// NewPluginHandler creates a plugin handler. lister may be nil, in which
// case every request answers 503.
func NewPluginHandler(lister PluginLister) *PluginHandler {
	return &PluginHandler{lister: lister}
}

// List handles GET /api/v1/plugins.
//
// The optional "state" query parameter filters by lifecycle state.
func (h *PluginHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.lister == nil {
		ServiceUnavailable(w, "plugin registry not initialized")
		return
	}

	want := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("state")))
	infos := make([]PluginInfo, 0)
	for _, p := range h.lister.Plugins() {
		info := NewPluginInfo(h.lister, p)
		if want != "" && info.State != want {
			continue
		}
		infos = append(infos, info)
	}
	writeJSON(w, http.StatusOK, okResponse(infos))
}

// Get handles GET /api/v1/plugins/{identity}.
func (h *PluginHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.lister == nil {
		ServiceUnavailable(w, "plugin registry not initialized")
		return
	}

	identity := chi.URLParam(r, "identity")
	p, ok := h.lister.Get(identity)
	if !ok {
		NotFound(w, "no plugin installed with identity "+identity)
		return
	}
	writeJSON(w, http.StatusOK, okResponse(NewPluginInfo(h.lister, p)))
}

// stateCounts counts plugins by lifecycle state name.
func stateCounts(lister PluginLister) map[string]int {
	counts := make(map[string]int)
	for _, p := range lister.Plugins() {
		id, _ := lister.Identity(p)
		counts[lister.State(id).String()]++
	}
	return counts
}
