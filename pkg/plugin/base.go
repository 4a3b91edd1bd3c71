package plugin

import (
	"context"
	"slices"

	"github.com/marmos91/plughost/pkg/container"
)

// Base implements the descriptive half of Plugin. Embed it and provide
// Install and Configure:
//
//	type WeatherPlugin struct {
//	    plugin.Base
//	}
//
//	func New() *WeatherPlugin {
//	    return &WeatherPlugin{Base: plugin.NewBase(plugin.Metadata{Version: "1.0.0"})}
//	}
//
// Plugins start active, matching an entry declared without an explicit flag.
type Base struct {
	name     string
	inactive bool
	sources  []string
	meta     Metadata
}

// NewBase returns a Base carrying meta.
func NewBase(meta Metadata) Base {
	return Base{meta: meta}
}

func (b *Base) Name() string { return b.name }
func (b *Base) SetName(name string) { b.name = name }

func (b *Base) IsActive() bool { return !b.inactive }
func (b *Base) SetActive(active bool) { b.inactive = !active }
func (b *Base) Metadata() Metadata { return b.meta }
func (b *Base) SetMetadata(m Metadata) { b.meta = m }
func (b *Base) SourceModules() []string { return slices.Clone(b.sources) }

// AddSourceModule records module once; blank names are ignored.
func (b *Base) AddSourceModule(module string) {
	if module == "" || slices.Contains(b.sources, module) {
		return
	}
	b.sources = append(b.sources, module)
}

// ConfigureContext is the default no-op hook.
func (b *Base) ConfigureContext(context.Context, container.Registrar) error {
	return nil
}
