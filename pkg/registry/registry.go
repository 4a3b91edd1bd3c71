// Package registry keeps the set of installed plugins.
//
// Adding a plugin validates it, runs its Install hook against the
// collaborator registry and exposes the instance there, so that other
// components can enumerate plugins after the collaborator registry is built:
//
//	reg, _ := registry.New(services, module.Default)
//	if err := reg.Add(weather.New()); err != nil {
//	    return err
//	}
//	...
//	provider, _ := services.Build()
//	plugins, _ := container.ResolveAll[plugin.Plugin](provider)
package registry

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/marmos91/plughost/internal/logger"
	"github.com/marmos91/plughost/internal/telemetry"
	"github.com/marmos91/plughost/pkg/container"
	"github.com/marmos91/plughost/pkg/metrics"
	"github.com/marmos91/plughost/pkg/module"
	"github.com/marmos91/plughost/pkg/plugin"
)

// Instances is the collaborator registry key under which every installed
// plugin is exposed.
var Instances = container.KeyOf[plugin.Plugin]()

// Install outcomes recorded in metrics.
const (
	outcomeInstalled = "installed"
	outcomeDuplicate = "duplicate"
	outcomeInvalid   = "invalid"
	outcomeSkipped   = "skipped"
	outcomeFailed    = "failed"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type entry struct {
	plugin   plugin.Plugin
	identity string
	typ      reflect.Type
	state    plugin.State
}

// Registry is the ordered set of installed plugins. Identities and concrete
// types are unique within a registry.
type Registry struct {
	services container.Registrar
	catalog  *module.Catalog
	metrics  metrics.LifecycleMetrics

	// addMu serializes Add so that validation and Install happen as one step.
	addMu sync.Mutex

	mu         sync.RWMutex
	entries    []*entry
	byIdentity map[string]*entry
}

// Option configures a Registry.
type Option func(*Registry)

// WithMetrics sets the collector for install outcomes. Nil disables it.
func WithMetrics(m metrics.LifecycleMetrics) Option {
	return func(r *Registry) { r.metrics = m }
}

// New creates a registry that installs plugins into services and reads
// identities from catalog. A nil catalog selects module.Default.
func New(services container.Registrar, catalog *module.Catalog, opts ...Option) (*Registry, error) {
	if services == nil {
		return nil, &ValidationError{Param: "services", Err: ErrNilServices}
	}
	if catalog == nil {
		catalog = module.Default
	}

	r := &Registry{
		services:   services,
		catalog:    catalog,
		byIdentity: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Catalog returns the catalog identities are read from.
func (r *Registry) Catalog() *module.Catalog { return r.catalog }

// Add installs p. See AddContext.
func (r *Registry) Add(p plugin.Plugin) error {
	return r.AddContext(context.Background(), p)
}

// AddContext validates and installs p.
//
// Checks run in order and have no side effects when they fail:
//   - p must not be nil (*ValidationError wrapping ErrNilPlugin);
//   - p's type must carry a non-blank identity (*ValidationError wrapping
//     ErrMissingIdentity);
//   - a plugin of the same concrete type already installed makes Add a no-op;
//   - another type with the same identity is rejected (*DuplicateIdentityError).
//
// A blank name defaults to the type name. An Install error is returned as
// is, and registrations Install made before failing are kept.
func (r *Registry) AddContext(ctx context.Context, p plugin.Plugin) error {
	if isNil(p) {
		metrics.ObserveInstall(r.metrics, outcomeInvalid)
		return &ValidationError{Param: "plugin", Err: ErrNilPlugin}
	}

	typeName := module.TypeName(p)
	identity, _ := r.catalog.IdentityOf(p)

	ctx, span := telemetry.StartPluginSpan(ctx, telemetry.SpanInstall, p.Name(), identity,
		telemetry.PluginType(typeName))
	defer span.End()

	if err := validate.Var(identity, "required"); err != nil {
		metrics.ObserveInstall(r.metrics, outcomeInvalid)
		return &ValidationError{Type: typeName, Param: "plugin", Err: ErrMissingIdentity}
	}

	r.addMu.Lock()
	defer r.addMu.Unlock()

	typ := reflect.TypeOf(p)
	r.mu.RLock()
	sameType := r.findType(typ) != nil
	existing := r.byIdentity[identity]
	r.mu.RUnlock()

	if sameType {
		metrics.ObserveInstall(r.metrics, outcomeSkipped)
		logger.DebugCtx(ctx, "Plugin type already installed", logger.Type(typeName))
		return nil
	}
	if existing != nil {
		metrics.ObserveInstall(r.metrics, outcomeDuplicate)
		return &DuplicateIdentityError{
			Identity: identity,
			Type:     typeName,
			Existing: module.TypeName(existing.plugin),
		}
	}

	if strings.TrimSpace(p.Name()) == "" {
		p.SetName(typeName)
	}

	if err := p.Install(r.services); err != nil {
		metrics.ObserveInstall(r.metrics, outcomeFailed)
		telemetry.RecordError(ctx, err)
		logger.ErrorCtx(ctx, "Plugin install failed", logger.Plugin(p.Name()), logger.Err(err))
		return err
	}

	if m, ok := r.catalog.ModuleOf(p); ok {
		p.AddSourceModule(m.Name)
	}

	if err := r.expose(p, identity, typ); err != nil {
		metrics.ObserveInstall(r.metrics, outcomeFailed)
		return err
	}

	e := &entry{plugin: p, identity: identity, typ: typ, state: plugin.Installed}
	r.mu.Lock()
	r.entries = append(r.entries, e)
	r.byIdentity[identity] = e
	count := len(r.entries)
	r.mu.Unlock()

	metrics.ObserveInstall(r.metrics, outcomeInstalled)
	metrics.ObserveRegistered(r.metrics, count)
	logger.InfoCtx(ctx, "Plugin installed",
		logger.Plugin(p.Name()), logger.Identity(identity), logger.Type(typeName))
	return nil
}

// expose makes p resolvable as a plugin.Plugin, by identity and by its
// concrete type.
func (r *Registry) expose(p plugin.Plugin, identity string, typ reflect.Type) error {
	keys := []container.Key{
		Instances,
		container.Named[plugin.Plugin](identity),
		{Type: typ},
	}
	for _, key := range keys {
		if err := r.services.Register(key, p, container.Singleton); err != nil {
			return fmt.Errorf("expose plugin %s as %s: %w", p.Name(), key, err)
		}
	}
	return nil
}

func (r *Registry) findType(typ reflect.Type) *entry {
	for _, e := range r.entries {
		if e.typ == typ {
			return e
		}
	}
	return nil
}

// Plugins returns the installed plugins in installation order.
func (r *Registry) Plugins() []plugin.Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]plugin.Plugin, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.plugin
	}
	return out
}

// Get returns the plugin installed under identity.
func (r *Registry) Get(identity string) (plugin.Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byIdentity[module.NormalizeIdentity(identity)]
	if !ok {
		return nil, false
	}
	return e.plugin, true
}

// Count returns the number of installed plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Identity returns the identity p was installed under.
func (r *Registry) Identity(p plugin.Plugin) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if e.plugin == p {
			return e.identity, true
		}
	}
	return "", false
}

// State returns the lifecycle state of the plugin installed under identity,
// or plugin.Unregistered.
func (r *Registry) State(identity string) plugin.State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.byIdentity[module.NormalizeIdentity(identity)]; ok {
		return e.state
	}
	return plugin.Unregistered
}

// States returns the lifecycle state of every installed plugin by identity.
func (r *Registry) States() map[string]plugin.State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]plugin.State, len(r.entries))
	for _, e := range r.entries {
		out[e.identity] = e.state
	}
	return out
}

// Transition moves the plugin installed under identity to next.
func (r *Registry) Transition(identity string, next plugin.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byIdentity[module.NormalizeIdentity(identity)]
	if !ok {
		return fmt.Errorf("plugin %s: %w", identity, ErrNotInstalled)
	}
	if !e.state.CanAdvance(next) {
		return fmt.Errorf("plugin %s: %w: %s to %s", e.plugin.Name(), ErrInvalidTransition, e.state, next)
	}
	e.state = next
	return nil
}

// isNil reports whether p is nil or a typed nil pointer.
func isNil(p plugin.Plugin) bool {
	if p == nil {
		return true
	}
	v := reflect.ValueOf(p)
	return v.Kind() == reflect.Pointer && v.IsNil()
}
