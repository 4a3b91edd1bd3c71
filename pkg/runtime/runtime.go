// Package runtime wires plugin discovery, installation and activation into
// one object.
//
// A Runtime owns the collaborator registry the plugins install into. The
// usual sequence is AddPlugins while the registry is still open, then Use
// (or Activate) once everything is installed:
//
//	rt, err := runtime.NewFromConfig(cfg)
//	if err != nil {
//	    return err
//	}
//	if _, err := rt.AddPlugins(ctx, cfg.Source()); err != nil {
//	    logger.Warn("Some plugins failed to install", logger.Err(err))
//	}
//	if _, err := rt.Activate(ctx, server); err != nil {
//	    return err
//	}
package runtime

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/marmos91/plughost/internal/logger"
	"github.com/marmos91/plughost/internal/telemetry"
	"github.com/marmos91/plughost/pkg/config"
	"github.com/marmos91/plughost/pkg/container"
	"github.com/marmos91/plughost/pkg/discovery"
	"github.com/marmos91/plughost/pkg/lifecycle"
	"github.com/marmos91/plughost/pkg/metrics"
	"github.com/marmos91/plughost/pkg/module"
	"github.com/marmos91/plughost/pkg/plugin"
	"github.com/marmos91/plughost/pkg/registry"
)

// ErrAlreadyBuilt is returned when plugins are added after the collaborator
// registry was built.
var ErrAlreadyBuilt = errors.New("collaborator registry already built")

// Runtime discovers, installs and activates plugins.
type Runtime struct {
	services   *container.Collection
	catalog    *module.Catalog
	registry   *registry.Registry
	discoverer *discovery.Discoverer
	driver     *lifecycle.Driver

	mu       sync.Mutex
	resolver container.Resolver
}

type options struct {
	catalog   *module.Catalog
	services  *container.Collection
	discovery []discovery.Option
	policy    lifecycle.Policy
}

// Option configures a Runtime.
type Option func(*options)

// WithCatalog sets the module catalog. Defaults to module.Default.
func WithCatalog(c *module.Catalog) Option {
	return func(o *options) { o.catalog = c }
}

// WithServices sets the collaborator registry plugins install into.
// Defaults to a new empty collection.
func WithServices(s *container.Collection) Option {
	return func(o *options) { o.services = s }
}

// WithDiscoveryOptions appends options passed to discovery.New.
func WithDiscoveryOptions(opts ...discovery.Option) Option {
	return func(o *options) { o.discovery = append(o.discovery, opts...) }
}

// WithPolicy sets the lifecycle failure policy.
func WithPolicy(p lifecycle.Policy) Option {
	return func(o *options) { o.policy = p }
}

// New creates a Runtime. Metrics are collected when the metrics registry
// has been initialized.
func New(opts ...Option) (*Runtime, error) {
	o := &options{policy: lifecycle.ContinueOnError}
	for _, opt := range opts {
		opt(o)
	}
	if o.catalog == nil {
		o.catalog = module.Default
	}
	if o.services == nil {
		o.services = container.New()
	}

	lm := metrics.NewLifecycleMetrics()
	reg, err := registry.New(o.services, o.catalog, registry.WithMetrics(lm))
	if err != nil {
		return nil, err
	}

	discOpts := append([]discovery.Option{discovery.WithMetrics(metrics.NewDiscoveryMetrics())}, o.discovery...)

	return &Runtime{
		services:   o.services,
		catalog:    o.catalog,
		registry:   reg,
		discoverer: discovery.New(o.catalog, discOpts...),
		driver:     lifecycle.New(reg, lifecycle.WithPolicy(o.policy), lifecycle.WithMetrics(lm)),
	}, nil
}

// NewFromConfig creates a Runtime from the discovery section of cfg.
// Options given here are applied after the configured ones.
func NewFromConfig(cfg *config.Config, opts ...Option) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	policy, err := lifecycle.ParsePolicy(cfg.Discovery.ConfigurePolicy)
	if err != nil {
		return nil, err
	}

	d := cfg.Discovery
	discOpts := []discovery.Option{
		discovery.WithBaseDir(d.BaseDir),
		discovery.WithSearchPaths(d.SearchPaths...),
		discovery.WithFallbackScan(d.FallbackScan),
	}
	if d.Extension != "" {
		discOpts = append(discOpts, discovery.WithExtension(d.Extension))
	}

	base := []Option{WithPolicy(policy), WithDiscoveryOptions(discOpts...)}
	return New(append(base, opts...)...)
}

// Services returns the collaborator registry plugins install into.
func (r *Runtime) Services() *container.Collection { return r.services }

// Catalog returns the module catalog.
func (r *Runtime) Catalog() *module.Catalog { return r.catalog }

// Registry returns the plugin registry.
func (r *Runtime) Registry() *registry.Registry { return r.registry }

// Discoverer returns the discoverer used by AddPlugins.
func (r *Runtime) Discoverer() *discovery.Discoverer { return r.discoverer }

// Driver returns the lifecycle driver.
func (r *Runtime) Driver() *lifecycle.Driver { return r.driver }

// Plugins returns the installed plugins in installation order.
func (r *Runtime) Plugins() []plugin.Plugin { return r.registry.Plugins() }

// Resolver returns the built collaborator registry, or nil before Activate
// or Use.
func (r *Runtime) Resolver() container.Resolver {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolver
}

// AddPlugins parses the declarations in src, discovers them and installs
// every discovered plugin.
//
// Unresolvable declarations are reported in the returned Report only.
// Installation errors are appended to the Report's failures as well and
// returned joined; the remaining plugins are still installed. The error is
// also non-nil when ctx is cancelled.
func (r *Runtime) AddPlugins(ctx context.Context, src discovery.Source) (*discovery.Report, error) {
	if r.built() {
		return nil, ErrAlreadyBuilt
	}

	decls := discovery.Parse(src)
	report, err := r.discoverer.Discover(ctx, decls)
	if err != nil {
		return report, err
	}

	var errs []error
	for _, d := range report.Discovered {
		if err := r.registry.AddContext(ctx, d.Plugin); err != nil {
			logger.ErrorCtx(ctx, "Plugin registration failed",
				logger.Plugin(d.Declaration.Name), logger.Err(err))
			report.Failures = append(report.Failures, discovery.Failure{Name: d.Declaration.Name, Err: err})
			errs = append(errs, err)
		}
	}
	return report, errors.Join(errs...)
}

// AddPlugin installs p directly, bypassing discovery.
func (r *Runtime) AddPlugin(ctx context.Context, p plugin.Plugin) error {
	if r.built() {
		return ErrAlreadyBuilt
	}
	return r.registry.AddContext(ctx, p)
}

// AddPlugin creates and installs a plugin of type T. The instance comes from
// T's catalog constructor when one is registered, otherwise T must be a
// pointer type and a zero value is allocated.
//
// A plugin left unnamed by its constructor is named after the import path of
// T's package, so plugins added by type read like the module they came from.
func AddPlugin[T plugin.Plugin](ctx context.Context, r *Runtime) (T, error) {
	var zero T
	p, err := newPlugin[T](r.catalog)
	if err != nil {
		return zero, err
	}
	if strings.TrimSpace(p.Name()) == "" {
		p.SetName(reflect.TypeFor[T]().Elem().PkgPath())
	}
	if err := r.AddPlugin(ctx, p); err != nil {
		return zero, err
	}
	return p, nil
}

func newPlugin[T plugin.Plugin](catalog *module.Catalog) (T, error) {
	var zero T
	t := reflect.TypeFor[T]()
	if t.Kind() != reflect.Pointer {
		return zero, fmt.Errorf("plugin type %s must be a pointer", t)
	}

	blank := reflect.New(t.Elem()).Interface()
	if d, ok := catalog.DescriptorOf(blank); ok && d.Concrete() {
		p, err := d.Instantiate()
		if err != nil {
			return zero, err
		}
		if typed, ok := p.(T); ok {
			return typed, nil
		}
	}
	return blank.(T), nil
}

// Activate runs ConfigureContext on every installed plugin, builds the
// collaborator registry and configures the plugins with it and host.
func (r *Runtime) Activate(ctx context.Context, host any) ([]lifecycle.PhaseResult, error) {
	if r.built() {
		return nil, ErrAlreadyBuilt
	}

	resolver, results, err := r.driver.Activate(ctx, r.services, host)
	if resolver != nil {
		r.mu.Lock()
		r.resolver = resolver
		r.mu.Unlock()
	}
	r.logSummary(ctx)
	return results, err
}

// Use configures every plugin that is not yet configured with the built
// collaborator registry and host, building the registry first if needed.
// Unlike Activate it does not run ConfigureContext.
func (r *Runtime) Use(ctx context.Context, host any) ([]lifecycle.PhaseResult, error) {
	resolver, err := r.build(ctx)
	if err != nil {
		return nil, err
	}
	results, err := r.driver.Configure(ctx, resolver, host)
	r.logSummary(ctx)
	return results, err
}

func (r *Runtime) build(ctx context.Context) (container.Resolver, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.resolver != nil {
		return r.resolver, nil
	}

	_, span := telemetry.StartSpan(ctx, telemetry.SpanBuildServices)
	defer span.End()

	resolver, err := r.services.Build()
	if err != nil {
		return nil, fmt.Errorf("build collaborator registry: %w", err)
	}
	r.resolver = resolver
	return resolver, nil
}

func (r *Runtime) built() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolver != nil
}

func (r *Runtime) logSummary(ctx context.Context) {
	counts := make(map[plugin.State]int)
	for _, s := range r.registry.States() {
		counts[s]++
	}
	logger.InfoCtx(ctx, "Plugins activated",
		logger.Count(r.registry.Count()),
		"configured", counts[plugin.Configured],
		"failed", counts[plugin.Failed])
}
