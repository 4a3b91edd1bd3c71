package discovery

import (
	"context"
	"fmt"

	"github.com/marmos91/plughost/internal/logger"
	"github.com/marmos91/plughost/internal/telemetry"
	"github.com/marmos91/plughost/pkg/metrics"
	"github.com/marmos91/plughost/pkg/module"
	"github.com/marmos91/plughost/pkg/plugin"
)

// DefaultExtension is the module file extension used when none is configured.
const DefaultExtension = ".so"

// Discovered is a plugin instantiated for a declaration.
type Discovered struct {
	Declaration plugin.Declaration
	Plugin      plugin.Plugin
	Result      Result
}

// Failure records a declaration that produced no plugin.
type Failure struct {
	Name string
	Err  error
}

// Report is the outcome of one discovery run.
type Report struct {
	Declarations []plugin.Declaration
	Discovered   []Discovered
	Failures     []Failure
	FallbackUsed bool
}

// Plugins returns the discovered instances in declaration order.
func (r *Report) Plugins() []plugin.Plugin {
	out := make([]plugin.Plugin, 0, len(r.Discovered))
	for _, d := range r.Discovered {
		out = append(out, d.Plugin)
	}
	return out
}

// Discoverer instantiates the plugins named by declarations.
type Discoverer struct {
	catalog  *module.Catalog
	opener   Opener
	ext      string
	baseDir  string
	search   []string
	roots    []string
	fallback bool
	metrics  metrics.DiscoveryMetrics
	custom   []Strategy

	locator *Locator
}

// Option configures a Discoverer.
type Option func(*Discoverer)

// WithOpener sets how module files are opened. Defaults to GoPluginOpener.
func WithOpener(o Opener) Option {
	return func(d *Discoverer) { d.opener = o }
}

// WithExtension sets the module file extension. Defaults to ".so".
func WithExtension(ext string) Option {
	return func(d *Discoverer) { d.ext = ext }
}

// WithBaseDir sets the base directory added to the candidate roots.
func WithBaseDir(dir string) Option {
	return func(d *Discoverer) { d.baseDir = dir }
}

// WithSearchPaths appends directories to the candidate roots.
func WithSearchPaths(paths ...string) Option {
	return func(d *Discoverer) { d.search = append(d.search, paths...) }
}

// WithRoots replaces the candidate roots entirely.
func WithRoots(roots ...string) Option {
	return func(d *Discoverer) { d.roots = append([]string{}, roots...) }
}

// WithFallbackScan enables or disables the fallback scan. Enabled by default.
func WithFallbackScan(enabled bool) Option {
	return func(d *Discoverer) { d.fallback = enabled }
}

// WithStrategies replaces the default resolution strategies.
func WithStrategies(strategies ...Strategy) Option {
	return func(d *Discoverer) { d.custom = strategies }
}

// WithMetrics sets the discovery metrics collector. Nil disables collection.
func WithMetrics(m metrics.DiscoveryMetrics) Option {
	return func(d *Discoverer) { d.metrics = m }
}

// New creates a Discoverer resolving against catalog.
//
//	d := discovery.New(module.Default,
//	    discovery.WithSearchPaths("/opt/plughost/plugins"),
//	    discovery.WithMetrics(metrics.NewDiscoveryMetrics()))
func New(catalog *module.Catalog, opts ...Option) *Discoverer {
	d := &Discoverer{
		catalog:  catalog,
		ext:      DefaultExtension,
		fallback: true,
	}
	for _, opt := range opts {
		opt(d)
	}

	if d.roots == nil {
		d.roots = CandidateRoots(d.baseDir, d.search...)
	} else {
		d.roots = normalizeRoots(d.roots)
	}

	loader := NewLoader(catalog, d.opener, d.ext)
	d.locator = NewLocator(catalog, loader, d.roots, d.custom...)
	d.locator.SetMetrics(d.metrics)
	return d
}

// Locator returns the locator used to resolve names.
func (d *Discoverer) Locator() *Locator { return d.locator }

// Roots returns the candidate roots.
func (d *Discoverer) Roots() []string { return d.roots }

// Discover resolves and instantiates every active declaration.
//
// Declarations that cannot be resolved or instantiated are logged and
// reported as failures. When no declaration produced a plugin and at least
// one is active, the fallback scan runs if enabled. The returned error is
// non-nil only if ctx is cancelled.
func (d *Discoverer) Discover(ctx context.Context, decls []plugin.Declaration) (*Report, error) {
	ctx, span := telemetry.StartDiscoverySpan(ctx, telemetry.SpanDiscover, telemetry.Count(len(decls)))
	defer span.End()

	report := &Report{Declarations: decls}

	logger.InfoCtx(ctx, "Starting plugin discovery", logger.Count(len(decls)))
	active := 0
	for _, decl := range decls {
		logger.InfoCtx(ctx, "Plugin declared", logger.Plugin(decl.Name), "active", decl.IsActive)
		if decl.IsActive {
			active++
		}
	}

	for _, decl := range decls {
		if !decl.IsActive {
			continue
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}

		res, err := d.locator.Resolve(ctx, decl.Name)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return report, ctxErr
			}
			logger.WarnCtx(ctx, "No plugin type found", logger.Plugin(decl.Name))
			report.Failures = append(report.Failures, Failure{Name: decl.Name, Err: err})
			continue
		}

		p, err := instantiate(decl, res)
		if err != nil {
			logger.ErrorCtx(ctx, "Error loading plugin", logger.Plugin(decl.Name), logger.Err(err))
			report.Failures = append(report.Failures, Failure{Name: decl.Name, Err: err})
			continue
		}

		report.Discovered = append(report.Discovered, Discovered{Declaration: decl, Plugin: p, Result: res})
		logger.InfoCtx(ctx, "Plugin found and instantiated",
			logger.Plugin(decl.Name), logger.Type(res.Type.FullName()), logger.Tier(res.Strategy))
	}

	if len(report.Discovered) == 0 && active > 0 && d.fallback {
		logger.DebugCtx(ctx, "No plugins discovered, scanning module files", logger.Count(len(d.roots)))
		report.FallbackUsed = true

		matches, err := d.locator.FallbackScan(ctx, decls)
		if err != nil {
			return report, err
		}
		for _, m := range matches {
			p, err := instantiate(m.Declaration, m.Result)
			if err != nil {
				logger.DebugCtx(ctx, "Fallback type not constructible",
					logger.Plugin(m.Declaration.Name), logger.Err(err))
				continue
			}
			report.Discovered = append(report.Discovered, Discovered{Declaration: m.Declaration, Plugin: p, Result: m.Result})
		}
	}

	telemetry.SetAttributes(ctx, telemetry.Count(len(report.Discovered)))
	logger.InfoCtx(ctx, "Plugin discovery completed", logger.Count(len(report.Discovered)))
	return report, nil
}

// instantiate creates the plugin for res and copies the declaration onto it.
func instantiate(decl plugin.Declaration, res Result) (plugin.Plugin, error) {
	p, err := res.Type.Instantiate()
	if err != nil {
		return nil, fmt.Errorf("instantiate %s: %w", decl.Name, err)
	}
	p.SetName(decl.Name)
	p.SetActive(decl.IsActive)
	p.AddSourceModule(res.Module.Name)
	return p, nil
}
