package discovery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/marmos91/plughost/internal/logger"
	"github.com/marmos91/plughost/internal/telemetry"
	"github.com/marmos91/plughost/pkg/metrics"
	"github.com/marmos91/plughost/pkg/module"
	"github.com/marmos91/plughost/pkg/plugin"
)

// ErrNotFound is returned when no strategy yields a plugin type for a name.
var ErrNotFound = errors.New("plugin not found")

// Result is a resolved declaration: the module and the plugin type chosen
// from it.
type Result struct {
	Module   *module.Module
	Type     *module.TypeDescriptor
	Strategy string
}

// Match pairs a declaration with the type the fallback scan found for it.
type Match struct {
	Declaration plugin.Declaration
	Result
}

// Locator resolves declared names to plugin types.
type Locator struct {
	catalog    *module.Catalog
	loader     *Loader
	roots      []string
	strategies []Strategy
	metrics    metrics.DiscoveryMetrics
}

// NewLocator creates a locator over catalog. With no strategies it uses
// DefaultStrategies.
func NewLocator(catalog *module.Catalog, loader *Loader, roots []string, strategies ...Strategy) *Locator {
	if len(strategies) == 0 {
		strategies = DefaultStrategies(catalog, loader, roots)
	}
	return &Locator{
		catalog:    catalog,
		loader:     loader,
		roots:      roots,
		strategies: strategies,
	}
}

// Roots returns the directories searched for module files.
func (l *Locator) Roots() []string { return l.roots }

// Strategies returns the strategies in resolution order.
func (l *Locator) Strategies() []Strategy { return l.strategies }

// SetMetrics sets the collector for resolutions, module loads and fallback
// scans. Nil disables collection.
func (l *Locator) SetMetrics(m metrics.DiscoveryMetrics) {
	l.metrics = m
	l.loader.SetMetrics(m)
	metrics.ObserveCandidateRoots(m, len(l.roots))
}

// Resolve finds the plugin type for name.
//
// Strategies run in order until one yields a module. The first concrete type
// of that module is selected. When no module is found, or the module has no
// concrete type, every module in the catalog is searched by package path,
// module name and finally by substring. Strategy failures are logged and
// treated as no match; the only errors returned are ErrNotFound and the
// context's error.
func (l *Locator) Resolve(ctx context.Context, name string) (Result, error) {
	ctx, span := telemetry.StartDiscoverySpan(ctx, telemetry.SpanResolve, telemetry.PluginName(name))
	defer span.End()

	start := time.Now()
	name = strings.TrimSpace(name)
	if name == "" {
		return Result{}, fmt.Errorf("blank plugin name: %w", ErrNotFound)
	}

	var (
		found    *module.Module
		strategy string
	)
	for _, s := range l.strategies {
		if err := ctx.Err(); err != nil {
			telemetry.RecordError(ctx, err)
			return Result{}, err
		}
		m, ok, err := s.Find(ctx, name)
		if err != nil {
			logger.DebugCtx(ctx, "Resolution strategy failed",
				logger.Plugin(name), logger.Tier(s.Name()), logger.Err(err))
			continue
		}
		if ok && m != nil {
			found, strategy = m, s.Name()
			logger.DebugCtx(ctx, "Module found",
				logger.Plugin(name), logger.Tier(strategy), logger.Module(m.Name))
			break
		}
	}

	if found != nil {
		if d := firstConcrete(found); d != nil {
			return l.resolved(ctx, name, Result{Module: found, Type: d, Strategy: strategy}, start), nil
		}
		logger.DebugCtx(ctx, "Module exports no plugin type, widening search",
			logger.Plugin(name), logger.Module(found.Name))
	}

	if m, d := l.broaden(name); d != nil {
		return l.resolved(ctx, name, Result{Module: m, Type: d, Strategy: StrategyBroad}, start), nil
	}

	metrics.ObserveResolution(l.metrics, StrategyNone, false, time.Since(start))
	telemetry.SetAttributes(ctx, telemetry.Strategy(StrategyNone))
	return Result{}, fmt.Errorf("%s: %w", name, ErrNotFound)
}

func (l *Locator) resolved(ctx context.Context, name string, r Result, start time.Time) Result {
	metrics.ObserveResolution(l.metrics, r.Strategy, true, time.Since(start))
	telemetry.SetAttributes(ctx,
		telemetry.Strategy(r.Strategy),
		telemetry.ModuleName(r.Module.Name),
		telemetry.PluginType(r.Type.FullName()))
	logger.DebugCtx(ctx, "Plugin type resolved",
		logger.Plugin(name), logger.Type(r.Type.FullName()), logger.Tier(r.Strategy))
	return r
}

// broaden searches the whole catalog, first by package path or module name
// and then by case-insensitive substring.
func (l *Locator) broaden(name string) (*module.Module, *module.TypeDescriptor) {
	modules := l.catalog.Modules()

	for _, m := range modules {
		for _, d := range m.Types {
			if !d.Concrete() {
				continue
			}
			if strings.EqualFold(d.Package, name) || hasPrefixFold(d.Package, name) || m.Name == name {
				return m, d
			}
		}
	}

	lower := strings.ToLower(name)
	for _, m := range modules {
		for _, d := range m.Types {
			if !d.Concrete() {
				continue
			}
			if strings.Contains(strings.ToLower(d.FullName()), lower) ||
				strings.Contains(strings.ToLower(d.Package), lower) ||
				strings.Contains(strings.ToLower(m.Name), lower) {
				return m, d
			}
		}
	}
	return nil, nil
}

// FallbackScan loads every module file in the roots and matches the active
// declarations against the types they export. A declaration matches a type
// whose package path equals or starts with its name, whose full name starts
// with it, or whose simple name equals its last dot-segment.
// One declaration may match types in several files.
func (l *Locator) FallbackScan(ctx context.Context, decls []plugin.Declaration) ([]Match, error) {
	ctx, span := telemetry.StartDiscoverySpan(ctx, telemetry.SpanFallbackScan, telemetry.Count(len(l.roots)))
	defer span.End()

	var matches []Match
	for _, root := range l.roots {
		if err := ctx.Err(); err != nil {
			return matches, err
		}
		for _, m := range l.loader.LoadDir(root) {
			for _, decl := range decls {
				if !decl.IsActive {
					continue
				}
				if d := fallbackType(m, decl.Name); d != nil {
					matches = append(matches, Match{
						Declaration: decl,
						Result:      Result{Module: m, Type: d, Strategy: StrategyScan},
					})
					logger.InfoCtx(ctx, "Plugin type found by fallback scan",
						logger.Plugin(decl.Name), logger.Type(d.FullName()), logger.Path(m.Path))
				}
			}
		}
	}

	metrics.ObserveFallbackScan(l.metrics, len(matches))
	return matches, nil
}

func fallbackType(m *module.Module, name string) *module.TypeDescriptor {
	last := name[strings.LastIndex(name, ".")+1:]
	for _, d := range m.Types {
		if !d.Concrete() {
			continue
		}
		if d.Package == name ||
			hasPrefixFold(d.Package, name) ||
			strings.HasPrefix(d.FullName(), name) ||
			d.Name == last {
			return d
		}
	}
	return nil
}

func firstConcrete(m *module.Module) *module.TypeDescriptor {
	for _, d := range m.Types {
		if d.Concrete() {
			return d
		}
	}
	return nil
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
