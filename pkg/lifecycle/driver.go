// Package lifecycle drives installed plugins through ConfigureContext and
// Configure.
//
// Both phases visit plugins one at a time in installation order. What
// happens after a failure is governed by the Policy: ContinueOnError (the
// default) isolates the failure and keeps going, StopOnError aborts the
// sweep. A plugin that panics fails its phase with ErrPanicked. Either way a plugin that failed ConfigureContext is never
// configured, and a cancelled context stops the sweep before the next plugin.
//
// Typical use:
//
//	driver := lifecycle.New(reg, lifecycle.WithPolicy(lifecycle.StopOnError))
//	provider, results, err := driver.Activate(ctx, services, server)
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/marmos91/plughost/internal/logger"
	"github.com/marmos91/plughost/internal/telemetry"
	"github.com/marmos91/plughost/pkg/container"
	"github.com/marmos91/plughost/pkg/metrics"
	"github.com/marmos91/plughost/pkg/plugin"
	"github.com/marmos91/plughost/pkg/registry"
)

// Phase names a lifecycle phase.
type Phase string

const (
	PhaseConfigureContext Phase = "configure_context"
	PhaseConfigure        Phase = "configure"
)

// PhaseResult is the outcome of one plugin's run through a phase.
type PhaseResult struct {
	Plugin    plugin.Plugin
	Identity  string
	Phase     Phase
	Succeeded bool
	Err       error
	Duration  time.Duration
}

// Driver runs the configuration phases over a registry's plugins.
type Driver struct {
	reg     *registry.Registry
	policy  Policy
	metrics metrics.LifecycleMetrics
}

// Option configures a Driver.
type Option func(*Driver)

// WithPolicy sets the failure policy. Defaults to ContinueOnError.
func WithPolicy(p Policy) Option {
	return func(d *Driver) { d.policy = p }
}

// WithMetrics sets the collector for phase runs. Nil disables it.
func WithMetrics(m metrics.LifecycleMetrics) Option {
	return func(d *Driver) { d.metrics = m }
}

// New creates a driver over reg.
func New(reg *registry.Registry, opts ...Option) *Driver {
	d := &Driver{reg: reg, policy: ContinueOnError}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Policy returns the failure policy.
func (d *Driver) Policy() Policy { return d.policy }

// State returns the lifecycle state of the plugin installed under identity.
func (d *Driver) State(identity string) plugin.State { return d.reg.State(identity) }

// States returns the lifecycle state of every installed plugin by identity.
func (d *Driver) States() map[string]plugin.State { return d.reg.States() }

// ConfigureContext runs the ConfigureContext hook of every plugin still in
// the Installed state. Plugins without the hook advance immediately.
func (d *Driver) ConfigureContext(ctx context.Context, services container.Registrar) ([]PhaseResult, error) {
	return d.sweep(ctx, PhaseConfigureContext, func(ctx context.Context, p plugin.Plugin, id string) (bool, error) {
		if d.reg.State(id) != plugin.Installed {
			return false, nil
		}
		if cc, ok := p.(plugin.ContextConfigurer); ok {
			if err := cc.ConfigureContext(ctx, services); err != nil {
				return true, err
			}
		}
		return true, nil
	}, plugin.ContextConfigured)
}

// Configure runs Configure on every plugin that has not failed and is not
// yet configured. host is passed through untouched and may be nil.
//
// A plugin whose ConfigureContext phase never ran is configured anyway and
// its context phase is recorded as skipped.
func (d *Driver) Configure(ctx context.Context, resolver container.Resolver, host any) ([]PhaseResult, error) {
	return d.sweep(ctx, PhaseConfigure, func(ctx context.Context, p plugin.Plugin, id string) (bool, error) {
		switch d.reg.State(id) {
		case plugin.Installed:
			logger.DebugCtx(ctx, "Context phase skipped", logger.Plugin(p.Name()))
			if err := d.reg.Transition(id, plugin.ContextConfigured); err != nil {
				return false, err
			}
		case plugin.ContextConfigured:
		default:
			return false, nil
		}
		return true, p.Configure(ctx, resolver, host)
	}, plugin.Configured)
}

// Activate runs ConfigureContext, builds services and runs Configure with
// the built registry. Under ContinueOnError the returned error joins the
// failures of both phases.
func (d *Driver) Activate(ctx context.Context, services container.Builder, host any) (container.Resolver, []PhaseResult, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanActivate)
	defer span.End()
	telemetry.SetAttributes(ctx, telemetry.Policy(d.policy.String()), telemetry.Count(d.reg.Count()))

	results, ctxErr := d.ConfigureContext(ctx, services)
	if ctxErr != nil && (d.policy == StopOnError || ctx.Err() != nil) {
		return nil, results, ctxErr
	}

	resolver, err := d.build(ctx, services)
	if err != nil {
		return nil, results, joinNonNil(ctxErr, err)
	}

	configured, cfgErr := d.Configure(ctx, resolver, host)
	results = append(results, configured...)
	if cfgErr != nil && ctx.Err() != nil {
		return resolver, results, cfgErr
	}
	return resolver, results, joinNonNil(ctxErr, cfgErr)
}

// joinNonNil joins a and b, returning either unchanged when the other is nil.
func joinNonNil(a, b error) error {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	default:
		return errors.Join(a, b)
	}
}

func (d *Driver) build(ctx context.Context, services container.Builder) (container.Resolver, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanBuildServices)
	defer span.End()

	resolver, err := services.Build()
	if err != nil {
		telemetry.RecordError(ctx, err)
		return nil, fmt.Errorf("build collaborator registry: %w", err)
	}
	return resolver, nil
}

// ErrPanicked is wrapped by the phase error of a plugin that panicked.
var ErrPanicked = errors.New("plugin panicked")

// step runs one plugin through a phase. It reports ran=false when the
// plugin does not take part in the phase.
type step func(ctx context.Context, p plugin.Plugin, identity string) (ran bool, err error)

// call invokes run and turns a panic into a failed run.
func (s step) call(ctx context.Context, phase Phase, p plugin.Plugin, identity string) (ran bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ran = true
			err = fmt.Errorf("%s %s: %w: %v", phase, p.Name(), ErrPanicked, r)
		}
	}()
	return s(ctx, p, identity)
}

func (d *Driver) sweep(ctx context.Context, phase Phase, run step, success plugin.State) ([]PhaseResult, error) {
	ctx, span := telemetry.StartPhaseSpan(ctx, string(phase), telemetry.Policy(d.policy.String()))
	defer span.End()

	var (
		results []PhaseResult
		errs    []error
	)
	for _, p := range d.reg.Plugins() {
		if err := ctx.Err(); err != nil {
			telemetry.RecordError(ctx, err)
			return results, err
		}

		identity, _ := d.reg.Identity(p)
		res, ran := d.runOne(ctx, phase, p, identity, run, success)
		if !ran {
			continue
		}
		results = append(results, res)

		if res.Err != nil {
			if d.policy == StopOnError {
				return results, res.Err
			}
			errs = append(errs, res.Err)
		}
	}
	return results, errors.Join(errs...)
}

func (d *Driver) runOne(ctx context.Context, phase Phase, p plugin.Plugin, identity string, run step, success plugin.State) (PhaseResult, bool) {
	ctx, span := telemetry.StartPluginSpan(ctx, telemetry.SpanPluginPhase, p.Name(), identity,
		telemetry.Phase(string(phase)))
	defer span.End()

	lc := telemetry.LogContext(ctx, logger.NewLogContext(string(phase)).WithPlugin(p.Name(), identity))
	ctx = logger.WithContext(ctx, lc)

	start := time.Now()
	var (
		ran bool
		err error
	)
	telemetry.ProfilePhase(ctx, string(phase), p.Name(), func(ctx context.Context) {
		ran, err = run.call(ctx, phase, p, identity)
	})
	if !ran && err == nil {
		return PhaseResult{}, false
	}
	elapsed := time.Since(start)

	next := success
	if err != nil {
		next = plugin.Failed
	}
	if terr := d.reg.Transition(identity, next); terr != nil && err == nil {
		err = terr
		_ = d.reg.Transition(identity, plugin.Failed)
	}

	res := PhaseResult{
		Plugin:    p,
		Identity:  identity,
		Phase:     phase,
		Succeeded: err == nil,
		Err:       err,
		Duration:  elapsed,
	}

	metrics.ObservePhase(d.metrics, string(phase), res.Succeeded, elapsed)
	telemetry.SetAttributes(ctx, telemetry.Succeeded(res.Succeeded))
	if err != nil {
		telemetry.RecordError(ctx, err)
		logger.ErrorCtx(ctx, "Plugin phase failed", logger.Err(err), logger.DurationMs(elapsed))
	} else {
		logger.DebugCtx(ctx, "Plugin phase completed", logger.DurationMs(elapsed))
	}
	return res, true
}
