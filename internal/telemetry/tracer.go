package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for plugin operations.
const (
	AttrPluginName     = "plugin.name"
	AttrPluginIdentity = "plugin.id"
	AttrPluginType     = "plugin.type"
	AttrPluginActive   = "plugin.active"

	AttrPhase     = "lifecycle.phase"
	AttrPolicy    = "lifecycle.policy"
	AttrSucceeded = "lifecycle.succeeded"

	AttrModuleName = "module.name"
	AttrModulePath = "module.path"

	AttrStrategy = "discovery.strategy"
	AttrRoot     = "discovery.root"
	AttrCount    = "discovery.count"
)

// Span names.
// Format: <component>.<operation>
const (
	SpanDiscover      = "discovery.discover"
	SpanResolve       = "discovery.resolve"
	SpanFallbackScan  = "discovery.fallback_scan"
	SpanLoadModule    = "discovery.load_module"
	SpanInstall       = "registry.install"
	SpanActivate      = "lifecycle.activate"
	SpanPhase         = "lifecycle.phase"
	SpanPluginPhase   = "lifecycle.plugin"
	SpanBuildServices = "lifecycle.build"
)

// PluginName returns an attribute for a plugin name
func PluginName(name string) attribute.KeyValue {
	return attribute.String(AttrPluginName, name)
}

// PluginIdentity returns an attribute for a plugin identity
func PluginIdentity(id string) attribute.KeyValue {
	return attribute.String(AttrPluginIdentity, id)
}

// PluginType returns an attribute for a plugin's concrete type name
func PluginType(fullName string) attribute.KeyValue {
	return attribute.String(AttrPluginType, fullName)
}

func PluginActive(active bool) attribute.KeyValue {
	return attribute.Bool(AttrPluginActive, active)
}

// Phase returns an attribute for a lifecycle phase
func Phase(phase string) attribute.KeyValue {
	return attribute.String(AttrPhase, phase)
}

func Policy(policy string) attribute.KeyValue {
	return attribute.String(AttrPolicy, policy)
}

func Succeeded(ok bool) attribute.KeyValue {
	return attribute.Bool(AttrSucceeded, ok)
}

// ModuleName returns an attribute for a loaded module name
func ModuleName(name string) attribute.KeyValue {
	return attribute.String(AttrModuleName, name)
}

// ModulePath returns an attribute for a module file path
func ModulePath(path string) attribute.KeyValue {
	return attribute.String(AttrModulePath, path)
}

// Strategy returns an attribute for the resolution strategy that matched
func Strategy(name string) attribute.KeyValue {
	return attribute.String(AttrStrategy, name)
}

func Root(dir string) attribute.KeyValue {
	return attribute.String(AttrRoot, dir)
}

func Count(n int) attribute.KeyValue {
	return attribute.Int(AttrCount, n)
}

// StartPluginSpan starts a span for an operation on a single plugin.
func StartPluginSpan(ctx context.Context, spanName, name, identity string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := make([]attribute.KeyValue, 0, 2+len(attrs))
	allAttrs = append(allAttrs, PluginName(name))
	if identity != "" {
		allAttrs = append(allAttrs, PluginIdentity(identity))
	}
	allAttrs = append(allAttrs, attrs...)
	return StartSpan(ctx, spanName, trace.WithAttributes(allAttrs...))
}

// StartPhaseSpan starts a span for one lifecycle phase run over all plugins.
func StartPhaseSpan(ctx context.Context, phase string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append([]attribute.KeyValue{Phase(phase)}, attrs...)
	return StartSpan(ctx, SpanPhase, trace.WithAttributes(allAttrs...))
}

// StartDiscoverySpan starts a span for a discovery operation.
func StartDiscoverySpan(ctx context.Context, spanName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, spanName, trace.WithAttributes(attrs...))
}
