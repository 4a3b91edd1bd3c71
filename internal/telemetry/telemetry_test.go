package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/marmos91/plughost/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, "plughost", cfg.ServiceName)
	assert.Equal(t, "dev", cfg.ServiceVersion)
	assert.Equal(t, "localhost:4317", cfg.Endpoint)
	assert.True(t, cfg.Insecure)
	assert.Equal(t, 1.0, cfg.SampleRate)
}

func TestInitDisabled(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.Enabled = false

	shutdown, err := Init(ctx, cfg)
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	// Should be able to call shutdown without error
	err = shutdown(ctx)
	assert.NoError(t, err)

	// Should not be enabled
	assert.False(t, IsEnabled())
}

func TestTracerReturnsNoOp(t *testing.T) {
	// Reset state
	tracer = nil
	enabled = false

	// Without initialization, should return no-op tracer
	tr := Tracer()
	require.NotNil(t, tr)
}

func TestStartSpan(t *testing.T) {
	ctx := context.Background()

	// Even without initialization, StartSpan should work (no-op)
	newCtx, span := StartSpan(ctx, "test.operation")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)

	// Should be able to end the span
	span.End()
}

func TestSpanFromContext(t *testing.T) {
	ctx := context.Background()

	// Should return a span even without active span
	span := SpanFromContext(ctx)
	require.NotNil(t, span)
}

func TestAddEvent(t *testing.T) {
	ctx := context.Background()

	// Should not panic with no active span
	require.NotPanics(t, func() {
		AddEvent(ctx, "test.event")
	})
}

func TestRecordError(t *testing.T) {
	ctx := context.Background()

	// Should not panic with nil error
	require.NotPanics(t, func() {
		RecordError(ctx, nil)
	})

	// Should not panic with error
	require.NotPanics(t, func() {
		RecordError(ctx, errors.New("test error"))
	})
}

func TestSetStatus(t *testing.T) {
	ctx := context.Background()

	// Should not panic
	require.NotPanics(t, func() {
		SetStatus(ctx, codes.Ok, "success")
	})

	require.NotPanics(t, func() {
		SetStatus(ctx, codes.Error, "failed")
	})
}

func TestSetAttributes(t *testing.T) {
	ctx := context.Background()

	// Should not panic
	require.NotPanics(t, func() {
		SetAttributes(ctx, PluginName("backend"))
	})
}

func TestTraceID(t *testing.T) {
	ctx := context.Background()

	// Without active span, should return empty string
	traceID := TraceID(ctx)
	assert.Equal(t, "", traceID)
}

func TestSpanID(t *testing.T) {
	ctx := context.Background()

	// Without active span, should return empty string
	spanID := SpanID(ctx)
	assert.Equal(t, "", spanID)
}

func TestAttributeHelpers(t *testing.T) {
	tests := []struct {
		name string
		attr attribute.KeyValue
		key  string
		want any
	}{
		{"PluginName", PluginName("backend"), AttrPluginName, "backend"},
		{"PluginIdentity", PluginIdentity("9b0c7e1a-2d4f-4c6b-8a3e-5f1d2c3b4a59"), AttrPluginIdentity, "9b0c7e1a-2d4f-4c6b-8a3e-5f1d2c3b4a59"},
		{"PluginType", PluginType("backend.Plugin"), AttrPluginType, "backend.Plugin"},
		{"PluginActive", PluginActive(true), AttrPluginActive, true},
		{"Phase", Phase("configure"), AttrPhase, "configure"},
		{"Policy", Policy("continue"), AttrPolicy, "continue"},
		{"Succeeded", Succeeded(false), AttrSucceeded, false},
		{"ModuleName", ModuleName("samples"), AttrModuleName, "samples"},
		{"ModulePath", ModulePath("/opt/plugins/external.so"), AttrModulePath, "/opt/plugins/external.so"},
		{"Strategy", Strategy("loaded"), AttrStrategy, "loaded"},
		{"Root", Root("/opt/plugins"), AttrRoot, "/opt/plugins"},
		{"Count", Count(3), AttrCount, int64(3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.key, string(tt.attr.Key))
			assert.Equal(t, tt.want, tt.attr.Value.AsInterface())
		})
	}
}

func TestStartPluginSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartPluginSpan(ctx, SpanInstall, "backend", "9b0c7e1a-2d4f-4c6b-8a3e-5f1d2c3b4a59")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()

	newCtx2, span2 := StartPluginSpan(ctx, SpanInstall, "anonymous", "", PluginActive(false))
	require.NotNil(t, newCtx2)
	require.NotNil(t, span2)
	span2.End()
}

func TestStartPhaseSpan(t *testing.T) {
	newCtx, span := StartPhaseSpan(context.Background(), "configure_context", Policy("stop"))
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()
}

func TestStartDiscoverySpan(t *testing.T) {
	newCtx, span := StartDiscoverySpan(context.Background(), SpanResolve, Strategy("scan"), Count(2))
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()
}

func TestParseProfileType(t *testing.T) {
	for _, name := range []string{"cpu", "alloc_objects", "alloc_space", "inuse_objects", "inuse_space", "goroutines", "mutex_count", "mutex_duration", "block_count", "block_duration"} {
		pt, err := parseProfileType(name)
		assert.NoError(t, err, name)
		assert.Equal(t, name, string(pt))
	}
	_, err := parseProfileType("heap")
	assert.ErrorContains(t, err, "valid: [alloc_objects")
}

func TestInitProfilingDisabled(t *testing.T) {
	shutdown, err := InitProfiling(ProfilingConfig{Enabled: false})
	require.NoError(t, err)
	assert.NoError(t, shutdown())
	assert.False(t, IsProfilingEnabled())
}

func TestInitProfilingRejectsUnknownType(t *testing.T) {
	_, err := InitProfiling(ProfilingConfig{Enabled: true, ProfileTypes: []string{"cpu", "heap"}})
	assert.ErrorContains(t, err, `invalid profile type "heap"`)
	assert.False(t, IsProfilingEnabled())
}

func TestProfilingTags(t *testing.T) {
	assert.Equal(t, map[string]string{"version": "1.2.0"},
		profilingTags(ProfilingConfig{ServiceVersion: "1.2.0"}))
	assert.Equal(t, map[string]string{"version": "dev", "policy": "stop"},
		profilingTags(ProfilingConfig{ServiceVersion: "dev", Policy: "stop"}))
}

func TestProfilePhaseRunsCallback(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "kept")

	var got any
	ProfilePhase(ctx, "configure", "weather", func(ctx context.Context) {
		got = ctx.Value(key{})
	})
	assert.Equal(t, "kept", got)
}

func TestNewSampler(t *testing.T) {
	assert.Contains(t, newSampler(1.0).Description(), "AlwaysOnSampler")
	assert.Contains(t, newSampler(0).Description(), "AlwaysOffSampler")
	assert.Contains(t, newSampler(0.5).Description(), "TraceIDRatioBased")
}

func TestLogContextWithoutSpan(t *testing.T) {
	lc := logger.NewLogContext("install")
	got := LogContext(context.Background(), lc)
	assert.Same(t, lc, got)
	assert.Empty(t, got.TraceID)
}
