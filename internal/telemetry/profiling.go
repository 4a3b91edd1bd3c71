package telemetry

import (
	"context"
	"fmt"
	"runtime"
	"sort"

	"github.com/grafana/pyroscope-go"
)

// profileTypes maps configuration names to Pyroscope profile types.
var profileTypes = map[string]pyroscope.ProfileType{
	"cpu":            pyroscope.ProfileCPU,
	"alloc_objects":  pyroscope.ProfileAllocObjects,
	"alloc_space":    pyroscope.ProfileAllocSpace,
	"inuse_objects":  pyroscope.ProfileInuseObjects,
	"inuse_space":    pyroscope.ProfileInuseSpace,
	"goroutines":     pyroscope.ProfileGoroutines,
	"mutex_count":    pyroscope.ProfileMutexCount,
	"mutex_duration": pyroscope.ProfileMutexDuration,
	"block_count":    pyroscope.ProfileBlockCount,
	"block_duration": pyroscope.ProfileBlockDuration,
}

var (
	profiler         *pyroscope.Profiler
	profilingEnabled bool
)

// InitProfiling starts the Pyroscope profiler described by cfg. The returned
// function stops it; it is a no-op when profiling is disabled.
func InitProfiling(cfg ProfilingConfig) (shutdown func() error, err error) {
	profilingEnabled = false
	if !cfg.Enabled {
		return func() error { return nil }, nil
	}

	types := make([]pyroscope.ProfileType, 0, len(cfg.ProfileTypes))
	for _, name := range cfg.ProfileTypes {
		pt, err := parseProfileType(name)
		if err != nil {
			return nil, fmt.Errorf("invalid profile type %q: %w", name, err)
		}
		switch pt {
		case pyroscope.ProfileMutexCount, pyroscope.ProfileMutexDuration:
			runtime.SetMutexProfileFraction(5)
		case pyroscope.ProfileBlockCount, pyroscope.ProfileBlockDuration:
			runtime.SetBlockProfileRate(5)
		}
		types = append(types, pt)
	}

	profiler, err = pyroscope.Start(pyroscope.Config{
		ApplicationName: cfg.ServiceName,
		ServerAddress:   cfg.Endpoint,
		Tags:            profilingTags(cfg),
		ProfileTypes:    types,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start Pyroscope profiler: %w", err)
	}
	profilingEnabled = true

	return func() error {
		profilingEnabled = false
		if profiler == nil {
			return nil
		}
		return profiler.Stop()
	}, nil
}

// IsProfilingEnabled reports whether the profiler is running.
func IsProfilingEnabled() bool {
	return profilingEnabled
}

// ProfilePhase runs fn with pprof labels naming the plugin and lifecycle
// phase, so CPU and allocation samples taken inside a plugin hook can be
// filtered by plugin in Pyroscope.
func ProfilePhase(ctx context.Context, phase, pluginName string, fn func(context.Context)) {
	if !profilingEnabled {
		fn(ctx)
		return
	}
	pyroscope.TagWrapper(ctx, pyroscope.Labels("plugin", pluginName, "phase", phase), fn)
}

// profilingTags returns the static tags attached to every profile.
func profilingTags(cfg ProfilingConfig) map[string]string {
	tags := map[string]string{"version": cfg.ServiceVersion}
	if cfg.Policy != "" {
		tags["policy"] = cfg.Policy
	}
	return tags
}

func parseProfileType(name string) (pyroscope.ProfileType, error) {
	if pt, ok := profileTypes[name]; ok {
		return pt, nil
	}
	return "", fmt.Errorf("unknown profile type: %s (valid: %v)", name, profileTypeNames())
}

func profileTypeNames() []string {
	names := make([]string, 0, len(profileTypes))
	for name := range profileTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
