package metrics

import (
	"sync"
	"time"
)

// DiscoveryMetrics provides observability for plugin discovery.
//
// Pass nil to disable collection:
//
//	d := discovery.New(catalog, discovery.WithMetrics(metrics.NewDiscoveryMetrics()))
type DiscoveryMetrics interface {
	// RecordResolution records the outcome of resolving one declaration.
	// strategy is the name of the strategy that matched, or "none".
	RecordResolution(strategy string, found bool, duration time.Duration)

	// RecordModuleLoad records an attempt to open a module file.
	RecordModuleLoad(success bool)

	// RecordFallbackScan records a fallback scan and how many types it added.
	RecordFallbackScan(added int)

	// SetCandidateRoots records the number of directories searched.
	SetCandidateRoots(count int)
}

// LifecycleMetrics provides observability for plugin registration and the
// configuration phases.
type LifecycleMetrics interface {
	// RecordInstall records one registration attempt. outcome is one of
	// "installed", "duplicate", "invalid", "skipped" or "failed".
	RecordInstall(outcome string)

	// RecordPhase records one plugin's run through a lifecycle phase.
	RecordPhase(phase string, success bool, duration time.Duration)

	// SetRegistered records the number of registered plugins.
	SetRegistered(count int)
}

var (
	newPrometheusDiscoveryMetrics func() DiscoveryMetrics
	newPrometheusLifecycleMetrics func() LifecycleMetrics

	// Collectors can only be registered once per registry, so instances are
	// shared until Reset.
	discoveryInstance DiscoveryMetrics
	lifecycleInstance LifecycleMetrics
	instanceMu        sync.Mutex
)

// RegisterDiscoveryMetricsConstructor registers the Prometheus discovery
// metrics constructor. Called by pkg/metrics/prometheus during init.
func RegisterDiscoveryMetricsConstructor(constructor func() DiscoveryMetrics) {
	newPrometheusDiscoveryMetrics = constructor
}

// RegisterLifecycleMetricsConstructor registers the Prometheus lifecycle
// metrics constructor. Called by pkg/metrics/prometheus during init.
func RegisterLifecycleMetricsConstructor(constructor func() LifecycleMetrics) {
	newPrometheusLifecycleMetrics = constructor
}

// NewDiscoveryMetrics returns a DiscoveryMetrics backed by the process
// registry, or nil if metrics are disabled or no implementation is linked.
func NewDiscoveryMetrics() DiscoveryMetrics {
	if !IsEnabled() || newPrometheusDiscoveryMetrics == nil {
		return nil
	}
	instanceMu.Lock()
	defer instanceMu.Unlock()
	if discoveryInstance == nil {
		discoveryInstance = newPrometheusDiscoveryMetrics()
	}
	return discoveryInstance
}

// NewLifecycleMetrics returns a LifecycleMetrics backed by the process
// registry, or nil if metrics are disabled or no implementation is linked.
func NewLifecycleMetrics() LifecycleMetrics {
	if !IsEnabled() || newPrometheusLifecycleMetrics == nil {
		return nil
	}
	instanceMu.Lock()
	defer instanceMu.Unlock()
	if lifecycleInstance == nil {
		lifecycleInstance = newPrometheusLifecycleMetrics()
	}
	return lifecycleInstance
}

// ObserveResolution records a resolution on m if m is non-nil.
func ObserveResolution(m DiscoveryMetrics, strategy string, found bool, duration time.Duration) {
	if m != nil {
		m.RecordResolution(strategy, found, duration)
	}
}

func ObserveModuleLoad(m DiscoveryMetrics, success bool) {
	if m != nil {
		m.RecordModuleLoad(success)
	}
}

func ObserveFallbackScan(m DiscoveryMetrics, added int) {
	if m != nil {
		m.RecordFallbackScan(added)
	}
}

func ObserveCandidateRoots(m DiscoveryMetrics, count int) {
	if m != nil {
		m.SetCandidateRoots(count)
	}
}

// ObserveInstall records a registration outcome on m if m is non-nil.
func ObserveInstall(m LifecycleMetrics, outcome string) {
	if m != nil {
		m.RecordInstall(outcome)
	}
}

// ObservePhase records a phase run on m if m is non-nil.
func ObservePhase(m LifecycleMetrics, phase string, success bool, duration time.Duration) {
	if m != nil {
		m.RecordPhase(phase, success, duration)
	}
}

func ObserveRegistered(m LifecycleMetrics, count int) {
	if m != nil {
		m.SetRegistered(count)
	}
}
