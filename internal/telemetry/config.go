package telemetry

// Config configures OTLP tracing of discovery and the plugin lifecycle.
type Config struct {
	Enabled bool

	// ServiceName and ServiceVersion become the service.name and
	// service.version resource attributes.
	ServiceName    string
	ServiceVersion string

	// Endpoint is the OTLP gRPC collector address, e.g. "localhost:4317".
	Endpoint string

	// Insecure disables TLS towards the collector.
	Insecure bool

	// SampleRate is the fraction of traces kept, from 0 (none) to 1 (all).
	SampleRate float64
}

// ProfilingConfig configures Pyroscope continuous profiling of the host.
type ProfilingConfig struct {
	Enabled bool

	ServiceName    string
	ServiceVersion string

	// Endpoint is the Pyroscope server URL, e.g. "http://localhost:4040".
	Endpoint string

	// ProfileTypes lists the profiles to collect by name (see profileTypes).
	// CPU and the in-use/alloc heap profiles are collected when empty.
	ProfileTypes []string

	// Policy is the lifecycle failure policy of the host, attached to every
	// profile as the "policy" tag.
	Policy string
}

// DefaultConfig returns tracing disabled, pointed at a local collector.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "plughost",
		ServiceVersion: "dev",
		Endpoint:       "localhost:4317",
		Insecure:       true,
		SampleRate:     1.0,
	}
}
