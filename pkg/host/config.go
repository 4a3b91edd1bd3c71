package host

import "time"

// Config configures the HTTP host.
type Config struct {
	// Port is the TCP port to listen on. 0 picks a free port.
	Port int

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 10s
	ReadTimeout time.Duration

	// WriteTimeout is the maximum duration before timing out writes of the
	// response.
	// Default: 10s
	WriteTimeout time.Duration

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 60s
	IdleTimeout time.Duration

	// RequestTimeout bounds each request's handler context.
	// Default: 30s
	RequestTimeout time.Duration

	// ShutdownTimeout bounds graceful shutdown after Start's context is
	// cancelled.
	// Default: 30s
	ShutdownTimeout time.Duration

	// Metrics mounts GET /metrics.
	Metrics bool
}

func (c *Config) applyDefaults() {
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 60 * time.Second
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 30 * time.Second
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 30 * time.Second
	}
}
