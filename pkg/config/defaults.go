package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Zero values (0, "", nil) are replaced with defaults; explicit values are
// preserved. Booleans that default to true are set by Load through viper
// instead, since false cannot be told apart from unset here.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyServerDefaults(&cfg.Server)
	applyDiscoveryDefaults(&cfg.Discovery)
	applyDatabaseDefaults(&cfg.Samples.Database)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyTelemetryDefaults sets OpenTelemetry defaults.
func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}

	applyProfilingDefaults(&cfg.Profiling)
}

// applyProfilingDefaults sets Pyroscope profiling defaults.
func applyProfilingDefaults(cfg *ProfilingConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:4040"
	}
	if len(cfg.ProfileTypes) == 0 {
		cfg.ProfileTypes = []string{
			"cpu",
			"alloc_objects",
			"alloc_space",
			"inuse_objects",
			"inuse_space",
			"goroutines",
		}
	}
}

// applyServerDefaults sets HTTP host defaults.
func applyServerDefaults(cfg *ServerConfig) {
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 60 * time.Second
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

// applyDiscoveryDefaults sets module discovery defaults.
func applyDiscoveryDefaults(cfg *DiscoveryConfig) {
	if cfg.Extension == "" {
		cfg.Extension = ".so"
	}
	if !strings.HasPrefix(cfg.Extension, ".") {
		cfg.Extension = "." + cfg.Extension
	}
	if cfg.ConfigurePolicy == "" {
		cfg.ConfigurePolicy = "continue"
	}
	cfg.ConfigurePolicy = strings.ToLower(cfg.ConfigurePolicy)

	if cfg.BaseDir == "" {
		if exe, err := os.Executable(); err == nil {
			cfg.BaseDir = filepath.Dir(exe)
		}
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{
		Discovery: DiscoveryConfig{
			FallbackScan: true,
		},
		Samples: SamplesConfig{
			Database: DatabaseConfig{
				Type: DatabaseSQLite,
			},
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
