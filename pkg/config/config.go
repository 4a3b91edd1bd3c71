package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/marmos91/plughost/pkg/discovery"
	"github.com/marmos91/plughost/pkg/plugin"
)

// KeyDelimiter separates nested configuration keys ("plugins:0:name").
// Plugin names routinely contain dots, so the viper default cannot be used.
const KeyDelimiter = ":"

// EnvPrefix is the prefix of environment variable overrides.
const EnvPrefix = "PLUGHOST"

// Config represents the plughost configuration.
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (PLUGHOST_*)
//  3. Configuration file (YAML, TOML or JSON)
//  4. Default values (lowest priority)
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry distributed tracing
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// Metrics contains Prometheus metrics configuration
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Server configures the HTTP host handed to plugins during Configure
	Server ServerConfig `mapstructure:"server" yaml:"server"`

	// Discovery controls where and how plugin modules are located
	Discovery DiscoveryConfig `mapstructure:"discovery" yaml:"discovery"`

	// Samples configures the bundled sample plugins
	Samples SamplesConfig `mapstructure:"samples" yaml:"samples"`

	// Plugins is the parsed plugin declaration list, in declaration order.
	// It is filled by Load from the raw "plugins" section, which accepts
	// the list form, the nested "plugins:plugins" form and indexed keys.
	Plugins []plugin.Declaration `mapstructure:"-" yaml:"plugins,omitempty"`

	source *viper.Viper
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry distributed tracing.
type TelemetryConfig struct {
	// Enabled controls whether distributed tracing is enabled
	// Default: false
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the OTLP collector endpoint (host:port)
	// Default: "localhost:4317"
	Endpoint string `mapstructure:"endpoint" validate:"required_if=Enabled true" yaml:"endpoint"`

	// Insecure controls whether to use insecure (non-TLS) connection
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`

	// SampleRate controls the trace sampling rate (0.0 to 1.0)
	// Default: 1.0
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`

	// Profiling contains Pyroscope continuous profiling configuration
	Profiling ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`
}

// ProfilingConfig controls Pyroscope continuous profiling.
type ProfilingConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the Pyroscope server URL
	// Default: "http://localhost:4040"
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// ProfileTypes specifies which profile types to collect
	ProfileTypes []string `mapstructure:"profile_types" validate:"dive,oneof=cpu alloc_objects alloc_space inuse_objects inuse_space goroutines mutex_count mutex_duration block_count block_duration" yaml:"profile_types"`
}

// MetricsConfig configures Prometheus metrics.
// When Enabled is false, no metrics are collected.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP port of a dedicated metrics listener.
	// 0 serves /metrics on the host server only.
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// ServerConfig configures the HTTP host.
type ServerConfig struct {
	// Port is the HTTP port
	// Default: 8080
	Port int `mapstructure:"port" validate:"required,min=1,max=65535" yaml:"port"`

	ReadTimeout  time.Duration `mapstructure:"read_timeout" validate:"gte=0" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"gte=0" yaml:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout" validate:"gte=0" yaml:"idle_timeout"`

	// RequestTimeout bounds each request's handler context
	// Default: 30s
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gte=0" yaml:"request_timeout"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	// Default: 30s
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`
}

// DiscoveryConfig controls plugin module discovery.
type DiscoveryConfig struct {
	// BaseDir is the application base directory searched for module files.
	// Default: the executable's directory
	BaseDir string `mapstructure:"base_dir" yaml:"base_dir,omitempty"`

	// SearchPaths are additional directories searched for module files.
	SearchPaths []string `mapstructure:"search_paths" yaml:"search_paths,omitempty"`

	// Extension is the module file extension.
	// Default: ".so"
	Extension string `mapstructure:"extension" validate:"required,startswith=." yaml:"extension"`

	// FallbackScan loads every module file in the search roots when no
	// declared plugin could be resolved by name.
	// Default: true
	FallbackScan bool `mapstructure:"fallback_scan" yaml:"fallback_scan"`

	// ConfigurePolicy selects how lifecycle failures are handled.
	// Valid values: continue (run every plugin, aggregate errors), stop
	// Default: continue
	ConfigurePolicy string `mapstructure:"configure_policy" validate:"required,oneof=continue stop" yaml:"configure_policy"`
}

// SamplesConfig configures the bundled sample plugins.
type SamplesConfig struct {
	// Database is the backend sample's forecast store
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
}

// Source returns the raw configuration the plugin declarations were parsed
// from. It is nil for configurations not produced by Load.
func (c *Config) Source() discovery.Source {
	if c.source == nil {
		return nil
	}
	return c.source
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (PLUGHOST_*)
//  2. Configuration file
//  3. Default values
//
// An empty configPath searches the default location. A missing file is not
// an error: the default configuration is returned.
func Load(configPath string) (*Config, error) {
	v := newViper()
	setupViper(v, configPath)

	configFileFound, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	if !configFileFound {
		cfg := GetDefaultConfig()
		cfg.source = v
		cfg.Plugins = discovery.Parse(v)
		return cfg, nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	cfg.source = v
	cfg.Plugins = discovery.Parse(v)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration with helpful error messages.
// Unlike Load it requires the configuration file to exist.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize a configuration file first:\n"+
				"  plughost init\n\n"+
				"Or specify a custom config file:\n"+
				"  plughost <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("configuration file not found: %s\n\n"+
			"Please create the configuration file:\n"+
			"  plughost init --config %s",
			configPath, configPath)
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to path in YAML format.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// 0600: the sample database section may carry a password.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func newViper() *viper.Viper {
	return viper.NewWithOptions(viper.KeyDelimiter(KeyDelimiter))
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use the PLUGHOST_ prefix and underscores
	// Example: PLUGHOST_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(KeyDelimiter, "_", ".", "_"))
	v.AutomaticEnv()

	// Boolean defaults that are true cannot be recovered from the zero value.
	v.SetDefault("discovery"+KeyDelimiter+"fallback_scan", true)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default location: $XDG_CONFIG_HOME/plughost/config.{yaml,toml,json}
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
// Returns (fileFound, error) where fileFound indicates if a config file was found.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}

	return true, nil
}

// configDecodeHooks returns the combined decode hook for custom types.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		durationDecodeHook(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// durationDecodeHook converts strings like "30s", "5m", "1h" and raw
// nanosecond numbers to time.Duration.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			// YAML often deserializes numbers as float64
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "plughost")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "plughost")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for init command).
func GetConfigDir() string {
	return getConfigDir()
}
