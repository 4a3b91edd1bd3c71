package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// sampleConfig is written by InitConfig. It documents every section and
// declares the bundled sample plugins.
const sampleConfig = `# plughost Configuration File
#
# Values can be overridden with environment variables prefixed with
# PLUGHOST_, e.g. PLUGHOST_LOGGING_LEVEL=DEBUG or PLUGHOST_SERVER_PORT=9000.

logging:
  level: INFO        # DEBUG, INFO, WARN, ERROR
  format: text       # text, json
  output: stdout     # stdout, stderr, or a file path

telemetry:
  enabled: false
  endpoint: localhost:4317
  insecure: true
  sample_rate: 1.0
  profiling:
    enabled: false
    endpoint: http://localhost:4040

metrics:
  enabled: false
  port: 0            # 0 serves /metrics on the host server

server:
  port: 8080
  read_timeout: 10s
  write_timeout: 10s
  idle_timeout: 60s
  request_timeout: 30s
  shutdown_timeout: 30s

discovery:
  # base_dir defaults to the executable's directory
  search_paths: []
  extension: .so
  fallback_scan: true
  configure_policy: continue   # continue, stop

samples:
  database:
    type: sqlite
    sqlite:
      path: %s

# Plugins are resolved in declaration order. The name is matched against
# loaded modules, then module files in the search roots.
plugins:
  - name: backend
    isactive: true
  - name: frontend
    isactive: true
  - name: reporting
    isactive: false
`

// InitConfig writes the sample configuration to the default location and
// returns its path. An existing file is only replaced when force is set.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes the sample configuration to path.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("configuration file already exists at %s (use --force to overwrite)", path)
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to check configuration file: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	dbPath := filepath.ToSlash(filepath.Join(filepath.Dir(path), "backend.db"))
	content := fmt.Sprintf(sampleConfig, dbPath)

	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
