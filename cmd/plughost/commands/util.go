package commands

import (
	"fmt"
	"io"

	"github.com/marmos91/plughost/internal/logger"
	"github.com/marmos91/plughost/pkg/config"
	"github.com/marmos91/plughost/pkg/host"
	"github.com/marmos91/plughost/pkg/plugin"
	"github.com/marmos91/plughost/samples/backend/store"
)

// InitLogger initializes the structured logger from configuration.
func InitLogger(cfg *config.Config) error {
	loggerCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if err := logger.Init(loggerCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// hostConfig maps the server section onto the HTTP host configuration.
// /metrics is mounted on the host unless a dedicated metrics port is set.
func hostConfig(cfg *config.Config) host.Config {
	return host.Config{
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		RequestTimeout:  cfg.Server.RequestTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		Metrics:         cfg.Metrics.Enabled && cfg.Metrics.Port == 0,
	}
}

// storeConfig maps the samples.database section onto the backend sample's
// store configuration.
func storeConfig(db config.DatabaseConfig) store.Config {
	return store.Config{
		Type:   store.DatabaseType(db.Type),
		SQLite: store.SQLiteConfig{Path: db.SQLite.Path},
		Postgres: store.PostgresConfig{
			Host:         db.Postgres.Host,
			Port:         db.Postgres.Port,
			Database:     db.Postgres.Database,
			User:         db.Postgres.User,
			Password:     db.Postgres.Password,
			SSLMode:      db.Postgres.SSLMode,
			MaxOpenConns: db.Postgres.MaxOpenConns,
			MaxIdleConns: db.Postgres.MaxIdleConns,
		},
	}
}

// closePlugins closes every plugin holding resources, in reverse
// installation order.
func closePlugins(plugins []plugin.Plugin) {
	for i := len(plugins) - 1; i >= 0; i-- {
		c, ok := plugins[i].(io.Closer)
		if !ok {
			continue
		}
		if err := c.Close(); err != nil {
			logger.Warn("Plugin close failed", logger.Plugin(plugins[i].Name()), logger.Err(err))
		}
	}
}

// getConfigSource returns a description of where the config was loaded from.
func getConfigSource(configFile string) string {
	if configFile != "" {
		return configFile
	}
	if config.DefaultConfigExists() {
		return config.GetDefaultConfigPath()
	}
	return "defaults"
}
