package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Supported values of DatabaseConfig.Type.
const (
	DatabaseSQLite   = "sqlite"
	DatabasePostgres = "postgres"
)

// DatabaseConfig selects and configures the backend sample's forecast store.
type DatabaseConfig struct {
	// Type is the database backend.
	// Valid values: sqlite, postgres
	// Default: sqlite
	Type string `mapstructure:"type" yaml:"type"`

	SQLite   SQLiteConfig   `mapstructure:"sqlite" yaml:"sqlite"`
	Postgres PostgresConfig `mapstructure:"postgres" yaml:"postgres"`
}

// SQLiteConfig configures the embedded SQLite database.
type SQLiteConfig struct {
	// Path is the SQLite database file.
	// Default: $XDG_CONFIG_HOME/plughost/backend.db
	Path string `mapstructure:"path" yaml:"path"`
}

// PostgresConfig configures a PostgreSQL connection.
type PostgresConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	Database string `mapstructure:"database" yaml:"database"`
	User     string `mapstructure:"user" yaml:"user"`
	Password string `mapstructure:"password" yaml:"password,omitempty"`

	// SSLMode is one of disable, require, verify-ca, verify-full.
	// Default: disable
	SSLMode string `mapstructure:"sslmode" yaml:"sslmode"`

	MaxOpenConns int `mapstructure:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns int `mapstructure:"max_idle_conns" yaml:"max_idle_conns"`
}

// applyDatabaseDefaults sets the backend sample's database defaults.
func applyDatabaseDefaults(cfg *DatabaseConfig) {
	cfg.Type = strings.ToLower(strings.TrimSpace(cfg.Type))
	if cfg.Type == "" {
		cfg.Type = DatabaseSQLite
	}

	switch cfg.Type {
	case DatabaseSQLite:
		if cfg.SQLite.Path == "" {
			cfg.SQLite.Path = filepath.Join(userConfigDir(), "plughost", "backend.db")
		}
	case DatabasePostgres:
		if cfg.Postgres.Port == 0 {
			cfg.Postgres.Port = 5432
		}
		if cfg.Postgres.SSLMode == "" {
			cfg.Postgres.SSLMode = "disable"
		}
		if cfg.Postgres.MaxOpenConns == 0 {
			cfg.Postgres.MaxOpenConns = 10
		}
		if cfg.Postgres.MaxIdleConns == 0 {
			cfg.Postgres.MaxIdleConns = 2
		}
	}
}

// userConfigDir honours XDG_CONFIG_HOME and falls back to ~/.config.
func userConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config")
}

// validateDatabase checks the fields the selected backend needs.
func validateDatabase(cfg *DatabaseConfig) error {
	switch cfg.Type {
	case DatabaseSQLite:
		if cfg.SQLite.Path == "" {
			return errors.New("sqlite path is required")
		}
	case DatabasePostgres:
		if cfg.Postgres.Host == "" {
			return errors.New("postgres host is required")
		}
		if cfg.Postgres.Database == "" {
			return errors.New("postgres database is required")
		}
		if cfg.Postgres.User == "" {
			return errors.New("postgres user is required")
		}
	default:
		return fmt.Errorf("unsupported database type: %q", cfg.Type)
	}
	return nil
}
