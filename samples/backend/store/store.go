// Package store persists the backend sample's weather forecasts with GORM.
// SQLite is the default; PostgreSQL is selected through configuration.
package store

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DatabaseType defines the supported database backends.
type DatabaseType string

const (
	// DatabaseTypeSQLite uses an embedded SQLite file (default).
	DatabaseTypeSQLite DatabaseType = "sqlite"

	// DatabaseTypePostgres uses PostgreSQL.
	DatabaseTypePostgres DatabaseType = "postgres"
)

// SQLiteConfig contains SQLite-specific configuration.
type SQLiteConfig struct {
	// Path is the SQLite database file.
	// Default: $XDG_CONFIG_HOME/plughost/backend.db
	Path string `mapstructure:"path" yaml:"path"`
}

// PostgresConfig contains PostgreSQL-specific configuration.
type PostgresConfig struct {
	Host         string `mapstructure:"host" yaml:"host"`
	Port         int    `mapstructure:"port" yaml:"port"`
	Database     string `mapstructure:"database" yaml:"database"`
	User         string `mapstructure:"user" yaml:"user"`
	Password     string `mapstructure:"password" yaml:"password,omitempty"`
	SSLMode      string `mapstructure:"sslmode" yaml:"sslmode"` // disable, require, verify-ca, verify-full
	MaxOpenConns int    `mapstructure:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" yaml:"max_idle_conns"`
}

// DSN returns the PostgreSQL connection string.
func (c *PostgresConfig) DSN() string {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s",
		c.Host, c.Port, c.User, c.Password, c.Database)
	if c.SSLMode != "" {
		dsn += " sslmode=" + c.SSLMode
	}
	return dsn
}

// Config contains database configuration.
type Config struct {
	Type     DatabaseType   `mapstructure:"type" yaml:"type"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite" yaml:"sqlite"`
	Postgres PostgresConfig `mapstructure:"postgres" yaml:"postgres"`
}

// ApplyDefaults fills in missing configuration with default values.
func (c *Config) ApplyDefaults() {
	if c.Type == "" {
		c.Type = DatabaseTypeSQLite
	}

	if c.Type == DatabaseTypeSQLite && c.SQLite.Path == "" {
		configDir := os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			homeDir, _ := os.UserHomeDir()
			configDir = filepath.Join(homeDir, ".config")
		}
		c.SQLite.Path = filepath.Join(configDir, "plughost", "backend.db")
	}

	if c.Type == DatabaseTypePostgres {
		if c.Postgres.Port == 0 {
			c.Postgres.Port = 5432
		}
		if c.Postgres.SSLMode == "" {
			c.Postgres.SSLMode = "disable"
		}
		if c.Postgres.MaxOpenConns == 0 {
			c.Postgres.MaxOpenConns = 10
		}
		if c.Postgres.MaxIdleConns == 0 {
			c.Postgres.MaxIdleConns = 2
		}
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Type {
	case DatabaseTypeSQLite:
		if c.SQLite.Path == "" {
			return errors.New("sqlite path is required")
		}
	case DatabaseTypePostgres:
		if c.Postgres.Host == "" {
			return errors.New("postgres host is required")
		}
		if c.Postgres.Database == "" {
			return errors.New("postgres database is required")
		}
		if c.Postgres.User == "" {
			return errors.New("postgres user is required")
		}
	default:
		return fmt.Errorf("unsupported database type: %s", c.Type)
	}
	return nil
}

// Forecast is one day of weather served by /weatherforecast.
type Forecast struct {
	ID           uint      `gorm:"primaryKey" json:"-"`
	Date         time.Time `gorm:"index" json:"date"`
	TemperatureC int       `json:"temperatureC"`
	Summary      string    `gorm:"size:32" json:"summary"`
}

// TemperatureF converts the temperature to Fahrenheit.
func (f Forecast) TemperatureF() int {
	return 32 + int(float64(f.TemperatureC)/0.5556)
}

// Summaries are the descriptions a generated forecast can carry.
var Summaries = []string{
	"Freezing", "Bracing", "Chilly", "Cool", "Mild", "Warm", "Balmy", "Hot", "Sweltering", "Scorching",
}

// Store is the GORM-backed forecast store.
type Store struct {
	db     *gorm.DB
	config Config
}

// Open connects to the configured database. The schema is not migrated;
// call Migrate before first use.
func Open(config Config) (*Store, error) {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid database configuration: %w", err)
	}

	var dialector gorm.Dialector
	switch config.Type {
	case DatabaseTypeSQLite:
		if err := os.MkdirAll(filepath.Dir(config.SQLite.Path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dialector = sqlite.Open(config.SQLite.Path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	case DatabaseTypePostgres:
		dialector = postgres.Open(config.Postgres.DSN())
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if config.Type == DatabaseTypePostgres {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get underlying database: %w", err)
		}
		sqlDB.SetMaxOpenConns(config.Postgres.MaxOpenConns)
		sqlDB.SetMaxIdleConns(config.Postgres.MaxIdleConns)
	}

	return &Store{db: db, config: config}, nil
}

// Config returns the effective configuration, defaults applied.
func (s *Store) Config() Config {
	return s.config
}

// Migrate creates or updates the schema.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&Forecast{}); err != nil {
		return fmt.Errorf("failed to run database migration: %w", err)
	}
	return nil
}

// Seed replaces the stored forecasts with days random forecasts starting the
// day after from.
func (s *Store) Seed(ctx context.Context, from time.Time, days int) error {
	forecasts := make([]Forecast, 0, days)
	for i := 1; i <= days; i++ {
		forecasts = append(forecasts, Forecast{
			Date:         from.AddDate(0, 0, i).Truncate(24 * time.Hour),
			TemperatureC: rand.IntN(75) - 20,
			Summary:      Summaries[rand.IntN(len(Summaries))],
		})
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&Forecast{}).Error; err != nil {
			return err
		}
		if len(forecasts) == 0 {
			return nil
		}
		return tx.Create(&forecasts).Error
	})
}

// Forecasts returns up to limit forecasts ordered by date.
func (s *Store) Forecasts(ctx context.Context, limit int) ([]Forecast, error) {
	var out []Forecast
	q := s.db.WithContext(ctx).Order("date ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list forecasts: %w", err)
	}
	return out, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
