// Package container provides dependency injection and lifecycle management
// for the overtime claims service following Clean Architecture principles.
package container

import (
	"fmt"
	"time"

	"github.com/garyjia/overtime-claims/internal/application/service"
)

// Config holds all configuration for the Container.
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// Pay holds the organisation-wide pay constants
	Pay service.PaySettings

	// Notification configuration
	Notification NotificationConfig

	// Worker configuration
	Worker WorkerConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file
	Path string

	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int

	// ConnMaxLifetime is the maximum connection lifetime
	ConnMaxLifetime time.Duration

	// MigrationsDir is read instead of the embedded migrations when set
	MigrationsDir string
}

// NotificationConfig controls lifecycle notifications.
type NotificationConfig struct {
	// Enabled subscribes the notification service to lifecycle events
	Enabled bool
}

// WorkerConfig holds background worker settings.
type WorkerConfig struct {
	// PayRetryEnabled starts the worker that re-prices requests whose formula failed
	PayRetryEnabled   bool
	PayRetryInterval  time.Duration
	PayRetryBatchSize int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            "data/overtime.db",
			MaxOpenConns:    1,
			MaxIdleConns:    1,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Pay: service.DefaultPaySettings(),
		Notification: NotificationConfig{
			Enabled: true,
		},
		Worker: WorkerConfig{
			PayRetryEnabled:   true,
			PayRetryInterval:  time.Minute,
			PayRetryBatchSize: 50,
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Database.MaxOpenConns < 0 {
		return fmt.Errorf("database.max_open_conns must not be negative")
	}
	if c.Pay.WorkingDays < 0 || c.Pay.HoursPerDay < 0 {
		return fmt.Errorf("pay constants must not be negative")
	}
	return nil
}
