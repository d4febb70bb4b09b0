package config

import (
	"github.com/garyjia/overtime-claims/internal/application/service"
	"github.com/garyjia/overtime-claims/internal/container"
	"github.com/garyjia/overtime-claims/internal/domain/entity"
)

// ToContainerConfig converts the application Config to a container.Config.
// This provides a bridge between the file-based config loaded by viper
// and the container's configuration structure.
func (c *Config) ToContainerConfig() *container.Config {
	multipliers := make(map[entity.DayType]float64, len(c.Pay.Multipliers))
	for dayType, m := range c.Pay.Multipliers {
		multipliers[entity.DayType(dayType)] = m
	}

	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
			MigrationsDir:   c.Database.MigrationsDir,
		},
		Pay: service.PaySettings{
			DefaultFormula: c.Pay.DefaultFormula,
			WorkingDays:    c.Pay.WorkingDays,
			HoursPerDay:    c.Pay.HoursPerDay,
			Multipliers:    multipliers,
			RoundPlaces:    c.Pay.RoundPlaces,
		},
		Notification: container.NotificationConfig{
			Enabled: c.Notification.Enabled,
		},
		Worker: container.WorkerConfig{
			PayRetryEnabled:   c.Worker.PayRetryEnabled,
			PayRetryInterval:  c.Worker.PayRetryInterval,
			PayRetryBatchSize: c.Worker.PayRetryBatchSize,
		},
	}
}
