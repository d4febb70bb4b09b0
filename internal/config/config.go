package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Config holds all application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Logger       LoggerConfig       `mapstructure:"logger"`
	Pay          PayConfig          `mapstructure:"pay"`
	Notification NotificationConfig `mapstructure:"notification"`
	Worker       WorkerConfig       `mapstructure:"worker"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	Debug           bool          `mapstructure:"debug"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	// MigrationsDir overrides the embedded migrations when set
	MigrationsDir string `mapstructure:"migrations_dir"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// PayConfig holds the organisation-wide pay constants
type PayConfig struct {
	DefaultFormula string             `mapstructure:"default_formula"`
	WorkingDays    float64            `mapstructure:"working_days"`
	HoursPerDay    float64            `mapstructure:"hours_per_day"`
	Multipliers    map[string]float64 `mapstructure:"multipliers"`
	RoundPlaces    int32              `mapstructure:"round_places"`
}

// NotificationConfig controls lifecycle notifications
type NotificationConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// WorkerConfig holds background worker settings
type WorkerConfig struct {
	PayRetryEnabled   bool          `mapstructure:"pay_retry_enabled"`
	PayRetryInterval  time.Duration `mapstructure:"pay_retry_interval"`
	PayRetryBatchSize int           `mapstructure:"pay_retry_batch_size"`
}

// EnvPrefix prefixes every environment override, e.g. OT_SERVER_PORT
const EnvPrefix = "OT"

// Load loads configuration from file and environment variables.
// A .env file in the working directory is applied to the environment first.
func Load(configPath string) (*Config, error) {
	if err := gotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.debug", false)

	// Database defaults
	v.SetDefault("database.path", "data/overtime.db")
	v.SetDefault("database.max_open_conns", 1)
	v.SetDefault("database.max_idle_conns", 1)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.migrations_dir", "")

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")

	// Pay defaults; day-type premiums normally live in the stored formulas
	v.SetDefault("pay.default_formula", "HRP * Hours * 1.5")
	v.SetDefault("pay.working_days", 26)
	v.SetDefault("pay.hours_per_day", 8)
	v.SetDefault("pay.round_places", 2)
	v.SetDefault("pay.multipliers", map[string]float64{
		"weekday":        1,
		"saturday":       1,
		"sunday":         1,
		"public_holiday": 1,
	})

	v.SetDefault("notification.enabled", true)

	// Worker defaults
	v.SetDefault("worker.pay_retry_enabled", true)
	v.SetDefault("worker.pay_retry_interval", time.Minute)
	v.SetDefault("worker.pay_retry_batch_size", 50)
}

// bindEnvVars binds the unprefixed names operators already use
func bindEnvVars(v *viper.Viper) {
	_ = v.BindEnv("database.path", EnvPrefix+"_DATABASE_PATH", "DATABASE_PATH")
	_ = v.BindEnv("server.port", EnvPrefix+"_SERVER_PORT", "PORT")
	_ = v.BindEnv("logger.level", EnvPrefix+"_LOGGER_LEVEL", "LOG_LEVEL")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	switch c.Logger.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logger.format must be json or console")
	}

	if c.Pay.WorkingDays <= 0 {
		return fmt.Errorf("pay.working_days must be positive")
	}
	if c.Pay.HoursPerDay <= 0 {
		return fmt.Errorf("pay.hours_per_day must be positive")
	}
	if c.Pay.RoundPlaces < 0 {
		return fmt.Errorf("pay.round_places must not be negative")
	}
	for dayType, m := range c.Pay.Multipliers {
		if m <= 0 {
			return fmt.Errorf("pay.multipliers.%s must be positive", dayType)
		}
	}

	if c.Worker.PayRetryEnabled && c.Worker.PayRetryInterval <= 0 {
		return fmt.Errorf("worker.pay_retry_interval must be positive")
	}

	return nil
}
