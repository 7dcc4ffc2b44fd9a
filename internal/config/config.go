package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Database   DatabaseConfig   `mapstructure:"database"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Queue      QueueConfig      `mapstructure:"queue"`
	Resilience ResilienceConfig `mapstructure:"resilience"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Platforms  PlatformsConfig  `mapstructure:"platforms"`
	Worker     WorkerConfig     `mapstructure:"worker"`
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // sqlite
	DSN    string `mapstructure:"dsn"`    // Connection string
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json or console
	Output string `mapstructure:"output"` // stdout or file path
}

// QueueConfig holds queue processor settings
type QueueConfig struct {
	Interval    time.Duration `mapstructure:"interval"`     // time between drain cycles
	BatchSize   int           `mapstructure:"batch_size"`   // items per drain cycle
	MaxRetries  int           `mapstructure:"max_retries"`  // queue-level retry budget per item
	BackoffBase time.Duration `mapstructure:"backoff_base"` // linear backoff unit between attempts
	StaleAfter  time.Duration `mapstructure:"stale_after"`  // grace before a processing item counts as stuck
}

// ResilienceConfig holds circuit breaker settings
type ResilienceConfig struct {
	FailureThreshold int           `mapstructure:"failure_threshold"` // consecutive failures that open a circuit
	Cooldown         time.Duration `mapstructure:"cooldown"`          // open duration before a half-open probe
}

// RateLimitConfig holds per-platform rate limiting settings
type RateLimitConfig struct {
	RequestsPerMinute float64 `mapstructure:"requests_per_minute"`
	Burst             int     `mapstructure:"burst"`
}

// PlatformsConfig holds platform adapter settings
type PlatformsConfig struct {
	Enabled []string `mapstructure:"enabled"`
	Sandbox bool     `mapstructure:"sandbox"` // use in-process sandbox adapters
}

// WorkerConfig holds worker daemon settings
type WorkerConfig struct {
	HealthPort string `mapstructure:"health_port"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	// Load .env file if present (ignore errors if not found)
	_ = godotenv.Load()
	_ = godotenv.Load(".env.local")

	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config in current directory and configs folder
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")

		// Also check user's home directory
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".acrylican"))
		}
	}

	// Environment variables
	v.SetEnvPrefix("ACRYLICAN")
	v.AutomaticEnv()

	// Explicit bindings for nested keys (Viper doesn't auto-bind underscored nested keys)
	v.BindEnv("database.driver", "ACRYLICAN_DATABASE_DRIVER")
	v.BindEnv("database.dsn", "ACRYLICAN_DATABASE_DSN")
	v.BindEnv("logging.level", "ACRYLICAN_LOGGING_LEVEL")
	v.BindEnv("queue.interval", "ACRYLICAN_QUEUE_INTERVAL")
	v.BindEnv("queue.batch_size", "ACRYLICAN_QUEUE_BATCH_SIZE")
	v.BindEnv("queue.max_retries", "ACRYLICAN_QUEUE_MAX_RETRIES")
	v.BindEnv("resilience.failure_threshold", "ACRYLICAN_RESILIENCE_FAILURE_THRESHOLD")
	v.BindEnv("resilience.cooldown", "ACRYLICAN_RESILIENCE_COOLDOWN")
	v.BindEnv("platforms.sandbox", "ACRYLICAN_PLATFORMS_SANDBOX")
	v.BindEnv("worker.health_port", "ACRYLICAN_WORKER_HEALTH_PORT")

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./data/acrylican.db")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stdout")

	// Queue defaults
	v.SetDefault("queue.interval", "30s")
	v.SetDefault("queue.batch_size", 10)
	v.SetDefault("queue.max_retries", 3)
	v.SetDefault("queue.backoff_base", "5m")
	v.SetDefault("queue.stale_after", "15m")

	// Resilience defaults
	v.SetDefault("resilience.failure_threshold", 5)
	v.SetDefault("resilience.cooldown", "300s")

	// Rate limit defaults - conservative to stay under platform quotas
	v.SetDefault("rate_limit.requests_per_minute", 10.0)
	v.SetDefault("rate_limit.burst", 3)

	// Platform defaults
	v.SetDefault("platforms.enabled", []string{
		"facebook", "instagram", "pinterest", "etsy", "ebay", "shopify",
	})
	v.SetDefault("platforms.sandbox", true)

	// Worker defaults
	v.SetDefault("worker.health_port", "10000")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if len(c.Platforms.Enabled) == 0 {
		return fmt.Errorf("platforms.enabled must not be empty")
	}
	if c.Queue.BatchSize <= 0 {
		return fmt.Errorf("queue.batch_size must be positive")
	}
	return nil
}
