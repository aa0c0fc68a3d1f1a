// Package config provides configuration management for vidmill using Viper.
// It supports configuration from files, environment variables, and defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default configuration values.
const (
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 10
	defaultConnMaxIdleTime = 30 * time.Minute
	defaultWorkerCount     = 3
	defaultPollInterval    = 5 * time.Second
	defaultInfraBackoff    = 10 * time.Second
	defaultStoreTTL        = 24 * time.Hour
	defaultProbeTimeout    = 30 * time.Second
	defaultMaxDuration     = 1800.0 // seconds
	defaultMaxFrameRate    = 120.0
	defaultMaxSourceSize   = 8 * 1024 * 1024 * 1024 // 8GB
	defaultJanitorGrace    = time.Hour
)

// Config holds all configuration for the application.
type Config struct {
	Database Database `mapstructure:"database"`
	Redis    Redis    `mapstructure:"redis"`
	Storage  Storage  `mapstructure:"storage"`
	Logging  Logging  `mapstructure:"logging"`
	FFmpeg   FFmpeg   `mapstructure:"ffmpeg"`
	Limits   Limits   `mapstructure:"limits"`
	Worker   Worker   `mapstructure:"worker"`
	Store    Store    `mapstructure:"store"`
	Publish  Publish  `mapstructure:"publish"`
	Janitor  Janitor  `mapstructure:"janitor"`
	Sentry   Sentry   `mapstructure:"sentry"`
}

// Database holds relational mirror connection configuration.
type Database struct {
	Driver          string        `mapstructure:"driver"` // sqlite, postgres, mysql
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	LogLevel        string        `mapstructure:"log_level"` // silent, error, warn, info
}

// Redis holds the connection settings for the job queue and job store.
type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Storage holds local file storage configuration.
type Storage struct {
	OutputDir string `mapstructure:"output_dir"`
	TempDir   string `mapstructure:"temp_dir"`
	// MaxSourceSize is the maximum allowed size for a source upload.
	// Supports human-readable values like "8GB" or raw byte counts.
	MaxSourceSize ByteSize `mapstructure:"max_source_size"`
}

// Logging holds logging configuration.
type Logging struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // json, text
	AddSource  bool   `mapstructure:"add_source"`
	TimeFormat string `mapstructure:"time_format"`
}

// FFmpeg holds encoder and prober binary configuration.
type FFmpeg struct {
	BinaryPath   string        `mapstructure:"binary_path"` // Path to ffmpeg binary
	ProbePath    string        `mapstructure:"probe_path"`  // Path to ffprobe binary
	Preset       string        `mapstructure:"preset"`      // libx264 preset
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"`
}

// Limits holds source media acceptance limits.
type Limits struct {
	MaxDurationSeconds float64 `mapstructure:"max_duration_seconds"`
	MaxFrameRate       float64 `mapstructure:"max_frame_rate"`
	MinWidth           int     `mapstructure:"min_width"`
	MinHeight          int     `mapstructure:"min_height"`
	MaxWidth           int     `mapstructure:"max_width"`
	MaxHeight          int     `mapstructure:"max_height"`
}

// Worker holds worker pool configuration.
type Worker struct {
	Count        int           `mapstructure:"count"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	InfraBackoff time.Duration `mapstructure:"infra_backoff"`
}

// Store holds job store configuration.
type Store struct {
	TTL       time.Duration `mapstructure:"ttl"`
	KeyPrefix string        `mapstructure:"key_prefix"`
}

// Publish holds blob publishing configuration.
type Publish struct {
	S3    S3    `mapstructure:"s3"`
	Minio Minio `mapstructure:"minio"`
}

// S3 holds the primary object storage target (S3-compatible).
type S3 struct {
	Enabled         bool   `mapstructure:"enabled"`
	Endpoint        string `mapstructure:"endpoint"` // Empty for AWS, set for R2 etc.
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	PublicBaseURL   string `mapstructure:"public_base_url"`
}

// Minio holds the secondary object storage target.
type Minio struct {
	Enabled       bool   `mapstructure:"enabled"`
	Endpoint      string `mapstructure:"endpoint"`
	Bucket        string `mapstructure:"bucket"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	UseSSL        bool   `mapstructure:"use_ssl"`
	PublicBaseURL string `mapstructure:"public_base_url"`
}

// Janitor holds maintenance sweep configuration.
type Janitor struct {
	Enabled bool          `mapstructure:"enabled"`
	Cron    string        `mapstructure:"cron"` // 6-field cron expression
	Grace   time.Duration `mapstructure:"grace"`
}

// Sentry holds error telemetry configuration.
type Sentry struct {
	DSN         string `mapstructure:"dsn"`
	Environment string `mapstructure:"environment"`
}

// Load reads configuration from file and environment variables.
// Environment variables take precedence over file configuration.
// Environment variables are prefixed with VIDMILL_ and use underscores for
// nesting. Example: VIDMILL_WORKER_COUNT=5.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/vidmill")
		v.AddConfigPath("$HOME/.vidmill")
	}

	v.SetEnvPrefix("VIDMILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// SetDefaults configures default values for all configuration options.
// This should be called before reading the config file to ensure defaults are in place.
func SetDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "vidmill.db")
	v.SetDefault("database.max_open_conns", defaultMaxOpenConns)
	v.SetDefault("database.max_idle_conns", defaultMaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.conn_max_idle_time", defaultConnMaxIdleTime)
	v.SetDefault("database.log_level", "warn")

	// Redis defaults
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// Storage defaults
	v.SetDefault("storage.output_dir", "./data/output")
	v.SetDefault("storage.temp_dir", "./data/temp")
	v.SetDefault("storage.max_source_size", defaultMaxSourceSize)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// FFmpeg defaults
	v.SetDefault("ffmpeg.binary_path", "ffmpeg")
	v.SetDefault("ffmpeg.probe_path", "ffprobe")
	v.SetDefault("ffmpeg.preset", "medium")
	v.SetDefault("ffmpeg.probe_timeout", defaultProbeTimeout)

	// Limits defaults
	v.SetDefault("limits.max_duration_seconds", defaultMaxDuration)
	v.SetDefault("limits.max_frame_rate", defaultMaxFrameRate)
	v.SetDefault("limits.min_width", 240)
	v.SetDefault("limits.min_height", 180)
	v.SetDefault("limits.max_width", 7680)
	v.SetDefault("limits.max_height", 4320)

	// Worker defaults
	v.SetDefault("worker.count", defaultWorkerCount)
	v.SetDefault("worker.poll_interval", defaultPollInterval)
	v.SetDefault("worker.infra_backoff", defaultInfraBackoff)

	// Store defaults
	v.SetDefault("store.ttl", defaultStoreTTL)
	v.SetDefault("store.key_prefix", "vidmill")

	// Publish defaults
	v.SetDefault("publish.s3.enabled", false)
	v.SetDefault("publish.s3.region", "us-east-1")
	v.SetDefault("publish.minio.enabled", false)
	v.SetDefault("publish.minio.use_ssl", false)

	// Janitor defaults
	v.SetDefault("janitor.enabled", true)
	v.SetDefault("janitor.cron", "0 0 * * * *") // Hourly (6-field cron)
	v.SetDefault("janitor.grace", defaultJanitorGrace)

	// Sentry defaults
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "production")
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	validDrivers := map[string]bool{"sqlite": true, "postgres": true, "mysql": true}
	if !validDrivers[c.Database.Driver] {
		return fmt.Errorf("database.driver must be one of: sqlite, postgres, mysql")
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}

	if c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required")
	}

	if c.Storage.OutputDir == "" {
		return fmt.Errorf("storage.output_dir is required")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	if c.Limits.MaxDurationSeconds <= 0 {
		return fmt.Errorf("limits.max_duration_seconds must be positive")
	}
	if c.Limits.MaxFrameRate <= 0 {
		return fmt.Errorf("limits.max_frame_rate must be positive")
	}
	if c.Limits.MinWidth < 1 || c.Limits.MinHeight < 1 {
		return fmt.Errorf("limits.min_width and limits.min_height must be at least 1")
	}
	if c.Limits.MaxWidth < c.Limits.MinWidth || c.Limits.MaxHeight < c.Limits.MinHeight {
		return fmt.Errorf("limits.max_width/max_height must not be below the minimums")
	}

	if c.Worker.Count < 1 {
		return fmt.Errorf("worker.count must be at least 1")
	}
	if c.Worker.PollInterval <= 0 {
		return fmt.Errorf("worker.poll_interval must be positive")
	}

	if c.Store.TTL <= 0 {
		return fmt.Errorf("store.ttl must be positive")
	}
	if c.Store.KeyPrefix == "" {
		return fmt.Errorf("store.key_prefix is required")
	}

	if c.Publish.S3.Enabled && c.Publish.S3.Bucket == "" {
		return fmt.Errorf("publish.s3.bucket is required when publish.s3.enabled")
	}
	if c.Publish.Minio.Enabled {
		if c.Publish.Minio.Endpoint == "" {
			return fmt.Errorf("publish.minio.endpoint is required when publish.minio.enabled")
		}
		if c.Publish.Minio.Bucket == "" {
			return fmt.Errorf("publish.minio.bucket is required when publish.minio.enabled")
		}
	}

	return nil
}
