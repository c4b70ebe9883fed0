// Package config provides configuration management for the racecapture pipeline.
package config

import (
	"fmt"
	"time"
	_ "time/tzdata"
)

// Config represents the complete application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app" validate:"required"`
	Source     SourceConfig     `mapstructure:"source" validate:"required"`
	Storage    StorageConfig    `mapstructure:"storage" validate:"required"`
	Capture    CaptureConfig    `mapstructure:"capture" validate:"required"`
	Crawl      CrawlConfig      `mapstructure:"crawl" validate:"required"`
	Transform  TransformConfig  `mapstructure:"transform" validate:"required"`
	Features   FeaturesConfig   `mapstructure:"features" validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database"`
	ClickHouse ClickHouseConfig `mapstructure:"clickhouse"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Health     HealthConfig     `mapstructure:"health"`
	Daemon     DaemonConfig     `mapstructure:"daemon"`
	Secrets    SecretsConfig    `mapstructure:"secrets"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
	// Timezone is used for naive source timestamps and capture key timestamps.
	Timezone string `mapstructure:"timezone" validate:"required,timezone"`
}

// SourceConfig configures the racing API client
type SourceConfig struct {
	Name                    string        `mapstructure:"name" validate:"required"`
	BaseURL                 string        `mapstructure:"base_url" validate:"required,url"`
	Timeout                 time.Duration `mapstructure:"timeout" validate:"required,gt=0"`
	MaxRetries              int           `mapstructure:"max_retries" validate:"gte=0"`
	RetryWaitMin            time.Duration `mapstructure:"retry_wait_min" validate:"gte=0"`
	RetryWaitMax            time.Duration `mapstructure:"retry_wait_max" validate:"gte=0"`
	RateLimit               float64       `mapstructure:"rate_limit" validate:"required,gt=0"`
	RateBurst               int           `mapstructure:"rate_burst" validate:"required,gt=0"`
	CircuitBreakerThreshold int           `mapstructure:"circuit_breaker_threshold" validate:"gte=0"`
}

// StorageConfig configures the raw, normalized and derived data locations
type StorageConfig struct {
	Backend      string `mapstructure:"backend" validate:"required,storagebackend"`
	BronzePath   string `mapstructure:"bronze_path" validate:"required"`
	SilverPath   string `mapstructure:"silver_path" validate:"required"`
	GoldPath     string `mapstructure:"gold_path" validate:"required"`
	FeaturesPath string `mapstructure:"features_path" validate:"required"`
	S3Bucket     string `mapstructure:"s3_bucket"`
	S3Prefix     string `mapstructure:"s3_prefix"`
	S3Region     string `mapstructure:"s3_region"`
}

// CaptureConfig configures the pre-start snapshot scheduler
type CaptureConfig struct {
	OffsetsMinutes  []int         `mapstructure:"offsets_minutes" validate:"required,min=1,offsets"`
	Tolerance       time.Duration `mapstructure:"tolerance" validate:"required,gt=0"`
	TickInterval    time.Duration `mapstructure:"tick_interval" validate:"required,gt=0"`
	Grace           time.Duration `mapstructure:"grace" validate:"gte=0"`
	CalendarRefresh time.Duration `mapstructure:"calendar_refresh" validate:"required,gt=0"`
	CaptureTimeout  time.Duration `mapstructure:"capture_timeout" validate:"required,gt=0"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" validate:"required,gt=0"`
	MaxDuration     time.Duration `mapstructure:"max_duration" validate:"gte=0"`
	GamePrefix      string        `mapstructure:"game_prefix" validate:"required"`
}

// CrawlConfig configures the full-day crawl
type CrawlConfig struct {
	GameTypes     []string `mapstructure:"game_types" validate:"required,min=1"`
	FallbackLimit int      `mapstructure:"fallback_limit" validate:"gte=0"`
}

// TransformConfig configures the raw-to-relations normalization
type TransformConfig struct {
	Region           string `mapstructure:"region" validate:"required"`
	EquipmentDefault string `mapstructure:"equipment_default" validate:"required,equipmentpolicy"`
	PriceScale       int64  `mapstructure:"price_scale" validate:"required,gt=0"`
	Parallelism      int    `mapstructure:"parallelism" validate:"required,gt=0"`
}

// FeaturesConfig configures the feature engine
type FeaturesConfig struct {
	Mode            string `mapstructure:"mode" validate:"required,featuremode"`
	EncoderPath     string `mapstructure:"encoder_path" validate:"required"`
	VerifyLeakage   bool   `mapstructure:"verify_leakage"`
	DefaultDistance int    `mapstructure:"default_distance" validate:"required,gt=0"`
	// HistoryStart is the first date loaded for entity history.
	HistoryStart string `mapstructure:"history_start" validate:"omitempty,datetime=2006-01-02"`
}

// DatabaseConfig represents the optional relational mirror
type DatabaseConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	Host               string `mapstructure:"host" validate:"required_if=Enabled true"`
	Port               int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Name               string `mapstructure:"name" validate:"required_if=Enabled true"`
	User               string `mapstructure:"user" validate:"required_if=Enabled true"`
	Password           string `mapstructure:"password"`
	SSLMode            string `mapstructure:"ssl_mode" validate:"omitempty,oneof=disable require verify-full"`
	MaxConnections     int    `mapstructure:"max_connections" validate:"gte=0"`
	MaxIdleConnections int    `mapstructure:"max_idle_connections" validate:"gte=0"`
}

// ClickHouseConfig represents the optional quote time-series sink
type ClickHouseConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DSN     string `mapstructure:"dsn" validate:"required_if=Enabled true"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Path    string `mapstructure:"path"`
}

// HealthConfig configures the health endpoints served while monitoring
type HealthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

// DaemonConfig holds cron specs for unattended operation
type DaemonConfig struct {
	PipelineSchedule string `mapstructure:"pipeline_schedule"`
	MonitorSchedule  string `mapstructure:"monitor_schedule"`
}

// SecretsConfig points at an optional AWS Secrets Manager secret
type SecretsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Region     string `mapstructure:"region" validate:"required_if=Enabled true"`
	SecretName string `mapstructure:"secret_name" validate:"required_if=Enabled true"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// Location returns the configured timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Offsets returns the capture offsets as durations.
func (c *Config) Offsets() []time.Duration {
	out := make([]time.Duration, 0, len(c.Capture.OffsetsMinutes))
	for _, m := range c.Capture.OffsetsMinutes {
		out = append(out, time.Duration(m)*time.Minute)
	}
	return out
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}
