package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const (
	defaultConfigPath = "config/config.yaml"
	envPrefix         = "RACECAPTURE"
)

// Load reads and parses the configuration from file and environment variables.
// Placeholders of the form ${VAR_NAME} are expanded before parsing.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = defaultConfigPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s: %w", configPath, err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v := newViper()
	if err := v.ReadConfig(bytes.NewBufferString(os.ExpandEnv(string(data)))); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

// LoadWithDefaults loads configuration with default values for every key.
// A missing config file is not an error; defaults and environment apply.
func LoadWithDefaults(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = defaultConfigPath
	}

	v := newViper()
	setDefaults(v)

	if data, err := os.ReadFile(configPath); err == nil {
		if err := v.ReadConfig(bytes.NewBufferString(os.ExpandEnv(string(data)))); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "racecapture")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.timezone", "Europe/Stockholm")

	v.SetDefault("source.name", "atg")
	v.SetDefault("source.base_url", "https://www.atg.se/services/racinginfo/v1/api")
	v.SetDefault("source.timeout", "10s")
	v.SetDefault("source.max_retries", 3)
	v.SetDefault("source.retry_wait_min", "1s")
	v.SetDefault("source.retry_wait_max", "10s")
	v.SetDefault("source.rate_limit", 5.0)
	v.SetDefault("source.rate_burst", 5)
	v.SetDefault("source.circuit_breaker_threshold", 5)

	v.SetDefault("storage.backend", "filesystem")
	v.SetDefault("storage.bronze_path", "data/warehouse/bronze")
	v.SetDefault("storage.silver_path", "data/warehouse/silver")
	v.SetDefault("storage.gold_path", "data/warehouse/gold")
	v.SetDefault("storage.features_path", "data/processed")

	v.SetDefault("capture.offsets_minutes", []int{60, 30, 5, 1})
	v.SetDefault("capture.tolerance", "45s")
	v.SetDefault("capture.tick_interval", "20s")
	v.SetDefault("capture.grace", "5m")
	v.SetDefault("capture.calendar_refresh", "10m")
	v.SetDefault("capture.capture_timeout", "30s")
	v.SetDefault("capture.idle_timeout", "1h")
	v.SetDefault("capture.max_duration", "6h")
	v.SetDefault("capture.game_prefix", "vinnare")

	v.SetDefault("crawl.game_types", []string{
		"V75", "V86", "V64", "V65", "V5", "V4", "GS75", "LD", "V3", "vinnare", "plats", "tvilling",
	})
	v.SetDefault("crawl.fallback_limit", 20)

	v.SetDefault("transform.region", "SE")
	v.SetDefault("transform.equipment_default", "equipped")
	v.SetDefault("transform.price_scale", 100)
	v.SetDefault("transform.parallelism", 4)

	v.SetDefault("features.mode", "train")
	v.SetDefault("features.encoder_path", "data/processed/encoder.json")
	v.SetDefault("features.verify_leakage", true)
	v.SetDefault("features.default_distance", 2140)

	v.SetDefault("database.port", 5432)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.max_idle_connections", 2)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("health.enabled", true)
	v.SetDefault("health.address", ":8080")

	v.SetDefault("daemon.pipeline_schedule", "0 30 3 * * *")
	v.SetDefault("daemon.monitor_schedule", "0 0 11 * * *")
}
