package config

import (
	"context"
	"strings"
	"testing"
	"time"
)

const (
	validConfigPath              = "testdata/valid_config.yaml"
	expansionConfigPath          = "testdata/expansion_config.yaml"
	nonexistentConfigPath        = "testdata/nonexistent_config.yaml"
	expectedNoErrorLoadingConfig = "expected no error loading config, got %v"
	testDBPassword               = "TEST_DB_PASSWORD"
	expandedSecretValue          = "expanded_secret_value"
)

// TestLoadConfigSuccess tests loading a valid configuration file
func TestLoadConfigSuccess(t *testing.T) {
	cfg, err := Load(validConfigPath)
	if err != nil {
		t.Fatalf(expectedNoErrorLoadingConfig, err)
	}

	if cfg.App.Name != "racecapture" {
		t.Errorf("expected app name 'racecapture', got '%s'", cfg.App.Name)
	}
	if cfg.Capture.Tolerance != 45*time.Second {
		t.Errorf("expected tolerance 45s, got %s", cfg.Capture.Tolerance)
	}
	if len(cfg.Capture.OffsetsMinutes) != 4 {
		t.Errorf("expected 4 offsets, got %v", cfg.Capture.OffsetsMinutes)
	}
	if cfg.Transform.Region != "SE" {
		t.Errorf("expected region 'SE', got '%s'", cfg.Transform.Region)
	}
}

// TestLoadConfigFileNotFound tests handling of missing configuration file
func TestLoadConfigFileNotFound(t *testing.T) {
	if _, err := Load(nonexistentConfigPath); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

// TestLoadConfigEnvironmentVariables tests environment variable override
func TestLoadConfigEnvironmentVariables(t *testing.T) {
	t.Setenv("RACECAPTURE_APP_NAME", "test-app")

	cfg, err := Load(validConfigPath)
	if err != nil {
		t.Fatalf(expectedNoErrorLoadingConfig, err)
	}

	if cfg.App.Name != "test-app" {
		t.Errorf("expected app name 'test-app' from environment, got '%s'", cfg.App.Name)
	}
}

// TestLoadConfigEnvironmentVariableExpansion tests ${VAR} expansion in the config file
func TestLoadConfigEnvironmentVariableExpansion(t *testing.T) {
	t.Setenv(testDBPassword, expandedSecretValue)

	cfg, err := Load(expansionConfigPath)
	if err != nil {
		t.Fatalf("expected no error loading config with expansion, got %v", err)
	}

	if cfg.Database.Password != expandedSecretValue {
		t.Errorf("expected password '%s', got '%s'", expandedSecretValue, cfg.Database.Password)
	}
}

// TestLoadWithDefaultsNoFile tests that defaults alone produce a valid configuration
func TestLoadWithDefaultsNoFile(t *testing.T) {
	cfg, err := LoadWithDefaults(nonexistentConfigPath)
	if err != nil {
		t.Fatalf(expectedNoErrorLoadingConfig, err)
	}

	if err := Validate(cfg); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
	if cfg.Capture.TickInterval != 20*time.Second {
		t.Errorf("expected tick interval 20s, got %s", cfg.Capture.TickInterval)
	}
	if cfg.Transform.EquipmentDefault != "equipped" {
		t.Errorf("expected equipment default 'equipped', got '%s'", cfg.Transform.EquipmentDefault)
	}
	if len(cfg.Crawl.GameTypes) != 12 {
		t.Errorf("expected 12 prioritized game types, got %d", len(cfg.Crawl.GameTypes))
	}
}

// TestValidateSuccess tests validation of a valid configuration
func TestValidateSuccess(t *testing.T) {
	cfg, err := Load(validConfigPath)
	if err != nil {
		t.Fatalf(expectedNoErrorLoadingConfig, err)
	}

	if err := Validate(cfg); err != nil {
		t.Fatalf("expected no validation error, got %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantMsg string
	}{
		{
			name:    "invalid environment",
			mutate:  func(cfg *Config) { cfg.App.Environment = "invalid" },
			wantMsg: "Environment",
		},
		{
			name:    "duplicate offsets",
			mutate:  func(cfg *Config) { cfg.Capture.OffsetsMinutes = []int{60, 60} },
			wantMsg: "OffsetsMinutes",
		},
		{
			name:    "non-positive offset",
			mutate:  func(cfg *Config) { cfg.Capture.OffsetsMinutes = []int{0} },
			wantMsg: "OffsetsMinutes",
		},
		{
			name:    "unknown equipment policy",
			mutate:  func(cfg *Config) { cfg.Transform.EquipmentDefault = "maybe" },
			wantMsg: "EquipmentDefault",
		},
		{
			name:    "unknown feature mode",
			mutate:  func(cfg *Config) { cfg.Features.Mode = "eval" },
			wantMsg: "Mode",
		},
		{
			name:    "tick interval too coarse for tolerance",
			mutate:  func(cfg *Config) { cfg.Capture.TickInterval = 2 * time.Minute },
			wantMsg: "tick_interval",
		},
		{
			name:    "s3 backend without bucket",
			mutate:  func(cfg *Config) { cfg.Storage.Backend = "s3" },
			wantMsg: "s3_bucket",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(validConfigPath)
			if err != nil {
				t.Fatalf(expectedNoErrorLoadingConfig, err)
			}
			tt.mutate(cfg)

			err = Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("expected error mentioning %q, got: %v", tt.wantMsg, err)
			}
		})
	}
}

func TestOffsetsAndLocation(t *testing.T) {
	cfg := &Config{
		App:     AppConfig{Timezone: "Europe/Stockholm"},
		Capture: CaptureConfig{OffsetsMinutes: []int{60, 5}},
	}

	offsets := cfg.Offsets()
	if len(offsets) != 2 || offsets[0] != time.Hour || offsets[1] != 5*time.Minute {
		t.Errorf("unexpected offsets: %v", offsets)
	}
	if cfg.Location().String() != "Europe/Stockholm" {
		t.Errorf("expected Europe/Stockholm, got %s", cfg.Location())
	}

	cfg.App.Timezone = "Not/AZone"
	if cfg.Location() != time.UTC {
		t.Errorf("expected UTC fallback, got %s", cfg.Location())
	}
}

// TestGetDatabaseDSN tests DSN generation
func TestGetDatabaseDSN(t *testing.T) {
	cfg, err := Load(validConfigPath)
	if err != nil {
		t.Fatalf(expectedNoErrorLoadingConfig, err)
	}

	dsn := cfg.GetDatabaseDSN()
	if !strings.HasPrefix(dsn, "postgres://") {
		t.Errorf("expected DSN to start with 'postgres://', got '%s'", dsn)
	}
}

func TestIsProduction(t *testing.T) {
	cfg := &Config{App: AppConfig{Environment: "production"}}

	if !cfg.IsProduction() {
		t.Error("expected IsProduction() to return true")
	}
	if cfg.IsDevelopment() {
		t.Error("expected IsDevelopment() to return false")
	}
}

func TestOverlaySecretsOnConfig(t *testing.T) {
	cfg := &Config{}
	overlaySecretsOnConfig(cfg, &SecretsOverlay{DatabasePassword: "pw", ClickHouseDSN: "clickhouse://x"})

	if cfg.Database.Password != "pw" || cfg.ClickHouse.DSN != "clickhouse://x" {
		t.Errorf("secrets not applied: %+v %+v", cfg.Database, cfg.ClickHouse)
	}
	if err := LoadSecretsFromAWS(context.Background(), &Config{}); err != nil {
		t.Errorf("expected disabled secrets to be a no-op, got %v", err)
	}
}
