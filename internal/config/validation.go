package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// CustomValidator wraps the validator with custom validation rules
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new validator with custom validation functions
func NewValidator() *CustomValidator {
	v := validator.New()

	_ = v.RegisterValidation("environment", validateEnvironment)
	_ = v.RegisterValidation("loglevel", validateLogLevel)
	_ = v.RegisterValidation("offsets", validateOffsets)
	_ = v.RegisterValidation("equipmentpolicy", validateEquipmentPolicy)
	_ = v.RegisterValidation("storagebackend", validateStorageBackend)
	_ = v.RegisterValidation("featuremode", validateFeatureMode)

	return &CustomValidator{validator: v}
}

// Validate validates the entire configuration
func Validate(cfg *Config) error {
	return NewValidator().Validate(cfg)
}

// Validate validates the configuration using registered validation rules
func (cv *CustomValidator) Validate(cfg *Config) error {
	if err := cv.validator.Struct(cfg); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	return validateCrossField(cfg)
}

func validateEnvironment(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "development", "staging", "production":
		return true
	default:
		return false
	}
}

func validateLogLevel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

// validateOffsets requires positive, distinct minute offsets
func validateOffsets(fl validator.FieldLevel) bool {
	offsets, ok := fl.Field().Interface().([]int)
	if !ok || len(offsets) == 0 {
		return false
	}
	seen := make(map[int]bool, len(offsets))
	for _, o := range offsets {
		if o <= 0 || seen[o] {
			return false
		}
		seen[o] = true
	}
	return true
}

func validateEquipmentPolicy(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "equipped", "unknown":
		return true
	default:
		return false
	}
}

func validateStorageBackend(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "filesystem", "s3":
		return true
	default:
		return false
	}
}

func validateFeatureMode(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "train", "inference":
		return true
	default:
		return false
	}
}

// validateCrossField performs cross-field validations
func validateCrossField(cfg *Config) error {
	// A tick longer than the full window width could step over a window.
	if cfg.Capture.TickInterval >= 2*cfg.Capture.Tolerance {
		return fmt.Errorf("capture tick_interval (%s) must be shorter than twice the tolerance (%s)",
			cfg.Capture.TickInterval, cfg.Capture.Tolerance)
	}

	if cfg.Storage.Backend == "s3" && cfg.Storage.S3Bucket == "" {
		return fmt.Errorf("storage s3_bucket is required when backend is 's3'")
	}

	if cfg.Source.RetryWaitMax < cfg.Source.RetryWaitMin {
		return fmt.Errorf("source retry_wait_max cannot be less than retry_wait_min")
	}

	if cfg.Database.Enabled && cfg.Database.MaxIdleConnections > cfg.Database.MaxConnections {
		return fmt.Errorf("max_idle_connections cannot exceed max_connections")
	}

	if cfg.IsProduction() && cfg.Database.Enabled && cfg.Database.SSLMode == "disable" {
		return fmt.Errorf("production environment requires SSL mode to be 'require' or 'verify-full'")
	}

	return nil
}

// formatValidationErrors formats validation errors into a readable string
func formatValidationErrors(validationErrors validator.ValidationErrors) error {
	var errMsg string
	for _, fieldError := range validationErrors {
		field := fieldError.StructField()
		tag := fieldError.Tag()
		value := fieldError.Value()

		switch tag {
		case "required", "required_if":
			errMsg += fmt.Sprintf("- Field '%s' is required\n", field)
		case "url":
			errMsg += fmt.Sprintf("- Field '%s' must be a valid URL, got '%v'\n", field, value)
		case "min", "max":
			errMsg += fmt.Sprintf("- Field '%s' validation failed: %s constraint violated\n", field, tag)
		case "gt", "gte", "lt", "lte":
			errMsg += fmt.Sprintf("- Field '%s' validation failed: numeric constraint %s violated\n", field, tag)
		case "environment":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: development, staging, production\n", field)
		case "loglevel":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: debug, info, warn, error\n", field)
		case "offsets":
			errMsg += fmt.Sprintf("- Field '%s' must contain distinct positive minute offsets, got '%v'\n", field, value)
		case "equipmentpolicy":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: equipped, unknown\n", field)
		case "storagebackend":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: filesystem, s3\n", field)
		case "featuremode":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: train, inference\n", field)
		case "timezone":
			errMsg += fmt.Sprintf("- Field '%s' must be an IANA timezone, got '%v'\n", field, value)
		case "oneof":
			errMsg += fmt.Sprintf("- Field '%s' has invalid value '%v'\n", field, value)
		default:
			errMsg += fmt.Sprintf("- Field '%s' failed validation: %s\n", field, tag)
		}
	}
	return fmt.Errorf("configuration validation failed:\n%s", errMsg)
}
