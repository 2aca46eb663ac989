// loader.go implements the configuration loading lifecycle:
//  1. Enforce UTC timezone to prevent date-rollover drift.
//  2. Load .env file via godotenv (non-fatal if absent).
//  3. Process envconfig struct tags to populate Config.
//  4. Validate the struct using go-playground/validator.
//  5. Apply cross-field checks that tags cannot express.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// ConfigErrorType classifies configuration failures for diagnostics.
type ConfigErrorType string

const (
	ErrParsing    ConfigErrorType = "parsing"
	ErrValidation ConfigErrorType = "validation"
)

// ConfigError is the diagnostic error type returned by LoadConfig.
type ConfigError struct {
	Type    ConfigErrorType
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for errors.Is/errors.As.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// LoadConfig loads and validates the plangate configuration from the
// environment. The .env file is optional and never overrides variables that
// are already set in the OS environment.
func LoadConfig() (*Config, error) {
	// The quota algorithm compares calendar dates; a process-local timezone
	// would move the rollover boundary. Pin everything to UTC.
	time.Local = time.UTC

	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, &ConfigError{
			Type:    ErrParsing,
			Message: "failed to process environment configuration",
			Err:     err,
		}
	}

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, &ConfigError{
			Type:    ErrValidation,
			Message: "configuration validation failed",
			Err:     err,
		}
	}

	if err := checkDeploymentRequirements(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// checkDeploymentRequirements enforces the fields that are optional in local
// mode but mandatory against real collaborators: the spreadsheet to use as
// the user store and the webhook signing secret.
func checkDeploymentRequirements(cfg *Config) error {
	if cfg.IsLocal() {
		return nil
	}
	if cfg.Sheets.SpreadsheetID == "" {
		return &ConfigError{
			Type:    ErrValidation,
			Message: "SPREADSHEET_ID is required outside local mode",
		}
	}
	if !cfg.Billing.StripeWebhookSecret.IsSet() {
		return &ConfigError{
			Type:    ErrValidation,
			Message: "STRIPE_WEBHOOK_SECRET is required outside local mode",
		}
	}
	return nil
}
