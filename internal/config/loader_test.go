package config

import (
	"errors"
	"os"
	"testing"
	"time"
)

// clearEnv unsets every variable LoadConfig reads so ambient developer
// environments cannot leak into assertions. t.Setenv registers the restore;
// the Unsetenv makes the variable truly absent so envconfig defaults apply.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV", "SERVICE_NAME", "LOG_LEVEL", "PORT",
		"SPREADSHEET_ID", "SHEET_NAME", "GOOGLE_CREDENTIALS_JSON", "GOOGLE_CREDENTIALS_FILE",
		"STRIPE_SECRET_KEY", "STRIPE_WEBHOOK_SECRET",
		"CHECKOUT_SUCCESS_URL", "CHECKOUT_CANCEL_URL",
		"STRIPE_PRICE_TRIAL", "STRIPE_PRICE_STANDARD",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}

	if cfg.Environment != "local" {
		t.Errorf("Environment = %q, want local", cfg.Environment)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Server.Port)
	}
	if cfg.Sheets.SheetName != "users" {
		t.Errorf("SheetName = %q, want users", cfg.Sheets.SheetName)
	}
	if cfg.Service != "plangate" {
		t.Errorf("Service = %q, want plangate", cfg.Service)
	}
	if !cfg.IsLocal() {
		t.Error("IsLocal() = false for default environment")
	}
}

func TestLoadConfig_PinsUTC(t *testing.T) {
	clearEnv(t)

	if _, err := LoadConfig(); err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if time.Local != time.UTC {
		t.Error("time.Local not pinned to UTC")
	}
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "dev")
	t.Setenv("PORT", "9000")
	t.Setenv("SPREADSHEET_ID", "sheet-123")
	t.Setenv("SHEET_NAME", "members")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_abc")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}

	if cfg.Environment != "dev" || cfg.Server.Port != "9000" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.Sheets.SpreadsheetID != "sheet-123" || cfg.Sheets.SheetName != "members" {
		t.Errorf("sheets overrides not applied: %+v", cfg.Sheets)
	}
	if cfg.Billing.StripeWebhookSecret.Unmask() != "whsec_abc" {
		t.Error("webhook secret not loaded")
	}
}

func TestLoadConfig_InvalidEnvironmentRejected(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "production") // must be "prod"

	_, err := LoadConfig()
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Type != ErrValidation {
		t.Fatalf("error = %v, want validation ConfigError", err)
	}
}

func TestLoadConfig_NonLocalRequiresSpreadsheet(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "prod")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_abc")

	_, err := LoadConfig()
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Type != ErrValidation {
		t.Fatalf("error = %v, want validation ConfigError for missing SPREADSHEET_ID", err)
	}
}

func TestLoadConfig_NonLocalRequiresWebhookSecret(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "staging")
	t.Setenv("SPREADSHEET_ID", "sheet-123")

	_, err := LoadConfig()
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Type != ErrValidation {
		t.Fatalf("error = %v, want validation ConfigError for missing webhook secret", err)
	}
}

func TestLoadConfig_LocalModeRelaxed(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "local")

	if _, err := LoadConfig(); err != nil {
		t.Fatalf("local mode must not require collaborators, got: %v", err)
	}
}

func TestConfigError_Formatting(t *testing.T) {
	inner := errors.New("bad value")
	e := &ConfigError{Type: ErrParsing, Message: "failed", Err: inner}

	if !errors.Is(e, inner) {
		t.Error("ConfigError does not unwrap to its cause")
	}
	if e.Error() == "" {
		t.Error("empty error string")
	}

	bare := &ConfigError{Type: ErrValidation, Message: "missing"}
	if bare.Error() == "" {
		t.Error("empty error string without cause")
	}
}
