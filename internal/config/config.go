// Package config defines the global configuration for the plangate service.
// Configuration is loaded once at process initialization and is immutable
// thereafter, following 12-Factor principles: code and configuration are
// strictly separated and all values arrive via the environment.
//
// Values are resolved via a priority chain: OS environment (highest), then a
// local .env file. Any missing required value or invalid format fails startup
// immediately.
package config

import "plangate/internal/types"

// SecretString is an alias for types.SecretString, the redacted secret type
// used for credentials so they never appear in logs or config dumps.
type SecretString = types.SecretString

// Config is the top-level configuration struct. Sub-components receive only
// the specific subsets they require.
type Config struct {
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"plangate"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	Server  ServerConfig
	Sheets  SheetsConfig
	Billing BillingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8080"`
}

// SheetsConfig identifies the user sheet and the credentials used to reach it.
// Credentials are either inline service-account JSON (preferred for hosted
// environments) or a file path fallback for local development.
type SheetsConfig struct {
	SpreadsheetID   string       `envconfig:"SPREADSHEET_ID"`
	SheetName       string       `envconfig:"SHEET_NAME" default:"users"`
	CredentialsJSON SecretString `envconfig:"GOOGLE_CREDENTIALS_JSON"`
	CredentialsFile string       `envconfig:"GOOGLE_CREDENTIALS_FILE" default:"credentials.json"`
}

// BillingConfig holds Stripe integration settings. The webhook secret guards
// the payment-completion endpoint; the secret key is only needed when the
// checkout endpoint is enabled.
type BillingConfig struct {
	StripeSecretKey     SecretString `envconfig:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret SecretString `envconfig:"STRIPE_WEBHOOK_SECRET"`
	CheckoutSuccessURL  string       `envconfig:"CHECKOUT_SUCCESS_URL" default:"https://example.com/success"`
	CheckoutCancelURL   string       `envconfig:"CHECKOUT_CANCEL_URL" default:"https://example.com/cancel"`
	// Stripe price IDs per purchasable plan. The checkout endpoint is
	// disabled when these are unset.
	PriceTrial    string `envconfig:"STRIPE_PRICE_TRIAL"`
	PriceStandard string `envconfig:"STRIPE_PRICE_STANDARD"`
}

// IsLocal reports whether the service runs in local development mode.
// Local mode relaxes requirements that only make sense against real
// collaborators (spreadsheet ID, webhook secret).
func (c *Config) IsLocal() bool {
	return c.Environment == "local"
}
