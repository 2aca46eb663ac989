package external

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	stripe "github.com/stripe/stripe-go/v82"

	"plangate/internal/types"
)

// stripeAPIBase is the default Stripe API base URL. Overridable in tests.
const stripeAPIBase = "https://api.stripe.com"

// EventCheckoutCompleted is the only Stripe event type the service acts on.
const EventCheckoutCompleted = "checkout.session.completed"

// Metadata keys carried on checkout sessions. They are set at session
// creation and read back by the webhook handler.
const (
	MetadataUserID = "user_id"
	MetadataPlan   = "plan"
)

// ---------------------------------------------------------------------------
// Webhook Verification
// ---------------------------------------------------------------------------

// StripeVerifier implements WebhookVerifier using stripe-go's webhook
// signature validation: HMAC-SHA256 over the payload with timestamp
// tolerance against replay.
type StripeVerifier struct{}

// Verify validates a Stripe webhook payload against the Stripe-Signature
// header and the endpoint's signing secret. Only the signature and
// timestamp are checked; event parsing stays with the handler.
func (v *StripeVerifier) Verify(payload []byte, header string, secret string) error {
	return stripe.ValidatePayload(payload, header, secret)
}

// ---------------------------------------------------------------------------
// Checkout Sessions
// ---------------------------------------------------------------------------

// StripeClientConfig holds the configuration for creating a StripeClient.
type StripeClientConfig struct {
	SecretKey  string
	SuccessURL string
	CancelURL  string
	// PlanPrices maps a plan tier to its Stripe price ID.
	PlanPrices map[types.PlanTier]string
	// BaseURL overrides the Stripe API endpoint for testing.
	BaseURL string
	Logger  *slog.Logger
}

// StripeClient implements BillingService by calling the Stripe REST API
// through BaseClient, inheriting the circuit breaker and retry behavior.
type StripeClient struct {
	base *BaseClient
	cfg  StripeClientConfig
}

// NewStripeClient creates a StripeClient. The httpClient timeout bounds each
// individual attempt; retries are handled by BaseClient.
func NewStripeClient(httpClient *http.Client, cfg StripeClientConfig) *StripeClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = stripeAPIBase
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	base := NewBaseClient(
		httpClient,
		"stripe",
		DefaultRetryPolicy(),
		"plangate/1.0",
	)
	return &StripeClient{base: base, cfg: cfg}
}

// newStripeClientWithBase wires a caller-provided BaseClient. Used by tests.
func newStripeClientWithBase(base *BaseClient, cfg StripeClientConfig) *StripeClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = stripeAPIBase
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &StripeClient{base: base, cfg: cfg}
}

// stripeSessionResponse is the subset of the Checkout Session API response
// the service reads.
type stripeSessionResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// stripeErrorResponse is Stripe's error envelope.
type stripeErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// CreateCheckoutSession starts a hosted checkout whose metadata carries the
// user ID and plan; the payment-completion webhook reads them back to update
// the user sheet.
func (c *StripeClient) CreateCheckoutSession(ctx context.Context, userID string, plan types.PlanTier) (*CheckoutSession, error) {
	priceID, ok := c.cfg.PlanPrices[plan]
	if !ok {
		return nil, types.NewAppError(types.ErrCodeValidationInvalidPlan,
			fmt.Sprintf("no price configured for plan %q", plan), nil)
	}

	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", c.cfg.SuccessURL)
	form.Set("cancel_url", c.cfg.CancelURL)
	form.Set("line_items[0][price]", priceID)
	form.Set("line_items[0][quantity]", "1")
	form.Set("metadata["+MetadataUserID+"]", userID)
	form.Set("metadata["+MetadataPlan+"]", string(plan))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/v1/checkout/sessions",
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected,
			"failed to build checkout request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.cfg.SecretKey, "")

	resp, err := c.base.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamStripe,
			"failed to read checkout response", err)
	}

	if resp.StatusCode != http.StatusOK {
		var stripeErr stripeErrorResponse
		_ = json.Unmarshal(body, &stripeErr)
		c.cfg.Logger.ErrorContext(ctx, "checkout session creation rejected",
			"status", resp.StatusCode,
			"stripe_error_type", stripeErr.Error.Type,
		)
		return nil, types.NewAppError(types.ErrCodeUpstreamStripe,
			"checkout session creation failed", fmt.Errorf("stripe returned %d", resp.StatusCode))
	}

	var session stripeSessionResponse
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamStripe,
			"malformed checkout response", err)
	}

	c.cfg.Logger.InfoContext(ctx, "checkout session created",
		"user_id", userID,
		"plan", plan,
		"session_id", session.ID,
	)
	return &CheckoutSession{ID: session.ID, URL: session.URL}, nil
}

// NewStripeHTTPClient returns the http.Client used for Stripe calls, with a
// per-attempt timeout.
func NewStripeHTTPClient() *http.Client {
	return &http.Client{Timeout: 20 * time.Second}
}

// Compile-time interface assertions.
var (
	_ WebhookVerifier = (*StripeVerifier)(nil)
	_ BillingService  = (*StripeClient)(nil)
)
