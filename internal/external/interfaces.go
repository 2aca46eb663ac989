// Package external is the anti-corruption layer between plangate domain
// logic and third-party vendor APIs. Outbound HTTP calls are routed through
// BaseClient, which enforces circuit breaking, bounded retries, and error
// mapping.
package external

import (
	"context"

	"plangate/internal/types"
)

// WebhookVerifier abstracts billing-provider webhook signature checking.
// Verify returns nil when the payload authentically originates from the
// provider, and an error for any signature or timestamp failure.
type WebhookVerifier interface {
	Verify(payload []byte, header string, secret string) error
}

// CheckoutSession is the subset of a provider checkout session the service
// cares about.
type CheckoutSession struct {
	ID  string
	URL string
}

// BillingService abstracts the billing provider's outbound API surface.
type BillingService interface {
	// CreateCheckoutSession starts a hosted checkout for the given user and
	// plan. The user ID and plan travel in the session metadata and come
	// back on the payment-completion webhook.
	CreateCheckoutSession(ctx context.Context, userID string, plan types.PlanTier) (*CheckoutSession, error)
}
