// Package handlers contains the HTTP handler implementations for the
// plangate API.
//
// The Stripe webhook handler is NOT behind any auth middleware -- it is
// called directly by Stripe. Security comes from verifying the
// Stripe-Signature header against the endpoint's signing secret.
package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"log/slog"

	"github.com/go-chi/chi/v5"

	"plangate/internal/core"
	"plangate/internal/external"
	"plangate/internal/types"
)

// maxWebhookBodySize caps Stripe webhook payloads (64 KB). Real payloads are
// far smaller; the limit protects against abuse.
const maxWebhookBodySize = 64 * 1024

// PlanApplier applies a verified payment-completion event to the user store.
type PlanApplier interface {
	ApplyPayment(ctx context.Context, userID string, plan types.PlanTier) error
}

// StripeWebhookHandler handles asynchronous payment events from Stripe.
type StripeWebhookHandler struct {
	verifier external.WebhookVerifier
	applier  PlanApplier
	secret   string
	logger   *slog.Logger
}

// NewStripeWebhookHandler creates a StripeWebhookHandler.
func NewStripeWebhookHandler(
	verifier external.WebhookVerifier,
	applier PlanApplier,
	secret string,
	logger *slog.Logger,
) *StripeWebhookHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StripeWebhookHandler{
		verifier: verifier,
		applier:  applier,
		secret:   secret,
		logger:   logger,
	}
}

// RegisterRoutes mounts the webhook endpoint. The path is registered at the
// router root because Stripe is configured with a fixed URL.
func (h *StripeWebhookHandler) RegisterRoutes(r chi.Router) {
	r.Post("/webhook", h.Handle)
}

// webhookAck is the JSON acknowledgment returned to Stripe.
type webhookAck struct {
	Status string `json:"status"`
}

// Handle processes an incoming Stripe webhook delivery:
//
//  1. Read the raw body (size-capped) and the Stripe-Signature header.
//  2. Verify the signature; reject with 400 on any failure.
//  3. Parse the event; on checkout.session.completed, extract user_id and
//     plan from the session metadata and apply the payment.
//  4. A store-write failure returns 500 so Stripe redelivers the event
//     later -- provider redelivery is the only retry mechanism in the
//     system. Everything else, including event types this service ignores
//     and sessions missing metadata, is acknowledged with 200.
func (h *StripeWebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBodySize)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.WarnContext(r.Context(), "failed to read webhook body", "error", err)
		core.Error(w, r, types.NewAppError(
			types.ErrCodeWebhookPayloadInvalid, "failed to read request body", err))
		return
	}

	sigHeader := r.Header.Get("Stripe-Signature")
	if sigHeader == "" {
		h.logger.WarnContext(r.Context(), "missing Stripe-Signature header")
		core.Error(w, r, types.NewAppError(
			types.ErrCodeWebhookSignatureMissing, "missing Stripe-Signature header", nil))
		return
	}

	if err := h.verifier.Verify(payload, sigHeader, h.secret); err != nil {
		h.logger.WarnContext(r.Context(), "webhook signature verification failed", "error", err)
		core.Error(w, r, types.NewAppError(
			types.ErrCodeWebhookSignatureInvalid, "webhook signature verification failed", err))
		return
	}

	var event stripeWebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		h.logger.WarnContext(r.Context(), "failed to parse webhook event JSON", "error", err)
		core.Error(w, r, types.NewAppError(
			types.ErrCodeWebhookPayloadInvalid, "invalid webhook event JSON", err))
		return
	}

	h.logger.InfoContext(r.Context(), "processing stripe webhook event",
		"event_id", event.ID,
		"event_type", event.Type,
	)

	if event.Type == external.EventCheckoutCompleted {
		if err := h.handleCheckoutCompleted(r.Context(), &event); err != nil {
			h.logger.ErrorContext(r.Context(), "plan update failed, stripe will redeliver",
				"event_id", event.ID,
				"error", err,
			)
			core.Error(w, r, err)
			return
		}
	}

	core.JSON(w, r, http.StatusOK, webhookAck{Status: "success"})
}

// handleCheckoutCompleted extracts the user and plan from the session
// metadata and upserts the plan. A session without both metadata keys is
// skipped: it belongs to some other product flow, not an error.
func (h *StripeWebhookHandler) handleCheckoutCompleted(ctx context.Context, event *stripeWebhookEvent) error {
	userID, plan, ok := event.checkoutMetadata()
	if !ok {
		h.logger.InfoContext(ctx, "checkout session without user metadata, skipping",
			"event_id", event.ID,
		)
		return nil
	}

	h.logger.InfoContext(ctx, "applying completed checkout",
		"event_id", event.ID,
		"user_id", userID,
		"plan", plan,
	)
	return h.applier.ApplyPayment(ctx, userID, types.PlanTier(plan))
}

// ---------------------------------------------------------------------------
// Stripe Event Parsing
// ---------------------------------------------------------------------------

// stripeWebhookEvent is a minimal representation of a Stripe event, parsed
// by hand rather than through stripe-go's full Event type to keep the
// handler decoupled from the SDK's object model.
type stripeWebhookEvent struct {
	ID   string          `json:"id"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type stripeEventData struct {
	Object json.RawMessage `json:"object"`
}

type stripeCheckoutSessionObj struct {
	Metadata map[string]string `json:"metadata"`
}

// checkoutMetadata extracts user_id and plan from a checkout session event.
// ok is false when either key is absent or the payload shape is unexpected.
func (e *stripeWebhookEvent) checkoutMetadata() (userID, plan string, ok bool) {
	var data stripeEventData
	if err := json.Unmarshal(e.Data, &data); err != nil {
		return "", "", false
	}
	var session stripeCheckoutSessionObj
	if err := json.Unmarshal(data.Object, &session); err != nil {
		return "", "", false
	}
	userID = session.Metadata[external.MetadataUserID]
	plan = session.Metadata[external.MetadataPlan]
	if userID == "" || plan == "" {
		return "", "", false
	}
	return userID, plan, true
}
