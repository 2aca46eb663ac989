package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"plangate/internal/core"
	"plangate/internal/external"
	"plangate/internal/types"
)

// BillingHandler exposes checkout session creation. The session's metadata
// carries the user and plan that the webhook later applies to the sheet.
type BillingHandler struct {
	billing   external.BillingService
	validator *core.Validator
	logger    *slog.Logger
}

// NewBillingHandler creates a BillingHandler.
func NewBillingHandler(billing external.BillingService, validator *core.Validator, logger *slog.Logger) *BillingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &BillingHandler{billing: billing, validator: validator, logger: logger}
}

// RegisterRoutes mounts the billing endpoints under the given router.
func (h *BillingHandler) RegisterRoutes(r chi.Router) {
	r.Post("/billing/checkout", h.HandleCreateCheckout)
}

// checkoutRequest is the request body for POST /v1/billing/checkout.
// Only purchasable plans are accepted; free is assigned implicitly by the
// quota checker for unregistered users.
type checkoutRequest struct {
	UserID string `json:"user_id" validate:"required"`
	Plan   string `json:"plan" validate:"required,oneof=trial standard"`
}

// checkoutResponse carries the hosted checkout URL the caller redirects to.
type checkoutResponse struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// HandleCreateCheckout starts a hosted checkout for the given user and plan.
func (h *BillingHandler) HandleCreateCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	session, err := h.billing.CreateCheckoutSession(r.Context(), req.UserID, types.PlanTier(req.Plan))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "checkout session creation failed",
			"user_id", req.UserID,
			"plan", req.Plan,
			"error", err,
		)
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, checkoutResponse{
		SessionID: session.ID,
		URL:       session.URL,
	})
}
