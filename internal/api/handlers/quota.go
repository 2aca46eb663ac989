package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"plangate/internal/core"
	"plangate/internal/types"
)

// QuotaService decides whether a user may perform one more action today.
type QuotaService interface {
	Check(ctx context.Context, userID string) (types.QuotaDecision, error)
}

// QuotaHandler exposes the quota check over HTTP.
type QuotaHandler struct {
	quota     QuotaService
	validator *core.Validator
	logger    *slog.Logger
}

// NewQuotaHandler creates a QuotaHandler.
func NewQuotaHandler(quota QuotaService, validator *core.Validator, logger *slog.Logger) *QuotaHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &QuotaHandler{quota: quota, validator: validator, logger: logger}
}

// RegisterRoutes mounts the quota endpoints under the given router.
func (h *QuotaHandler) RegisterRoutes(r chi.Router) {
	r.Post("/quota/check", h.HandleCheck)
}

// quotaCheckRequest is the request body for POST /v1/quota/check.
type quotaCheckRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

// HandleCheck consumes one unit of today's quota for the user if the plan
// allows it. Denials (unregistered, expired, over limit) are 200 responses
// carrying the decision -- they are defined outcomes, not errors.
func (h *QuotaHandler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	var req quotaCheckRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	decision, err := h.quota.Check(r.Context(), req.UserID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "quota check failed",
			"user_id", req.UserID,
			"error", err,
		)
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, decision)
}
