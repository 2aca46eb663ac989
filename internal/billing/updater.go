package billing

import (
	"context"
	"log/slog"
	"time"

	"plangate/internal/types"
)

// PlanStore is the subset of the user store the updater needs.
type PlanStore interface {
	UpsertPlan(ctx context.Context, rec types.UserRecord) error
}

// PlanUpdater applies payment-completion events to the user store: it
// assigns the paid plan, stamps the registration date, computes the expiry
// date from the plan's period, and resets the daily usage counter.
//
// Calling ApplyPayment twice with the same arguments yields the same final
// row state as calling it once, modulo the dates being recomputed from the
// call time; the webhook caller may therefore redeliver events freely.
type PlanUpdater struct {
	store  PlanStore
	plans  PlanRegistry
	logger *slog.Logger
	now    func() time.Time
}

// NewPlanUpdater creates a PlanUpdater over the given store and plan
// registry.
func NewPlanUpdater(store PlanStore, plans PlanRegistry, logger *slog.Logger) *PlanUpdater {
	if logger == nil {
		logger = slog.Default()
	}
	return &PlanUpdater{
		store:  store,
		plans:  plans,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock overrides the time source. Tests use this to pin "today".
func (u *PlanUpdater) WithClock(now func() time.Time) *PlanUpdater {
	u.now = now
	return u
}

// ApplyPayment upserts the user's plan after a completed payment. Exactly
// one row of the store is mutated; a failed write surfaces to the caller and
// is not retried locally.
func (u *PlanUpdater) ApplyPayment(ctx context.Context, userID string, plan types.PlanTier) error {
	today := u.now().UTC()
	policy := u.plans.Policy(plan)
	expire := today.AddDate(0, 0, policy.PeriodDays)

	rec := types.UserRecord{
		UserID:         userID,
		Plan:           plan,
		DailyCount:     0,
		LastUsedDate:   types.FormatDate(today),
		RegisteredDate: types.FormatDate(today),
		ExpireDate:     types.FormatDate(expire),
	}

	if err := u.store.UpsertPlan(ctx, rec); err != nil {
		return err
	}

	u.logger.InfoContext(ctx, "plan applied",
		"user_id", userID,
		"plan", plan,
		"expire_date", rec.ExpireDate,
	)
	return nil
}
