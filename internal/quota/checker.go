// Package quota implements the daily quota check against the user store.
package quota

import (
	"context"
	"log/slog"
	"time"

	"plangate/internal/billing"
	"plangate/internal/types"
)

// UsageStore is the subset of the user store the checker needs.
type UsageStore interface {
	FindByUserID(ctx context.Context, userID string) (*types.UserRecord, bool, error)
	SaveUsage(ctx context.Context, userID string, count int, usedOn string) error
}

// Checker decides whether a user's plan allows one more action today and
// records the action when it does.
type Checker struct {
	store  UsageStore
	plans  billing.PlanRegistry
	logger *slog.Logger
	now    func() time.Time
}

// NewChecker creates a Checker over the given store and plan registry.
func NewChecker(store UsageStore, plans billing.PlanRegistry, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{
		store:  store,
		plans:  plans,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock overrides the time source. Tests use this to pin "today".
func (c *Checker) WithClock(now func() time.Time) *Checker {
	c.now = now
	return c
}

// Check runs the quota decision for one user action:
//
//  1. Unregistered users are denied without any write.
//  2. An expire_date strictly before today blocks the user regardless of
//     counts, until a payment re-assigns the plan.
//  3. When the calendar day has rolled over since last use, the counter
//     resets to zero and the reset is persisted immediately, even if the
//     request is then denied. The stored date and count therefore always
//     reflect the true last-touched day.
//  4. A counter at or over the plan limit denies without further mutation.
//  5. Otherwise the counter increments, is persisted, and the action is
//     allowed.
//
// Store errors abort the check; the decision zero value accompanies them.
func (c *Checker) Check(ctx context.Context, userID string) (types.QuotaDecision, error) {
	rec, found, err := c.store.FindByUserID(ctx, userID)
	if err != nil {
		return types.QuotaDecision{}, err
	}
	if !found {
		return types.QuotaDecision{Status: types.QuotaLimit, Plan: types.PlanFree}, nil
	}

	plan := rec.Plan
	if plan == "" {
		plan = types.PlanFree
	}

	today := c.now().UTC()
	todayStr := types.FormatDate(today)

	if rec.ExpireDate != "" {
		expire, perr := types.ParseDate(rec.ExpireDate)
		if perr != nil {
			// A hand-edited expiry cell must not lock the user out or
			// grant unlimited access; treat it as unset and flag it.
			c.logger.WarnContext(ctx, "unparseable expire_date, ignoring",
				"user_id", userID,
				"expire_date", rec.ExpireDate,
			)
		} else if today.Truncate(24*time.Hour).After(expire) {
			return types.QuotaDecision{Status: types.QuotaLimit, Plan: plan}, nil
		}
	}

	count := rec.DailyCount
	if rec.LastUsedDate != todayStr {
		count = 0
		if err := c.store.SaveUsage(ctx, userID, 0, todayStr); err != nil {
			return types.QuotaDecision{}, err
		}
	}

	limit := c.plans.Policy(plan).DailyLimit
	if count >= limit {
		return types.QuotaDecision{
			Status: types.QuotaTodayLimit,
			Plan:   plan,
			Used:   count,
			Limit:  limit,
		}, nil
	}

	used := count + 1
	if err := c.store.SaveUsage(ctx, userID, used, todayStr); err != nil {
		return types.QuotaDecision{}, err
	}

	return types.QuotaDecision{
		Status: types.QuotaOK,
		Plan:   plan,
		Used:   used,
		Limit:  limit,
	}, nil
}
