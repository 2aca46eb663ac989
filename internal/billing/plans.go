// Package billing provides plan policy and payment-driven plan updates.
package billing

import "plangate/internal/types"

// PlanPolicy holds the static entitlements of one plan tier.
type PlanPolicy struct {
	// DailyLimit is the number of quota-consuming actions allowed per
	// calendar day.
	DailyLimit int

	// PeriodDays is the subscription period granted on payment, counted
	// from the payment date.
	PeriodDays int
}

// PlanRegistry is the authoritative source of per-tier limits and periods.
// Unknown tiers resolve to the most restrictive policy so a mistyped plan
// value in the sheet fails safe.
type PlanRegistry interface {
	Policy(tier types.PlanTier) PlanPolicy
}

// planDefaults is the hardcoded policy table. Two historical variants of the
// expiry policy existed (flat 30 days for every plan vs. plan-dependent);
// the plan-dependent one is in force: standard gets 30 days, every other
// tier 7.
var planDefaults = map[types.PlanTier]PlanPolicy{
	types.PlanFree:     {DailyLimit: 1, PeriodDays: 7},
	types.PlanTrial:    {DailyLimit: 1, PeriodDays: 7},
	types.PlanStandard: {DailyLimit: 3, PeriodDays: 30},
}

// fallbackPolicy covers tiers not present in the table.
var fallbackPolicy = PlanPolicy{DailyLimit: 1, PeriodDays: 7}

// staticPlanRegistry is the in-memory PlanRegistry used in production.
type staticPlanRegistry struct {
	policies map[types.PlanTier]PlanPolicy
}

// NewStaticPlanRegistry returns a PlanRegistry backed by the hardcoded plan
// table. No external configuration is involved; limits are policy constants,
// not data derived from the store.
func NewStaticPlanRegistry() PlanRegistry {
	m := make(map[types.PlanTier]PlanPolicy, len(planDefaults))
	for k, v := range planDefaults {
		m[k] = v
	}
	return &staticPlanRegistry{policies: m}
}

// Policy returns the policy for the given tier, or the restrictive fallback
// for unknown tiers.
func (r *staticPlanRegistry) Policy(tier types.PlanTier) PlanPolicy {
	if p, ok := r.policies[tier]; ok {
		return p
	}
	return fallbackPolicy
}
