package types

// PlanTier identifies the subscription plan for a user.
// Unknown values are tolerated throughout the system and treated as the
// most restrictive tier.
type PlanTier string

const (
	PlanFree     PlanTier = "free"
	PlanTrial    PlanTier = "trial"
	PlanStandard PlanTier = "standard"
)

// QuotaStatus is the outcome of a quota check.
type QuotaStatus string

const (
	// QuotaOK means the action was allowed and recorded.
	QuotaOK QuotaStatus = "ok"

	// QuotaTodayLimit means today's per-plan allowance is exhausted.
	QuotaTodayLimit QuotaStatus = "today_limit"

	// QuotaLimit means the user is blocked outright: either unregistered
	// or past the plan expiry date.
	QuotaLimit QuotaStatus = "limit"
)
