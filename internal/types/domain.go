// Package types defines the shared domain types for the plangate service:
// user records, quota decisions, the error taxonomy, and context helpers.
package types

import "time"

// DateFormat is the canonical storage format for calendar dates.
// Earlier revisions of the sheet used slash-separated dates; the store now
// reads and writes ISO dates exclusively.
const DateFormat = "2006-01-02"

// UserRecord is one row of the user sheet, keyed by UserID.
// Date fields hold DateFormat strings; empty string means unset.
type UserRecord struct {
	UserID         string
	Plan           PlanTier
	DailyCount     int
	LastUsedDate   string
	RegisteredDate string
	ExpireDate     string
}

// QuotaDecision is the result of a quota check.
// Used and Limit are meaningful for "ok" and "today_limit"; for "limit"
// (unregistered or expired) they are omitted from JSON output.
type QuotaDecision struct {
	Status QuotaStatus `json:"status"`
	Plan   PlanTier    `json:"plan"`
	Used   int         `json:"used,omitempty"`
	Limit  int         `json:"limit,omitempty"`
}

// ParseDate parses a DateFormat string into a UTC time at midnight.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateFormat, s, time.UTC)
}

// FormatDate renders t as a DateFormat string in UTC.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateFormat)
}
