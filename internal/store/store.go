// Package store provides data access for user records kept in a sheet-like
// tabular store. The first row of the sheet is a header naming the columns;
// all lookups go by column name, never by position, so operators may reorder
// or extend the sheet without breaking the service.
package store

import (
	"context"
	"strconv"
	"strings"

	"plangate/internal/types"
)

// Column names expected in the sheet header. Columns absent from the header
// are silently skipped on write, matching the store's tolerance for partial
// schemas.
const (
	ColUserID         = "user_id"
	ColPlan           = "plan"
	ColDailyCount     = "daily_count"
	ColLastUsedDate   = "last_used_date"
	ColRegisteredDate = "registered_date"
	ColExpireDate     = "expire_date"
)

// UserStore abstracts the user record sheet. Both implementations (Google
// Sheets and the in-memory fake) treat user_id as a case-sensitive unique
// key where the first matching row wins.
//
// The store performs no transactional wrapping: a find followed by a write
// is two independent round trips, and concurrent callers touching the same
// row can interleave. This is an accepted limitation at the expected call
// rates; swapping in a transactional implementation only requires replacing
// this interface's backing type.
type UserStore interface {
	// FindByUserID scans all rows for the first exact match on user_id.
	// The second return value is false when no row matches.
	FindByUserID(ctx context.Context, userID string) (*types.UserRecord, bool, error)

	// SaveUsage writes daily_count and last_used_date for the user's row.
	// Returns a not_found error if the user has no row.
	SaveUsage(ctx context.Context, userID string, count int, usedOn string) error

	// UpsertPlan updates the first row matching rec.UserID in place, or
	// appends a new row ordered by the sheet's header when none matches.
	UpsertPlan(ctx context.Context, rec types.UserRecord) error

	// Ping verifies the store is reachable. Used by the health endpoint.
	Ping(ctx context.Context) error
}

// headerIndex maps column names to their zero-based position in the header
// row. Duplicate column names keep the first occurrence.
func headerIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, seen := idx[name]; !seen {
			idx[name] = i
		}
	}
	return idx
}

// recordFromRow builds a UserRecord from a raw sheet row using the header
// index. Missing cells yield zero values; daily_count parses leniently so a
// blank or hand-edited cell reads as 0.
func recordFromRow(idx map[string]int, row []string) types.UserRecord {
	cell := func(col string) string {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	return types.UserRecord{
		UserID:         cell(ColUserID),
		Plan:           types.PlanTier(cell(ColPlan)),
		DailyCount:     parseCount(cell(ColDailyCount)),
		LastUsedDate:   cell(ColLastUsedDate),
		RegisteredDate: cell(ColRegisteredDate),
		ExpireDate:     cell(ColExpireDate),
	}
}

// rowFromRecord renders rec as a row ordered by the live header. Header
// columns the record does not know about are left blank.
func rowFromRecord(header []string, rec types.UserRecord) []string {
	row := make([]string, len(header))
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case ColUserID:
			row[i] = rec.UserID
		case ColPlan:
			row[i] = string(rec.Plan)
		case ColDailyCount:
			row[i] = strconv.Itoa(rec.DailyCount)
		case ColLastUsedDate:
			row[i] = rec.LastUsedDate
		case ColRegisteredDate:
			row[i] = rec.RegisteredDate
		case ColExpireDate:
			row[i] = rec.ExpireDate
		}
	}
	return row
}

// parseCount parses a usage counter cell. Blank or malformed cells read as 0
// and negative values are clamped, so a corrupted sheet can never produce a
// negative quota.
func parseCount(s string) int {
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
