package store

import (
	"context"
	"strconv"
	"sync"

	"plangate/internal/types"
)

// DefaultHeader is the canonical column order used when a MemStore is
// created without an explicit header.
var DefaultHeader = []string{
	ColUserID, ColPlan, ColDailyCount,
	ColLastUsedDate, ColRegisteredDate, ColExpireDate,
}

// MemStore is an in-memory UserStore with the same header-keyed row
// semantics as the sheet implementation. It backs tests and local
// development when no spreadsheet is configured.
type MemStore struct {
	mu     sync.Mutex
	header []string
	idx    map[string]int
	rows   [][]string
}

// NewMemStore creates a MemStore with the given header row; a nil header
// uses DefaultHeader.
func NewMemStore(header []string) *MemStore {
	if header == nil {
		header = append([]string(nil), DefaultHeader...)
	}
	return &MemStore{
		header: header,
		idx:    headerIndex(header),
	}
}

// Seed appends a record as a raw row, bypassing upsert semantics. Test setup
// helper.
func (m *MemStore) Seed(rec types.UserRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, rowFromRecord(m.header, rec))
}

// Rows returns a copy of the current data rows in header order.
func (m *MemStore) Rows() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]string, len(m.rows))
	for i, r := range m.rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}

// FindByUserID scans rows for the first exact match on user_id.
func (m *MemStore) FindByUserID(_ context.Context, userID string) (*types.UserRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, ok := m.findRow(userID)
	if !ok {
		return nil, false, nil
	}
	rec := recordFromRow(m.idx, m.rows[i])
	return &rec, true, nil
}

// SaveUsage writes daily_count and last_used_date on the user's row.
func (m *MemStore) SaveUsage(_ context.Context, userID string, count int, usedOn string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, ok := m.findRow(userID)
	if !ok {
		return types.NewAppError(types.ErrCodeNotFoundUser, "no row for user", nil)
	}
	m.setCell(i, ColDailyCount, strconv.Itoa(count))
	m.setCell(i, ColLastUsedDate, usedOn)
	return nil
}

// UpsertPlan updates the first matching row in place or appends a new one.
func (m *MemStore) UpsertPlan(_ context.Context, rec types.UserRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, ok := m.findRow(rec.UserID)
	if !ok {
		m.rows = append(m.rows, rowFromRecord(m.header, rec))
		return nil
	}
	m.setCell(i, ColPlan, string(rec.Plan))
	m.setCell(i, ColRegisteredDate, rec.RegisteredDate)
	m.setCell(i, ColExpireDate, rec.ExpireDate)
	m.setCell(i, ColDailyCount, strconv.Itoa(rec.DailyCount))
	m.setCell(i, ColLastUsedDate, rec.LastUsedDate)
	return nil
}

// Ping always succeeds.
func (m *MemStore) Ping(_ context.Context) error {
	return nil
}

func (m *MemStore) findRow(userID string) (int, bool) {
	uidCol, ok := m.idx[ColUserID]
	if !ok {
		return 0, false
	}
	for i, row := range m.rows {
		if uidCol < len(row) && row[uidCol] == userID {
			return i, true
		}
	}
	return 0, false
}

// setCell writes a cell by column name; columns absent from the header are
// skipped, mirroring the sheet implementation.
func (m *MemStore) setCell(rowIdx int, col, value string) {
	colIdx, ok := m.idx[col]
	if !ok {
		return
	}
	row := m.rows[rowIdx]
	for len(row) <= colIdx {
		row = append(row, "")
	}
	row[colIdx] = value
	m.rows[rowIdx] = row
}

// Compile-time assertion that MemStore satisfies UserStore.
var _ UserStore = (*MemStore)(nil)
