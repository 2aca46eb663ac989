package store

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/api/sheets/v4"

	"plangate/internal/types"
)

// readRange is the A1 range covering the header row and all data rows.
// Sheets trims trailing empty cells, so rows may come back shorter than the
// header; recordFromRow tolerates that.
const readRange = "A1:ZZ"

// sheetAPI is the minimal surface of the Google Sheets API the store needs.
// It exists so SheetStore logic can be tested against a fake without a
// network round trip.
type sheetAPI interface {
	getValues(ctx context.Context, a1Range string) ([][]interface{}, error)
	batchUpdate(ctx context.Context, data []*sheets.ValueRange) error
	appendRow(ctx context.Context, a1Range string, row []interface{}) error
}

// googleSheetAPI implements sheetAPI against the real Sheets v4 service.
type googleSheetAPI struct {
	svc           *sheets.Service
	spreadsheetID string
}

func (g *googleSheetAPI) getValues(ctx context.Context, a1Range string) ([][]interface{}, error) {
	resp, err := g.svc.Spreadsheets.Values.Get(g.spreadsheetID, a1Range).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (g *googleSheetAPI) batchUpdate(ctx context.Context, data []*sheets.ValueRange) error {
	req := &sheets.BatchUpdateValuesRequest{
		ValueInputOption: "RAW",
		Data:             data,
	}
	_, err := g.svc.Spreadsheets.Values.BatchUpdate(g.spreadsheetID, req).Context(ctx).Do()
	return err
}

func (g *googleSheetAPI) appendRow(ctx context.Context, a1Range string, row []interface{}) error {
	vr := &sheets.ValueRange{Values: [][]interface{}{row}}
	_, err := g.svc.Spreadsheets.Values.Append(g.spreadsheetID, a1Range, vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	return err
}

// SheetStore implements UserStore against a Google spreadsheet tab.
// Every operation re-reads the full table: the sheet is small (one row per
// user) and operators edit it by hand, so no schema or position may be cached
// between calls.
type SheetStore struct {
	api       sheetAPI
	sheetName string
	logger    *slog.Logger
}

// NewSheetStore creates a SheetStore over the given Sheets service, bound to
// one spreadsheet tab.
func NewSheetStore(svc *sheets.Service, spreadsheetID, sheetName string, logger *slog.Logger) *SheetStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SheetStore{
		api:       &googleSheetAPI{svc: svc, spreadsheetID: spreadsheetID},
		sheetName: sheetName,
		logger:    logger,
	}
}

// newSheetStoreWithAPI wires a SheetStore to a caller-provided sheetAPI.
// Used by tests.
func newSheetStoreWithAPI(api sheetAPI, sheetName string, logger *slog.Logger) *SheetStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SheetStore{api: api, sheetName: sheetName, logger: logger}
}

// table is one full read of the sheet: the header row plus all data rows,
// normalized to strings.
type table struct {
	header []string
	idx    map[string]int
	rows   [][]string
}

// loadTable reads the whole sheet and splits it into header and data rows.
func (s *SheetStore) loadTable(ctx context.Context) (*table, error) {
	values, err := s.api.getValues(ctx, s.rangeRef(readRange))
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeStoreRead, "failed to read user sheet", err)
	}
	if len(values) == 0 {
		return nil, types.NewAppError(types.ErrCodeStoreRead, "user sheet has no header row", nil)
	}

	header := make([]string, len(values[0]))
	for i, v := range values[0] {
		header[i] = cellString(v)
	}

	rows := make([][]string, 0, len(values)-1)
	for _, raw := range values[1:] {
		row := make([]string, len(raw))
		for i, v := range raw {
			row[i] = cellString(v)
		}
		rows = append(rows, row)
	}

	return &table{header: header, idx: headerIndex(header), rows: rows}, nil
}

// findRow returns the record and zero-based data row index of the first row
// matching userID. The sheet is not supposed to contain duplicates; when it
// does, the extras are ignored and a warning is logged so operators can
// repair the sheet.
func (t *table) findRow(userID string) (types.UserRecord, int, bool) {
	uidCol, ok := t.idx[ColUserID]
	if !ok {
		return types.UserRecord{}, 0, false
	}
	found := -1
	var rec types.UserRecord
	for i, row := range t.rows {
		if uidCol >= len(row) || row[uidCol] != userID {
			continue
		}
		if found >= 0 {
			return rec, found, true // duplicate; caller logs
		}
		found = i
		rec = recordFromRow(t.idx, row)
	}
	if found < 0 {
		return types.UserRecord{}, 0, false
	}
	return rec, found, true
}

// FindByUserID scans all rows for the first exact match on user_id.
func (s *SheetStore) FindByUserID(ctx context.Context, userID string) (*types.UserRecord, bool, error) {
	t, err := s.loadTable(ctx)
	if err != nil {
		return nil, false, err
	}

	s.warnOnDuplicates(t, userID)

	rec, _, ok := t.findRow(userID)
	if !ok {
		return nil, false, nil
	}
	return &rec, true, nil
}

// SaveUsage writes the daily_count and last_used_date cells for the user's
// row. Columns missing from the header are skipped.
func (s *SheetStore) SaveUsage(ctx context.Context, userID string, count int, usedOn string) error {
	t, err := s.loadTable(ctx)
	if err != nil {
		return err
	}

	_, rowIdx, ok := t.findRow(userID)
	if !ok {
		return types.NewAppError(types.ErrCodeNotFoundUser, "no sheet row for user", nil)
	}

	updates := s.cellUpdates(t, rowIdx, map[string]string{
		ColDailyCount:   fmt.Sprintf("%d", count),
		ColLastUsedDate: usedOn,
	})
	if len(updates) == 0 {
		return nil
	}

	if err := s.api.batchUpdate(ctx, updates); err != nil {
		return types.NewAppError(types.ErrCodeStoreWrite, "failed to write usage cells", err)
	}
	return nil
}

// UpsertPlan updates the first row matching rec.UserID in place, or appends
// a new row ordered by the live header when none matches.
func (s *SheetStore) UpsertPlan(ctx context.Context, rec types.UserRecord) error {
	t, err := s.loadTable(ctx)
	if err != nil {
		return err
	}

	_, rowIdx, ok := t.findRow(rec.UserID)
	if !ok {
		row := rowFromRecord(t.header, rec)
		cells := make([]interface{}, len(row))
		for i, c := range row {
			cells[i] = c
		}
		if err := s.api.appendRow(ctx, s.rangeRef(readRange), cells); err != nil {
			return types.NewAppError(types.ErrCodeStoreWrite, "failed to append user row", err)
		}
		return nil
	}

	updates := s.cellUpdates(t, rowIdx, map[string]string{
		ColPlan:           string(rec.Plan),
		ColRegisteredDate: rec.RegisteredDate,
		ColExpireDate:     rec.ExpireDate,
		ColDailyCount:     fmt.Sprintf("%d", rec.DailyCount),
		ColLastUsedDate:   rec.LastUsedDate,
	})
	if len(updates) == 0 {
		return nil
	}

	if err := s.api.batchUpdate(ctx, updates); err != nil {
		return types.NewAppError(types.ErrCodeStoreWrite, "failed to update user row", err)
	}
	return nil
}

// Ping reads the header row to verify the sheet is reachable and non-empty.
func (s *SheetStore) Ping(ctx context.Context) error {
	values, err := s.api.getValues(ctx, s.rangeRef("A1:ZZ1"))
	if err != nil {
		return fmt.Errorf("sheet unreachable: %w", err)
	}
	if len(values) == 0 {
		return fmt.Errorf("sheet %q has no header row", s.sheetName)
	}
	return nil
}

// cellUpdates builds one single-cell ValueRange per column present in the
// header. rowIdx is the zero-based data row index; sheet rows are 1-based
// with the header occupying row 1.
func (s *SheetStore) cellUpdates(t *table, rowIdx int, cells map[string]string) []*sheets.ValueRange {
	sheetRow := rowIdx + 2
	var updates []*sheets.ValueRange
	for _, col := range []string{ColPlan, ColRegisteredDate, ColExpireDate, ColDailyCount, ColLastUsedDate} {
		value, wanted := cells[col]
		if !wanted {
			continue
		}
		colIdx, present := t.idx[col]
		if !present {
			continue // header does not carry this column
		}
		updates = append(updates, &sheets.ValueRange{
			Range:  s.rangeRef(fmt.Sprintf("%s%d", columnLetter(colIdx), sheetRow)),
			Values: [][]interface{}{{value}},
		})
	}
	return updates
}

// warnOnDuplicates logs when the sheet violates the one-row-per-user
// invariant. Behavior stays first-match-wins either way.
func (s *SheetStore) warnOnDuplicates(t *table, userID string) {
	uidCol, ok := t.idx[ColUserID]
	if !ok {
		return
	}
	n := 0
	for _, row := range t.rows {
		if uidCol < len(row) && row[uidCol] == userID {
			n++
		}
	}
	if n > 1 {
		s.logger.Warn("duplicate rows for user in sheet",
			"user_id", userID,
			"rows", n,
		)
	}
}

// rangeRef qualifies an A1 range with the sheet (tab) name.
func (s *SheetStore) rangeRef(a1 string) string {
	return fmt.Sprintf("'%s'!%s", s.sheetName, a1)
}

// columnLetter converts a zero-based column index to its A1 letter form
// (0 -> A, 25 -> Z, 26 -> AA).
func columnLetter(idx int) string {
	letters := ""
	for idx >= 0 {
		letters = string(rune('A'+idx%26)) + letters
		idx = idx/26 - 1
	}
	return letters
}

// cellString normalizes a raw API cell value to a trimmed string.
func cellString(v interface{}) string {
	switch c := v.(type) {
	case string:
		return c
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", c)
	}
}

// Compile-time assertion that SheetStore satisfies UserStore.
var _ UserStore = (*SheetStore)(nil)
