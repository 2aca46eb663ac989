package store

import (
	"context"
	"errors"
	"testing"

	"plangate/internal/types"
)

func TestMemStore_FindByUserID_NotFound(t *testing.T) {
	m := NewMemStore(nil)

	rec, found, err := m.FindByUserID(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("FindByUserID returned error: %v", err)
	}
	if found {
		t.Fatalf("found = true for empty store, rec = %+v", rec)
	}
}

func TestMemStore_SeedAndFind(t *testing.T) {
	m := NewMemStore(nil)
	m.Seed(types.UserRecord{
		UserID:         "u1",
		Plan:           types.PlanStandard,
		DailyCount:     2,
		LastUsedDate:   "2026-03-14",
		RegisteredDate: "2026-03-01",
		ExpireDate:     "2026-03-31",
	})

	rec, found, err := m.FindByUserID(context.Background(), "u1")
	if err != nil {
		t.Fatalf("FindByUserID returned error: %v", err)
	}
	if !found {
		t.Fatal("found = false, want true")
	}
	if rec.Plan != types.PlanStandard || rec.DailyCount != 2 || rec.ExpireDate != "2026-03-31" {
		t.Errorf("record round trip mismatch: %+v", rec)
	}
}

func TestMemStore_FindIsCaseSensitiveAndExact(t *testing.T) {
	m := NewMemStore(nil)
	m.Seed(types.UserRecord{UserID: "User-1"})

	for _, probe := range []string{"user-1", "User-1 ", "User"} {
		if _, found, _ := m.FindByUserID(context.Background(), probe); found {
			t.Errorf("probe %q matched, want exact match only", probe)
		}
	}
}

func TestMemStore_FirstMatchWins(t *testing.T) {
	m := NewMemStore(nil)
	m.Seed(types.UserRecord{UserID: "dup", Plan: types.PlanTrial})
	m.Seed(types.UserRecord{UserID: "dup", Plan: types.PlanStandard})

	rec, found, err := m.FindByUserID(context.Background(), "dup")
	if err != nil || !found {
		t.Fatalf("FindByUserID = (%v, %v), want found", err, found)
	}
	if rec.Plan != types.PlanTrial {
		t.Errorf("Plan = %q, want first row's %q", rec.Plan, types.PlanTrial)
	}
}

func TestMemStore_SaveUsage(t *testing.T) {
	m := NewMemStore(nil)
	m.Seed(types.UserRecord{UserID: "u1", Plan: types.PlanFree, DailyCount: 0, LastUsedDate: "2026-03-14"})

	if err := m.SaveUsage(context.Background(), "u1", 1, "2026-03-15"); err != nil {
		t.Fatalf("SaveUsage returned error: %v", err)
	}

	rec, _, _ := m.FindByUserID(context.Background(), "u1")
	if rec.DailyCount != 1 || rec.LastUsedDate != "2026-03-15" {
		t.Errorf("after SaveUsage: count=%d date=%q, want 1 / 2026-03-15", rec.DailyCount, rec.LastUsedDate)
	}
	// Untouched cells survive.
	if rec.Plan != types.PlanFree {
		t.Errorf("Plan changed to %q", rec.Plan)
	}
}

func TestMemStore_SaveUsage_UserNotFound(t *testing.T) {
	m := NewMemStore(nil)

	err := m.SaveUsage(context.Background(), "ghost", 1, "2026-03-15")
	var appErr *types.AppError
	if !errors.As(err, &appErr) || appErr.Code != types.ErrCodeNotFoundUser {
		t.Fatalf("SaveUsage error = %v, want AppError %s", err, types.ErrCodeNotFoundUser)
	}
}

func TestMemStore_UpsertPlan_AppendsWhenMissing(t *testing.T) {
	m := NewMemStore(nil)

	err := m.UpsertPlan(context.Background(), types.UserRecord{
		UserID:         "new-user",
		Plan:           types.PlanTrial,
		RegisteredDate: "2026-03-15",
		ExpireDate:     "2026-03-22",
	})
	if err != nil {
		t.Fatalf("UpsertPlan returned error: %v", err)
	}

	rows := m.Rows()
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	rec, found, _ := m.FindByUserID(context.Background(), "new-user")
	if !found || rec.Plan != types.PlanTrial || rec.ExpireDate != "2026-03-22" {
		t.Errorf("appended record mismatch: found=%v rec=%+v", found, rec)
	}
}

func TestMemStore_UpsertPlan_UpdatesInPlace(t *testing.T) {
	m := NewMemStore(nil)
	m.Seed(types.UserRecord{
		UserID: "u1", Plan: types.PlanTrial, DailyCount: 1,
		LastUsedDate: "2026-03-10", RegisteredDate: "2026-03-01", ExpireDate: "2026-03-08",
	})

	err := m.UpsertPlan(context.Background(), types.UserRecord{
		UserID: "u1", Plan: types.PlanStandard, DailyCount: 0,
		LastUsedDate: "2026-03-15", RegisteredDate: "2026-03-15", ExpireDate: "2026-04-14",
	})
	if err != nil {
		t.Fatalf("UpsertPlan returned error: %v", err)
	}

	if rows := m.Rows(); len(rows) != 1 {
		t.Fatalf("rows = %d, want 1 (update, not append)", len(rows))
	}
	rec, _, _ := m.FindByUserID(context.Background(), "u1")
	if rec.Plan != types.PlanStandard || rec.DailyCount != 0 || rec.ExpireDate != "2026-04-14" {
		t.Errorf("updated record mismatch: %+v", rec)
	}
}

func TestMemStore_CustomHeaderOrderRespected(t *testing.T) {
	// Columns reordered relative to DefaultHeader; lookups go by name.
	m := NewMemStore([]string{ColExpireDate, ColUserID, ColDailyCount, ColPlan, ColLastUsedDate, ColRegisteredDate})
	m.Seed(types.UserRecord{UserID: "u1", Plan: types.PlanFree, ExpireDate: "2026-04-01"})

	rec, found, _ := m.FindByUserID(context.Background(), "u1")
	if !found {
		t.Fatal("found = false with reordered header")
	}
	if rec.ExpireDate != "2026-04-01" || rec.Plan != types.PlanFree {
		t.Errorf("record mismatch with reordered header: %+v", rec)
	}

	row := m.Rows()[0]
	if row[0] != "2026-04-01" || row[1] != "u1" {
		t.Errorf("row not in header order: %v", row)
	}
}

func TestMemStore_MissingColumnsSkippedOnWrite(t *testing.T) {
	// A sheet without registered_date/expire_date columns still accepts
	// upserts; the unknown cells are dropped.
	m := NewMemStore([]string{ColUserID, ColPlan, ColDailyCount, ColLastUsedDate})

	err := m.UpsertPlan(context.Background(), types.UserRecord{
		UserID: "u1", Plan: types.PlanStandard, ExpireDate: "2026-04-14",
	})
	if err != nil {
		t.Fatalf("UpsertPlan returned error: %v", err)
	}

	rec, found, _ := m.FindByUserID(context.Background(), "u1")
	if !found || rec.Plan != types.PlanStandard {
		t.Fatalf("record mismatch: found=%v rec=%+v", found, rec)
	}
	if rec.ExpireDate != "" {
		t.Errorf("ExpireDate = %q, want empty (column absent)", rec.ExpireDate)
	}
}

func TestMemStore_Ping(t *testing.T) {
	if err := NewMemStore(nil).Ping(context.Background()); err != nil {
		t.Fatalf("Ping returned error: %v", err)
	}
}

func TestParseCount(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"0", 0},
		{"3", 3},
		{"-1", 0},
		{"abc", 0},
		{"2.5", 0},
	}
	for _, tc := range cases {
		if got := parseCount(tc.in); got != tc.want {
			t.Errorf("parseCount(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestHeaderIndex_DuplicatesAndBlanks(t *testing.T) {
	idx := headerIndex([]string{ColUserID, "", ColPlan, ColUserID, " plan "})
	if idx[ColUserID] != 0 {
		t.Errorf("user_id index = %d, want 0 (first occurrence wins)", idx[ColUserID])
	}
	if idx[ColPlan] != 2 {
		t.Errorf("plan index = %d, want 2", idx[ColPlan])
	}
	if _, ok := idx[""]; ok {
		t.Error("blank header cell should not be indexed")
	}
}
