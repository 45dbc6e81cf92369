package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/warp/kpi-engine/kpi"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to open in-memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedOwner(t *testing.T, s *Store) kpi.User {
	t.Helper()
	u := kpi.User{ID: "user-1", Name: "Anna", Email: "anna@example.com", CreatedAt: time.Now()}
	if err := s.SaveUser(context.Background(), u); err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return u
}

func seedKPI(t *testing.T, s *Store, id string, interval kpi.Interval) kpi.KPI {
	t.Helper()
	k := kpi.KPI{ID: id, Name: "Umsatz", Interval: interval, OwnerID: "user-1", Unit: "EUR", CreatedAt: time.Now()}
	if err := s.SaveKPI(context.Background(), k); err != nil {
		t.Fatalf("failed to seed kpi: %v", err)
	}
	return k
}

// =============================================================================
// USERS
// =============================================================================

func TestUserRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// GIVEN a saved user
	seedOwner(t, s)

	// WHEN loading it back
	got, err := s.GetUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// THEN the fields survive
	if got.Name != "Anna" || got.Email != "anna@example.com" || got.Admin {
		t.Errorf("unexpected user: %+v", got)
	}

	// AND an unknown id maps to the sentinel
	if _, err := s.GetUser(ctx, "nobody"); !errors.Is(err, kpi.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestListAdministrators(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedOwner(t, s)
	if err := s.SaveUser(ctx, kpi.User{ID: "admin-1", Name: "Otto", Email: "otto@example.com", Admin: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	admins, err := s.ListAdministrators(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(admins) != 1 || admins[0].ID != "admin-1" {
		t.Errorf("expected only admin-1, got %+v", admins)
	}
}

// =============================================================================
// KPIS
// =============================================================================

func TestKpiRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedOwner(t, s)
	target, _ := kpi.ParseDecimalValue("100,5")
	k := kpi.KPI{
		ID: "kpi-1", Name: "Umsatz", Interval: kpi.IntervalMonthly,
		Target: &target, Unit: "EUR", OwnerID: "user-1", CreatedAt: time.Now(),
	}
	if err := s.SaveKPI(ctx, k); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := s.GetKPI(ctx, "kpi-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Interval != kpi.IntervalMonthly {
		t.Errorf("expected monthly interval, got %q", got.Interval)
	}
	if got.Target == nil || got.Target.Canonical() != "100.50" {
		t.Errorf("expected target 100.50, got %+v", got.Target)
	}

	if _, err := s.GetKPI(ctx, "ghost"); !errors.Is(err, kpi.ErrKpiNotFound) {
		t.Errorf("expected ErrKpiNotFound, got %v", err)
	}
}

func TestKpiWithCorruptIntervalStillLoads(t *testing.T) {
	// A row with an out-of-set cadence must load so the status engine can
	// take its degraded path instead of the KPI silently vanishing.
	s := newTestStore(t)
	ctx := context.Background()

	seedOwner(t, s)
	k := kpi.KPI{ID: "kpi-x", Name: "Kaputt", Interval: kpi.Interval("fortnightly"), OwnerID: "user-1"}
	if err := s.SaveKPI(ctx, k); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := s.GetKPI(ctx, "kpi-x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Interval.Valid() {
		t.Errorf("expected invalid interval to round-trip as-is, got %q", got.Interval)
	}
}

func TestDeleteKpiRemovesValues(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedOwner(t, s)
	seedKPI(t, s, "kpi-1", kpi.IntervalMonthly)
	p, _ := kpi.ParsePeriod("2024-09")
	amount, _ := kpi.ParseDecimalValue("10")
	if err := s.SaveValue(ctx, kpi.Value{ID: "v1", KpiID: "kpi-1", Period: p, Amount: amount}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := s.DeleteKPI(ctx, "kpi-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	values, err := s.ListValues(ctx, "kpi-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(values) != 0 {
		t.Errorf("expected values to be deleted with the kpi, got %d", len(values))
	}

	if err := s.DeleteKPI(ctx, "kpi-1"); !errors.Is(err, kpi.ErrKpiNotFound) {
		t.Errorf("expected ErrKpiNotFound on second delete, got %v", err)
	}
}

// =============================================================================
// VALUES
// =============================================================================

func TestSaveValueEnforcesOnePerPeriod(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedOwner(t, s)
	seedKPI(t, s, "kpi-1", kpi.IntervalMonthly)
	p, _ := kpi.ParsePeriod("2024-09")
	amount, _ := kpi.ParseDecimalValue("10")

	if err := s.SaveValue(ctx, kpi.Value{ID: "v1", KpiID: "kpi-1", Period: p, Amount: amount}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Second value for the same period is rejected, regardless of amount.
	other, _ := kpi.ParseDecimalValue("99")
	err := s.SaveValue(ctx, kpi.Value{ID: "v2", KpiID: "kpi-1", Period: p, Amount: other})
	if !errors.Is(err, kpi.ErrDuplicateValue) {
		t.Fatalf("expected ErrDuplicateValue, got %v", err)
	}
	var dup *kpi.DuplicateValueError
	if !errors.As(err, &dup) || dup.Period.String() != "2024-09" {
		t.Errorf("expected structured duplicate error for 2024-09, got %v", err)
	}

	// The same period in unpadded spelling hits the same unique index.
	unpadded, _ := kpi.ParsePeriod("2024-9")
	err = s.SaveValue(ctx, kpi.Value{ID: "v3", KpiID: "kpi-1", Period: unpadded, Amount: other})
	if !errors.Is(err, kpi.ErrDuplicateValue) {
		t.Errorf("expected unpadded period to collide with canonical form, got %v", err)
	}
}

func TestSaveValueRejectsMismatchedCadence(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedOwner(t, s)
	seedKPI(t, s, "kpi-1", kpi.IntervalMonthly)
	amount, _ := kpi.ParseDecimalValue("10")

	// A well-formed week period on a monthly KPI would pass the unique index
	// but never be seen by the status engine.
	week, _ := kpi.ParsePeriod("2024-W38")
	err := s.SaveValue(ctx, kpi.Value{ID: "v1", KpiID: "kpi-1", Period: week, Amount: amount})
	if !errors.Is(err, kpi.ErrPeriodMismatch) {
		t.Fatalf("expected ErrPeriodMismatch, got %v", err)
	}
	var mismatch *kpi.PeriodMismatchError
	if !errors.As(err, &mismatch) || mismatch.Interval != kpi.IntervalMonthly {
		t.Errorf("expected structured mismatch error, got %v", err)
	}

	has, err := s.HasValueForPeriod(ctx, "kpi-1", week)
	if err != nil || has {
		t.Errorf("rejected value must not be stored, got has=%v err=%v", has, err)
	}

	// A KPI with a corrupt cadence carries nothing to check against; values
	// still record so the degraded path keeps working.
	seedKPI(t, s, "kpi-x", kpi.Interval("fortnightly"))
	p, _ := kpi.ParsePeriod("2024-09")
	if err := s.SaveValue(ctx, kpi.Value{ID: "v2", KpiID: "kpi-x", Period: p, Amount: amount}); err != nil {
		t.Errorf("expected degraded kpi to accept values, got %v", err)
	}
}

func TestSaveValueRequiresKpi(t *testing.T) {
	s := newTestStore(t)
	p, _ := kpi.ParsePeriod("2024-09")
	amount, _ := kpi.ParseDecimalValue("10")
	err := s.SaveValue(context.Background(), kpi.Value{ID: "v1", KpiID: "ghost", Period: p, Amount: amount})
	if !errors.Is(err, kpi.ErrKpiNotFound) {
		t.Errorf("expected ErrKpiNotFound, got %v", err)
	}
}

func TestHasValueForPeriod(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedOwner(t, s)
	seedKPI(t, s, "kpi-1", kpi.IntervalMonthly)
	p, _ := kpi.ParsePeriod("2024-09")
	amount, _ := kpi.ParseDecimalValue("12,5")
	if err := s.SaveValue(ctx, kpi.Value{ID: "v1", KpiID: "kpi-1", Period: p, Amount: amount}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	has, err := s.HasValueForPeriod(ctx, "kpi-1", p)
	if err != nil || !has {
		t.Errorf("expected value for 2024-09, got has=%v err=%v", has, err)
	}

	next, _ := kpi.ParsePeriod("2024-10")
	has, err = s.HasValueForPeriod(ctx, "kpi-1", next)
	if err != nil || has {
		t.Errorf("expected no value for 2024-10, got has=%v err=%v", has, err)
	}
}

func TestListValuesCanonicalForms(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedOwner(t, s)
	seedKPI(t, s, "kpi-1", kpi.IntervalMonthly)
	p, _ := kpi.ParsePeriod("2024-09")
	amount, _ := kpi.ParseDecimalValue("1234,5")
	if err := s.SaveValue(ctx, kpi.Value{ID: "v1", KpiID: "kpi-1", Period: p, Amount: amount}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	values, err := s.ListValues(ctx, "kpi-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(values) != 1 {
		t.Fatalf("expected 1 value, got %d", len(values))
	}
	if values[0].Period.String() != "2024-09" {
		t.Errorf("expected canonical period, got %q", values[0].Period.String())
	}
	if values[0].Amount.Canonical() != "1234.50" {
		t.Errorf("expected canonical amount 1234.50, got %q", values[0].Amount.Canonical())
	}
}

func TestCorruptCreatedAtIsSurfaced(t *testing.T) {
	// Corrupt timestamps are reported like corrupt periods and amounts, not
	// silently zeroed.
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.db.Exec(
		`INSERT INTO users (id, name, email, is_admin, created_at) VALUES (?, ?, ?, ?, ?)`,
		"user-bad", "Anna", "anna@example.com", false, "not-a-timestamp")
	if err != nil {
		t.Fatalf("failed to insert corrupt row: %v", err)
	}

	if _, err := s.GetUser(ctx, "user-bad"); err == nil {
		t.Errorf("expected error for corrupt created_at, got nil")
	}

	_, err = s.db.Exec(
		`INSERT INTO kpis (id, name, interval, owner_id, created_at) VALUES (?, ?, ?, ?, ?)`,
		"kpi-bad", "Umsatz", "monthly", "user-bad", "not-a-timestamp")
	if err != nil {
		t.Fatalf("failed to insert corrupt row: %v", err)
	}

	if _, err := s.GetKPI(ctx, "kpi-bad"); err == nil {
		t.Errorf("expected error for corrupt created_at, got nil")
	}
}

// =============================================================================
// REMINDER RUNS
// =============================================================================

func TestReminderRunGuard(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// GIVEN no runs, the guard is open
	has, err := s.HasRunForDay(ctx, "2024-09-08")
	if err != nil || has {
		t.Fatalf("expected no run yet, got has=%v err=%v", has, err)
	}

	// WHEN a run starts but has not completed
	run := ReminderRun{ID: "run-1", RanAt: time.Now(), RunDay: "2024-09-08", Status: "running"}
	if err := s.SaveReminderRun(ctx, run); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	has, _ = s.HasRunForDay(ctx, "2024-09-08")
	if has {
		t.Errorf("a running run must not close the guard")
	}

	// THEN completing it (same id, upsert) closes the guard for that day only
	run.Status = "completed"
	run.Evaluated = 12
	run.Reminders = 3
	if err := s.SaveReminderRun(ctx, run); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	has, _ = s.HasRunForDay(ctx, "2024-09-08")
	if !has {
		t.Errorf("a completed run must close the guard")
	}
	has, _ = s.HasRunForDay(ctx, "2024-09-09")
	if has {
		t.Errorf("the guard is per-day")
	}

	runs, err := s.ListReminderRuns(ctx, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runs) != 1 || runs[0].Evaluated != 12 || runs[0].Reminders != 3 || runs[0].Status != "completed" {
		t.Errorf("unexpected audit trail: %+v", runs)
	}
}
