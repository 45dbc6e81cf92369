package store

import (
	"context"
	"errors"
	"testing"

	"github.com/warp/kpi-engine/kpi"
)

func TestMemorySaveValueRejectsDuplicatePeriod(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if err := m.SaveKPI(ctx, kpi.KPI{ID: "kpi-1", Interval: kpi.IntervalMonthly}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p, _ := kpi.ParsePeriod("2024-09")
	amount, _ := kpi.ParseDecimalValue("10")
	if err := m.SaveValue(ctx, kpi.Value{ID: "v1", KpiID: "kpi-1", Period: p, Amount: amount}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Same period, unpadded spelling: still a duplicate after normalization.
	unpadded, _ := kpi.ParsePeriod("2024-9")
	err := m.SaveValue(ctx, kpi.Value{ID: "v2", KpiID: "kpi-1", Period: unpadded, Amount: amount})
	if !errors.Is(err, kpi.ErrDuplicateValue) {
		t.Errorf("expected ErrDuplicateValue, got %v", err)
	}

	// Unknown KPI is rejected up front.
	err = m.SaveValue(ctx, kpi.Value{ID: "v3", KpiID: "ghost", Period: p, Amount: amount})
	if !errors.Is(err, kpi.ErrKpiNotFound) {
		t.Errorf("expected ErrKpiNotFound, got %v", err)
	}
}

func TestMemorySaveValueRejectsMismatchedCadence(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if err := m.SaveKPI(ctx, kpi.KPI{ID: "kpi-1", Interval: kpi.IntervalMonthly}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	amount, _ := kpi.ParseDecimalValue("10")
	week, _ := kpi.ParsePeriod("2024-W38")
	err := m.SaveValue(ctx, kpi.Value{ID: "v1", KpiID: "kpi-1", Period: week, Amount: amount})
	if !errors.Is(err, kpi.ErrPeriodMismatch) {
		t.Errorf("expected ErrPeriodMismatch for week period on monthly kpi, got %v", err)
	}

	has, err := m.HasValueForPeriod(ctx, "kpi-1", week)
	if err != nil || has {
		t.Errorf("rejected value must not be stored, got has=%v err=%v", has, err)
	}
}

func TestMemoryListValuesOrderedByPeriod(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if err := m.SaveKPI(ctx, kpi.KPI{ID: "kpi-1", Interval: kpi.IntervalMonthly}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	amount, _ := kpi.ParseDecimalValue("1")
	for i, raw := range []string{"2024-10", "2024-08", "2024-09"} {
		p, _ := kpi.ParsePeriod(raw)
		if err := m.SaveValue(ctx, kpi.Value{ID: string(rune('a' + i)), KpiID: "kpi-1", Period: p, Amount: amount}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	values, err := m.ListValues(ctx, "kpi-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, want := range []string{"2024-08", "2024-09", "2024-10"} {
		if values[i].Period.String() != want {
			t.Errorf("position %d: expected %s, got %s", i, want, values[i].Period.String())
		}
	}
}

func TestMemoryAdministrators(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	m.SaveUser(ctx, kpi.User{ID: "u1", Name: "Anna"})
	m.SaveUser(ctx, kpi.User{ID: "u2", Name: "Otto", Admin: true})

	admins, err := m.ListAdministrators(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(admins) != 1 || admins[0].ID != "u2" {
		t.Errorf("expected only u2, got %+v", admins)
	}
}
