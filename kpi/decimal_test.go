package kpi_test

import (
	"errors"
	"testing"

	"github.com/warp/kpi-engine/kpi"
)

func TestParseDecimalValue_AcceptsCommaAndDot(t *testing.T) {
	comma, err := kpi.ParseDecimalValue("123,45")
	if err != nil {
		t.Fatalf("comma input failed: %v", err)
	}
	dot, err := kpi.ParseDecimalValue("123.45")
	if err != nil {
		t.Fatalf("dot input failed: %v", err)
	}
	if !comma.Equal(dot) {
		t.Errorf("comma and dot input should normalize identically: %s vs %s", comma, dot)
	}
	if comma.Canonical() != "123.45" {
		t.Errorf("canonical form = %q, want 123.45", comma.Canonical())
	}
	if comma.Display() != "123,45" {
		t.Errorf("display form = %q, want 123,45", comma.Display())
	}
}

func TestParseDecimalValue_RoundsToTwoDigits(t *testing.T) {
	v, err := kpi.ParseDecimalValue("123,456789")
	if err != nil {
		t.Fatal(err)
	}
	if v.Float64() != 123.46 {
		t.Errorf("rounded value = %v, want 123.46", v.Float64())
	}
}

func TestParseDecimalValue_TrimsWhitespace(t *testing.T) {
	v, err := kpi.ParseDecimalValue("  42,5 ")
	if err != nil {
		t.Fatal(err)
	}
	if v.Canonical() != "42.50" {
		t.Errorf("canonical = %q, want 42.50", v.Canonical())
	}
}

func TestParseDecimalValue_RejectsNonNumeric(t *testing.T) {
	for _, s := range []string{"abc", "", "   ", "12,34,56", "1.2.3", "12a"} {
		_, err := kpi.ParseDecimalValue(s)
		if err == nil {
			t.Errorf("ParseDecimalValue(%q) should fail", s)
			continue
		}
		if !errors.Is(err, kpi.ErrInvalidDecimalFormat) {
			t.Errorf("ParseDecimalValue(%q) error should wrap ErrInvalidDecimalFormat, got %v", s, err)
		}
	}
}

func TestParseDecimalValue_IdempotentConstruction(t *testing.T) {
	a, _ := kpi.ParseDecimalValue("99,90")
	b, _ := kpi.ParseDecimalValue("99,90")
	if !a.Equal(b) || a.Canonical() != b.Canonical() {
		t.Errorf("same input should yield equal values: %s vs %s", a, b)
	}
}

func TestDecimalValue_NegativeAndInteger(t *testing.T) {
	neg, err := kpi.ParseDecimalValue("-7,5")
	if err != nil {
		t.Fatal(err)
	}
	if neg.Canonical() != "-7.50" {
		t.Errorf("canonical = %q, want -7.50", neg.Canonical())
	}

	whole, err := kpi.ParseDecimalValue("100")
	if err != nil {
		t.Fatal(err)
	}
	if whole.Canonical() != "100.00" {
		t.Errorf("canonical = %q, want 100.00", whole.Canonical())
	}
}
