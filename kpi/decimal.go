package kpi

import (
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DECIMAL VALUE - Normalized fixed-point metric value
// =============================================================================

// DecimalValue is a recorded metric value, normalized to fixed-point with two
// fractional digits. Construction accepts both comma and dot as the decimal
// separator; the canonical storage form uses a dot, the display form a comma.
//
// Uses decimal.Decimal to avoid floating-point drift between what the user
// typed and what is stored (same policy as monetary amounts).
type DecimalValue struct {
	d decimal.Decimal
}

// ParseDecimalValue normalizes raw user input: trims whitespace, accepts
// either "," or "." as the fractional separator, rounds half-up to two
// fractional digits. Non-numeric input is rejected with ErrInvalidDecimalFormat.
func ParseDecimalValue(raw string) (DecimalValue, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return DecimalValue{}, &InvalidDecimalError{Raw: raw}
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return DecimalValue{}, &InvalidDecimalError{Raw: raw}
	}
	return DecimalValue{d: d.Round(2)}, nil
}

// NewDecimalValue constructs a value from a float, rounded to two digits.
func NewDecimalValue(f float64) DecimalValue {
	return DecimalValue{d: decimal.NewFromFloat(f).Round(2)}
}

// Canonical returns the storage form: dot separator, two fractional digits.
func (v DecimalValue) Canonical() string { return v.d.StringFixed(2) }

// Display returns the German display form: comma separator.
func (v DecimalValue) Display() string {
	return strings.ReplaceAll(v.Canonical(), ".", ",")
}

// Float64 returns the rounded value as a float.
func (v DecimalValue) Float64() float64 {
	f, _ := v.d.Float64()
	return f
}

func (v DecimalValue) Equal(other DecimalValue) bool { return v.d.Equal(other.d) }
func (v DecimalValue) IsZero() bool                  { return v.d.IsZero() }
func (v DecimalValue) String() string                { return v.Canonical() }
