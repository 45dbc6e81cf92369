/*
errors.go - Centralized error types for the KPI engine

PURPOSE:
  All error types of the core in one place for consistency and discoverability.
  Surrounding layers (API, store) wrap these errors with additional context.

ERROR CATEGORIES:
  1. Validation errors - Malformed periods, decimal values, cadences
  2. Store errors - Missing or duplicate records

USAGE:
  Callers branch with errors.Is / errors.As:

    if errors.Is(err, kpi.ErrInvalidPeriodFormat) {
        // reject the form input, ask for correction
    }

SEE ALSO:
  - period.go: Raises ErrInvalidPeriodFormat
  - decimal.go: Raises ErrInvalidDecimalFormat
  - interval.go: Raises ErrUnknownInterval
*/
package kpi

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidPeriodFormat is returned when a period string does not match
	// any of the canonical patterns or violates the numeric bounds.
	// Always recoverable: reject the input and ask for correction.
	ErrInvalidPeriodFormat = errors.New("invalid period format")

	// ErrInvalidDecimalFormat is returned when a value string is not numeric.
	ErrInvalidDecimalFormat = errors.New("invalid decimal format")

	// ErrUnknownInterval is returned for a cadence outside the closed set.
	// Indicates upstream data corruption rather than user error.
	ErrUnknownInterval = errors.New("unknown interval")

	// ErrKpiNotFound is returned when a referenced KPI doesn't exist.
	ErrKpiNotFound = errors.New("kpi not found")

	// ErrUserNotFound is returned when a referenced user doesn't exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrDuplicateValue is returned when recording a second value for the
	// same (KPI, period) pair. One value per reporting period is an invariant.
	ErrDuplicateValue = errors.New("value already recorded for period")

	// ErrPeriodMismatch is returned when a period's cadence does not match
	// the KPI it is recorded against (e.g. a week period on a monthly KPI).
	// Such a value would pass the unique index but never be seen by the
	// status engine, so it is rejected up front.
	ErrPeriodMismatch = errors.New("period does not match kpi interval")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidPeriodError reports the rejected input and the reason.
type InvalidPeriodError struct {
	Raw    string
	Reason string
}

func (e *InvalidPeriodError) Error() string {
	return fmt.Sprintf("invalid period %q: %s", e.Raw, e.Reason)
}

func (e *InvalidPeriodError) Unwrap() error { return ErrInvalidPeriodFormat }

// InvalidDecimalError reports the rejected numeric input.
type InvalidDecimalError struct {
	Raw string
}

func (e *InvalidDecimalError) Error() string {
	return fmt.Sprintf("invalid decimal value %q", e.Raw)
}

func (e *InvalidDecimalError) Unwrap() error { return ErrInvalidDecimalFormat }

// UnknownIntervalError reports a cadence outside the closed set, optionally
// with the KPI it was found on.
type UnknownIntervalError struct {
	Raw   string
	KpiID string
}

func (e *UnknownIntervalError) Error() string {
	if e.KpiID != "" {
		return fmt.Sprintf("unknown interval %q on kpi %s", e.Raw, e.KpiID)
	}
	return fmt.Sprintf("unknown interval %q", e.Raw)
}

func (e *UnknownIntervalError) Unwrap() error { return ErrUnknownInterval }

// DuplicateValueError reports a violation of the one-value-per-period invariant.
type DuplicateValueError struct {
	KpiID  string
	Period Period
}

func (e *DuplicateValueError) Error() string {
	return fmt.Sprintf("kpi %s already has a value for %s", e.KpiID, e.Period)
}

func (e *DuplicateValueError) Unwrap() error { return ErrDuplicateValue }

// PeriodMismatchError reports a period recorded against a KPI of a different
// cadence.
type PeriodMismatchError struct {
	KpiID    string
	Period   Period
	Interval Interval
}

func (e *PeriodMismatchError) Error() string {
	return fmt.Sprintf("period %s does not match %s interval of kpi %s", e.Period, e.Interval, e.KpiID)
}

func (e *PeriodMismatchError) Unwrap() error { return ErrPeriodMismatch }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidPeriodFormat) ||
		errors.Is(err, ErrInvalidDecimalFormat) ||
		errors.Is(err, ErrDuplicateValue) ||
		errors.Is(err, ErrPeriodMismatch)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrKpiNotFound) ||
		errors.Is(err, ErrUserNotFound)
}
