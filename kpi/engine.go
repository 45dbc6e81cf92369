/*
engine.go - Due-date and status derivation

PURPOSE:
  Turns (cadence, now) into the next due date and (KPI, now) into the
  GREEN/YELLOW/RED traffic-light status. All functions are pure given their
  inputs; "now" is passed explicitly so one evaluation pass sees a single
  consistent instant across the whole KPI population.

DUE-DATE RULES:
  WEEKLY     next Monday strictly after now (a Monday advances a full week)
  MONTHLY    first day of the following calendar month
  QUARTERLY  first day of the following quarter

STATUS RULES:
  1. Value recorded for the current period           → GREEN
  2. No value, due date <= WarningDays away          → YELLOW
  3. Otherwise                                       → RED

DEGRADED PATH:
  A KPI whose cadence is outside the closed set must not crash the engine:
  the due date falls back to now+7d and the period to the plain date form.
  This indicates upstream data corruption and is logged as a warning.

SEE ALSO:
  - status.go: Status and StatusTransition types
  - reminder/policy.go: Consumes NextDueDate / LastDueDate for the decision table
*/
package kpi

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"
)

// DefaultWarningDays is how many days before the due date an unrecorded KPI
// turns YELLOW. Fixed policy constant in the product, configurable here.
const DefaultWarningDays = 3

// StatusEngine derives due dates and traffic-light status.
type StatusEngine struct {
	WarningDays int
	Log         zerolog.Logger
}

// NewStatusEngine returns an engine with the default warning threshold and a
// no-op logger.
func NewStatusEngine() *StatusEngine {
	return &StatusEngine{WarningDays: DefaultWarningDays, Log: zerolog.Nop()}
}

// Evaluation is the full derived state of one KPI at one instant.
type Evaluation struct {
	Status        Status
	CurrentPeriod Period
	NextDue       time.Time
	HasValue      bool
}

// NextDueDate returns the next calendar boundary strictly after now by which
// a value must be recorded.
func (e *StatusEngine) NextDueDate(interval Interval, now time.Time) time.Time {
	day := startOfDay(now)
	switch interval {
	case IntervalWeekly:
		offset := (int(time.Monday) - int(day.Weekday()) + 7) % 7
		if offset == 0 {
			// "next monday" semantics: a Monday advances a full week
			offset = 7
		}
		return day.AddDate(0, 0, offset)
	case IntervalMonthly:
		return time.Date(day.Year(), day.Month()+1, 1, 0, 0, 0, 0, day.Location())
	case IntervalQuarterly:
		quarter := (int(day.Month()) - 1) / 3
		return time.Date(day.Year(), time.Month(quarter*3+4), 1, 0, 0, 0, 0, day.Location())
	default:
		return day.AddDate(0, 0, 7)
	}
}

// LastDueDate returns the most recent boundary at or before now: the due date
// of the current, possibly unmet period. Used by the reminder policy to count
// how many whole days a KPI is overdue.
func (e *StatusEngine) LastDueDate(interval Interval, now time.Time) time.Time {
	day := startOfDay(now)
	switch interval {
	case IntervalWeekly:
		offset := (int(day.Weekday()) - int(time.Monday) + 7) % 7
		return day.AddDate(0, 0, -offset)
	case IntervalMonthly:
		return time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location())
	case IntervalQuarterly:
		quarter := (int(day.Month()) - 1) / 3
		return time.Date(day.Year(), time.Month(quarter*3+1), 1, 0, 0, 0, 0, day.Location())
	default:
		return day
	}
}

// Evaluate derives the full status of one KPI at the given instant.
// The only fallible step is the store lookup; a malformed cadence takes the
// degraded path instead of failing.
func (e *StatusEngine) Evaluate(ctx context.Context, src ValueSource, k KPI, now time.Time) (Evaluation, error) {
	if !k.Interval.Valid() {
		e.Log.Warn().
			Str("kpi", k.ID).
			Str("interval", string(k.Interval)).
			Msg("kpi has unknown interval, using degraded fallback")
	}

	current := CurrentPeriod(k.Interval, now)
	has, err := src.HasValueForPeriod(ctx, k.ID, current)
	if err != nil {
		return Evaluation{}, err
	}

	eval := Evaluation{
		CurrentPeriod: current,
		NextDue:       e.NextDueDate(k.Interval, now),
		HasValue:      has,
	}

	switch {
	case has:
		eval.Status = StatusGreen
	case DaysBetween(now, eval.NextDue) <= e.warningDays():
		eval.Status = StatusYellow
	default:
		eval.Status = StatusRed
	}
	return eval, nil
}

// Transition evaluates the same KPI at two instants and returns the observed
// status pair.
func (e *StatusEngine) Transition(ctx context.Context, src ValueSource, k KPI, before, after time.Time) (StatusTransition, error) {
	prev, err := e.Evaluate(ctx, src, k, before)
	if err != nil {
		return StatusTransition{}, err
	}
	curr, err := e.Evaluate(ctx, src, k, after)
	if err != nil {
		return StatusTransition{}, err
	}
	return StatusTransition{From: prev.Status, To: curr.Status}, nil
}

func (e *StatusEngine) warningDays() int {
	if e.WarningDays <= 0 {
		return DefaultWarningDays
	}
	return e.WarningDays
}

// =============================================================================
// DAY ARITHMETIC
// =============================================================================

// DaysBetween counts whole calendar days from a to b, negative when b is
// before a. Both instants are truncated to their calendar date first so an
// 11pm-to-1am gap still counts as one day. Rounded, not truncated, so a DST
// day of 23 or 25 hours still counts as exactly one.
func DaysBetween(a, b time.Time) int {
	return int(math.Round(startOfDay(b).Sub(startOfDay(a)).Hours() / 24))
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
