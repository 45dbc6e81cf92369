package kpi

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// PERIOD - Canonical identifier of one reporting window
// =============================================================================

// Period identifies one reporting window of a cadence as a canonical string:
//
//   Monthly:   2024-09          (month 1-12, zero-padded)
//   Weekly:    2024-W36         (ISO week 1-53, zero-padded)
//   Quarterly: 2024-Q3          (quarter 1-4)
//
// A Period is immutable once constructed and is stored in its canonical
// textual form. Two Periods are equal iff their canonical strings are equal;
// periods of different cadences are never equal even when they cover
// overlapping calendar time.
//
// ParsePeriod accepts unpadded months and weeks (2024-9) for backward
// compatibility but normalizes to the zero-padded form, so every producer
// yields the same canonical string for the same window.
type Period struct {
	value string
}

var (
	monthPattern   = regexp.MustCompile(`^(\d{4})-(\d{1,2})$`)
	weekPattern    = regexp.MustCompile(`^(\d{4})-W(\d{1,2})$`)
	quarterPattern = regexp.MustCompile(`^(\d{4})-Q(\d)$`)
)

// ParsePeriod validates a raw period string and returns its canonical form.
// The week (W) and quarter (Q) markers discriminate the cadence; a plain
// numeric component is a month.
func ParsePeriod(raw string) (Period, error) {
	if raw == "" {
		return Period{}, &InvalidPeriodError{Raw: raw, Reason: "empty string"}
	}

	if m := monthPattern.FindStringSubmatch(raw); m != nil {
		month, _ := strconv.Atoi(m[2])
		if month < 1 || month > 12 {
			return Period{}, &InvalidPeriodError{Raw: raw, Reason: "month out of range 1-12"}
		}
		return Period{value: fmt.Sprintf("%s-%02d", m[1], month)}, nil
	}

	if m := weekPattern.FindStringSubmatch(raw); m != nil {
		week, _ := strconv.Atoi(m[2])
		if week < 1 || week > 53 {
			return Period{}, &InvalidPeriodError{Raw: raw, Reason: "week out of range 1-53"}
		}
		return Period{value: fmt.Sprintf("%s-W%02d", m[1], week)}, nil
	}

	if m := quarterPattern.FindStringSubmatch(raw); m != nil {
		quarter, _ := strconv.Atoi(m[2])
		if quarter < 1 || quarter > 4 {
			return Period{}, &InvalidPeriodError{Raw: raw, Reason: "quarter out of range 1-4"}
		}
		return Period{value: fmt.Sprintf("%s-Q%d", m[1], quarter)}, nil
	}

	return Period{}, &InvalidPeriodError{Raw: raw, Reason: "does not match YYYY-MM, YYYY-WNN or YYYY-QN"}
}

// PeriodFromDate derives the period containing date for the given cadence.
// Pure: cannot fail for a valid (date, interval) pair. An invalid interval
// yields the degraded plain-date period (see StatusEngine).
func PeriodFromDate(date time.Time, interval Interval) Period {
	switch interval {
	case IntervalWeekly:
		// ISO week: the year belongs to the week, not the calendar date
		// (Jan 1 can fall into week 52/53 of the previous year).
		year, week := date.ISOWeek()
		return Period{value: fmt.Sprintf("%d-W%02d", year, week)}
	case IntervalMonthly:
		return Period{value: fmt.Sprintf("%d-%02d", date.Year(), int(date.Month()))}
	case IntervalQuarterly:
		quarter := (int(date.Month())-1)/3 + 1
		return Period{value: fmt.Sprintf("%d-Q%d", date.Year(), quarter)}
	default:
		return Period{value: date.Format("2006-01-02")}
	}
}

// CurrentPeriod returns the period containing now for the given cadence.
func CurrentPeriod(interval Interval, now time.Time) Period {
	return PeriodFromDate(now, interval)
}

// String returns the canonical storage form.
func (p Period) String() string { return p.value }

// IsZero reports whether the period is the uninitialized zero value.
func (p Period) IsZero() bool { return p.value == "" }

// Equal reports canonical-string equality.
func (p Period) Equal(other Period) bool { return p.value == other.value }

var germanMonths = [...]string{
	"Januar", "Februar", "März", "April", "Mai", "Juni",
	"Juli", "August", "September", "Oktober", "November", "Dezember",
}

// Format returns the German display form of the period:
//
//   2024-09  → September 2024
//   2024-W36 → KW 36/2024
//   2024-Q3  → Q3 2024
//
// A stored value that no longer parses (should not occur, construction
// validates) falls back to the raw canonical string.
func (p Period) Format() string {
	if m := weekPattern.FindStringSubmatch(p.value); m != nil {
		week, _ := strconv.Atoi(m[2])
		return fmt.Sprintf("KW %d/%s", week, m[1])
	}
	if m := quarterPattern.FindStringSubmatch(p.value); m != nil {
		return fmt.Sprintf("Q%s %s", m[2], m[1])
	}
	if m := monthPattern.FindStringSubmatch(p.value); m != nil {
		month, _ := strconv.Atoi(m[2])
		if month >= 1 && month <= 12 {
			return fmt.Sprintf("%s %s", germanMonths[month-1], m[1])
		}
	}
	return p.value
}

// IntervalOf reports which cadence the period's pattern belongs to.
// A degraded plain-date period reports the empty interval.
func (p Period) IntervalOf() Interval {
	switch {
	case strings.Contains(p.value, "-W"):
		return IntervalWeekly
	case strings.Contains(p.value, "-Q"):
		return IntervalQuarterly
	case monthPattern.MatchString(p.value):
		return IntervalMonthly
	default:
		return ""
	}
}
