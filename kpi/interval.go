package kpi

// =============================================================================
// INTERVAL - Reporting cadence of a KPI
// =============================================================================

// Interval is the closed set of reporting cadences. A KPI reports exactly one
// value per interval period (one per week, month or quarter).
//
// The set is closed: persistence and API layers parse incoming strings through
// ParseInterval, and every switch over Interval carries a default branch that
// routes to the degraded UnknownInterval path instead of crashing.
type Interval string

const (
	IntervalWeekly    Interval = "weekly"
	IntervalMonthly   Interval = "monthly"
	IntervalQuarterly Interval = "quarterly"
)

// Intervals lists all valid cadences in display order.
func Intervals() []Interval {
	return []Interval{IntervalWeekly, IntervalMonthly, IntervalQuarterly}
}

// Valid reports whether the interval is one of the known cadences.
func (i Interval) Valid() bool {
	switch i {
	case IntervalWeekly, IntervalMonthly, IntervalQuarterly:
		return true
	default:
		return false
	}
}

// Label returns the German display label for the cadence.
func (i Interval) Label() string {
	switch i {
	case IntervalWeekly:
		return "Wöchentlich"
	case IntervalMonthly:
		return "Monatlich"
	case IntervalQuarterly:
		return "Quartalsweise"
	default:
		return string(i)
	}
}

// ParseInterval validates a raw cadence string coming from the API or storage.
func ParseInterval(raw string) (Interval, error) {
	i := Interval(raw)
	if !i.Valid() {
		return "", &UnknownIntervalError{Raw: raw}
	}
	return i, nil
}
