package kpi

// =============================================================================
// STATUS - Derived traffic-light state
// =============================================================================

// Status is the traffic-light state of a KPI relative to "now". It is derived
// on every query and never stored.
type Status string

const (
	// StatusGreen: a value is recorded for the current period.
	StatusGreen Status = "green"
	// StatusYellow: no value yet, due date within the warning threshold.
	StatusYellow Status = "yellow"
	// StatusRed: no value and the warning window has not been reached,
	// or the period boundary has already passed.
	StatusRed Status = "red"
)

// StatusTransition is the pair of states observed between two evaluations.
// The core stores no transition events; callers detect changes by evaluating
// the same KPI at two instants and comparing.
type StatusTransition struct {
	From Status
	To   Status
}

// Changed reports whether the status actually moved.
func (t StatusTransition) Changed() bool { return t.From != t.To }
