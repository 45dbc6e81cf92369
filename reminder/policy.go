/*
policy.go - Reminder decision table

PURPOSE:
  Classifies one KPI at one instant into zero-or-one reminder action. The
  table is evaluated top-down, first match wins:

    due date exactly 3 days ahead    UPCOMING            owner
    due date today                   DUE_TODAY           owner
    exactly 7 days overdue           OVERDUE(7) medium   owner
    exactly 14 days overdue          OVERDUE(14) high    owner
    21 or more days overdue          OVERDUE(21) crit    owner + every admin
    anything else                    NONE

  Triggers are exact-day, not ranges: a KPI overdue by 8 days does not
  re-fire the 7-day reminder. The policy therefore has to run at least once
  per calendar day; a skipped run silently loses that day's trigger. The
  scheduler's once-per-day guard exists precisely for this.

  "Overdue" counts whole days since the boundary of the current, unmet
  period (StatusEngine.LastDueDate), not since the next future due date.

STATELESSNESS:
  Every (KPI, day) pair is decided independently; no "already sent" ledger
  exists in the core. Dispatch-side deduplication keys off
  (kpiID, period, decision kind), see dispatch.go.

SEE ALSO:
  - run.go: Full-population evaluation pass
  - kpi/engine.go: Due-date derivation
*/
package reminder

import (
	"context"
	"time"

	"github.com/warp/kpi-engine/kpi"
)

// =============================================================================
// DECISIONS
// =============================================================================

// Kind is the reminder action chosen for one KPI on one day.
type Kind string

const (
	KindNone     Kind = "none"
	KindUpcoming Kind = "upcoming"
	KindDueToday Kind = "due_today"
	KindOverdue  Kind = "overdue"
)

// Urgency grades overdue reminders for the mail template.
type Urgency string

const (
	UrgencyMedium   Urgency = "medium"   // 7 days overdue
	UrgencyHigh     Urgency = "high"     // 14 days overdue
	UrgencyCritical Urgency = "critical" // 21+ days overdue, escalates
)

// Decision is the ephemeral outcome of evaluating one KPI. It is recomputed
// on every run and never persisted.
type Decision struct {
	Kind         Kind
	Urgency      Urgency // set for KindOverdue only
	DaysUntilDue int     // set for KindUpcoming
	DaysOverdue  int     // set for KindOverdue, one of 7, 14, 21
	Escalate     bool    // true when administrators must be notified too
	Period       kpi.Period
	DueDate      time.Time
}

// None reports whether the decision requires no action.
func (d Decision) None() bool { return d.Kind == KindNone }

// =============================================================================
// POLICY
// =============================================================================

// Default trigger constants. Escalation fires at EscalationDays and beyond;
// all other triggers are exact-day.
const (
	UpcomingDays     = 3
	FirstOverdueDay  = 7
	SecondOverdueDay = 14
	EscalationDays   = 21
)

// Policy decides which reminder, if any, a KPI earns on a given day.
type Policy struct {
	Engine *kpi.StatusEngine
}

func NewPolicy(engine *kpi.StatusEngine) *Policy {
	return &Policy{Engine: engine}
}

// Decide classifies one KPI against the decision table. A KPI with a value
// for the current period (GREEN) always decides NONE. A KPI with a cadence
// outside the closed set returns ErrUnknownInterval so the caller can collect
// it without aborting the run.
func (p *Policy) Decide(ctx context.Context, src kpi.ValueSource, k kpi.KPI, now time.Time) (Decision, error) {
	if !k.Interval.Valid() {
		return Decision{Kind: KindNone}, &kpi.UnknownIntervalError{Raw: string(k.Interval), KpiID: k.ID}
	}

	eval, err := p.Engine.Evaluate(ctx, src, k, now)
	if err != nil {
		return Decision{}, err
	}
	if eval.Status == kpi.StatusGreen {
		return Decision{Kind: KindNone, Period: eval.CurrentPeriod}, nil
	}

	lastDue := p.Engine.LastDueDate(k.Interval, now)
	daysUntil := kpi.DaysBetween(now, eval.NextDue)
	daysOverdue := kpi.DaysBetween(lastDue, now)
	if daysOverdue < 0 {
		daysOverdue = 0
	}

	base := Decision{Period: eval.CurrentPeriod}

	switch {
	case daysUntil == UpcomingDays:
		base.Kind = KindUpcoming
		base.DaysUntilDue = UpcomingDays
		base.DueDate = eval.NextDue

	case daysOverdue == 0:
		base.Kind = KindDueToday
		base.DueDate = lastDue

	case daysOverdue == FirstOverdueDay:
		base.Kind = KindOverdue
		base.DaysOverdue = FirstOverdueDay
		base.Urgency = UrgencyMedium
		base.DueDate = lastDue

	case daysOverdue == SecondOverdueDay:
		base.Kind = KindOverdue
		base.DaysOverdue = SecondOverdueDay
		base.Urgency = UrgencyHigh
		base.DueDate = lastDue

	case daysOverdue >= EscalationDays:
		base.Kind = KindOverdue
		base.DaysOverdue = EscalationDays
		base.Urgency = UrgencyCritical
		base.Escalate = true
		base.DueDate = lastDue

	default:
		base.Kind = KindNone
	}

	return base, nil
}
