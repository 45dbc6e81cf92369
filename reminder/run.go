/*
run.go - Full-population evaluation pass

PURPOSE:
  Runs the reminder decision table over every KPI once per scheduled run
  (typically daily) and resolves audiences: each actionable decision targets
  the owning user; critical overdue decisions additionally escalate to every
  administrator.

CONSISTENCY:
  "now" is read once per run and threaded through every evaluation so the
  whole population is judged against the same instant. A KPI cannot flip
  from YELLOW to RED mid-run because the clock ticked over midnight.

RESILIENCE:
  One KPI's error (unknown cadence, store failure) never aborts the run;
  errors are collected per item and reported alongside the successful
  decisions.

DRY RUN:
  Evaluate computes decisions without side effects. Dispatch is a separate
  step (dispatch.go), so operational tooling can ask "what would be sent"
  and the CLI dry-run flag maps directly onto this split.

SEE ALSO:
  - policy.go: Per-KPI decision table
  - dispatch.go: Dispatcher boundary and dedup key
*/
package reminder

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/warp/kpi-engine/kpi"
)

// =============================================================================
// RUN RESULT
// =============================================================================

// UserReminder pairs an actionable decision with its owning user.
type UserReminder struct {
	User     kpi.User
	KPI      kpi.KPI
	Decision Decision
}

// Escalation notifies administrators about a severely overdue KPI. It is
// additive to the owner's own overdue reminder, never a replacement.
type Escalation struct {
	KPI         kpi.KPI
	Owner       kpi.User
	Admins      []kpi.User
	DaysOverdue int
}

// ItemError records one KPI that could not be evaluated.
type ItemError struct {
	KpiID string
	Err   error
}

// RunResult is the complete outcome of one evaluation pass.
type RunResult struct {
	At          time.Time
	Evaluated   int
	Reminders   []UserReminder
	Escalations []Escalation
	Errors      []ItemError
}

// =============================================================================
// EVALUATOR
// =============================================================================

// Evaluator computes one run over the full KPI population.
type Evaluator struct {
	Store  kpi.Store
	Policy *Policy
	Log    zerolog.Logger
}

func NewEvaluator(store kpi.Store, policy *Policy) *Evaluator {
	return &Evaluator{Store: store, Policy: policy, Log: zerolog.Nop()}
}

// Evaluate decides every KPI against a single instant. Pure with respect to
// dispatch: no mail, no writes, safe to call for previews.
func (ev *Evaluator) Evaluate(ctx context.Context, now time.Time) (*RunResult, error) {
	kpis, err := ev.Store.ListKPIs(ctx)
	if err != nil {
		return nil, err
	}

	result := &RunResult{At: now}

	var admins []kpi.User // resolved lazily, most runs escalate nothing

	for _, k := range kpis {
		result.Evaluated++

		decision, err := ev.Policy.Decide(ctx, ev.Store, k, now)
		if err != nil {
			ev.Log.Warn().Str("kpi", k.ID).Err(err).Msg("skipping kpi in reminder run")
			result.Errors = append(result.Errors, ItemError{KpiID: k.ID, Err: err})
			continue
		}
		if decision.None() {
			continue
		}

		owner, err := ev.Store.GetUser(ctx, k.OwnerID)
		if err != nil {
			result.Errors = append(result.Errors, ItemError{KpiID: k.ID, Err: err})
			continue
		}

		result.Reminders = append(result.Reminders, UserReminder{
			User:     *owner,
			KPI:      k,
			Decision: decision,
		})

		if decision.Escalate {
			if admins == nil {
				admins, err = ev.Store.ListAdministrators(ctx)
				if err != nil {
					result.Errors = append(result.Errors, ItemError{KpiID: k.ID, Err: err})
					continue
				}
			}
			result.Escalations = append(result.Escalations, Escalation{
				KPI:         k,
				Owner:       *owner,
				Admins:      admins,
				DaysOverdue: decision.DaysOverdue,
			})
		}
	}

	return result, nil
}
