package reminder

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// =============================================================================
// DISPATCH BOUNDARY
// =============================================================================

// Dispatcher consumes the decisions of one run. Template rendering, actual
// mail delivery and cross-run deduplication live behind this interface; the
// core stays pure.
type Dispatcher interface {
	Dispatch(ctx context.Context, result *RunResult) error
}

// IdempotencyKey identifies one (KPI, period, decision kind) triple. A
// dispatcher that needs exactly-once delivery across retried runs keys its
// sent-ledger on this.
func IdempotencyKey(r UserReminder) string {
	return fmt.Sprintf("%s:%s:%s", r.KPI.ID, r.Decision.Period, r.Decision.Kind)
}

// LogDispatcher writes every decision to the log instead of sending mail.
// Used in development and as the fallback when no mail transport is wired.
type LogDispatcher struct {
	Log zerolog.Logger
}

func (d *LogDispatcher) Dispatch(_ context.Context, result *RunResult) error {
	for _, r := range result.Reminders {
		evt := d.Log.Info().
			Str("key", IdempotencyKey(r)).
			Str("kind", string(r.Decision.Kind)).
			Str("kpi", r.KPI.Name).
			Str("period", r.Decision.Period.Format()).
			Str("recipient", r.User.Email)
		if r.Decision.Kind == KindOverdue {
			evt = evt.Int("days_overdue", r.Decision.DaysOverdue).
				Str("urgency", string(r.Decision.Urgency))
		}
		evt.Msg("reminder")
	}
	for _, e := range result.Escalations {
		for _, admin := range e.Admins {
			d.Log.Warn().
				Str("kpi", e.KPI.Name).
				Str("owner", e.Owner.Email).
				Str("recipient", admin.Email).
				Int("days_overdue", e.DaysOverdue).
				Msg("escalation")
		}
	}
	return nil
}
