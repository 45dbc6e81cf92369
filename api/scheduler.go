/*
scheduler.go - Daily reminder scheduler

PURPOSE:
  Fires the reminder/escalation policy once per calendar day. The decision
  table is exact-day (a KPI overdue by 8 days does not re-fire the 7-day
  reminder), so missing a day silently loses that day's triggers - the
  scheduler's job is to make sure that does not happen while the process
  is up.

DESIGN:
  - Runs a background goroutine with a short check interval
  - Fires when the configured hour of day is reached and no completed run
    exists for the current calendar day (guard persisted in reminder_runs,
    so a restart does not double-send)
  - Reads "now" once per run and threads it through the whole evaluation
  - Records every run for audit and UI display

CONFIGURATION:
  - Hour:          Local hour of day to fire (default: 8)
  - CheckInterval: How often to check (default: 1 minute)
  - Enabled:       Whether the scheduler is active (default: true)

USAGE:
  scheduler := NewReminderScheduler(store, handler)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - reminder/run.go: Evaluation pass
  - handlers.go: TriggerReminders endpoint (manual run)
*/
package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/warp/kpi-engine/store/sqlite"
)

// ReminderScheduler triggers the daily reminder run.
type ReminderScheduler struct {
	Store         *sqlite.Store
	Handler       *Handler
	Hour          int
	CheckInterval time.Duration
	Enabled       bool
	Log           zerolog.Logger

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewReminderScheduler creates a new scheduler firing at the given local hour.
func NewReminderScheduler(store *sqlite.Store, handler *Handler, hour int) *ReminderScheduler {
	return &ReminderScheduler{
		Store:         store,
		Handler:       handler,
		Hour:          hour,
		CheckInterval: 1 * time.Minute,
		Enabled:       true,
		Log:           handler.Log,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (rs *ReminderScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled {
		rs.Log.Info().Msg("reminder scheduler disabled, not starting")
		return
	}

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.wg.Add(1)

	go rs.run()

	rs.Log.Info().Int("hour", rs.Hour).Dur("check_interval", rs.CheckInterval).
		Msg("reminder scheduler started")
}

// Stop stops the scheduler.
func (rs *ReminderScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		rs.Log.Info().Msg("reminder scheduler stopped")
	}
}

func (rs *ReminderScheduler) run() {
	defer rs.wg.Done()

	// Check immediately on start: a restart after the trigger hour must not
	// skip the whole day.
	rs.checkAndProcess()

	for {
		select {
		case <-rs.ticker.C:
			rs.checkAndProcess()
		case <-rs.stop:
			return
		}
	}
}

func (rs *ReminderScheduler) checkAndProcess() {
	ctx := context.Background()
	now := rs.Handler.Clock.Now()

	if now.Hour() < rs.Hour {
		return
	}

	day := now.Format("2006-01-02")
	done, err := rs.Store.HasRunForDay(ctx, day)
	if err != nil {
		rs.Log.Error().Err(err).Msg("failed to check reminder run guard")
		return
	}
	if done {
		return
	}

	if err := rs.process(ctx, now, day); err != nil {
		rs.Log.Error().Err(err).Str("day", day).Msg("reminder run failed")
	}
}

func (rs *ReminderScheduler) process(ctx context.Context, now time.Time, day string) error {
	started := time.Now()
	runID := fmt.Sprintf("run-%d", now.UnixNano())

	run := sqlite.ReminderRun{
		ID:     runID,
		RanAt:  now,
		RunDay: day,
		Status: "running",
	}
	if err := rs.Store.SaveReminderRun(ctx, run); err != nil {
		return fmt.Errorf("failed to save run record: %w", err)
	}

	result, err := rs.Handler.Evaluator.Evaluate(ctx, now)
	if err != nil {
		run.Status = "failed"
		run.Error = err.Error()
		rs.Store.SaveReminderRun(ctx, run)
		rs.Handler.Metrics.ReminderRunsTotal.WithLabelValues("failed").Inc()
		return err
	}

	if err := rs.Handler.Dispatcher.Dispatch(ctx, result); err != nil {
		run.Status = "failed"
		run.Error = err.Error()
		run.Evaluated = result.Evaluated
		rs.Store.SaveReminderRun(ctx, run)
		rs.Handler.Metrics.ReminderRunsTotal.WithLabelValues("failed").Inc()
		return err
	}

	run.Status = "completed"
	run.Evaluated = result.Evaluated
	run.Reminders = len(result.Reminders)
	run.Escalations = len(result.Escalations)
	run.Failures = len(result.Errors)
	if err := rs.Store.SaveReminderRun(ctx, run); err != nil {
		return fmt.Errorf("failed to update run record: %w", err)
	}

	rs.Handler.Metrics.ReminderRunsTotal.WithLabelValues("completed").Inc()
	recordRunMetrics(rs.Handler.Metrics, result)
	rs.Handler.Metrics.RunDuration.Observe(time.Since(started).Seconds())

	rs.Log.Info().
		Str("day", day).
		Int("evaluated", result.Evaluated).
		Int("reminders", len(result.Reminders)).
		Int("escalations", len(result.Escalations)).
		Int("failures", len(result.Errors)).
		Msg("reminder run completed")

	return nil
}

// RunNow triggers an immediate check (for testing/admin).
func (rs *ReminderScheduler) RunNow() {
	rs.checkAndProcess()
}
