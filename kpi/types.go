/*
Package kpi provides the core recurring-metric engine.

PURPOSE:
  This package contains the value objects and algorithms for tracking
  recurring indicators: canonical reporting periods, normalized decimal
  values, and the due-date/status derivation that tells a user whether the
  current period's value has been recorded, is about to become due, or is
  overdue.

KEY CONCEPTS IN THIS FILE (types.go):
  - KPI: An indicator with a reporting cadence and an optional target
  - Value: One recorded measurement, tagged with its Period
  - User: Owner of KPIs, possibly an administrator
  - Clock: Injected wall-clock so evaluations are deterministic in tests
  - Store: Persistence boundary consumed by the engine

DESIGN PRINCIPLES:
  1. Immutability: Periods and decimal values never mutate after construction
  2. Derived state: Status is recomputed from "now" on every query, never stored
  3. Explicit time: "now" is read once per evaluation pass and threaded through
  4. Precision: decimal.Decimal for recorded values, no float storage

SEE ALSO:
  - period.go: Canonical period construction and formatting
  - engine.go: Due-date and status derivation
  - errors.go: Error taxonomy
*/
package kpi

import (
	"context"
	"time"
)

// =============================================================================
// ENTITIES
// =============================================================================

// KPI is a recurring indicator. The engine only ever reads its cadence and
// asks the store whether a value exists for a given period; everything else
// is carried for the surrounding API layer.
type KPI struct {
	ID        string
	Name      string
	Interval  Interval
	Target    *DecimalValue // optional goal value
	Unit      string        // optional, e.g. "%", "EUR", "Stück"
	OwnerID   string
	CreatedAt time.Time
}

// Value is one recorded measurement for one reporting period.
type Value struct {
	ID        string
	KpiID     string
	Period    Period
	Amount    DecimalValue
	CreatedAt time.Time
}

// User owns KPIs and receives reminders. Administrators additionally receive
// escalations for severely overdue KPIs.
type User struct {
	ID        string
	Name      string
	Email     string
	Admin     bool
	CreatedAt time.Time
}

// =============================================================================
// CLOCK - Injected wall clock
// =============================================================================

// Clock abstracts "now" so a whole evaluation pass can run against a single
// consistent instant, and tests can pin time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the server-local wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns the same instant. For tests.
type FixedClock struct {
	At time.Time
}

func (c FixedClock) Now() time.Time { return c.At }

// =============================================================================
// STORE - Persistence boundary
// =============================================================================

// ValueSource is the minimal read interface the status engine needs: whether
// a value has been recorded for a (KPI, period) pair.
type ValueSource interface {
	HasValueForPeriod(ctx context.Context, kpiID string, p Period) (bool, error)
}

// Store is the full persistence boundary consumed by the API layer and the
// reminder evaluator. Implemented by store/sqlite and kpi/store (memory).
type Store interface {
	ValueSource

	SaveUser(ctx context.Context, u User) error
	GetUser(ctx context.Context, id string) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
	ListAdministrators(ctx context.Context) ([]User, error)

	SaveKPI(ctx context.Context, k KPI) error
	GetKPI(ctx context.Context, id string) (*KPI, error)
	ListKPIs(ctx context.Context) ([]KPI, error)
	DeleteKPI(ctx context.Context, id string) error

	// SaveValue enforces the one-value-per-period invariant and returns
	// a DuplicateValueError on violation.
	SaveValue(ctx context.Context, v Value) error
	ListValues(ctx context.Context, kpiID string) ([]Value, error)
}
