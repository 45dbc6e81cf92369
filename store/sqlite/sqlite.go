/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements kpi.Store using SQLite. In production the same patterns apply to
  PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  users:          KPI owners and administrators
  kpis:           Indicator definitions
  kpi_values:     Recorded measurements, one row per (kpi, period)
  reminder_runs:  Audit trail of reminder scheduler runs

INVARIANT ENFORCEMENT:
  Periods and decimal values are stored only in their canonical textual
  forms; the unique index on kpi_values(kpi_id, period) enforces the
  one-value-per-period invariant at the database level, surfaced as
  kpi.DuplicateValueError.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. With PostgreSQL, database-level
  concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) so readers do not block
  the single writer.

USAGE:
  store, err := sqlite.New("./data/kpi.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - kpi/types.go: Interface definitions
  - kpi/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/kpi-engine/kpi"
)

// Store implements kpi.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Users (owners and administrators)
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		is_admin BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_users_admin ON users(is_admin);

	-- KPI definitions
	CREATE TABLE IF NOT EXISTS kpis (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		interval TEXT NOT NULL,
		target TEXT,
		unit TEXT,
		owner_id TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_kpis_owner ON kpis(owner_id);

	-- Recorded values, periods in canonical textual form
	CREATE TABLE IF NOT EXISTS kpi_values (
		id TEXT PRIMARY KEY,
		kpi_id TEXT NOT NULL,
		period TEXT NOT NULL,
		amount TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- CRITICAL: one value per reporting period
	CREATE UNIQUE INDEX IF NOT EXISTS idx_values_unique_period
		ON kpi_values(kpi_id, period);
	CREATE INDEX IF NOT EXISTS idx_values_kpi ON kpi_values(kpi_id);

	-- Reminder scheduler audit trail
	CREATE TABLE IF NOT EXISTS reminder_runs (
		id TEXT PRIMARY KEY,
		ran_at TEXT NOT NULL,
		run_day TEXT NOT NULL,
		evaluated INTEGER NOT NULL DEFAULT 0,
		reminders INTEGER NOT NULL DEFAULT 0,
		escalations INTEGER NOT NULL DEFAULT 0,
		failures INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'completed',
		error TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_reminder_runs_day ON reminder_runs(run_day);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// USERS
// =============================================================================

func (s *Store) SaveUser(ctx context.Context, u kpi.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO users (id, name, email, is_admin, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name=excluded.name, email=excluded.email, is_admin=excluded.is_admin
	`
	_, err := s.db.ExecContext(ctx, query,
		u.ID, u.Name, u.Email, u.Admin, u.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*kpi.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, is_admin, created_at FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, kpi.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]kpi.User, error) {
	return s.listUsers(ctx, `SELECT id, name, email, is_admin, created_at FROM users ORDER BY id`)
}

func (s *Store) ListAdministrators(ctx context.Context) ([]kpi.User, error) {
	return s.listUsers(ctx, `SELECT id, name, email, is_admin, created_at FROM users WHERE is_admin ORDER BY id`)
}

func (s *Store) listUsers(ctx context.Context, query string) ([]kpi.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []kpi.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*kpi.User, error) {
	var u kpi.User
	var createdAt string
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Admin, &createdAt); err != nil {
		return nil, err
	}
	var err error
	if u.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("corrupt created_at in storage: %w", err)
	}
	return &u, nil
}

// =============================================================================
// KPIS
// =============================================================================

func (s *Store) SaveKPI(ctx context.Context, k kpi.KPI) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var target sql.NullString
	if k.Target != nil {
		target = sql.NullString{String: k.Target.Canonical(), Valid: true}
	}

	query := `
		INSERT INTO kpis (id, name, interval, target, unit, owner_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name, interval=excluded.interval,
			target=excluded.target, unit=excluded.unit, owner_id=excluded.owner_id
	`
	_, err := s.db.ExecContext(ctx, query,
		k.ID, k.Name, string(k.Interval), target, nullString(k.Unit),
		k.OwnerID, k.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save kpi: %w", err)
	}
	return nil
}

func (s *Store) GetKPI(ctx context.Context, id string) (*kpi.KPI, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, interval, target, unit, owner_id, created_at FROM kpis WHERE id = ?`, id)
	k, err := scanKPI(row)
	if err == sql.ErrNoRows {
		return nil, kpi.ErrKpiNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get kpi: %w", err)
	}
	return k, nil
}

func (s *Store) ListKPIs(ctx context.Context) ([]kpi.KPI, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, interval, target, unit, owner_id, created_at FROM kpis ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list kpis: %w", err)
	}
	defer rows.Close()

	var kpis []kpi.KPI
	for rows.Next() {
		k, err := scanKPI(rows)
		if err != nil {
			return nil, err
		}
		kpis = append(kpis, *k)
	}
	return kpis, rows.Err()
}

func (s *Store) DeleteKPI(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Both deletes in one transaction so a failure cannot leave orphaned
	// value rows behind.
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM kpis WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete kpi: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return kpi.ErrKpiNotFound
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM kpi_values WHERE kpi_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete kpi values: %w", err)
	}
	return tx.Commit()
}

func scanKPI(row scanner) (*kpi.KPI, error) {
	var k kpi.KPI
	var interval, createdAt string
	var target, unit sql.NullString
	if err := row.Scan(&k.ID, &k.Name, &interval, &target, &unit, &k.OwnerID, &createdAt); err != nil {
		return nil, err
	}
	// The stored cadence is not re-validated here: a corrupt row must still
	// load so the engine can take its degraded path instead of hiding the KPI.
	k.Interval = kpi.Interval(interval)
	if target.Valid {
		if v, err := kpi.ParseDecimalValue(target.String); err == nil {
			k.Target = &v
		}
	}
	k.Unit = unit.String
	var err error
	if k.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("corrupt created_at in storage: %w", err)
	}
	return &k, nil
}

// =============================================================================
// VALUES
// =============================================================================

func (s *Store) SaveValue(ctx context.Context, v kpi.Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var interval string
	err := s.db.QueryRowContext(ctx, `SELECT interval FROM kpis WHERE id = ?`, v.KpiID).Scan(&interval)
	if err == sql.ErrNoRows {
		return kpi.ErrKpiNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check kpi: %w", err)
	}
	// A period of the wrong cadence would pass the unique index but never be
	// seen by the status engine. Degraded KPIs carry no known cadence to
	// check against.
	if cadence := kpi.Interval(interval); cadence.Valid() && v.Period.IntervalOf() != cadence {
		return &kpi.PeriodMismatchError{KpiID: v.KpiID, Period: v.Period, Interval: cadence}
	}

	query := `
		INSERT INTO kpi_values (id, kpi_id, period, amount, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		v.ID, v.KpiID, v.Period.String(), v.Amount.Canonical(),
		v.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		if isUniqueConstraintError(err) {
			return &kpi.DuplicateValueError{KpiID: v.KpiID, Period: v.Period}
		}
		return fmt.Errorf("failed to save value: %w", err)
	}
	return nil
}

func (s *Store) ListValues(ctx context.Context, kpiID string) ([]kpi.Value, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kpi_id, period, amount, created_at FROM kpi_values WHERE kpi_id = ? ORDER BY period`, kpiID)
	if err != nil {
		return nil, fmt.Errorf("failed to list values: %w", err)
	}
	defer rows.Close()

	var values []kpi.Value
	for rows.Next() {
		var v kpi.Value
		var period, amount, createdAt string
		if err := rows.Scan(&v.ID, &v.KpiID, &period, &amount, &createdAt); err != nil {
			return nil, err
		}
		p, err := kpi.ParsePeriod(period)
		if err != nil {
			return nil, fmt.Errorf("corrupt period in storage: %w", err)
		}
		v.Period = p
		a, err := kpi.ParseDecimalValue(amount)
		if err != nil {
			return nil, fmt.Errorf("corrupt amount in storage: %w", err)
		}
		v.Amount = a
		v.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("corrupt created_at in storage: %w", err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

func (s *Store) HasValueForPeriod(ctx context.Context, kpiID string, p kpi.Period) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM kpi_values WHERE kpi_id = ? AND period = ?`,
		kpiID, p.String()).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check value: %w", err)
	}
	return count > 0, nil
}

// =============================================================================
// REMINDER RUNS
// =============================================================================

// ReminderRun is the audit record of one scheduler pass.
type ReminderRun struct {
	ID          string
	RanAt       time.Time
	RunDay      string // YYYY-MM-DD, used for the once-per-day guard
	Evaluated   int
	Reminders   int
	Escalations int
	Failures    int
	Status      string // completed | failed
	Error       string
	CreatedAt   time.Time
}

func (s *Store) SaveReminderRun(ctx context.Context, run ReminderRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO reminder_runs
		(id, ran_at, run_day, evaluated, reminders, escalations, failures, status, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			evaluated=excluded.evaluated, reminders=excluded.reminders,
			escalations=excluded.escalations, failures=excluded.failures,
			status=excluded.status, error=excluded.error
	`
	_, err := s.db.ExecContext(ctx, query,
		run.ID, run.RanAt.UTC().Format(time.RFC3339), run.RunDay,
		run.Evaluated, run.Reminders, run.Escalations, run.Failures,
		run.Status, nullString(run.Error), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save reminder run: %w", err)
	}
	return nil
}

func (s *Store) ListReminderRuns(ctx context.Context, limit int) ([]ReminderRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ran_at, run_day, evaluated, reminders, escalations, failures, status, error, created_at
		FROM reminder_runs ORDER BY ran_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reminder runs: %w", err)
	}
	defer rows.Close()

	var runs []ReminderRun
	for rows.Next() {
		var run ReminderRun
		var ranAt, createdAt string
		var errText sql.NullString
		if err := rows.Scan(&run.ID, &ranAt, &run.RunDay, &run.Evaluated, &run.Reminders,
			&run.Escalations, &run.Failures, &run.Status, &errText, &createdAt); err != nil {
			return nil, err
		}
		if run.RanAt, err = time.Parse(time.RFC3339, ranAt); err != nil {
			return nil, fmt.Errorf("corrupt ran_at in storage: %w", err)
		}
		if run.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("corrupt created_at in storage: %w", err)
		}
		run.Error = errText.String
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// HasRunForDay reports whether a completed run already exists for the given
// calendar day. The scheduler uses this to fire at most once per day.
func (s *Store) HasRunForDay(ctx context.Context, day string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM reminder_runs WHERE run_day = ? AND status = 'completed'`, day).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check reminder runs: %w", err)
	}
	return count > 0, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
