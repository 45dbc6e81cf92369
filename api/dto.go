/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/warp/kpi-engine/kpi"
	"github.com/warp/kpi-engine/reminder"
	"github.com/warp/kpi-engine/store/sqlite"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// UserDTO represents a user in API responses.
type UserDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Admin     bool   `json:"admin"`
	CreatedAt string `json:"created_at,omitempty"`
}

// CreateUserRequest is the request to create a user.
type CreateUserRequest struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Admin bool   `json:"admin"`
}

// KpiDTO represents a KPI in API responses.
type KpiDTO struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Interval      string  `json:"interval"`
	IntervalLabel string  `json:"interval_label"`
	Target        *string `json:"target,omitempty"` // display form, comma separator
	Unit          string  `json:"unit,omitempty"`
	OwnerID       string  `json:"owner_id"`
	CreatedAt     string  `json:"created_at,omitempty"`
}

// CreateKpiRequest is the request to create a KPI.
type CreateKpiRequest struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name"`
	Interval string `json:"interval"`
	Target   string `json:"target,omitempty"` // comma or dot separator
	Unit     string `json:"unit,omitempty"`
	OwnerID  string `json:"owner_id"`
}

// RecordValueRequest records one measurement for a period. Period is
// optional; when empty the current period of the KPI's cadence is used.
type RecordValueRequest struct {
	Period string `json:"period,omitempty"`
	Value  string `json:"value"` // comma or dot separator
}

// ValueDTO represents one recorded value.
type ValueDTO struct {
	ID            string `json:"id"`
	KpiID         string `json:"kpi_id"`
	Period        string `json:"period"`
	PeriodDisplay string `json:"period_display"`
	Value         string `json:"value"`         // canonical, dot separator
	ValueDisplay  string `json:"value_display"` // comma separator
	CreatedAt     string `json:"created_at,omitempty"`
}

// StatusDTO is the derived traffic-light state of one KPI.
type StatusDTO struct {
	KpiID         string `json:"kpi_id"`
	Name          string `json:"name"`
	Status        string `json:"status"`
	CurrentPeriod string `json:"current_period"`
	PeriodDisplay string `json:"period_display"`
	NextDue       string `json:"next_due"`
	HasValue      bool   `json:"has_value"`
	AsOf          string `json:"as_of"`
}

// StatusOverviewDTO is the population-wide traffic-light view.
type StatusOverviewDTO struct {
	AsOf   string      `json:"as_of"`
	Green  int         `json:"green"`
	Yellow int         `json:"yellow"`
	Red    int         `json:"red"`
	Kpis   []StatusDTO `json:"kpis"`
}

// ReminderDTO represents one reminder decision in preview/run responses.
type ReminderDTO struct {
	KpiID         string `json:"kpi_id"`
	KpiName       string `json:"kpi_name"`
	Recipient     string `json:"recipient"`
	Kind          string `json:"kind"`
	Urgency       string `json:"urgency,omitempty"`
	DaysUntilDue  int    `json:"days_until_due,omitempty"`
	DaysOverdue   int    `json:"days_overdue,omitempty"`
	Period        string `json:"period"`
	PeriodDisplay string `json:"period_display"`
}

// EscalationDTO represents one administrator escalation.
type EscalationDTO struct {
	KpiID       string   `json:"kpi_id"`
	KpiName     string   `json:"kpi_name"`
	Owner       string   `json:"owner"`
	Admins      []string `json:"admins"`
	DaysOverdue int      `json:"days_overdue"`
}

// RunResultDTO wraps the outcome of one evaluation pass.
type RunResultDTO struct {
	At          string          `json:"at"`
	DryRun      bool            `json:"dry_run"`
	Evaluated   int             `json:"evaluated"`
	Reminders   []ReminderDTO   `json:"reminders"`
	Escalations []EscalationDTO `json:"escalations"`
	Failures    int             `json:"failures"`
}

// ReminderRunDTO is one audit record of the scheduler.
type ReminderRunDTO struct {
	ID          string `json:"id"`
	RanAt       string `json:"ran_at"`
	RunDay      string `json:"run_day"`
	Evaluated   int    `json:"evaluated"`
	Reminders   int    `json:"reminders"`
	Escalations int    `json:"escalations"`
	Failures    int    `json:"failures"`
	Status      string `json:"status"`
	Error       string `json:"error,omitempty"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// MAPPERS
// =============================================================================

func toUserDTO(u kpi.User) UserDTO {
	return UserDTO{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Admin:     u.Admin,
		CreatedAt: u.CreatedAt.Format(timeLayout),
	}
}

func toKpiDTO(k kpi.KPI) KpiDTO {
	dto := KpiDTO{
		ID:            k.ID,
		Name:          k.Name,
		Interval:      string(k.Interval),
		IntervalLabel: k.Interval.Label(),
		Unit:          k.Unit,
		OwnerID:       k.OwnerID,
		CreatedAt:     k.CreatedAt.Format(timeLayout),
	}
	if k.Target != nil {
		display := k.Target.Display()
		dto.Target = &display
	}
	return dto
}

func toValueDTO(v kpi.Value) ValueDTO {
	return ValueDTO{
		ID:            v.ID,
		KpiID:         v.KpiID,
		Period:        v.Period.String(),
		PeriodDisplay: v.Period.Format(),
		Value:         v.Amount.Canonical(),
		ValueDisplay:  v.Amount.Display(),
		CreatedAt:     v.CreatedAt.Format(timeLayout),
	}
}

func toRunResultDTO(result *reminder.RunResult, dryRun bool) RunResultDTO {
	dto := RunResultDTO{
		At:          result.At.Format(timeLayout),
		DryRun:      dryRun,
		Evaluated:   result.Evaluated,
		Reminders:   []ReminderDTO{},
		Escalations: []EscalationDTO{},
		Failures:    len(result.Errors),
	}
	for _, r := range result.Reminders {
		dto.Reminders = append(dto.Reminders, ReminderDTO{
			KpiID:         r.KPI.ID,
			KpiName:       r.KPI.Name,
			Recipient:     r.User.Email,
			Kind:          string(r.Decision.Kind),
			Urgency:       string(r.Decision.Urgency),
			DaysUntilDue:  r.Decision.DaysUntilDue,
			DaysOverdue:   r.Decision.DaysOverdue,
			Period:        r.Decision.Period.String(),
			PeriodDisplay: r.Decision.Period.Format(),
		})
	}
	for _, e := range result.Escalations {
		admins := make([]string, len(e.Admins))
		for i, a := range e.Admins {
			admins[i] = a.Email
		}
		dto.Escalations = append(dto.Escalations, EscalationDTO{
			KpiID:       e.KPI.ID,
			KpiName:     e.KPI.Name,
			Owner:       e.Owner.Email,
			Admins:      admins,
			DaysOverdue: e.DaysOverdue,
		})
	}
	return dto
}

func toReminderRunDTO(run sqlite.ReminderRun) ReminderRunDTO {
	return ReminderRunDTO{
		ID:          run.ID,
		RanAt:       run.RanAt.Format(timeLayout),
		RunDay:      run.RunDay,
		Evaluated:   run.Evaluated,
		Reminders:   run.Reminders,
		Escalations: run.Escalations,
		Failures:    run.Failures,
		Status:      run.Status,
		Error:       run.Error,
	}
}
