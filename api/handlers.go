/*
handlers.go - HTTP API handlers for the KPI tracker

PURPOSE:
  Exposes the KPI engine via REST API. Handles HTTP request/response, JSON
  serialization, and delegates to domain logic.

ENDPOINTS:
  Users:
    GET    /api/users                  List all users
    POST   /api/users                  Create user
    GET    /api/users/{id}             Get user details

  KPIs:
    GET    /api/kpis                   List all KPIs
    POST   /api/kpis                   Create KPI
    GET    /api/kpis/{id}              Get KPI details
    DELETE /api/kpis/{id}              Delete KPI and its values
    POST   /api/kpis/{id}/values       Record a value for a period
    GET    /api/kpis/{id}/values       List recorded values
    GET    /api/kpis/{id}/status       Derived traffic-light status

  Status:
    GET    /api/status                 Population-wide traffic-light view

  Reminders:
    POST   /api/reminders/preview      Dry-run: decisions without dispatch
    POST   /api/reminders/run          Evaluate and dispatch now
    GET    /api/reminders/runs         Scheduler audit trail

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors (bad period, bad decimal, bad cadence)
  - 404: Resource not found
  - 409: Conflict (value already recorded for period)
  - 500: Internal errors

SECURITY NOTE:
  No authentication middleware. All endpoints are public; authorization is
  an out-of-scope concern of the surrounding deployment.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - scheduler.go: Daily reminder scheduler
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/warp/kpi-engine/kpi"
	"github.com/warp/kpi-engine/metrics"
	"github.com/warp/kpi-engine/reminder"
	"github.com/warp/kpi-engine/store/sqlite"
)

const timeLayout = time.RFC3339

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store      *sqlite.Store
	Engine     *kpi.StatusEngine
	Evaluator  *reminder.Evaluator
	Dispatcher reminder.Dispatcher
	Metrics    *metrics.Metrics
	Clock      kpi.Clock
	Log        zerolog.Logger
}

// NewHandler creates a new handler with the given store and defaults:
// system clock, default warning threshold, log-only dispatch.
func NewHandler(store *sqlite.Store, log zerolog.Logger) *Handler {
	engine := kpi.NewStatusEngine()
	engine.Log = log
	policy := reminder.NewPolicy(engine)
	evaluator := reminder.NewEvaluator(store, policy)
	evaluator.Log = log

	return &Handler{
		Store:      store,
		Engine:     engine,
		Evaluator:  evaluator,
		Dispatcher: &reminder.LogDispatcher{Log: log},
		Metrics:    metrics.New(),
		Clock:      kpi.SystemClock{},
		Log:        log,
	}
}

// =============================================================================
// USER HANDLERS
// =============================================================================

// ListUsers returns all users.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Store.ListUsers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list users", err)
		return
	}
	dtos := make([]UserDTO, len(users))
	for i, u := range users {
		dtos[i] = toUserDTO(u)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateUser creates a user.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" {
		writeError(w, http.StatusBadRequest, "Name and email are required", nil)
		return
	}

	u := kpi.User{
		ID:        req.ID,
		Name:      req.Name,
		Email:     req.Email,
		Admin:     req.Admin,
		CreatedAt: h.Clock.Now(),
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if err := h.Store.SaveUser(r.Context(), u); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save user", err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserDTO(u))
}

// GetUser returns one user.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.Store.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if kpi.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "User not found", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get user", err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(*u))
}

// =============================================================================
// KPI HANDLERS
// =============================================================================

// ListKPIs returns all KPIs.
func (h *Handler) ListKPIs(w http.ResponseWriter, r *http.Request) {
	kpis, err := h.Store.ListKPIs(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list kpis", err)
		return
	}
	dtos := make([]KpiDTO, len(kpis))
	for i, k := range kpis {
		dtos[i] = toKpiDTO(k)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateKPI creates a KPI.
func (h *Handler) CreateKPI(w http.ResponseWriter, r *http.Request) {
	var req CreateKpiRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "Name is required", nil)
		return
	}

	interval, err := kpi.ParseInterval(req.Interval)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid interval", err)
		return
	}

	if _, err := h.Store.GetUser(r.Context(), req.OwnerID); err != nil {
		if kpi.IsNotFound(err) {
			writeError(w, http.StatusBadRequest, "Owner does not exist", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to resolve owner", err)
		return
	}

	k := kpi.KPI{
		ID:        req.ID,
		Name:      req.Name,
		Interval:  interval,
		Unit:      req.Unit,
		OwnerID:   req.OwnerID,
		CreatedAt: h.Clock.Now(),
	}
	if k.ID == "" {
		k.ID = uuid.NewString()
	}
	if req.Target != "" {
		target, err := kpi.ParseDecimalValue(req.Target)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid target value", err)
			return
		}
		k.Target = &target
	}

	if err := h.Store.SaveKPI(r.Context(), k); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save kpi", err)
		return
	}
	writeJSON(w, http.StatusCreated, toKpiDTO(k))
}

// GetKPI returns one KPI.
func (h *Handler) GetKPI(w http.ResponseWriter, r *http.Request) {
	k, err := h.Store.GetKPI(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if kpi.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "KPI not found", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get kpi", err)
		return
	}
	writeJSON(w, http.StatusOK, toKpiDTO(*k))
}

// DeleteKPI removes a KPI and its recorded values.
func (h *Handler) DeleteKPI(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteKPI(r.Context(), chi.URLParam(r, "id")); err != nil {
		if kpi.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "KPI not found", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete kpi", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// VALUE HANDLERS
// =============================================================================

// RecordValue stores one measurement for a period. Comma and dot decimal
// separators are both accepted; the stored form is canonical.
func (h *Handler) RecordValue(w http.ResponseWriter, r *http.Request) {
	k, err := h.Store.GetKPI(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if kpi.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "KPI not found", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get kpi", err)
		return
	}

	var req RecordValueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	amount, err := kpi.ParseDecimalValue(req.Value)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid value", err)
		return
	}

	var period kpi.Period
	if req.Period == "" {
		period = kpi.CurrentPeriod(k.Interval, h.Clock.Now())
	} else {
		period, err = kpi.ParsePeriod(req.Period)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid period", err)
			return
		}
		// A well-formed period of the wrong cadence (a week on a monthly KPI)
		// would be stored but never evaluated; reject it here so the user
		// does not believe they reported.
		if k.Interval.Valid() && period.IntervalOf() != k.Interval {
			writeError(w, http.StatusBadRequest, "Period does not match KPI interval",
				&kpi.PeriodMismatchError{KpiID: k.ID, Period: period, Interval: k.Interval})
			return
		}
	}

	v := kpi.Value{
		ID:        uuid.NewString(),
		KpiID:     k.ID,
		Period:    period,
		Amount:    amount,
		CreatedAt: h.Clock.Now(),
	}
	if err := h.Store.SaveValue(r.Context(), v); err != nil {
		if errors.Is(err, kpi.ErrDuplicateValue) {
			writeError(w, http.StatusConflict, "Value already recorded for period", err)
			return
		}
		if kpi.IsClientError(err) {
			writeError(w, http.StatusBadRequest, "Invalid value for KPI", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to save value", err)
		return
	}
	writeJSON(w, http.StatusCreated, toValueDTO(v))
}

// ListValues returns all recorded values of one KPI.
func (h *Handler) ListValues(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.Store.GetKPI(r.Context(), id); err != nil {
		if kpi.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "KPI not found", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get kpi", err)
		return
	}
	values, err := h.Store.ListValues(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list values", err)
		return
	}
	dtos := make([]ValueDTO, len(values))
	for i, v := range values {
		dtos[i] = toValueDTO(v)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// STATUS HANDLERS
// =============================================================================

// GetStatus returns the derived status of one KPI.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	k, err := h.Store.GetKPI(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if kpi.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "KPI not found", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get kpi", err)
		return
	}

	now := h.Clock.Now()
	eval, err := h.Engine.Evaluate(r.Context(), h.Store, *k, now)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to evaluate status", err)
		return
	}
	writeJSON(w, http.StatusOK, statusDTO(*k, eval, now))
}

// StatusOverview returns the traffic-light view of the whole population.
// "now" is read once so every KPI is judged against the same instant.
func (h *Handler) StatusOverview(w http.ResponseWriter, r *http.Request) {
	kpis, err := h.Store.ListKPIs(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list kpis", err)
		return
	}

	now := h.Clock.Now()
	overview := StatusOverviewDTO{AsOf: now.Format(timeLayout), Kpis: []StatusDTO{}}

	for _, k := range kpis {
		eval, err := h.Engine.Evaluate(r.Context(), h.Store, k, now)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to evaluate status", err)
			return
		}
		switch eval.Status {
		case kpi.StatusGreen:
			overview.Green++
		case kpi.StatusYellow:
			overview.Yellow++
		case kpi.StatusRed:
			overview.Red++
		}
		overview.Kpis = append(overview.Kpis, statusDTO(k, eval, now))
	}

	h.Metrics.KpisByStatus.WithLabelValues(string(kpi.StatusGreen)).Set(float64(overview.Green))
	h.Metrics.KpisByStatus.WithLabelValues(string(kpi.StatusYellow)).Set(float64(overview.Yellow))
	h.Metrics.KpisByStatus.WithLabelValues(string(kpi.StatusRed)).Set(float64(overview.Red))

	writeJSON(w, http.StatusOK, overview)
}

func statusDTO(k kpi.KPI, eval kpi.Evaluation, now time.Time) StatusDTO {
	return StatusDTO{
		KpiID:         k.ID,
		Name:          k.Name,
		Status:        string(eval.Status),
		CurrentPeriod: eval.CurrentPeriod.String(),
		PeriodDisplay: eval.CurrentPeriod.Format(),
		NextDue:       eval.NextDue.Format("2006-01-02"),
		HasValue:      eval.HasValue,
		AsOf:          now.Format(timeLayout),
	}
}

// =============================================================================
// REMINDER HANDLERS
// =============================================================================

// PreviewReminders computes today's decisions without dispatching anything.
// This is the dry-run surface used by operational tooling.
func (h *Handler) PreviewReminders(w http.ResponseWriter, r *http.Request) {
	result, err := h.Evaluator.Evaluate(r.Context(), h.Clock.Now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to evaluate reminders", err)
		return
	}
	writeJSON(w, http.StatusOK, toRunResultDTO(result, true))
}

// TriggerReminders evaluates and dispatches immediately, outside the daily
// schedule. Intended for admins and tests.
func (h *Handler) TriggerReminders(w http.ResponseWriter, r *http.Request) {
	now := h.Clock.Now()
	result, err := h.Evaluator.Evaluate(r.Context(), now)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to evaluate reminders", err)
		return
	}
	if err := h.Dispatcher.Dispatch(r.Context(), result); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to dispatch reminders", err)
		return
	}
	recordRunMetrics(h.Metrics, result)
	writeJSON(w, http.StatusOK, toRunResultDTO(result, false))
}

// ListReminderRuns returns the scheduler audit trail.
func (h *Handler) ListReminderRuns(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := h.Store.ListReminderRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list reminder runs", err)
		return
	}
	dtos := make([]ReminderRunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toReminderRunDTO(run)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func recordRunMetrics(m *metrics.Metrics, result *reminder.RunResult) {
	for _, r := range result.Reminders {
		m.RemindersTotal.WithLabelValues(string(r.Decision.Kind)).Inc()
	}
	m.EscalationsTotal.Add(float64(len(result.Escalations)))
	m.RunErrorsTotal.Add(float64(len(result.Errors)))
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
