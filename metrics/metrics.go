// Package metrics provides Prometheus metrics for the KPI engine server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the server.
type Metrics struct {
	ReminderRunsTotal *prometheus.CounterVec
	RemindersTotal    *prometheus.CounterVec
	EscalationsTotal  prometheus.Counter
	RunErrorsTotal    prometheus.Counter
	RunDuration       prometheus.Histogram
	KpisByStatus      *prometheus.GaugeVec

	registry *prometheus.Registry
}

// New creates and registers all metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		ReminderRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kpi_reminder_runs_total",
				Help: "Total number of reminder evaluation runs by outcome.",
			},
			[]string{"status"},
		),
		RemindersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kpi_reminders_total",
				Help: "Total reminder decisions dispatched by kind.",
			},
			[]string{"kind"},
		),
		EscalationsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "kpi_escalations_total",
				Help: "Total administrator escalations dispatched.",
			},
		),
		RunErrorsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "kpi_reminder_run_errors_total",
				Help: "Total per-KPI errors collected during reminder runs.",
			},
		),
		RunDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "kpi_reminder_run_duration_seconds",
				Help:    "Duration of full-population reminder runs.",
				Buckets: prometheus.DefBuckets,
			},
		),
		KpisByStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "kpi_population_by_status",
				Help: "KPIs by traffic-light status as of the last evaluation.",
			},
			[]string{"status"},
		),
		registry: reg,
	}

	reg.MustRegister(
		m.ReminderRunsTotal,
		m.RemindersTotal,
		m.EscalationsTotal,
		m.RunErrorsTotal,
		m.RunDuration,
		m.KpisByStatus,
	)
	return m
}

// Handler returns the HTTP handler serving the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
