package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	globalMetrics *Metrics
	globalMu      sync.RWMutex
)

// Metrics holds all Prometheus metrics for Rotapost
type Metrics struct {
	// Publication counters
	PublicationsSentTotal   *prometheus.CounterVec
	PublicationsFailedTotal *prometheus.CounterVec

	// Schedule gauges
	SlotsPending    prometheus.Gauge
	SlotsProcessing prometheus.Gauge

	// Planner counters
	PlannerRunsTotal    *prometheus.CounterVec
	PlannerSlotsPlanned prometheus.Counter

	// Dispatch metrics
	DispatchTicksTotal      prometheus.Counter
	DispatchSkippedTotal    *prometheus.CounterVec
	DispatchDurationSeconds prometheus.Histogram
	SlotsReclaimedTotal     prometheus.Counter
	SlotsExpiredTotal       prometheus.Counter
	SlotsInvalidatedTotal   prometheus.Counter

	// API metrics
	APIRequestsTotal          *prometheus.CounterVec
	APIRequestDurationSeconds *prometheus.HistogramVec

	registry *prometheus.Registry
}

// New creates a new Metrics instance with all metrics registered
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		PublicationsSentTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rotapost_publications_sent_total",
				Help: "Total number of successfully delivered publications",
			},
			[]string{"company"},
		),
		PublicationsFailedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rotapost_publications_failed_total",
				Help: "Total number of failed publication attempts",
			},
			[]string{"company"},
		),

		SlotsPending: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "rotapost_slots_pending",
				Help: "Number of pending slots in today's schedule",
			},
		),
		SlotsProcessing: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "rotapost_slots_processing",
				Help: "Number of slots currently claimed by dispatch",
			},
		),

		PlannerRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rotapost_planner_runs_total",
				Help: "Total number of planning runs",
			},
			[]string{"trigger"},
		),
		PlannerSlotsPlanned: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "rotapost_planner_slots_planned_total",
				Help: "Total number of slots produced by planning runs",
			},
		),

		DispatchTicksTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "rotapost_dispatch_ticks_total",
				Help: "Total number of dispatch ticks",
			},
		),
		DispatchSkippedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rotapost_dispatch_skipped_total",
				Help: "Total number of dispatch ticks that sent nothing",
			},
			[]string{"reason"},
		),
		DispatchDurationSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "rotapost_dispatch_duration_seconds",
				Help:    "Duration of dispatch ticks in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30},
			},
		),
		SlotsReclaimedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "rotapost_slots_reclaimed_total",
				Help: "Total number of stale processing slots returned to pending",
			},
		),
		SlotsExpiredTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "rotapost_slots_expired_total",
				Help: "Total number of pending slots expired after their day passed",
			},
		),
		SlotsInvalidatedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "rotapost_slots_invalidated_total",
				Help: "Total number of pending slots invalidated by post state changes",
			},
		),

		APIRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rotapost_api_requests_total",
				Help: "Total number of API requests",
			},
			[]string{"method", "path", "status"},
		),
		APIRequestDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rotapost_api_request_duration_seconds",
				Help:    "Duration of API requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		registry: reg,
	}

	reg.MustRegister(
		m.PublicationsSentTotal,
		m.PublicationsFailedTotal,
		m.SlotsPending,
		m.SlotsProcessing,
		m.PlannerRunsTotal,
		m.PlannerSlotsPlanned,
		m.DispatchTicksTotal,
		m.DispatchSkippedTotal,
		m.DispatchDurationSeconds,
		m.SlotsReclaimedTotal,
		m.SlotsExpiredTotal,
		m.SlotsInvalidatedTotal,
		m.APIRequestsTotal,
		m.APIRequestDurationSeconds,
	)

	return m
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// SetGlobal sets the global metrics instance
func SetGlobal(m *Metrics) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalMetrics = m
}

// Global returns the global metrics instance
func Global() *Metrics {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalMetrics
}

// IncPublicationsSent increments the sent publication counter
func IncPublicationsSent(company string) {
	m := Global()
	if m != nil {
		m.PublicationsSentTotal.WithLabelValues(company).Inc()
	}
}

// IncPublicationsFailed increments the failed publication counter
func IncPublicationsFailed(company string) {
	m := Global()
	if m != nil {
		m.PublicationsFailedTotal.WithLabelValues(company).Inc()
	}
}

// SetSlotGauges updates the pending and processing slot gauges
func SetSlotGauges(pending, processing int64) {
	m := Global()
	if m != nil {
		m.SlotsPending.Set(float64(pending))
		m.SlotsProcessing.Set(float64(processing))
	}
}

// IncPlannerRuns increments the planning run counter
func IncPlannerRuns(trigger string) {
	m := Global()
	if m != nil {
		m.PlannerRunsTotal.WithLabelValues(trigger).Inc()
	}
}

// AddPlannerSlots adds to the planned slot counter
func AddPlannerSlots(n int) {
	m := Global()
	if m != nil {
		m.PlannerSlotsPlanned.Add(float64(n))
	}
}

// IncDispatchTicks increments the dispatch tick counter
func IncDispatchTicks() {
	m := Global()
	if m != nil {
		m.DispatchTicksTotal.Inc()
	}
}

// IncDispatchSkipped increments the skipped tick counter
func IncDispatchSkipped(reason string) {
	m := Global()
	if m != nil {
		m.DispatchSkippedTotal.WithLabelValues(reason).Inc()
	}
}

// ObserveDispatchDuration records how long a dispatch tick took
func ObserveDispatchDuration(seconds float64) {
	m := Global()
	if m != nil {
		m.DispatchDurationSeconds.Observe(seconds)
	}
}

// AddSlotsReclaimed adds to the reclaimed slot counter
func AddSlotsReclaimed(n int64) {
	m := Global()
	if m != nil && n > 0 {
		m.SlotsReclaimedTotal.Add(float64(n))
	}
}

// AddSlotsExpired adds to the expired slot counter
func AddSlotsExpired(n int64) {
	m := Global()
	if m != nil && n > 0 {
		m.SlotsExpiredTotal.Add(float64(n))
	}
}

// AddSlotsInvalidated adds to the invalidated slot counter
func AddSlotsInvalidated(n int64) {
	m := Global()
	if m != nil && n > 0 {
		m.SlotsInvalidatedTotal.Add(float64(n))
	}
}
