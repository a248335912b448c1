// Package metrics exposes Prometheus metrics and the health endpoint of
// the monitor.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Tick outcomes.
const (
	OutcomeOutsideWindow = "outside_window"
	OutcomeFetchError    = "fetch_error"
	OutcomeNoChange      = "no_change"
	OutcomeChanged       = "changed"
)

// Metrics holds all Prometheus metrics for the monitor.
type Metrics struct {
	TicksTotal    *prometheus.CounterVec // labels: outcome
	FetchDuration prometheus.Histogram
	ChangesTotal  *prometheus.CounterVec // labels: instrument
	LastRate      *prometheus.GaugeVec   // labels: instrument, side

	// History sinks
	SinkWritesTotal   *prometheus.CounterVec   // labels: sink, result
	SinkWriteDuration *prometheus.HistogramVec // labels: sink
	BufferedRecords   *prometheus.GaugeVec     // labels: sink
	DroppedRecords    *prometheus.CounterVec   // labels: sink
	BreakerState      *prometheus.GaugeVec     // labels: sink; 0=closed, 1=open, 2=half-open

	// Store failures
	StoreErrorsTotal *prometheus.CounterVec // labels: store, op

	NotificationsTotal *prometheus.CounterVec // labels: kind, result

	// Market session state
	MarketPhase        prometheus.Gauge       // markethours.Phase value
	SessionTransitions *prometheus.CounterVec // labels: type=open|close|reset

	FeedClients prometheus.Gauge
}

// NewMetrics creates every metric and registers it with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TicksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dolarwatch_ticks_total",
			Help: "Monitoring ticks by outcome",
		}, []string{"outcome"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dolarwatch_fetch_duration_seconds",
			Help:    "Quote provider request latency",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		ChangesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dolarwatch_changes_total",
			Help: "Significant changes detected per instrument",
		}, []string{"instrument"}),
		LastRate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dolarwatch_rate",
			Help: "Last observed rate per instrument and side",
		}, []string{"instrument", "side"}),
		SinkWritesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dolarwatch_sink_writes_total",
			Help: "History sink writes by sink and result",
		}, []string{"sink", "result"}),
		SinkWriteDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dolarwatch_sink_write_duration_seconds",
			Help:    "History sink write latency",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		}, []string{"sink"}),
		BufferedRecords: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dolarwatch_sink_buffered_records",
			Help: "Records waiting for a remote sink to recover",
		}, []string{"sink"}),
		DroppedRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dolarwatch_sink_dropped_records_total",
			Help: "Records dropped because the retry buffer was full",
		}, []string{"sink"}),
		BreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dolarwatch_sink_circuit_breaker_state",
			Help: "Circuit breaker state: 0=closed, 1=open, 2=half-open",
		}, []string{"sink"}),
		StoreErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dolarwatch_store_errors_total",
			Help: "Local store read/write failures",
		}, []string{"store", "op"}),
		NotificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dolarwatch_notifications_total",
			Help: "Notifications by kind and result",
		}, []string{"kind", "result"}),
		MarketPhase: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dolarwatch_market_phase",
			Help: "0=closed, 1=open_pending, 2=open_notified, 3=within_window, 4=close_notified",
		}),
		SessionTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dolarwatch_session_transitions_total",
			Help: "Market session transitions",
		}, []string{"type"}),
		FeedClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dolarwatch_feed_clients",
			Help: "Connected live feed websocket clients",
		}),
	}

	reg.MustRegister(
		m.TicksTotal,
		m.FetchDuration,
		m.ChangesTotal,
		m.LastRate,
		m.SinkWritesTotal,
		m.SinkWriteDuration,
		m.BufferedRecords,
		m.DroppedRecords,
		m.BreakerState,
		m.StoreErrorsTotal,
		m.NotificationsTotal,
		m.MarketPhase,
		m.SessionTransitions,
		m.FeedClients,
	)

	return m
}

// Result maps an error to the "ok"/"error" label value.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
