package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors, registered via Register.
var (
	regOK atomic.Bool

	phaseRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stagehand",
			Subsystem: "orchestrator",
			Name:      "phase_runs_total",
			Help:      "Number of phase executions by phase and outcome.",
		}, []string{"phase", "outcome"},
	)
	unitStarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stagehand",
			Subsystem: "unit",
			Name:      "starts_total",
			Help:      "Number of successful unit starts.",
		}, []string{"unit"},
	)
	unitStops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stagehand",
			Subsystem: "unit",
			Name:      "stops_total",
			Help:      "Number of unit stop signals sent.",
		}, []string{"unit"},
	)
	readyWait = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "stagehand",
			Subsystem: "unit",
			Name:      "ready_wait_seconds",
			Help:      "Time spent gating on unit readiness.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"unit"},
	)
	stateTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stagehand",
			Subsystem: "unit",
			Name:      "state_transitions_total",
			Help:      "Number of unit state transitions.",
		}, []string{"unit", "from", "to"},
	)
	currentState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "stagehand",
			Subsystem: "unit",
			Name:      "current_state",
			Help:      "Current unit state (1 = active state, 0 = inactive).",
		}, []string{"unit", "state"},
	)
)

// Register registers all collectors with r. Safe to call more than once.
func Register(r prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{phaseRuns, unitStarts, unitStops, readyWait, stateTransitions, currentState} {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler serves the default gatherer; the caller wires the route.
func Handler() http.Handler { return promhttp.Handler() }

// Helpers below no-op until Register has been called.

func IncPhaseRun(phase, outcome string) {
	if regOK.Load() {
		phaseRuns.WithLabelValues(phase, outcome).Inc()
	}
}

func IncUnitStart(unit string) {
	if regOK.Load() {
		unitStarts.WithLabelValues(unit).Inc()
	}
}

func IncUnitStop(unit string) {
	if regOK.Load() {
		unitStops.WithLabelValues(unit).Inc()
	}
}

func ObserveReadyWait(unit string, seconds float64) {
	if regOK.Load() {
		readyWait.WithLabelValues(unit).Observe(seconds)
	}
}

func RecordStateTransition(unit, from, to string) {
	if !regOK.Load() {
		return
	}
	stateTransitions.WithLabelValues(unit, from, to).Inc()
	currentState.WithLabelValues(unit, from).Set(0)
	currentState.WithLabelValues(unit, to).Set(1)
}
