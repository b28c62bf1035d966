package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// METRICS - Prometheus counters for the hot operations
// =============================================================================

var (
	metricLedgerAppends = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_ledger_appends_total",
		Help: "Ledger entries appended, by kind.",
	}, []string{"kind"})

	metricDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_decisions_total",
		Help: "Operator decisions, by lifecycle and outcome.",
	}, []string{"lifecycle", "outcome"})

	metricAccrualRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "engine_accrual_runs_total",
		Help: "Invocations of the daily accrual job.",
	})

	metricAccrualCredits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "engine_accrual_credits_total",
		Help: "Slots credited by the daily accrual job.",
	})

	metricInvariantViolations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "engine_invariant_violations_total",
		Help: "Detected engine invariant violations. Any nonzero value is a bug.",
	})
)

func observeAppend(kind EntryKind) { metricLedgerAppends.WithLabelValues(string(kind)).Inc() }

func observeDecision(lifecycle, outcome string) {
	metricDecisions.WithLabelValues(lifecycle, outcome).Inc()
}

func observeInvariantViolation() { metricInvariantViolations.Inc() }
