package mutation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for mc_mutations_total.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeAborted = "aborted"
)

var (
	mutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mc_mutations_total",
		Help: "Total mutations by resource and outcome",
	}, []string{"resource", "outcome"})

	optimisticWritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mc_optimistic_writes_total",
		Help: "Total optimistic cache rewrites by resource",
	}, []string{"resource"})

	rollbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mc_mutation_rollbacks_total",
		Help: "Total cache rollbacks after failed mutations by resource",
	}, []string{"resource"})

	mutationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mc_mutation_duration_seconds",
		Help:    "Mutation duration from begin to settle by resource",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"resource"})
)
