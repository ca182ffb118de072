package optimizer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricNamespace = "goalctl"

// Metrics are the prometheus collectors updated by the optimizer. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	runs            *prometheus.CounterVec
	goalDuration    *prometheus.HistogramVec
	violatedGoals   *prometheus.CounterVec
	proposals       prometheus.Counter
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	replicaMoves    prometheus.Counter
	leadershipMoves prometheus.Counter
}

// NewMetrics creates the optimizer collectors and registers them with the argument
// registerer. Callers that don't expose metrics can pass a fresh prometheus.NewRegistry().
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)

	makeCounter := func(name string, help string) prometheus.Counter {
		return factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricNamespace,
			Subsystem: "optimizer",
			Name:      name,
			Help:      help,
		})
	}
	makeCounterVec := func(name string, labelNames []string, help string) *prometheus.CounterVec {
		return factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricNamespace,
			Subsystem: "optimizer",
			Name:      name,
			Help:      help,
		}, labelNames)
	}

	return &Metrics{
		runs: makeCounterVec(
			"runs_total",
			[]string{"outcome"},
			"Number of optimization runs by outcome (succeeded, failed, cancelled)",
		),
		goalDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricNamespace,
			Subsystem: "optimizer",
			Name:      "goal_duration_seconds",
			Help:      "Time spent optimizing a single goal",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"goal"}),
		violatedGoals: makeCounterVec(
			"violated_goals_total",
			[]string{"goal"},
			"Number of times a goal was left unsatisfied after its optimization",
		),
		proposals: makeCounter(
			"proposals_total",
			"Number of partition proposals generated",
		),
		cacheHits: makeCounter(
			"cache_hits_total",
			"Number of optimizations served from the proposal cache",
		),
		cacheMisses: makeCounter(
			"cache_misses_total",
			"Number of optimizations that weren't in the proposal cache",
		),
		replicaMoves: makeCounter(
			"replica_movements_total",
			"Number of proposals that move at least one replica",
		),
		leadershipMoves: makeCounter(
			"leadership_movements_total",
			"Number of proposals that change a partition leader",
		),
	}
}

func (m *Metrics) observeGoal(name string, duration time.Duration, satisfied bool) {
	if m == nil {
		return
	}
	m.goalDuration.WithLabelValues(name).Observe(duration.Seconds())
	if !satisfied {
		m.violatedGoals.WithLabelValues(name).Inc()
	}
}

func (m *Metrics) observeRun(outcome string, result *OptimizerResult) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(outcome).Inc()
	if result != nil {
		m.proposals.Add(float64(len(result.Proposals)))
		m.replicaMoves.Add(float64(result.NumReplicaMovements()))
		m.leadershipMoves.Add(float64(result.NumLeaderMovements()))
	}
}

func (m *Metrics) observeCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}
