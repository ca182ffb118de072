package optimizer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/goalctl/pkg/goals"
	"github.com/segmentio/goalctl/pkg/model"
	"github.com/segmentio/goalctl/pkg/util"
	log "github.com/sirupsen/logrus"
)

const (
	outcomeSucceeded = "succeeded"
	outcomeFailed    = "failed"
	outcomeCancelled = "cancelled"
)

// Config stores the settings of a GoalOptimizer.
type Config struct {
	// SanityCheck makes the optimizer validate the model invariants after every goal and fail
	// the run if any of them is broken.
	SanityCheck bool

	// Metrics is optional.
	Metrics *Metrics
}

// GoalOptimizer runs a list of goals, in priority order, over a cluster model and turns the
// resulting placement changes into proposals.
type GoalOptimizer struct {
	constraint *model.BalancingConstraint
	config     Config
}

// NewGoalOptimizer returns a new GoalOptimizer instance.
func NewGoalOptimizer(constraint *model.BalancingConstraint, config Config) *GoalOptimizer {
	return &GoalOptimizer{
		constraint: constraint,
		config:     config,
	}
}

// Constraint returns the balancing constraint used for stats snapshots.
func (g *GoalOptimizer) Constraint() *model.BalancingConstraint {
	return g.constraint
}

// Optimizations runs each goal in order against the cluster, which is mutated in place. Each
// goal sees the placement left by the ones before it and must not break them.
//
// If a goal fails, the model is rolled back to the state it had before that goal and the
// run's error is returned without a result. If the context is cancelled between goals, the
// partial result is returned along with an error wrapping the context's.
func (g *GoalOptimizer) Optimizations(
	ctx context.Context,
	cluster *model.ClusterModel,
	goalsByPriority []goals.Goal,
	progress *OperationProgress,
) (*OptimizerResult, error) {
	startTime := time.Now()
	result := newOptimizerResult(uuid.NewString())

	result.PreOptimizedStats = cluster.ClusterStats(g.constraint)
	initialPlacement := cluster.Placement()

	log.Debugf(
		"Starting optimization run %s with %d goals over %d brokers and %d replicas",
		result.RunID,
		len(goalsByPriority),
		len(cluster.Brokers()),
		cluster.NumReplicas(),
	)
	progress.start(len(goalsByPriority))

	optimizedGoals := []goals.Goal{}

	for _, goal := range goalsByPriority {
		if err := ctx.Err(); err != nil {
			log.Warnf(
				"Optimization run %s cancelled before goal %s",
				result.RunID,
				goal.Name(),
			)
			result.Cancelled = true
			g.finish(result, cluster, initialPlacement, startTime)
			progress.finish()
			g.config.Metrics.observeRun(outcomeCancelled, result)
			return result, fmt.Errorf("Optimization cancelled before goal %s: %w", goal.Name(), err)
		}

		progress.goalStarted(goal.Name())
		goalStartTime := time.Now()
		checkpoint := cluster.Checkpoint()

		if err := g.optimizeGoal(cluster, goal, optimizedGoals); err != nil {
			if rollbackErr := cluster.Rollback(checkpoint); rollbackErr != nil {
				log.Errorf("Could not roll back goal %s: %+v", goal.Name(), rollbackErr)
			}
			g.config.Metrics.observeRun(outcomeFailed, nil)
			return nil, err
		}

		stats := cluster.ClusterStats(g.constraint)
		result.StatsByGoal[goal.Name()] = stats
		result.ComparatorsByGoal[goal.Name()] = goal.Comparator()
		result.GoalOrder = append(result.GoalOrder, goal.Name())

		satisfied := goal.IsSatisfied(cluster)
		if !satisfied {
			log.Warnf("Goal %s is still violated after optimization", goal.Name())
			result.ViolatedGoalsAfterOptimization = append(
				result.ViolatedGoalsAfterOptimization,
				goal.Name(),
			)
		}

		goalDuration := time.Since(goalStartTime)
		log.Infof(
			"Optimized goal %s in %s (%d model changes)",
			goal.Name(),
			util.PrettyDuration(goalDuration),
			cluster.MutationsSince(checkpoint),
		)
		g.config.Metrics.observeGoal(goal.Name(), goalDuration, satisfied)

		optimizedGoals = append(optimizedGoals, goal)
		progress.goalFinished()
	}

	g.finish(result, cluster, initialPlacement, startTime)
	progress.finish()
	g.config.Metrics.observeRun(outcomeSucceeded, result)

	log.Infof(
		"Optimization run %s generated %d proposals (%d replica, %d leadership) in %s",
		result.RunID,
		len(result.Proposals),
		result.NumReplicaMovements(),
		result.NumLeaderMovements(),
		util.PrettyDuration(result.Duration),
	)

	return result, nil
}

func (g *GoalOptimizer) optimizeGoal(
	cluster *model.ClusterModel,
	goal goals.Goal,
	optimizedGoals []goals.Goal,
) error {
	log.Debugf("Optimizing goal %s", goal.Name())

	if err := goal.Optimize(cluster, optimizedGoals); err != nil {
		return fmt.Errorf("Error optimizing goal %s: %w", goal.Name(), err)
	}
	if g.config.SanityCheck {
		if err := cluster.Sanity(); err != nil {
			return fmt.Errorf("Sanity check failed after goal %s: %w", goal.Name(), err)
		}
	}
	return nil
}

func (g *GoalOptimizer) finish(
	result *OptimizerResult,
	cluster *model.ClusterModel,
	initialPlacement map[model.TopicPartition]model.PartitionPlacement,
	startTime time.Time,
) {
	result.ClusterModelStats = cluster.ClusterStats(g.constraint)
	result.Proposals = diffPlacements(initialPlacement, cluster.Placement())
	result.Duration = time.Since(startTime)
}
