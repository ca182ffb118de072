package optimizer

import (
	"context"
	"fmt"
	"sync"

	"github.com/segmentio/goalctl/pkg/goals"
	"github.com/segmentio/goalctl/pkg/model"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Candidate is the outcome of optimizing one goal list over a private copy of a cluster.
type Candidate struct {
	Index   int
	Goals   []goals.Goal
	Cluster *model.ClusterModel
	Result  *OptimizerResult
}

// OptimizeCandidates runs the optimizer once per goal list, in parallel, each over its own
// clone of the argument cluster. The argument cluster isn't mutated. Candidates are returned
// in the order of the goal lists; the first failing run cancels the others.
func (g *GoalOptimizer) OptimizeCandidates(
	ctx context.Context,
	cluster *model.ClusterModel,
	goalLists [][]goals.Goal,
) ([]Candidate, error) {
	candidates := make([]Candidate, len(goalLists))
	for i, goalList := range goalLists {
		candidates[i] = Candidate{
			Index:   i,
			Goals:   goalList,
			Cluster: cluster.Clone(),
		}
	}

	eg, egCtx := errgroup.WithContext(ctx)
	mutex := sync.Mutex{}

	f := func(index int) func() error {
		return func() error {
			result, err := g.Optimizations(egCtx, candidates[index].Cluster, candidates[index].Goals, nil)
			if err != nil {
				return fmt.Errorf("Candidate %d failed: %w", index, err)
			}

			mutex.Lock()
			candidates[index].Result = result
			mutex.Unlock()
			return nil
		}
	}

	for i := range candidates {
		eg.Go(f(i))
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return candidates, nil
}

// BestCandidate picks the candidate with the fewest violated goals, then the fewest replica
// movements, then the fewest leadership movements. Earlier candidates win ties.
func BestCandidate(candidates []Candidate) (Candidate, error) {
	if len(candidates) == 0 {
		return Candidate{}, fmt.Errorf("No candidates to choose from")
	}

	best := candidates[0]
	for _, candidate := range candidates[1:] {
		if candidateLess(candidate, best) {
			best = candidate
		}
	}

	log.Debugf(
		"Picked candidate %d with %d violated goals and %d proposals",
		best.Index,
		len(best.Result.ViolatedGoalsAfterOptimization),
		len(best.Result.Proposals),
	)
	return best, nil
}

func candidateLess(a Candidate, b Candidate) bool {
	aViolated := len(a.Result.ViolatedGoalsAfterOptimization)
	bViolated := len(b.Result.ViolatedGoalsAfterOptimization)
	if aViolated != bViolated {
		return aViolated < bViolated
	}

	aReplicas := a.Result.NumReplicaMovements()
	bReplicas := b.Result.NumReplicaMovements()
	if aReplicas != bReplicas {
		return aReplicas < bReplicas
	}

	return a.Result.NumLeaderMovements() < b.Result.NumLeaderMovements()
}
