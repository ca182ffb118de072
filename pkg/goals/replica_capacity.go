package goals

import (
	"fmt"

	"github.com/segmentio/goalctl/pkg/model"
	log "github.com/sirupsen/logrus"
)

// overLimitPenalty pushes destinations that would break a hard limit behind all others.
const overLimitPenalty = 1e6

// ReplicaCapacityGoal is a hard goal that caps the number of replicas on each alive broker.
type ReplicaCapacityGoal struct {
	goalBase
}

var _ Goal = (*ReplicaCapacityGoal)(nil)

// NewReplicaCapacityGoal returns a new ReplicaCapacityGoal.
func NewReplicaCapacityGoal(constraint *model.BalancingConstraint) *ReplicaCapacityGoal {
	return &ReplicaCapacityGoal{
		goalBase: goalBase{
			name:       ReplicaCapacityGoalName,
			hard:       true,
			constraint: constraint,
		},
	}
}

func (g *ReplicaCapacityGoal) IsSatisfied(cluster *model.ClusterModel) bool {
	for _, broker := range cluster.AliveBrokers() {
		if broker.NumReplicas() > g.constraint.MaxReplicasPerBroker() {
			return false
		}
	}
	return true
}

func (g *ReplicaCapacityGoal) ActionAcceptance(
	action BalancingAction,
	cluster *model.ClusterModel,
) ActionAcceptance {
	if action.Type != ActionReplicaMovement {
		return Accept
	}
	dest := cluster.Broker(action.DestBroker)
	if dest == nil || dest.NumReplicas()+1 > g.constraint.MaxReplicasPerBroker() {
		return BrokerReject
	}
	return Accept
}

func (g *ReplicaCapacityGoal) Comparator() Comparator {
	return hardComparator
}

func (g *ReplicaCapacityGoal) healingScore(
	cluster *model.ClusterModel,
	replica *model.Replica,
	dest *model.Broker,
) float64 {
	score := float64(dest.NumReplicas())
	if dest.NumReplicas()+1 > g.constraint.MaxReplicasPerBroker() {
		score += overLimitPenalty
	}
	return score
}

func (g *ReplicaCapacityGoal) Optimize(cluster *model.ClusterModel, optimizedGoals []Goal) error {
	if err := selfHeal(g, g.constraint, cluster, optimizedGoals); err != nil {
		return err
	}

	picker, err := g.picker(cluster)
	if err != nil {
		return err
	}
	r := newRestrictions(g.constraint, cluster, true)
	maxReplicas := g.constraint.MaxReplicasPerBroker()

	applied := 0
	maxRounds := g.maxRounds(cluster)

	for applied < maxRounds {
		scores := map[int]float64{}
		destIDs := []int{}
		overloaded := []*model.Broker{}

		for _, broker := range cluster.AliveBrokers() {
			scores[broker.ID()] = float64(broker.NumReplicas())
			if broker.NumReplicas() < maxReplicas {
				destIDs = append(destIDs, broker.ID())
			}
			if broker.NumReplicas() > maxReplicas {
				overloaded = append(overloaded, broker)
			}
		}
		if len(overloaded) == 0 || len(destIDs) == 0 {
			break
		}

		found := false
		for _, source := range overloaded {
			actions := replicaMovements(
				cluster,
				picker,
				r,
				followersFirst(cluster, source.ID()),
				destIDs,
				scores,
			)
			action, ok := firstApplicable(
				cluster,
				r,
				actions,
				optimizedGoals,
				func(action BalancingAction) bool {
					return g.ActionAcceptance(action, cluster) == Accept
				},
			)
			if !ok {
				continue
			}

			log.Debugf("%s: applying %s", g.name, action)
			if err := action.Apply(cluster); err != nil {
				return fmt.Errorf("Error applying %s: %w", action, err)
			}
			applied++
			found = true
			break
		}

		if !found {
			break
		}
	}

	log.Debugf("%s: applied %d actions", g.name, applied)
	return nil
}
