package goals

import (
	"fmt"

	"github.com/segmentio/goalctl/pkg/model"
	log "github.com/sirupsen/logrus"
)

// RackAwareGoal is a hard goal that places the replicas of each partition on distinct racks.
type RackAwareGoal struct {
	goalBase
}

var _ Goal = (*RackAwareGoal)(nil)

// NewRackAwareGoal returns a new RackAwareGoal.
func NewRackAwareGoal(constraint *model.BalancingConstraint) *RackAwareGoal {
	return &RackAwareGoal{
		goalBase: goalBase{
			name:       RackAwareGoalName,
			hard:       true,
			constraint: constraint,
		},
	}
}

// partitionRacks returns the number of replicas of a partition per rack, ignoring the
// argument replica.
func partitionRacks(
	cluster *model.ClusterModel,
	tp model.TopicPartition,
	ignore model.ReplicaID,
) map[string]int {
	racks := map[string]int{}
	for _, replica := range cluster.PartitionReplicas(tp) {
		if replica.ID() == ignore {
			continue
		}
		racks[cluster.Broker(replica.BrokerID()).Rack()]++
	}
	return racks
}

func (g *RackAwareGoal) IsSatisfied(cluster *model.ClusterModel) bool {
	for _, tp := range cluster.TopicPartitions() {
		for _, count := range partitionRacks(cluster, tp, -1) {
			if count > 1 {
				return false
			}
		}
	}
	return true
}

func (g *RackAwareGoal) ActionAcceptance(
	action BalancingAction,
	cluster *model.ClusterModel,
) ActionAcceptance {
	if action.Type != ActionReplicaMovement {
		return Accept
	}
	dest := cluster.Broker(action.DestBroker)
	if dest == nil {
		return BrokerReject
	}
	racks := partitionRacks(cluster, action.TopicPartition, action.Replica)
	if racks[dest.Rack()] > 0 {
		return BrokerReject
	}
	return Accept
}

func (g *RackAwareGoal) Comparator() Comparator {
	return hardComparator
}

func (g *RackAwareGoal) healingScore(
	cluster *model.ClusterModel,
	replica *model.Replica,
	dest *model.Broker,
) float64 {
	score := float64(dest.NumReplicas())
	racks := partitionRacks(cluster, replica.TopicPartition(), replica.ID())
	if racks[dest.Rack()] > 0 {
		score += overLimitPenalty
	}
	return score
}

// misplacedReplicas returns the replicas that share a rack with an earlier replica of the same
// partition. Leaders are never returned when a follower on the same rack can move instead.
func (g *RackAwareGoal) misplacedReplicas(
	cluster *model.ClusterModel,
	tp model.TopicPartition,
) []*model.Replica {
	byRack := map[string][]*model.Replica{}
	racks := []string{}
	for _, replica := range cluster.PartitionReplicas(tp) {
		rack := cluster.Broker(replica.BrokerID()).Rack()
		if _, ok := byRack[rack]; !ok {
			racks = append(racks, rack)
		}
		byRack[rack] = append(byRack[rack], replica)
	}

	misplaced := []*model.Replica{}
	for _, rack := range racks {
		replicas := byRack[rack]
		if len(replicas) < 2 {
			continue
		}
		keep := 0
		for r, replica := range replicas {
			if replica.IsLeader() {
				keep = r
			}
		}
		for r, replica := range replicas {
			if r != keep {
				misplaced = append(misplaced, replica)
			}
		}
	}
	return misplaced
}

func (g *RackAwareGoal) Optimize(cluster *model.ClusterModel, optimizedGoals []Goal) error {
	if err := selfHeal(g, g.constraint, cluster, optimizedGoals); err != nil {
		return err
	}

	picker, err := g.picker(cluster)
	if err != nil {
		return err
	}
	r := newRestrictions(g.constraint, cluster, true)

	applied := 0
	unresolved := 0

	for _, tp := range cluster.TopicPartitions() {
		for _, replica := range g.misplacedReplicas(cluster, tp) {
			scores := map[int]float64{}
			destIDs := []int{}
			for _, broker := range cluster.AliveBrokers() {
				scores[broker.ID()] = float64(broker.NumReplicas())
				destIDs = append(destIDs, broker.ID())
			}

			actions := replicaMovements(
				cluster,
				picker,
				r,
				[]*model.Replica{replica},
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
				unresolved++
				continue
			}

			log.Debugf("%s: applying %s", g.name, action)
			if err := action.Apply(cluster); err != nil {
				return fmt.Errorf("Error applying %s: %w", action, err)
			}
			applied++
		}
	}

	if unresolved > 0 {
		log.Debugf("%s: could not place %d replicas on distinct racks", g.name, unresolved)
	}
	log.Debugf("%s: applied %d actions", g.name, applied)
	return nil
}
