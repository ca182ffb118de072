package goals

import (
	"fmt"
	"sort"

	"github.com/segmentio/goalctl/pkg/model"
	log "github.com/sirupsen/logrus"
)

// CapacityGoal is a hard goal that keeps the load of a resource on every alive broker under
// its capacity times the capacity threshold.
type CapacityGoal struct {
	goalBase
	resource model.Resource
}

var _ Goal = (*CapacityGoal)(nil)

// NewCapacityGoal returns the capacity goal for the argument resource.
func NewCapacityGoal(constraint *model.BalancingConstraint, resource model.Resource) *CapacityGoal {
	return &CapacityGoal{
		goalBase: goalBase{
			name:       capacityGoalNames[resource],
			hard:       true,
			constraint: constraint,
		},
		resource: resource,
	}
}

// Resource returns the resource capped by the goal.
func (c *CapacityGoal) Resource() model.Resource {
	return c.resource
}

func (c *CapacityGoal) limit(broker *model.Broker) float64 {
	return broker.CapacityFor(c.resource) * c.constraint.CapacityThreshold(c.resource)
}

func (c *CapacityGoal) withinLimit(broker *model.Broker, extra float64) bool {
	return broker.Load()[c.resource]+extra <= c.limit(broker)+epsilon
}

func (c *CapacityGoal) IsSatisfied(cluster *model.ClusterModel) bool {
	for _, broker := range cluster.AliveBrokers() {
		if !c.withinLimit(broker, 0.0) {
			return false
		}
	}
	return true
}

func (c *CapacityGoal) ActionAcceptance(
	action BalancingAction,
	cluster *model.ClusterModel,
) ActionAcceptance {
	for brokerID, delta := range actionDeltas(action, cluster) {
		change := delta.load[c.resource]
		if change <= 0 {
			continue
		}
		broker := cluster.Broker(brokerID)
		if broker == nil || !c.withinLimit(broker, change) {
			if action.Type == ActionReplicaMovement {
				return BrokerReject
			}
			return ReplicaReject
		}
	}
	return Accept
}

func (c *CapacityGoal) Comparator() Comparator {
	return hardComparator
}

func (c *CapacityGoal) healingScore(
	cluster *model.ClusterModel,
	replica *model.Replica,
	dest *model.Broker,
) float64 {
	extra := replica.Load()[c.resource]
	score := utilizationWith(dest, c.resource, extra)
	if !c.withinLimit(dest, extra) {
		score += overLimitPenalty
	}
	return score
}

func (c *CapacityGoal) Optimize(cluster *model.ClusterModel, optimizedGoals []Goal) error {
	if err := selfHeal(c, c.constraint, cluster, optimizedGoals); err != nil {
		return err
	}

	picker, err := c.picker(cluster)
	if err != nil {
		return err
	}
	r := newRestrictions(c.constraint, cluster, true)

	applied := 0
	maxRounds := c.maxRounds(cluster)

	for applied < maxRounds {
		overloaded := []*model.Broker{}
		for _, broker := range cluster.AliveBrokers() {
			if !c.withinLimit(broker, 0.0) {
				overloaded = append(overloaded, broker)
			}
		}
		if len(overloaded) == 0 {
			break
		}
		sort.SliceStable(overloaded, func(a, b int) bool {
			return overloaded[a].Load()[c.resource]-c.limit(overloaded[a]) >
				overloaded[b].Load()[c.resource]-c.limit(overloaded[b])
		})

		scores := map[int]float64{}
		destIDs := []int{}
		for _, broker := range cluster.AliveBrokers() {
			scores[broker.ID()] = broker.Utilization(c.resource)
			destIDs = append(destIDs, broker.ID())
		}

		found := false
		for _, source := range overloaded {
			actions := []BalancingAction{}
			if c.resource == model.ResourceCPU || c.resource == model.ResourceNetworkOutbound {
				actions = append(actions, leadershipMovements(cluster, source.ID(), c.resource)...)
			}

			loaded := []*model.Replica{}
			for _, replica := range replicasByLoad(cluster, source.ID(), c.resource) {
				if replica.Load()[c.resource] > 0 {
					loaded = append(loaded, replica)
				}
			}
			actions = append(
				actions,
				replicaMovements(cluster, picker, r, loaded, destIDs, scores)...,
			)

			action, ok := firstApplicable(
				cluster,
				r,
				actions,
				optimizedGoals,
				func(action BalancingAction) bool {
					return c.ActionAcceptance(action, cluster) == Accept
				},
			)
			if !ok {
				continue
			}

			log.Debugf("%s: applying %s", c.name, action)
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

	log.Debugf("%s: applied %d actions", c.name, applied)
	return nil
}
