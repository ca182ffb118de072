package goals

import (
	"fmt"
	"sort"

	"github.com/segmentio/goalctl/pkg/model"
	"github.com/segmentio/goalctl/pkg/pickers"
	log "github.com/sirupsen/logrus"
)

// distributionGoal is a soft goal that keeps a per-broker metric within a band around its
// cluster average. It only applies actions that lower the standard deviation of the metric, so
// its own stats never get worse during a run except through self-healing.
type distributionGoal struct {
	goalBase

	metricName        string
	balancePercentage float64
	countBased        bool

	// Cluster utilization below which the goal is considered satisfied; negative to disable
	lowUtilizationThreshold float64

	value      func(broker *model.Broker, delta brokerDelta) float64
	average    func(cluster *model.ClusterModel) float64
	statistics func(stats model.ClusterModelStats) model.Statistics
	candidates func(
		cluster *model.ClusterModel,
		picker pickers.Picker,
		r restrictions,
		source *model.Broker,
		destIDs []int,
		scores map[int]float64,
	) []BalancingAction
}

var _ Goal = (*distributionGoal)(nil)

func (d *distributionGoal) band(cluster *model.ClusterModel) (float64, float64) {
	avg := d.average(cluster)
	if d.countBased {
		lower, upper := model.CountBand(avg, d.balancePercentage)
		return float64(lower), float64(upper)
	}
	return model.UtilizationBand(avg, d.balancePercentage)
}

func (d *distributionGoal) isLowUtilization(cluster *model.ClusterModel) bool {
	return d.lowUtilizationThreshold >= 0 && d.average(cluster) < d.lowUtilizationThreshold
}

func (d *distributionGoal) stdDev(cluster *model.ClusterModel, deltas map[int]brokerDelta) float64 {
	values := []float64{}
	for _, broker := range cluster.AliveBrokers() {
		values = append(values, d.value(broker, deltas[broker.ID()]))
	}
	return model.NewStatistics(values).StdDev()
}

func (d *distributionGoal) IsSatisfied(cluster *model.ClusterModel) bool {
	if d.isLowUtilization(cluster) {
		return true
	}

	lower, upper := d.band(cluster)
	for _, broker := range cluster.AliveBrokers() {
		value := d.value(broker, brokerDelta{})
		if value < lower-epsilon || value > upper+epsilon {
			return false
		}
	}
	return true
}

func (d *distributionGoal) ActionAcceptance(
	action BalancingAction,
	cluster *model.ClusterModel,
) ActionAcceptance {
	source := cluster.Broker(action.SourceBroker)
	dest := cluster.Broker(action.DestBroker)
	if source == nil || dest == nil {
		return BrokerReject
	}

	deltas := actionDeltas(action, cluster)
	sourceBefore := d.value(source, brokerDelta{})
	sourceAfter := d.value(source, deltas[source.ID()])
	destBefore := d.value(dest, brokerDelta{})
	destAfter := d.value(dest, deltas[dest.ID()])

	if sourceAfter == sourceBefore && destAfter == destBefore {
		return Accept
	}

	lower, upper := d.band(cluster)
	sourceOK := !source.IsAlive() || sourceAfter >= lower-epsilon
	destOK := destAfter <= upper+epsilon
	if sourceOK && destOK {
		return Accept
	}

	if d.stdDev(cluster, deltas) <= d.stdDev(cluster, nil)+epsilon {
		return Accept
	}

	if destBefore >= upper-epsilon {
		return BrokerReject
	}
	return ReplicaReject
}

func (d *distributionGoal) Comparator() Comparator {
	return stdDevComparator(d.metricName, d.statistics)
}

func (d *distributionGoal) healingScore(
	cluster *model.ClusterModel,
	replica *model.Replica,
	dest *model.Broker,
) float64 {
	delta := brokerDelta{
		load:     replica.Load(),
		replicas: 1,
	}
	if replica.IsLeader() {
		delta.leaders = 1
	}
	return d.value(dest, delta)
}

func (d *distributionGoal) Optimize(cluster *model.ClusterModel, optimizedGoals []Goal) error {
	if err := selfHeal(d, d.constraint, cluster, optimizedGoals); err != nil {
		return err
	}
	if d.isLowUtilization(cluster) {
		log.Debugf("%s: cluster utilization is below the low threshold, skipping", d.name)
		return nil
	}

	picker, err := d.picker(cluster)
	if err != nil {
		return err
	}
	r := newRestrictions(d.constraint, cluster, false)

	applied := 0
	maxRounds := d.maxRounds(cluster)

	for applied < maxRounds {
		action, ok := d.nextAction(cluster, picker, r, optimizedGoals)
		if !ok {
			break
		}
		log.Debugf("%s: applying %s", d.name, action)
		if err := action.Apply(cluster); err != nil {
			return fmt.Errorf("Error applying %s: %w", action, err)
		}
		applied++
	}

	log.Debugf("%s: applied %d actions", d.name, applied)
	return nil
}

// nextAction returns the first action, from the most loaded broker down, that moves load from
// a broker towards a less loaded one, involves a broker outside the band, and strictly lowers
// the standard deviation of the metric.
func (d *distributionGoal) nextAction(
	cluster *model.ClusterModel,
	picker pickers.Picker,
	r restrictions,
	optimizedGoals []Goal,
) (BalancingAction, bool) {
	lower, upper := d.band(cluster)
	before := d.stdDev(cluster, nil)

	alive := cluster.AliveBrokers()
	values := map[int]float64{}
	for _, broker := range alive {
		values[broker.ID()] = d.value(broker, brokerDelta{})
	}

	sources := make([]*model.Broker, len(alive))
	copy(sources, alive)
	sort.SliceStable(sources, func(a, b int) bool {
		return values[sources[a].ID()] > values[sources[b].ID()]
	})

	for _, source := range sources {
		sourceValue := values[source.ID()]

		destIDs := []int{}
		destSet := map[int]struct{}{}
		for _, dest := range alive {
			destValue := values[dest.ID()]
			if destValue >= sourceValue-epsilon {
				continue
			}
			if sourceValue <= upper+epsilon && destValue >= lower-epsilon {
				continue
			}
			destIDs = append(destIDs, dest.ID())
			destSet[dest.ID()] = struct{}{}
		}
		if len(destIDs) == 0 {
			continue
		}

		actions := d.candidates(cluster, picker, r, source, destIDs, values)
		action, ok := firstApplicable(
			cluster,
			r,
			actions,
			optimizedGoals,
			func(action BalancingAction) bool {
				if _, ok := destSet[action.DestBroker]; !ok {
					return false
				}
				return d.stdDev(cluster, actionDeltas(action, cluster)) < before-epsilon
			},
		)
		if ok {
			return action, true
		}
	}

	return BalancingAction{}, false
}

// NewReplicaDistributionGoal returns a soft goal that balances replica counts across the
// alive brokers.
func NewReplicaDistributionGoal(constraint *model.BalancingConstraint) Goal {
	return &distributionGoal{
		goalBase: goalBase{
			name:       ReplicaDistributionGoalName,
			constraint: constraint,
		},
		metricName:              "replica count",
		balancePercentage:       constraint.ReplicaBalancePercentage(),
		countBased:              true,
		lowUtilizationThreshold: -1.0,
		value: func(broker *model.Broker, delta brokerDelta) float64 {
			return float64(broker.NumReplicas() + delta.replicas)
		},
		average: func(cluster *model.ClusterModel) float64 {
			numAlive := len(cluster.AliveBrokers())
			if numAlive == 0 {
				return 0.0
			}
			return float64(cluster.NumReplicas()) / float64(numAlive)
		},
		statistics: func(stats model.ClusterModelStats) model.Statistics {
			return stats.ReplicaCount
		},
		candidates: func(
			cluster *model.ClusterModel,
			picker pickers.Picker,
			r restrictions,
			source *model.Broker,
			destIDs []int,
			scores map[int]float64,
		) []BalancingAction {
			return replicaMovements(
				cluster,
				picker,
				r,
				followersFirst(cluster, source.ID()),
				destIDs,
				scores,
			)
		},
	}
}

// NewLeaderReplicaDistributionGoal returns a soft goal that balances leader counts across the
// alive brokers. Leadership transfers are tried before moving leader replicas.
func NewLeaderReplicaDistributionGoal(constraint *model.BalancingConstraint) Goal {
	return &distributionGoal{
		goalBase: goalBase{
			name:       LeaderReplicaDistributionGoalName,
			constraint: constraint,
		},
		metricName:              "leader count",
		balancePercentage:       constraint.LeaderReplicaBalancePercentage(),
		countBased:              true,
		lowUtilizationThreshold: -1.0,
		value: func(broker *model.Broker, delta brokerDelta) float64 {
			return float64(broker.NumLeaders() + delta.leaders)
		},
		average: func(cluster *model.ClusterModel) float64 {
			numAlive := len(cluster.AliveBrokers())
			if numAlive == 0 {
				return 0.0
			}
			return float64(len(cluster.TopicPartitions())) / float64(numAlive)
		},
		statistics: func(stats model.ClusterModelStats) model.Statistics {
			return stats.LeaderCount
		},
		candidates: func(
			cluster *model.ClusterModel,
			picker pickers.Picker,
			r restrictions,
			source *model.Broker,
			destIDs []int,
			scores map[int]float64,
		) []BalancingAction {
			actions := leadershipMovements(cluster, source.ID(), model.ResourceNetworkOutbound)

			leaders := []*model.Replica{}
			for _, replica := range cluster.BrokerReplicas(source.ID()) {
				if replica.IsLeader() {
					leaders = append(leaders, replica)
				}
			}
			return append(
				actions,
				replicaMovements(cluster, picker, r, leaders, destIDs, scores)...,
			)
		},
	}
}

// NewResourceDistributionGoal returns a soft goal that balances the utilization of a resource
// across the alive brokers. For leader-heavy resources, leadership transfers are tried before
// replica movements.
func NewResourceDistributionGoal(
	constraint *model.BalancingConstraint,
	resource model.Resource,
) Goal {
	return &distributionGoal{
		goalBase: goalBase{
			name:       resourceDistributionGoalNames[resource],
			constraint: constraint,
		},
		metricName:              fmt.Sprintf("%s utilization", resource),
		balancePercentage:       constraint.BalancePercentage(resource),
		lowUtilizationThreshold: constraint.LowUtilizationThreshold(resource),
		value: func(broker *model.Broker, delta brokerDelta) float64 {
			return utilizationWith(broker, resource, delta.load[resource])
		},
		average: func(cluster *model.ClusterModel) float64 {
			return cluster.AverageUtilization(resource)
		},
		statistics: func(stats model.ClusterModelStats) model.Statistics {
			return stats.Utilization[resource]
		},
		candidates: func(
			cluster *model.ClusterModel,
			picker pickers.Picker,
			r restrictions,
			source *model.Broker,
			destIDs []int,
			scores map[int]float64,
		) []BalancingAction {
			actions := []BalancingAction{}
			if resource == model.ResourceCPU || resource == model.ResourceNetworkOutbound {
				actions = append(actions, leadershipMovements(cluster, source.ID(), resource)...)
			}

			loaded := []*model.Replica{}
			for _, replica := range replicasByLoad(cluster, source.ID(), resource) {
				if replica.Load()[resource] > 0 {
					loaded = append(loaded, replica)
				}
			}
			return append(
				actions,
				replicaMovements(cluster, picker, r, loaded, destIDs, scores)...,
			)
		},
	}
}
