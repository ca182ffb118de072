package goals

import (
	"fmt"
	"sort"

	"github.com/segmentio/goalctl/pkg/model"
	"github.com/segmentio/goalctl/pkg/pickers"
	log "github.com/sirupsen/logrus"
)

const (
	// Metric changes smaller than this are treated as no change.
	epsilon = 1e-9

	// Upper bound on the applied actions per replica in a single Optimize call.
	roundsPerReplica = 10
)

type goalBase struct {
	name       string
	hard       bool
	constraint *model.BalancingConstraint
}

func (g goalBase) Name() string {
	return g.name
}

func (g goalBase) IsHardGoal() bool {
	return g.hard
}

func (g goalBase) maxRounds(cluster *model.ClusterModel) int {
	return roundsPerReplica * (cluster.NumReplicas() + 1)
}

func (g goalBase) picker(cluster *model.ClusterModel) (pickers.Picker, error) {
	return pickers.New(g.constraint.PickerMethod(), cluster)
}

// brokerDelta is the change an action would make to a single broker.
type brokerDelta struct {
	load     model.Load
	replicas int
	leaders  int
}

// actionDeltas returns the per-broker changes of an action without applying it.
func actionDeltas(action BalancingAction, cluster *model.ClusterModel) map[int]brokerDelta {
	deltas := map[int]brokerDelta{}
	replica := cluster.Replica(action.Replica)
	if replica == nil {
		return deltas
	}

	source := deltas[action.SourceBroker]
	dest := deltas[action.DestBroker]

	switch action.Type {
	case ActionReplicaMovement:
		source.load = source.load.Subtract(replica.Load())
		dest.load = dest.load.Add(replica.Load())
		source.replicas--
		dest.replicas++
		if replica.IsLeader() {
			source.leaders--
			dest.leaders++
		}
	case ActionLeadershipMovement:
		follower := cluster.Replica(action.DestReplica)
		if follower == nil {
			return deltas
		}
		for _, resource := range []model.Resource{
			model.ResourceCPU,
			model.ResourceNetworkOutbound,
		} {
			change := follower.Load()[resource] - replica.Load()[resource]
			source.load[resource] += change
			dest.load[resource] -= change
		}
		source.leaders--
		dest.leaders++
	}

	deltas[action.SourceBroker] = source
	deltas[action.DestBroker] = dest
	return deltas
}

func utilizationWith(broker *model.Broker, resource model.Resource, extra float64) float64 {
	load := broker.Load()[resource] + extra
	capacity := broker.CapacityFor(resource)
	if capacity <= 0 {
		if load > 0 {
			return 1.0
		}
		return 0.0
	}
	return load / capacity
}

// restrictions limit what a goal may move in the current model state.
type restrictions struct {
	constraint *model.BalancingConstraint
	hard       bool

	// Set while replicas from dead brokers exist; soft goals then only touch those replicas
	// and the leadership of their partitions.
	healingOnly       bool
	healingReplicas   map[model.ReplicaID]struct{}
	healingPartitions map[model.TopicPartition]struct{}

	// Set while alive new brokers exist; replicas then only move to new brokers.
	newBrokersOnly bool
}

func newRestrictions(
	constraint *model.BalancingConstraint,
	cluster *model.ClusterModel,
	hard bool,
) restrictions {
	r := restrictions{
		constraint:        constraint,
		hard:              hard,
		healingReplicas:   map[model.ReplicaID]struct{}{},
		healingPartitions: map[model.TopicPartition]struct{}{},
		newBrokersOnly:    len(cluster.NewBrokers()) > 0,
	}

	for _, replica := range cluster.ReplicasFromDeadBrokers() {
		r.healingOnly = true
		r.healingReplicas[replica.ID()] = struct{}{}
		r.healingPartitions[replica.TopicPartition()] = struct{}{}
	}

	return r
}

// canMoveReplica returns whether the replica may be the subject of a replica movement.
func (r restrictions) canMoveReplica(cluster *model.ClusterModel, replica *model.Replica) bool {
	if r.constraint.IsExcludedTopic(replica.TopicPartition().Topic) &&
		cluster.Broker(replica.BrokerID()).IsAlive() {
		return false
	}
	if !r.hard && r.healingOnly {
		_, ok := r.healingReplicas[replica.ID()]
		return ok
	}
	return true
}

// canReceiveReplica returns whether replicas may be moved to the broker.
func (r restrictions) canReceiveReplica(broker *model.Broker) bool {
	if !broker.IsAlive() {
		return false
	}
	return !r.newBrokersOnly || broker.IsNew()
}

// canMoveLeadership returns whether the leadership of the partition may be moved.
func (r restrictions) canMoveLeadership(tp model.TopicPartition) bool {
	if r.constraint.IsExcludedTopic(tp.Topic) {
		return false
	}
	if !r.hard && r.healingOnly {
		_, ok := r.healingPartitions[tp]
		return ok
	}
	return true
}

// allows returns whether the action is allowed by the restrictions. It also checks that the
// action is valid for the current model state.
func (r restrictions) allows(cluster *model.ClusterModel, action BalancingAction) bool {
	replica := cluster.Replica(action.Replica)
	dest := cluster.Broker(action.DestBroker)
	if replica == nil || dest == nil || !dest.IsAlive() {
		return false
	}

	switch action.Type {
	case ActionReplicaMovement:
		return r.canMoveReplica(cluster, replica) &&
			r.canReceiveReplica(dest) &&
			!cluster.PartitionHasBroker(action.TopicPartition, action.DestBroker)
	case ActionLeadershipMovement:
		follower := cluster.Replica(action.DestReplica)
		return follower != nil &&
			replica.IsLeader() &&
			follower.TopicPartition() == replica.TopicPartition() &&
			r.canMoveLeadership(action.TopicPartition)
	}
	return false
}

// healingGoal is implemented by every goal; the score ranks destinations for replicas that
// have to leave dead brokers. Lower is better.
type healingGoal interface {
	Goal
	healingScore(cluster *model.ClusterModel, replica *model.Replica, dest *model.Broker) float64
}

// selfHeal moves every replica off the dead brokers. Destinations are tried in the goal's
// preference order, new brokers first, and the first one accepted by the optimized goals
// wins. If no destination is accepted, the best feasible one is used anyway since dead brokers
// must be emptied.
func selfHeal(
	goal healingGoal,
	constraint *model.BalancingConstraint,
	cluster *model.ClusterModel,
	optimizedGoals []Goal,
) error {
	replicas := cluster.SelfHealingEligibleReplicas()
	if len(replicas) == 0 {
		return nil
	}

	picker, err := pickers.New(constraint.PickerMethod(), cluster)
	if err != nil {
		return err
	}

	log.Debugf("%s: moving %d replicas off dead brokers", goal.Name(), len(replicas))

	for _, replica := range replicas {
		tp := replica.TopicPartition()

		feasible := []int{}
		newFeasible := []int{}
		scores := map[int]float64{}

		for _, broker := range cluster.AliveBrokers() {
			if cluster.PartitionHasBroker(tp, broker.ID()) {
				continue
			}
			feasible = append(feasible, broker.ID())
			if broker.IsNew() {
				newFeasible = append(newFeasible, broker.ID())
			}
			scores[broker.ID()] = goal.healingScore(cluster, replica, broker)
		}

		if len(feasible) == 0 {
			return fmt.Errorf(
				"Cannot move %s off broker %d: %w",
				tp,
				replica.BrokerID(),
				ErrSelfHealingFailed,
			)
		}

		tiers := [][]int{}
		if len(newFeasible) > 0 {
			tiers = append(tiers, newFeasible)
		}
		tiers = append(tiers, feasible)

		dest := -1
		fallback := -1

	tierLoop:
		for _, tier := range tiers {
			sorted, err := picker.SortBrokers(tp, tier, scores)
			if err != nil {
				return err
			}
			if fallback < 0 {
				fallback = sorted[0]
			}

			for _, brokerID := range sorted {
				if AcceptedByAll(optimizedGoals, NewReplicaMovement(replica, brokerID), cluster) {
					dest = brokerID
					break tierLoop
				}
			}
		}

		if dest < 0 {
			log.Debugf(
				"%s: no accepted destination for %s, falling back to broker %d",
				goal.Name(),
				replica,
				fallback,
			)
			dest = fallback
		}

		if err := cluster.RelocateReplica(replica.ID(), dest); err != nil {
			return err
		}
	}

	return nil
}

// replicasByLoad returns the replicas on a broker ordered by descending load for the argument
// resource, then by id.
func replicasByLoad(
	cluster *model.ClusterModel,
	brokerID int,
	resource model.Resource,
) []*model.Replica {
	replicas := cluster.BrokerReplicas(brokerID)
	sort.SliceStable(replicas, func(a, b int) bool {
		return replicas[a].Load()[resource] > replicas[b].Load()[resource]
	})
	return replicas
}

// followersFirst returns the replicas on a broker with followers ahead of leaders, each group
// ordered by id.
func followersFirst(cluster *model.ClusterModel, brokerID int) []*model.Replica {
	replicas := cluster.BrokerReplicas(brokerID)
	sort.SliceStable(replicas, func(a, b int) bool {
		return !replicas[a].IsLeader() && replicas[b].IsLeader()
	})
	return replicas
}

// leadershipMovements returns the leadership transfers away from the leaders on a broker,
// ordered by descending leader load for the argument resource.
func leadershipMovements(
	cluster *model.ClusterModel,
	brokerID int,
	resource model.Resource,
) []BalancingAction {
	actions := []BalancingAction{}

	for _, replica := range replicasByLoad(cluster, brokerID, resource) {
		if !replica.IsLeader() {
			continue
		}
		for _, follower := range cluster.PartitionReplicas(replica.TopicPartition()) {
			if follower.ID() == replica.ID() {
				continue
			}
			if !cluster.Broker(follower.BrokerID()).IsAlive() {
				continue
			}
			actions = append(actions, NewLeadershipMovement(replica, follower))
		}
	}

	return actions
}

// replicaMovements expands each argument replica into movements to the receiving brokers,
// ordered by the picker using the argument scores.
func replicaMovements(
	cluster *model.ClusterModel,
	picker pickers.Picker,
	r restrictions,
	replicas []*model.Replica,
	destIDs []int,
	scores map[int]float64,
) []BalancingAction {
	actions := []BalancingAction{}

	for _, replica := range replicas {
		if !r.canMoveReplica(cluster, replica) {
			continue
		}
		candidates := []int{}
		for _, destID := range destIDs {
			dest := cluster.Broker(destID)
			if destID == replica.BrokerID() || !r.canReceiveReplica(dest) {
				continue
			}
			if cluster.PartitionHasBroker(replica.TopicPartition(), destID) {
				continue
			}
			candidates = append(candidates, destID)
		}
		if len(candidates) == 0 {
			continue
		}

		sorted, err := picker.SortBrokers(replica.TopicPartition(), candidates, scores)
		if err != nil {
			continue
		}
		for _, destID := range sorted {
			actions = append(actions, NewReplicaMovement(replica, destID))
		}
	}

	return actions
}

// firstApplicable returns the first action that's allowed by the restrictions, passes the
// argument check, and is accepted by all of the optimized goals.
func firstApplicable(
	cluster *model.ClusterModel,
	r restrictions,
	actions []BalancingAction,
	optimizedGoals []Goal,
	check func(action BalancingAction) bool,
) (BalancingAction, bool) {
	for _, action := range actions {
		if !r.allows(cluster, action) {
			continue
		}
		if check != nil && !check(action) {
			continue
		}
		if !AcceptedByAll(optimizedGoals, action, cluster) {
			continue
		}
		return action, true
	}
	return BalancingAction{}, false
}

func hardComparator(after model.ClusterModelStats, before model.ClusterModelStats) Comparison {
	return Comparison{
		Result:      Equal,
		Explanation: "Hard goals are evaluated by satisfaction, not by stats",
	}
}

// stdDevComparator builds a comparator that prefers a lower standard deviation of the metric
// extracted from the stats.
func stdDevComparator(
	metricName string,
	metric func(stats model.ClusterModelStats) model.Statistics,
) Comparator {
	return func(after model.ClusterModelStats, before model.ClusterModelStats) Comparison {
		afterStdDev := metric(after).StdDev()
		beforeStdDev := metric(before).StdDev()

		switch {
		case afterStdDev > beforeStdDev+epsilon:
			return Comparison{
				Result: Worse,
				Explanation: fmt.Sprintf(
					"Standard deviation of %s increased from %f to %f",
					metricName,
					beforeStdDev,
					afterStdDev,
				),
			}
		case afterStdDev < beforeStdDev-epsilon:
			return Comparison{
				Result: Better,
				Explanation: fmt.Sprintf(
					"Standard deviation of %s decreased from %f to %f",
					metricName,
					beforeStdDev,
					afterStdDev,
				),
			}
		default:
			return Comparison{
				Result: Equal,
				Explanation: fmt.Sprintf(
					"Standard deviation of %s unchanged at %f",
					metricName,
					afterStdDev,
				),
			}
		}
	}
}
