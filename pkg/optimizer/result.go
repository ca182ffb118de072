package optimizer

import (
	"fmt"
	"time"

	"github.com/segmentio/goalctl/pkg/goals"
	"github.com/segmentio/goalctl/pkg/model"
	"github.com/segmentio/goalctl/pkg/util"
)

// ExecutionProposal describes the change to a single partition between the placement the
// optimizer started from and the one it ended with.
type ExecutionProposal struct {
	TopicPartition model.TopicPartition `json:"topicPartition"`

	// OldReplicas and NewReplicas are broker ids with the leader first.
	OldReplicas []int `json:"oldReplicas"`
	NewReplicas []int `json:"newReplicas"`

	OldLeader int `json:"oldLeader"`
	NewLeader int `json:"newLeader"`
}

// HasReplicaAction returns whether the set of brokers hosting the partition changed.
func (e ExecutionProposal) HasReplicaAction() bool {
	return !util.SameElements(e.OldReplicas, e.NewReplicas)
}

// HasLeaderAction returns whether the partition leader changed.
func (e ExecutionProposal) HasLeaderAction() bool {
	return e.OldLeader != e.NewLeader
}

// ReplicasToAdd returns the brokers that gain a replica of the partition.
func (e ExecutionProposal) ReplicasToAdd() []int {
	return util.Difference(e.NewReplicas, e.OldReplicas)
}

// ReplicasToRemove returns the brokers that lose a replica of the partition.
func (e ExecutionProposal) ReplicasToRemove() []int {
	return util.Difference(e.OldReplicas, e.NewReplicas)
}

func (e ExecutionProposal) String() string {
	return fmt.Sprintf(
		"%s: %v (leader %d) -> %v (leader %d)",
		e.TopicPartition,
		e.OldReplicas,
		e.OldLeader,
		e.NewReplicas,
		e.NewLeader,
	)
}

// OptimizerResult is the outcome of a single optimization run.
type OptimizerResult struct {
	RunID     string
	Proposals []ExecutionProposal

	// StatsByGoal holds the stats snapshot taken right after each goal ran.
	StatsByGoal       map[string]model.ClusterModelStats
	ComparatorsByGoal map[string]goals.Comparator

	// GoalOrder lists the goals in the order they were run.
	GoalOrder []string

	ViolatedGoalsAfterOptimization []string

	PreOptimizedStats model.ClusterModelStats
	ClusterModelStats model.ClusterModelStats

	// Cancelled is set when the run was stopped before every goal had a chance to run.
	Cancelled bool
	Duration  time.Duration
}

func newOptimizerResult(runID string) *OptimizerResult {
	return &OptimizerResult{
		RunID:                          runID,
		Proposals:                      []ExecutionProposal{},
		StatsByGoal:                    map[string]model.ClusterModelStats{},
		ComparatorsByGoal:              map[string]goals.Comparator{},
		GoalOrder:                      []string{},
		ViolatedGoalsAfterOptimization: []string{},
	}
}

// NumReplicaMovements returns the number of proposals that move at least one replica.
func (r *OptimizerResult) NumReplicaMovements() int {
	count := 0
	for _, proposal := range r.Proposals {
		if proposal.HasReplicaAction() {
			count++
		}
	}
	return count
}

// NumLeaderMovements returns the number of proposals that change the partition leader.
func (r *OptimizerResult) NumLeaderMovements() int {
	count := 0
	for _, proposal := range r.Proposals {
		if proposal.HasLeaderAction() {
			count++
		}
	}
	return count
}

// IsViolated returns whether the argument goal was left unsatisfied.
func (r *OptimizerResult) IsViolated(goalName string) bool {
	for _, name := range r.ViolatedGoalsAfterOptimization {
		if name == goalName {
			return true
		}
	}
	return false
}

// diffPlacements returns a proposal for every partition whose brokers or leader differ
// between the two placements, sorted by topic and partition.
func diffPlacements(
	before map[model.TopicPartition]model.PartitionPlacement,
	after map[model.TopicPartition]model.PartitionPlacement,
) []ExecutionProposal {
	tps := []model.TopicPartition{}
	for tp := range after {
		tps = append(tps, tp)
	}
	model.SortTopicPartitions(tps)

	proposals := []ExecutionProposal{}

	for _, tp := range tps {
		oldPlacement, ok := before[tp]
		if !ok {
			continue
		}
		newPlacement := after[tp]

		proposal := ExecutionProposal{
			TopicPartition: tp,
			OldReplicas:    leaderFirst(oldPlacement),
			NewReplicas:    leaderFirst(newPlacement),
			OldLeader:      oldPlacement.Leader,
			NewLeader:      newPlacement.Leader,
		}
		if proposal.HasReplicaAction() || proposal.HasLeaderAction() {
			proposals = append(proposals, proposal)
		}
	}

	return proposals
}

func leaderFirst(placement model.PartitionPlacement) []int {
	replicas := []int{placement.Leader}
	for _, brokerID := range placement.Replicas {
		if brokerID != placement.Leader {
			replicas = append(replicas, brokerID)
		}
	}
	return replicas
}

// ApplyProposals replays proposals onto a cluster that has the proposals' old placement. Replicas
// are moved first, then leadership is transferred.
func ApplyProposals(cluster *model.ClusterModel, proposals []ExecutionProposal) error {
	for _, proposal := range proposals {
		tp := proposal.TopicPartition
		if cluster.Partition(tp) == nil {
			return fmt.Errorf("Cannot apply proposal for unknown partition %s", tp)
		}

		toAdd := proposal.ReplicasToAdd()
		toRemove := proposal.ReplicasToRemove()
		if len(toAdd) != len(toRemove) {
			return fmt.Errorf("Cannot apply proposal %s: replication factor changes", proposal)
		}

		for i, brokerID := range toRemove {
			replica := partitionReplicaOn(cluster, tp, brokerID)
			if replica == nil {
				return fmt.Errorf("Cannot apply proposal %s: no replica on broker %d", proposal, brokerID)
			}
			if err := cluster.RelocateReplica(replica.ID(), toAdd[i]); err != nil {
				return fmt.Errorf("Cannot apply proposal %s: %w", proposal, err)
			}
		}

		leader := cluster.Leader(tp)
		if leader.BrokerID() != proposal.NewLeader {
			follower := partitionReplicaOn(cluster, tp, proposal.NewLeader)
			if follower == nil {
				return fmt.Errorf(
					"Cannot apply proposal %s: no replica on leader broker %d",
					proposal,
					proposal.NewLeader,
				)
			}
			if err := cluster.RelocateLeadership(leader.ID(), follower.ID()); err != nil {
				return fmt.Errorf("Cannot apply proposal %s: %w", proposal, err)
			}
		}
	}

	return nil
}

func partitionReplicaOn(cluster *model.ClusterModel, tp model.TopicPartition, brokerID int) *model.Replica {
	for _, replica := range cluster.PartitionReplicas(tp) {
		if replica.BrokerID() == brokerID {
			return replica
		}
	}
	return nil
}
