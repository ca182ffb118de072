package goals

import (
	"errors"
	"fmt"

	"github.com/segmentio/goalctl/pkg/model"
)

var (
	// ErrUnknownGoal is returned when a goal name isn't in the catalog.
	ErrUnknownGoal = errors.New("Unknown goal")

	// ErrSelfHealingFailed is returned when a replica can't be moved off a dead broker because
	// no alive broker can host it.
	ErrSelfHealingFailed = errors.New("Could not move replica off dead broker")
)

// Goal is a placement objective. Goals are run in priority order by the optimizer; each one
// mutates the cluster model towards its objective without breaking the goals that ran before
// it.
//
// Goals hold no per-run state, so a single instance can be shared by concurrent runs over
// different models.
type Goal interface {
	// Name returns the catalog name of the goal.
	Name() string

	// IsHardGoal returns whether the goal is a hard requirement (e.g., capacity) as opposed to
	// a soft, best-effort one (e.g., distribution).
	IsHardGoal() bool

	// Optimize mutates the model towards the goal. Every action it applies must be accepted by
	// all of the optimizedGoals.
	Optimize(cluster *model.ClusterModel, optimizedGoals []Goal) error

	// IsSatisfied returns whether the model currently meets the goal.
	IsSatisfied(cluster *model.ClusterModel) bool

	// ActionAcceptance returns whether the goal allows the argument action to be applied to
	// the model in its current state.
	ActionAcceptance(action BalancingAction, cluster *model.ClusterModel) ActionAcceptance

	// Comparator returns the function used to decide whether a stats snapshot is better or
	// worse than a previous one for this goal.
	Comparator() Comparator
}

// CompareResult is the outcome of comparing two stats snapshots.
type CompareResult int

const (
	Worse  CompareResult = -1
	Equal  CompareResult = 0
	Better CompareResult = 1
)

func (c CompareResult) String() string {
	switch c {
	case Worse:
		return "worse"
	case Better:
		return "better"
	default:
		return "equal"
	}
}

// Comparison is a comparison result along with a human-readable explanation of it.
type Comparison struct {
	Result      CompareResult
	Explanation string
}

// Comparator compares the stats after a goal ran with the stats before it ran.
type Comparator func(after model.ClusterModelStats, before model.ClusterModelStats) Comparison

// ActionType is the kind of a balancing action.
type ActionType int

const (
	// ActionReplicaMovement moves a replica to another broker.
	ActionReplicaMovement ActionType = iota

	// ActionLeadershipMovement transfers partition leadership to another replica.
	ActionLeadershipMovement
)

func (a ActionType) String() string {
	if a == ActionLeadershipMovement {
		return "leadership"
	}
	return "replica"
}

// BalancingAction is a single candidate change to the model.
type BalancingAction struct {
	Type           ActionType
	TopicPartition model.TopicPartition

	// Replica is the moved replica, or the current leader for leadership movements.
	Replica model.ReplicaID

	// DestReplica is the replica that becomes leader; only set for leadership movements.
	DestReplica model.ReplicaID

	SourceBroker int
	DestBroker   int
}

// String is used in log messages.
func (b BalancingAction) String() string {
	return fmt.Sprintf(
		"%s movement of %s from broker %d to broker %d",
		b.Type,
		b.TopicPartition,
		b.SourceBroker,
		b.DestBroker,
	)
}

// NewReplicaMovement returns an action that moves a replica to the argument broker.
func NewReplicaMovement(replica *model.Replica, destBrokerID int) BalancingAction {
	return BalancingAction{
		Type:           ActionReplicaMovement,
		TopicPartition: replica.TopicPartition(),
		Replica:        replica.ID(),
		DestReplica:    -1,
		SourceBroker:   replica.BrokerID(),
		DestBroker:     destBrokerID,
	}
}

// NewLeadershipMovement returns an action that transfers leadership from the current leader
// to the argument follower.
func NewLeadershipMovement(leader *model.Replica, follower *model.Replica) BalancingAction {
	return BalancingAction{
		Type:           ActionLeadershipMovement,
		TopicPartition: leader.TopicPartition(),
		Replica:        leader.ID(),
		DestReplica:    follower.ID(),
		SourceBroker:   leader.BrokerID(),
		DestBroker:     follower.BrokerID(),
	}
}

// Apply applies the action to the model.
func (b BalancingAction) Apply(cluster *model.ClusterModel) error {
	switch b.Type {
	case ActionReplicaMovement:
		return cluster.RelocateReplica(b.Replica, b.DestBroker)
	case ActionLeadershipMovement:
		return cluster.RelocateLeadership(b.Replica, b.DestReplica)
	default:
		return fmt.Errorf("Unrecognized action type: %d", b.Type)
	}
}

// ActionAcceptance is a goal's verdict on a candidate action.
type ActionAcceptance int

const (
	// Accept allows the action.
	Accept ActionAcceptance = iota

	// ReplicaReject rejects the action because of the replica being moved; another replica
	// might be acceptable.
	ReplicaReject

	// BrokerReject rejects the action because of the destination broker; no replica can be
	// moved there.
	BrokerReject
)

func (a ActionAcceptance) String() string {
	switch a {
	case Accept:
		return "accept"
	case ReplicaReject:
		return "replica-reject"
	default:
		return "broker-reject"
	}
}

// AcceptedByAll returns whether every argument goal accepts the action.
func AcceptedByAll(goals []Goal, action BalancingAction, cluster *model.ClusterModel) bool {
	for _, goal := range goals {
		if goal.ActionAcceptance(action, cluster) != Accept {
			return false
		}
	}
	return true
}

// HasHardGoal returns whether any of the argument goals is hard.
func HasHardGoal(goals []Goal) bool {
	for _, goal := range goals {
		if goal.IsHardGoal() {
			return true
		}
	}
	return false
}
