package model

import (
	"fmt"
	"sort"
)

// ReplicaID is the stable identifier of a replica inside a ClusterModel. It doesn't change
// when the replica is relocated.
type ReplicaID int

// TopicPartition identifies a partition of a topic.
type TopicPartition struct {
	Topic     string `json:"topic"`
	Partition int    `json:"partition"`
}

// String is used in log messages and tables.
func (tp TopicPartition) String() string {
	return fmt.Sprintf("%s-%d", tp.Topic, tp.Partition)
}

// SortTopicPartitions sorts the argument in place by topic, then partition.
func SortTopicPartitions(tps []TopicPartition) {
	sort.Slice(tps, func(a, b int) bool {
		if tps[a].Topic != tps[b].Topic {
			return tps[a].Topic < tps[b].Topic
		}
		return tps[a].Partition < tps[b].Partition
	})
}

// ReplicaSpec contains the details used to add a replica to a ClusterModel.
type ReplicaSpec struct {
	Topic     string
	Partition int
	BrokerID  int
	Leader    bool
	Load      Load
}

// Replica is one copy of a partition. Its current broker is an ownership edge that the model
// moves; its original broker is fixed at construction and is used to detect churn.
type Replica struct {
	id               ReplicaID
	tp               TopicPartition
	brokerID         int
	originalBrokerID int
	leader           bool
	load             Load
}

// ID returns the replica id.
func (r *Replica) ID() ReplicaID {
	return r.id
}

// TopicPartition returns the partition that the replica belongs to.
func (r *Replica) TopicPartition() TopicPartition {
	return r.tp
}

// BrokerID returns the id of the broker currently hosting the replica.
func (r *Replica) BrokerID() int {
	return r.brokerID
}

// OriginalBrokerID returns the id of the broker that hosted the replica before optimization.
func (r *Replica) OriginalBrokerID() int {
	return r.originalBrokerID
}

// IsLeader returns whether the replica is its partition's leader.
func (r *Replica) IsLeader() bool {
	return r.leader
}

// Load returns the load that the replica puts on its broker.
func (r *Replica) Load() Load {
	return r.load
}

// IsImmigrant returns whether the replica has been moved away from its original broker.
func (r *Replica) IsImmigrant() bool {
	return r.brokerID != r.originalBrokerID
}

// String is used in log messages.
func (r *Replica) String() string {
	return fmt.Sprintf(
		"replica %s on broker %d (original: %d, leader: %v)",
		r.tp,
		r.brokerID,
		r.originalBrokerID,
		r.leader,
	)
}

// Partition groups the replicas of one topic partition. The replica order is kept stable
// across relocations so that the first replica stays in the first position.
type Partition struct {
	tp       TopicPartition
	replicas []ReplicaID
	leader   ReplicaID
}

// TopicPartition returns the partition identifier.
func (p *Partition) TopicPartition() TopicPartition {
	return p.tp
}

// ReplicaIDs returns the partition's replicas in assignment order.
func (p *Partition) ReplicaIDs() []ReplicaID {
	ids := make([]ReplicaID, len(p.replicas))
	copy(ids, p.replicas)
	return ids
}

// LeaderID returns the id of the leader replica.
func (p *Partition) LeaderID() ReplicaID {
	return p.leader
}

func (p *Partition) clone() *Partition {
	copied := *p
	copied.replicas = make([]ReplicaID, len(p.replicas))
	copy(copied.replicas, p.replicas)
	return &copied
}
