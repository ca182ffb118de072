package model

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/hashicorp/go-multierror"
)

var (
	// ErrUnknownBroker is returned when an operation references a broker that isn't in the model.
	ErrUnknownBroker = errors.New("Unknown broker")

	// ErrDeadBroker is returned when a replica or leadership would be placed on a dead broker.
	ErrDeadBroker = errors.New("Broker is dead")

	// ErrDuplicateReplica is returned when a broker would host two replicas of the same partition.
	ErrDuplicateReplica = errors.New("Broker already hosts a replica of the partition")

	// ErrUnknownReplica is returned when an operation references a replica that isn't in the model.
	ErrUnknownReplica = errors.New("Unknown replica")

	// ErrNotLeader is returned when a leadership transfer doesn't start from the current leader.
	ErrNotLeader = errors.New("Replica is not the partition leader")

	// ErrInvalidCheckpoint is returned when rolling back to a checkpoint that's no longer valid.
	ErrInvalidCheckpoint = errors.New("Invalid checkpoint")
)

const loadTolerance = 1e-6

// Checkpoint marks a position in the mutation journal of a ClusterModel.
type Checkpoint int

type mutationKind int

const (
	mutationRelocateReplica mutationKind = iota
	mutationRelocateLeadership
)

type mutation struct {
	kind mutationKind

	// Set for replica relocations
	replica    ReplicaID
	fromBroker int
	toBroker   int

	// Set for leadership relocations
	fromReplica ReplicaID
	toReplica   ReplicaID
}

// PartitionPlacement is the broker-level view of a partition's assignment.
type PartitionPlacement struct {
	// Replicas are the broker ids in assignment order.
	Replicas []int `json:"replicas"`

	// Leader is the id of the broker hosting the leader replica.
	Leader int `json:"leader"`
}

// BrokerSet returns the placement's brokers as a set.
func (p PartitionPlacement) BrokerSet() map[int]struct{} {
	set := make(map[int]struct{}, len(p.Replicas))
	for _, brokerID := range p.Replicas {
		set[brokerID] = struct{}{}
	}
	return set
}

// ClusterModel is a mutable, in-memory model of brokers, partitions, and replicas along with
// their loads. All relationships are stored as ids so that the model can be cloned cheaply and
// mutations can be journaled and undone.
//
// A ClusterModel is not safe for concurrent use; each optimization run should own its model.
type ClusterModel struct {
	brokers    map[int]*Broker
	replicas   []*Replica
	partitions map[TopicPartition]*Partition
	journal    []mutation

	// Partitions whose leader was set explicitly while building the model
	explicitLeaders map[TopicPartition]struct{}
}

// NewClusterModel returns an empty model.
func NewClusterModel() *ClusterModel {
	return &ClusterModel{
		brokers:         map[int]*Broker{},
		replicas:        []*Replica{},
		partitions:      map[TopicPartition]*Partition{},
		explicitLeaders: map[TopicPartition]struct{}{},
	}
}

// AddBroker adds a broker to the model.
func (c *ClusterModel) AddBroker(spec BrokerSpec) error {
	if _, ok := c.brokers[spec.ID]; ok {
		return fmt.Errorf("Broker %d already exists", spec.ID)
	}
	switch spec.State {
	case "", BrokerStateAlive, BrokerStateDead, BrokerStateNew:
	default:
		return fmt.Errorf("Unrecognized state for broker %d: %s", spec.ID, spec.State)
	}
	c.brokers[spec.ID] = newBroker(spec)
	return nil
}

// AddReplica adds a replica of a partition to the model. Replicas should be added in
// assignment order. The first replica added for a partition is its leader unless another
// replica is explicitly flagged as the leader.
func (c *ClusterModel) AddReplica(spec ReplicaSpec) (ReplicaID, error) {
	broker, ok := c.brokers[spec.BrokerID]
	if !ok {
		return 0, fmt.Errorf("Cannot add replica to broker %d: %w", spec.BrokerID, ErrUnknownBroker)
	}

	tp := TopicPartition{Topic: spec.Topic, Partition: spec.Partition}
	partition, ok := c.partitions[tp]
	if !ok {
		partition = &Partition{tp: tp, leader: -1}
		c.partitions[tp] = partition
	}

	for _, id := range partition.replicas {
		if c.replicas[id].brokerID == spec.BrokerID {
			return 0, fmt.Errorf(
				"Cannot add replica of %s to broker %d: %w",
				tp,
				spec.BrokerID,
				ErrDuplicateReplica,
			)
		}
	}

	_, explicit := c.explicitLeaders[tp]
	if spec.Leader && explicit {
		return 0, fmt.Errorf("Partition %s already has a leader", tp)
	}

	replica := &Replica{
		id:               ReplicaID(len(c.replicas)),
		tp:               tp,
		brokerID:         spec.BrokerID,
		originalBrokerID: spec.BrokerID,
		load:             spec.Load.Clamp(),
	}
	c.replicas = append(c.replicas, replica)
	partition.replicas = append(partition.replicas, replica.id)
	broker.replicas[replica.id] = struct{}{}
	broker.load = broker.load.Add(replica.load)

	if partition.leader < 0 || spec.Leader {
		if partition.leader >= 0 {
			previous := c.replicas[partition.leader]
			previous.leader = false
			c.brokers[previous.brokerID].numLeaders--
		}
		replica.leader = true
		broker.numLeaders++
		partition.leader = replica.id
	}
	if spec.Leader {
		c.explicitLeaders[tp] = struct{}{}
	}

	return replica.id, nil
}

// Broker returns the broker with the argument id, or nil if it isn't in the model.
func (c *ClusterModel) Broker(id int) *Broker {
	return c.brokers[id]
}

// Brokers returns all brokers ordered by id.
func (c *ClusterModel) Brokers() []*Broker {
	return c.filterBrokers(func(b *Broker) bool { return true })
}

// AliveBrokers returns the alive (including new) brokers ordered by id.
func (c *ClusterModel) AliveBrokers() []*Broker {
	return c.filterBrokers(func(b *Broker) bool { return b.IsAlive() })
}

// DeadBrokers returns the dead brokers ordered by id.
func (c *ClusterModel) DeadBrokers() []*Broker {
	return c.filterBrokers(func(b *Broker) bool { return !b.IsAlive() })
}

// NewBrokers returns the new brokers ordered by id.
func (c *ClusterModel) NewBrokers() []*Broker {
	return c.filterBrokers(func(b *Broker) bool { return b.IsNew() })
}

func (c *ClusterModel) filterBrokers(keep func(b *Broker) bool) []*Broker {
	brokers := []*Broker{}
	for _, broker := range c.brokers {
		if keep(broker) {
			brokers = append(brokers, broker)
		}
	}
	sort.Slice(brokers, func(a, b int) bool {
		return brokers[a].id < brokers[b].id
	})
	return brokers
}

// BrokerIDs returns the ids of the argument brokers.
func BrokerIDs(brokers []*Broker) []int {
	ids := make([]int, 0, len(brokers))
	for _, broker := range brokers {
		ids = append(ids, broker.id)
	}
	return ids
}

// Replica returns the replica with the argument id, or nil if it isn't in the model.
func (c *ClusterModel) Replica(id ReplicaID) *Replica {
	if id < 0 || int(id) >= len(c.replicas) {
		return nil
	}
	return c.replicas[id]
}

// Replicas returns all replicas ordered by id.
func (c *ClusterModel) Replicas() []*Replica {
	replicas := make([]*Replica, len(c.replicas))
	copy(replicas, c.replicas)
	return replicas
}

// NumReplicas returns the number of replicas in the model.
func (c *ClusterModel) NumReplicas() int {
	return len(c.replicas)
}

// BrokerReplicas returns the replicas hosted on a broker ordered by id.
func (c *ClusterModel) BrokerReplicas(brokerID int) []*Replica {
	broker, ok := c.brokers[brokerID]
	if !ok {
		return nil
	}
	replicas := []*Replica{}
	for _, id := range broker.ReplicaIDs() {
		replicas = append(replicas, c.replicas[id])
	}
	return replicas
}

// Partition returns the argument partition, or nil if it isn't in the model.
func (c *ClusterModel) Partition(tp TopicPartition) *Partition {
	return c.partitions[tp]
}

// TopicPartitions returns the ids of every partition, sorted by topic and partition.
func (c *ClusterModel) TopicPartitions() []TopicPartition {
	tps := make([]TopicPartition, 0, len(c.partitions))
	for tp := range c.partitions {
		tps = append(tps, tp)
	}
	SortTopicPartitions(tps)
	return tps
}

// Topics returns the names of all topics in the model, sorted.
func (c *ClusterModel) Topics() []string {
	topicsMap := map[string]struct{}{}
	for tp := range c.partitions {
		topicsMap[tp.Topic] = struct{}{}
	}
	topics := make([]string, 0, len(topicsMap))
	for topic := range topicsMap {
		topics = append(topics, topic)
	}
	sort.Strings(topics)
	return topics
}

// PartitionReplicas returns the replicas of a partition in assignment order.
func (c *ClusterModel) PartitionReplicas(tp TopicPartition) []*Replica {
	partition, ok := c.partitions[tp]
	if !ok {
		return nil
	}
	replicas := make([]*Replica, 0, len(partition.replicas))
	for _, id := range partition.replicas {
		replicas = append(replicas, c.replicas[id])
	}
	return replicas
}

// Leader returns the leader replica of a partition, or nil if the partition doesn't exist.
func (c *ClusterModel) Leader(tp TopicPartition) *Replica {
	partition, ok := c.partitions[tp]
	if !ok || partition.leader < 0 {
		return nil
	}
	return c.replicas[partition.leader]
}

// PartitionHasBroker returns whether any replica of the partition is on the argument broker.
func (c *ClusterModel) PartitionHasBroker(tp TopicPartition, brokerID int) bool {
	partition, ok := c.partitions[tp]
	if !ok {
		return false
	}
	for _, id := range partition.replicas {
		if c.replicas[id].brokerID == brokerID {
			return true
		}
	}
	return false
}

// SelfHealingEligibleReplicas returns the replicas that are currently on dead brokers,
// ordered by id.
func (c *ClusterModel) SelfHealingEligibleReplicas() []*Replica {
	replicas := []*Replica{}
	for _, replica := range c.replicas {
		if !c.brokers[replica.brokerID].IsAlive() {
			replicas = append(replicas, replica)
		}
	}
	return replicas
}

// ReplicasFromDeadBrokers returns the replicas whose original broker is dead, regardless of
// where they are now, ordered by id.
func (c *ClusterModel) ReplicasFromDeadBrokers() []*Replica {
	replicas := []*Replica{}
	for _, replica := range c.replicas {
		if !c.brokers[replica.originalBrokerID].IsAlive() {
			replicas = append(replicas, replica)
		}
	}
	return replicas
}

// Load returns the total load of every replica in the model.
func (c *ClusterModel) Load() Load {
	total := Load{}
	for _, broker := range c.Brokers() {
		total = total.Add(broker.load)
	}
	return total
}

// CapacityFor returns the total capacity of the alive brokers for a resource.
func (c *ClusterModel) CapacityFor(resource Resource) float64 {
	total := 0.0
	for _, broker := range c.AliveBrokers() {
		total += broker.capacity[resource]
	}
	return total
}

// AverageUtilization returns the cluster-wide utilization of a resource, i.e. the total load
// divided by the total alive capacity.
func (c *ClusterModel) AverageUtilization(resource Resource) float64 {
	capacity := c.CapacityFor(resource)
	if capacity <= 0 {
		return 0.0
	}
	return c.Load()[resource] / capacity
}

// Utilization returns the utilization of a resource on a broker.
func (c *ClusterModel) Utilization(brokerID int, resource Resource) float64 {
	broker, ok := c.brokers[brokerID]
	if !ok {
		return 0.0
	}
	return broker.Utilization(resource)
}

// PotentialNetworkOut returns the outbound network load that a broker would carry if every
// replica it hosts became leader.
func (c *ClusterModel) PotentialNetworkOut(brokerID int) float64 {
	broker, ok := c.brokers[brokerID]
	if !ok {
		return 0.0
	}
	total := 0.0
	for _, id := range broker.ReplicaIDs() {
		partition := c.partitions[c.replicas[id].tp]
		total += c.replicas[partition.leader].load[ResourceNetworkOutbound]
	}
	return total
}

// Placement returns the broker-level placement of every partition.
func (c *ClusterModel) Placement() map[TopicPartition]PartitionPlacement {
	placement := make(map[TopicPartition]PartitionPlacement, len(c.partitions))
	for tp, partition := range c.partitions {
		brokerIDs := make([]int, 0, len(partition.replicas))
		for _, id := range partition.replicas {
			brokerIDs = append(brokerIDs, c.replicas[id].brokerID)
		}
		placement[tp] = PartitionPlacement{
			Replicas: brokerIDs,
			Leader:   c.replicas[partition.leader].brokerID,
		}
	}
	return placement
}

// RelocateReplica moves a replica to the argument broker.
func (c *ClusterModel) RelocateReplica(id ReplicaID, destBrokerID int) error {
	replica := c.Replica(id)
	if replica == nil {
		return fmt.Errorf("Cannot relocate replica %d: %w", id, ErrUnknownReplica)
	}
	dest, ok := c.brokers[destBrokerID]
	if !ok {
		return fmt.Errorf("Cannot relocate %s to broker %d: %w", replica, destBrokerID, ErrUnknownBroker)
	}
	if !dest.IsAlive() {
		return fmt.Errorf("Cannot relocate %s to broker %d: %w", replica, destBrokerID, ErrDeadBroker)
	}
	if replica.brokerID == destBrokerID {
		return nil
	}
	if c.PartitionHasBroker(replica.tp, destBrokerID) {
		return fmt.Errorf(
			"Cannot relocate %s to broker %d: %w",
			replica,
			destBrokerID,
			ErrDuplicateReplica,
		)
	}

	c.journal = append(
		c.journal,
		mutation{
			kind:       mutationRelocateReplica,
			replica:    id,
			fromBroker: replica.brokerID,
			toBroker:   destBrokerID,
		},
	)
	c.moveReplica(replica, dest)
	return nil
}

// RelocateLeadership makes the replica toID the leader of its partition in place of fromID.
// Leader-only load (outbound network and the leader's share of CPU) moves along with it.
func (c *ClusterModel) RelocateLeadership(fromID ReplicaID, toID ReplicaID) error {
	from := c.Replica(fromID)
	to := c.Replica(toID)
	if from == nil || to == nil {
		return fmt.Errorf(
			"Cannot relocate leadership from %d to %d: %w",
			fromID,
			toID,
			ErrUnknownReplica,
		)
	}
	if !from.leader {
		return fmt.Errorf("Cannot relocate leadership from %s: %w", from, ErrNotLeader)
	}
	if from.tp != to.tp {
		return fmt.Errorf("Cannot relocate leadership from %s to %s: different partitions", from, to)
	}
	if fromID == toID {
		return nil
	}
	if !c.brokers[to.brokerID].IsAlive() {
		return fmt.Errorf("Cannot relocate leadership to %s: %w", to, ErrDeadBroker)
	}

	c.journal = append(
		c.journal,
		mutation{
			kind:        mutationRelocateLeadership,
			fromReplica: fromID,
			toReplica:   toID,
		},
	)
	c.swapLeadership(from, to)
	return nil
}

func (c *ClusterModel) moveReplica(replica *Replica, dest *Broker) {
	source := c.brokers[replica.brokerID]
	delete(source.replicas, replica.id)
	source.load = source.load.Subtract(replica.load)
	if replica.leader {
		source.numLeaders--
		dest.numLeaders++
	}
	dest.replicas[replica.id] = struct{}{}
	dest.load = dest.load.Add(replica.load)
	replica.brokerID = dest.id
}

// swapLeadership exchanges the leader-only loads of the two replicas, so applying it twice
// restores the original state.
func (c *ClusterModel) swapLeadership(from *Replica, to *Replica) {
	fromBroker := c.brokers[from.brokerID]
	toBroker := c.brokers[to.brokerID]

	fromBroker.load = fromBroker.load.Subtract(from.load)
	toBroker.load = toBroker.load.Subtract(to.load)
	for _, resource := range []Resource{ResourceCPU, ResourceNetworkOutbound} {
		from.load[resource], to.load[resource] = to.load[resource], from.load[resource]
	}
	fromBroker.load = fromBroker.load.Add(from.load)
	toBroker.load = toBroker.load.Add(to.load)

	from.leader, to.leader = to.leader, from.leader
	if from.leader {
		fromBroker.numLeaders++
		toBroker.numLeaders--
		c.partitions[from.tp].leader = from.id
	} else {
		fromBroker.numLeaders--
		toBroker.numLeaders++
		c.partitions[to.tp].leader = to.id
	}
}

// Checkpoint returns a marker that can be passed to Rollback to undo every mutation made
// after this call.
func (c *ClusterModel) Checkpoint() Checkpoint {
	return Checkpoint(len(c.journal))
}

// MutationsSince returns the number of journaled mutations after the argument checkpoint.
func (c *ClusterModel) MutationsSince(checkpoint Checkpoint) int {
	return len(c.journal) - int(checkpoint)
}

// Rollback undoes every mutation made after the argument checkpoint, most recent first.
func (c *ClusterModel) Rollback(checkpoint Checkpoint) error {
	if checkpoint < 0 || int(checkpoint) > len(c.journal) {
		return fmt.Errorf(
			"Cannot roll back to %d with %d mutations: %w",
			checkpoint,
			len(c.journal),
			ErrInvalidCheckpoint,
		)
	}

	for i := len(c.journal) - 1; i >= int(checkpoint); i-- {
		m := c.journal[i]
		switch m.kind {
		case mutationRelocateReplica:
			c.moveReplica(c.replicas[m.replica], c.brokers[m.fromBroker])
		case mutationRelocateLeadership:
			c.swapLeadership(c.replicas[m.toReplica], c.replicas[m.fromReplica])
		}
	}
	c.journal = c.journal[:checkpoint]
	return nil
}

// Clone returns a deep copy of the model with an empty journal.
func (c *ClusterModel) Clone() *ClusterModel {
	cloned := &ClusterModel{
		brokers:         make(map[int]*Broker, len(c.brokers)),
		replicas:        make([]*Replica, 0, len(c.replicas)),
		partitions:      make(map[TopicPartition]*Partition, len(c.partitions)),
		explicitLeaders: make(map[TopicPartition]struct{}, len(c.explicitLeaders)),
	}
	for id, broker := range c.brokers {
		cloned.brokers[id] = broker.clone()
	}
	for _, replica := range c.replicas {
		copied := *replica
		cloned.replicas = append(cloned.replicas, &copied)
	}
	for tp, partition := range c.partitions {
		cloned.partitions[tp] = partition.clone()
	}
	for tp := range c.explicitLeaders {
		cloned.explicitLeaders[tp] = struct{}{}
	}
	return cloned
}

// Sanity verifies the internal consistency of the model: every partition has exactly one
// leader, no broker hosts two replicas of a partition, and the per-broker replica sets, leader
// counts, and loads agree with the replicas.
func (c *ClusterModel) Sanity() error {
	var sanityErr error

	expectedLoads := map[int]Load{}
	expectedLeaders := map[int]int{}
	expectedReplicas := map[int]int{}

	for _, tp := range c.TopicPartitions() {
		partition := c.partitions[tp]
		numLeaders := 0
		brokers := map[int]struct{}{}

		for _, id := range partition.replicas {
			replica := c.replicas[id]
			if replica.tp != tp {
				sanityErr = multierror.Append(
					sanityErr,
					fmt.Errorf("Replica %d is listed in %s but belongs to %s", id, tp, replica.tp),
				)
			}
			if _, ok := brokers[replica.brokerID]; ok {
				sanityErr = multierror.Append(
					sanityErr,
					fmt.Errorf("Partition %s has two replicas on broker %d", tp, replica.brokerID),
				)
			}
			brokers[replica.brokerID] = struct{}{}

			if replica.leader {
				numLeaders++
				expectedLeaders[replica.brokerID]++
				if partition.leader != id {
					sanityErr = multierror.Append(
						sanityErr,
						fmt.Errorf("Partition %s leader is %d but replica %d is flagged", tp, partition.leader, id),
					)
				}
			}

			broker, ok := c.brokers[replica.brokerID]
			if !ok {
				sanityErr = multierror.Append(
					sanityErr,
					fmt.Errorf("Replica %d is on unknown broker %d", id, replica.brokerID),
				)
				continue
			}
			if !broker.HostsReplica(id) {
				sanityErr = multierror.Append(
					sanityErr,
					fmt.Errorf("Broker %d doesn't list replica %d", replica.brokerID, id),
				)
			}
			expectedLoads[replica.brokerID] = expectedLoads[replica.brokerID].Add(replica.load)
			expectedReplicas[replica.brokerID]++
		}

		if numLeaders != 1 {
			sanityErr = multierror.Append(
				sanityErr,
				fmt.Errorf("Partition %s has %d leaders", tp, numLeaders),
			)
		}
	}

	for _, broker := range c.Brokers() {
		if broker.NumReplicas() != expectedReplicas[broker.id] {
			sanityErr = multierror.Append(
				sanityErr,
				fmt.Errorf(
					"Broker %d lists %d replicas, expected %d",
					broker.id,
					broker.NumReplicas(),
					expectedReplicas[broker.id],
				),
			)
		}
		if broker.numLeaders != expectedLeaders[broker.id] {
			sanityErr = multierror.Append(
				sanityErr,
				fmt.Errorf(
					"Broker %d has %d leaders, expected %d",
					broker.id,
					broker.numLeaders,
					expectedLeaders[broker.id],
				),
			)
		}
		expected := expectedLoads[broker.id]
		for _, resource := range AllResources() {
			if math.Abs(broker.load[resource]-expected[resource]) > loadTolerance*math.Max(1.0, expected[resource]) {
				sanityErr = multierror.Append(
					sanityErr,
					fmt.Errorf(
						"Broker %d %s load is %f, expected %f",
						broker.id,
						resource,
						broker.load[resource],
						expected[resource],
					),
				)
			}
		}
	}

	return sanityErr
}
