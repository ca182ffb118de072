package model

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestCapacity is the default broker capacity used by NewTestBrokers.
var TestCapacity = NewLoad(1.0, 1000.0, 1000.0, 10000.0)

// TestBroker describes a broker for NewTestCluster.
type TestBroker struct {
	ID       int
	Rack     string
	State    BrokerState
	Capacity Load
}

// TestPartition describes a partition for NewTestCluster. Leader is the broker id of the
// leader; when zero, the first replica leads. Load is the leader's load; followers get the
// same inbound network and disk, half the CPU, and no outbound network.
type TestPartition struct {
	Topic     string
	Partition int
	Replicas  []int
	Leader    int
	Load      Load
}

// NewTestBrokers returns numBrokers alive brokers, numbered from 1 and spread round-robin
// over numRacks racks, with TestCapacity.
func NewTestBrokers(numBrokers int, numRacks int) []TestBroker {
	brokers := []TestBroker{}

	for b := 0; b < numBrokers; b++ {
		brokers = append(
			brokers,
			TestBroker{
				ID:       b + 1,
				Rack:     fmt.Sprintf("zone%d", (b%numRacks)+1),
				State:    BrokerStateAlive,
				Capacity: TestCapacity,
			},
		)
	}

	return brokers
}

// NewTestCluster builds a model from the argument brokers and partitions, failing the test
// on any construction or sanity error.
func NewTestCluster(
	t *testing.T,
	brokers []TestBroker,
	partitions []TestPartition,
) *ClusterModel {
	cluster := NewClusterModel()

	for _, broker := range brokers {
		capacity := broker.Capacity
		if capacity.IsZero() {
			capacity = TestCapacity
		}
		require.NoError(
			t,
			cluster.AddBroker(
				BrokerSpec{
					ID:       broker.ID,
					Rack:     broker.Rack,
					State:    broker.State,
					Capacity: capacity,
				},
			),
		)
	}

	for _, partition := range partitions {
		leader := partition.Leader
		if leader == 0 && len(partition.Replicas) > 0 {
			leader = partition.Replicas[0]
		}

		for _, brokerID := range partition.Replicas {
			load := FollowerLoad(partition.Load)
			if brokerID == leader {
				load = partition.Load
			}
			_, err := cluster.AddReplica(
				ReplicaSpec{
					Topic:     partition.Topic,
					Partition: partition.Partition,
					BrokerID:  brokerID,
					Leader:    brokerID == leader,
					Load:      load,
				},
			)
			require.NoError(t, err)
		}
	}

	require.NoError(t, cluster.Sanity())
	return cluster
}

// NewTestPartitions returns numPartitions partitions of a topic with the argument replica
// assignments repeated round-robin and a uniform leader load.
func NewTestPartitions(
	topic string,
	numPartitions int,
	assignments [][]int,
	load Load,
) []TestPartition {
	partitions := []TestPartition{}

	for p := 0; p < numPartitions; p++ {
		replicas := make([]int, len(assignments[p%len(assignments)]))
		copy(replicas, assignments[p%len(assignments)])
		partitions = append(
			partitions,
			TestPartition{
				Topic:     topic,
				Partition: p,
				Replicas:  replicas,
				Load:      load,
			},
		)
	}

	return partitions
}
