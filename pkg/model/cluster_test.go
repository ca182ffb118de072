package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClusterWithStates(t *testing.T) *ClusterModel {
	brokers := NewTestBrokers(4, 2)
	brokers[1].State = BrokerStateDead
	brokers[2].State = BrokerStateNew

	return NewTestCluster(
		t,
		brokers,
		[]TestPartition{
			{
				Topic:     "topic1",
				Partition: 0,
				Replicas:  []int{1, 2},
				Load:      NewLoad(0.2, 10.0, 20.0, 100.0),
			},
			{
				Topic:     "topic1",
				Partition: 1,
				Replicas:  []int{4, 1},
				Load:      NewLoad(0.2, 10.0, 20.0, 100.0),
			},
			{
				Topic:     "topic2",
				Partition: 0,
				Replicas:  []int{2, 4},
				Leader:    4,
				Load:      NewLoad(0.4, 30.0, 40.0, 300.0),
			},
		},
	)
}

func TestClusterModelQueries(t *testing.T) {
	cluster := testClusterWithStates(t)

	assert.Equal(t, []int{1, 2, 3, 4}, BrokerIDs(cluster.Brokers()))
	assert.Equal(t, []int{1, 3, 4}, BrokerIDs(cluster.AliveBrokers()))
	assert.Equal(t, []int{2}, BrokerIDs(cluster.DeadBrokers()))
	assert.Equal(t, []int{3}, BrokerIDs(cluster.NewBrokers()))
	assert.Equal(t, []string{"topic1", "topic2"}, cluster.Topics())
	assert.Equal(t, 6, cluster.NumReplicas())

	eligible := cluster.SelfHealingEligibleReplicas()
	require.Equal(t, 2, len(eligible))
	for _, replica := range eligible {
		assert.Equal(t, 2, replica.BrokerID())
	}

	leader := cluster.Leader(TopicPartition{Topic: "topic2", Partition: 0})
	require.NotNil(t, leader)
	assert.Equal(t, 4, leader.BrokerID())

	// Leader load on broker 1 for topic1-0 plus follower load for topic1-1
	assert.InDelta(t, 0.3, cluster.Broker(1).Load()[ResourceCPU], 1e-9)
	assert.InDelta(t, 20.0, cluster.Broker(1).Load()[ResourceNetworkOutbound], 1e-9)
	assert.Equal(t, 1, cluster.Broker(1).NumLeaders())

	// Dead brokers don't count towards capacity
	assert.InDelta(t, 3*TestCapacity[ResourceDisk], cluster.CapacityFor(ResourceDisk), 1e-9)
	assert.InDelta(t, 1000.0, cluster.Load()[ResourceDisk], 1e-9)

	// Broker 4 hosts topic1-1 (leader, 20) and topic2-0 (leader, 40)
	assert.InDelta(t, 60.0, cluster.PotentialNetworkOut(4), 1e-9)
	// Broker 1 hosts topic1-0 (leader, 20) and a follower of topic1-1 (leader, 20)
	assert.InDelta(t, 40.0, cluster.PotentialNetworkOut(1), 1e-9)
}

func TestClusterModelRackDefault(t *testing.T) {
	cluster := NewClusterModel()
	require.NoError(t, cluster.AddBroker(BrokerSpec{ID: 7}))
	assert.Equal(t, "7", cluster.Broker(7).Rack())
	assert.True(t, cluster.Broker(7).IsAlive())

	assert.Error(t, cluster.AddBroker(BrokerSpec{ID: 7}))
	assert.Error(t, cluster.AddBroker(BrokerSpec{ID: 8, State: "bogus"}))
}

func TestClusterModelAddReplicaErrors(t *testing.T) {
	cluster := NewClusterModel()
	require.NoError(t, cluster.AddBroker(BrokerSpec{ID: 1}))
	require.NoError(t, cluster.AddBroker(BrokerSpec{ID: 2}))

	_, err := cluster.AddReplica(ReplicaSpec{Topic: "t", Partition: 0, BrokerID: 3})
	assert.True(t, errors.Is(err, ErrUnknownBroker))

	_, err = cluster.AddReplica(ReplicaSpec{Topic: "t", Partition: 0, BrokerID: 1, Leader: true})
	require.NoError(t, err)
	_, err = cluster.AddReplica(ReplicaSpec{Topic: "t", Partition: 0, BrokerID: 1})
	assert.True(t, errors.Is(err, ErrDuplicateReplica))
	_, err = cluster.AddReplica(ReplicaSpec{Topic: "t", Partition: 0, BrokerID: 2, Leader: true})
	assert.Error(t, err)
}

func TestClusterModelRelocateReplica(t *testing.T) {
	type testCase struct {
		description string
		replica     func(c *ClusterModel) ReplicaID
		dest        int
		expectedErr error
	}

	firstOn := func(brokerID int) func(c *ClusterModel) ReplicaID {
		return func(c *ClusterModel) ReplicaID {
			return c.BrokerReplicas(brokerID)[0].ID()
		}
	}

	testCases := []testCase{
		{
			description: "move from dead to new broker",
			replica:     firstOn(2),
			dest:        3,
		},
		{
			description: "move to dead broker",
			replica:     firstOn(1),
			dest:        2,
			expectedErr: ErrDeadBroker,
		},
		{
			description: "move to unknown broker",
			replica:     firstOn(1),
			dest:        10,
			expectedErr: ErrUnknownBroker,
		},
		{
			description: "move to broker with a replica of the same partition",
			replica: func(c *ClusterModel) ReplicaID {
				return c.PartitionReplicas(TopicPartition{Topic: "topic1", Partition: 1})[1].ID()
			},
			dest:        4,
			expectedErr: ErrDuplicateReplica,
		},
	}

	for _, testCase := range testCases {
		cluster := testClusterWithStates(t)
		id := testCase.replica(cluster)
		source := cluster.Replica(id).BrokerID()
		load := cluster.Replica(id).Load()
		checkpoint := cluster.Checkpoint()

		err := cluster.RelocateReplica(id, testCase.dest)
		if testCase.expectedErr != nil {
			assert.True(t, errors.Is(err, testCase.expectedErr), testCase.description)
			assert.Equal(t, 0, cluster.MutationsSince(checkpoint), testCase.description)
			continue
		}

		require.NoError(t, err, testCase.description)
		assert.Equal(t, 1, cluster.MutationsSince(checkpoint), testCase.description)
		assert.Equal(t, testCase.dest, cluster.Replica(id).BrokerID(), testCase.description)
		assert.Equal(t, source, cluster.Replica(id).OriginalBrokerID(), testCase.description)
		assert.True(t, cluster.Replica(id).IsImmigrant(), testCase.description)
		assert.True(t, cluster.Broker(testCase.dest).HostsReplica(id), testCase.description)
		assert.False(t, cluster.Broker(source).HostsReplica(id), testCase.description)
		assert.Equal(t, load, cluster.Broker(testCase.dest).Load(), testCase.description)
		assert.NoError(t, cluster.Sanity(), testCase.description)
	}
}

func TestClusterModelRelocateLeadership(t *testing.T) {
	cluster := testClusterWithStates(t)
	tp := TopicPartition{Topic: "topic1", Partition: 1}
	replicas := cluster.PartitionReplicas(tp)
	require.Equal(t, 2, len(replicas))
	leader, follower := replicas[0], replicas[1]
	require.True(t, leader.IsLeader())

	leaderLoad := leader.Load()
	followerLoad := follower.Load()

	err := cluster.RelocateLeadership(follower.ID(), leader.ID())
	assert.True(t, errors.Is(err, ErrNotLeader))

	require.NoError(t, cluster.RelocateLeadership(leader.ID(), follower.ID()))
	assert.Equal(t, follower.ID(), cluster.Leader(tp).ID())
	assert.False(t, leader.IsLeader())
	assert.InDelta(t, leaderLoad[ResourceNetworkOutbound], follower.Load()[ResourceNetworkOutbound], 1e-9)
	assert.InDelta(t, followerLoad[ResourceCPU], leader.Load()[ResourceCPU], 1e-9)
	assert.InDelta(t, leaderLoad[ResourceDisk], leader.Load()[ResourceDisk], 1e-9)
	assert.Equal(t, 1, cluster.Broker(4).NumLeaders())
	assert.Equal(t, 2, cluster.Broker(1).NumLeaders())
	assert.NoError(t, cluster.Sanity())

	// Leadership can't go to a replica on a dead broker
	deadTP := TopicPartition{Topic: "topic1", Partition: 0}
	deadReplicas := cluster.PartitionReplicas(deadTP)
	err = cluster.RelocateLeadership(deadReplicas[0].ID(), deadReplicas[1].ID())
	assert.True(t, errors.Is(err, ErrDeadBroker))
}

func TestClusterModelRollback(t *testing.T) {
	cluster := testClusterWithStates(t)
	constraint := testConstraint(t)

	statsBefore := cluster.ClusterStats(constraint)
	placementBefore := cluster.Placement()

	checkpoint := cluster.Checkpoint()
	for _, replica := range cluster.SelfHealingEligibleReplicas() {
		require.NoError(t, cluster.RelocateReplica(replica.ID(), 3))
	}
	tp := TopicPartition{Topic: "topic1", Partition: 1}
	replicas := cluster.PartitionReplicas(tp)
	require.NoError(t, cluster.RelocateLeadership(replicas[0].ID(), replicas[1].ID()))

	assert.Equal(t, 3, cluster.MutationsSince(checkpoint))
	assert.NotEqual(t, placementBefore, cluster.Placement())

	require.NoError(t, cluster.Rollback(checkpoint))
	assert.Equal(t, 0, cluster.MutationsSince(checkpoint))
	assert.Equal(t, placementBefore, cluster.Placement())
	assert.NoError(t, cluster.Sanity())

	statsAfter := cluster.ClusterStats(constraint)
	assert.Equal(t, statsBefore.ReplicaCount, statsAfter.ReplicaCount)
	assert.Equal(t, statsBefore.LeaderCount, statsAfter.LeaderCount)
	for _, resource := range AllResources() {
		assert.InDelta(
			t,
			statsBefore.Utilization[resource].StdDev(),
			statsAfter.Utilization[resource].StdDev(),
			1e-9,
		)
	}

	assert.True(t, errors.Is(cluster.Rollback(Checkpoint(5)), ErrInvalidCheckpoint))
}

func TestClusterModelClone(t *testing.T) {
	cluster := testClusterWithStates(t)
	cloned := cluster.Clone()

	for _, replica := range cloned.SelfHealingEligibleReplicas() {
		require.NoError(t, cloned.RelocateReplica(replica.ID(), 3))
	}

	assert.Equal(t, 2, len(cluster.SelfHealingEligibleReplicas()))
	assert.Equal(t, 0, len(cloned.SelfHealingEligibleReplicas()))
	assert.Equal(t, 0, cluster.Broker(3).NumReplicas())
	assert.Equal(t, 2, cloned.Broker(3).NumReplicas())
	assert.NoError(t, cluster.Sanity())
	assert.NoError(t, cloned.Sanity())
}

func TestClusterModelPlacement(t *testing.T) {
	cluster := testClusterWithStates(t)
	placement := cluster.Placement()

	assert.Equal(
		t,
		PartitionPlacement{Replicas: []int{2, 4}, Leader: 4},
		placement[TopicPartition{Topic: "topic2", Partition: 0}],
	)
	assert.Equal(
		t,
		map[int]struct{}{1: {}, 2: {}},
		placement[TopicPartition{Topic: "topic1", Partition: 0}].BrokerSet(),
	)
}
