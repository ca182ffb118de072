package goals

import (
	"errors"
	"testing"

	"github.com/segmentio/goalctl/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRackAwareGoal(t *testing.T) {
	cluster := model.NewTestCluster(
		t,
		model.NewTestBrokers(4, 2),
		[]model.TestPartition{
			{Topic: "t", Partition: 0, Replicas: []int{1, 3}},
			{Topic: "t", Partition: 1, Replicas: []int{2, 1}},
		},
	)
	goal := NewRackAwareGoal(TestConstraint(t, nil))
	assert.False(t, goal.IsSatisfied(cluster))

	// Broker 3 shares zone1 with broker 1
	replica := cluster.PartitionReplicas(model.TopicPartition{Topic: "t", Partition: 1})[0]
	assert.Equal(t, BrokerReject, goal.ActionAcceptance(NewReplicaMovement(replica, 3), cluster))
	assert.Equal(t, Accept, goal.ActionAcceptance(NewReplicaMovement(replica, 4), cluster))

	require.NoError(t, goal.Optimize(cluster, nil))
	assert.True(t, goal.IsSatisfied(cluster))
	assert.Equal(
		t,
		model.PartitionPlacement{Replicas: []int{1, 4}, Leader: 1},
		cluster.Placement()[model.TopicPartition{Topic: "t", Partition: 0}],
	)
	assert.NoError(t, cluster.Sanity())
}

func TestReplicaCapacityGoal(t *testing.T) {
	cluster := model.NewTestCluster(
		t,
		model.NewTestBrokers(3, 3),
		[]model.TestPartition{
			{Topic: "t", Partition: 0, Replicas: []int{1}},
			{Topic: "t", Partition: 1, Replicas: []int{1}},
			{Topic: "t", Partition: 2, Replicas: []int{1}},
			{Topic: "t", Partition: 3, Replicas: []int{2}},
		},
	)
	goal := NewReplicaCapacityGoal(
		TestConstraint(
			t,
			func(config *model.BalancingConstraintConfig) {
				config.MaxReplicasPerBroker = 2
			},
		),
	)
	assert.False(t, goal.IsSatisfied(cluster))

	require.NoError(t, goal.Optimize(cluster, nil))
	assert.True(t, goal.IsSatisfied(cluster))
	assert.Equal(t, 2, cluster.Broker(1).NumReplicas())
	assert.Equal(t, 1, cluster.Broker(2).NumReplicas())
	assert.Equal(t, 1, cluster.Broker(3).NumReplicas())

	// Broker 1 is now full
	replica := cluster.BrokerReplicas(2)[0]
	assert.Equal(t, BrokerReject, goal.ActionAcceptance(NewReplicaMovement(replica, 1), cluster))
}

func TestCapacityGoal(t *testing.T) {
	diskLoad := model.NewLoad(0.1, 10.0, 10.0, 5000.0)
	cluster := model.NewTestCluster(
		t,
		model.NewTestBrokers(2, 2),
		[]model.TestPartition{
			{Topic: "t", Partition: 0, Replicas: []int{1}, Load: diskLoad},
			{Topic: "t", Partition: 1, Replicas: []int{1}, Load: diskLoad},
		},
	)
	goal := NewCapacityGoal(TestConstraint(t, nil), model.ResourceDisk)
	assert.Equal(t, model.ResourceDisk, goal.Resource())
	assert.False(t, goal.IsSatisfied(cluster))

	require.NoError(t, goal.Optimize(cluster, nil))
	assert.True(t, goal.IsSatisfied(cluster))
	assert.Equal(t, 1, cluster.Broker(1).NumReplicas())
	assert.Equal(t, 1, cluster.Broker(2).NumReplicas())

	// Another 5000MB wouldn't fit under 80% of 10000MB
	replica := cluster.BrokerReplicas(1)[0]
	assert.Equal(t, BrokerReject, goal.ActionAcceptance(NewReplicaMovement(replica, 2), cluster))
}

func TestCapacityGoalLeadership(t *testing.T) {
	nwOutLoad := model.NewLoad(0.1, 10.0, 500.0, 10.0)
	cluster := model.NewTestCluster(
		t,
		model.NewTestBrokers(2, 2),
		[]model.TestPartition{
			{Topic: "t", Partition: 0, Replicas: []int{1, 2}, Load: nwOutLoad},
			{Topic: "t", Partition: 1, Replicas: []int{1, 2}, Load: nwOutLoad},
		},
	)
	goal := NewCapacityGoal(TestConstraint(t, nil), model.ResourceNetworkOutbound)
	assert.False(t, goal.IsSatisfied(cluster))

	require.NoError(t, goal.Optimize(cluster, nil))
	assert.True(t, goal.IsSatisfied(cluster))

	// Satisfied by moving leadership only
	assert.Equal(t, 1, cluster.Broker(1).NumLeaders())
	assert.Equal(t, 1, cluster.Broker(2).NumLeaders())
	assert.Equal(t, 2, cluster.Broker(1).NumReplicas())
}

func TestSelfHealing(t *testing.T) {
	brokers := model.NewTestBrokers(4, 4)
	brokers[3].State = model.BrokerStateDead

	cluster := model.NewTestCluster(
		t,
		brokers,
		model.NewTestPartitions(
			"t",
			6,
			[][]int{{1, 2}, {4, 3}, {2, 3}, {3, 4}},
			model.NewLoad(0.1, 10.0, 10.0, 100.0),
		),
	)
	before := cluster.Placement()
	stats := cluster.ClusterStats(TestConstraint(t, nil))
	require.Equal(t, 3, stats.NumPartitionsWithOfflineReplicas)

	for _, name := range DefaultGoalNames() {
		testCluster := cluster.Clone()
		goal, err := New(name, TestConstraint(t, nil))
		require.NoError(t, err)

		require.NoError(t, goal.Optimize(testCluster, nil), name)
		assert.Equal(t, 0, testCluster.Broker(4).NumReplicas(), name)
		assert.Equal(t, 0, len(testCluster.SelfHealingEligibleReplicas()), name)
		assert.NoError(t, testCluster.Sanity(), name)

		if !goal.IsHardGoal() {
			assert.Equal(
				t,
				stats.NumPartitionsWithOfflineReplicas,
				len(ChangedPartitions(before, testCluster.Placement())),
				name,
			)
		}
	}
}

func TestSelfHealingPrefersNewBrokers(t *testing.T) {
	brokers := model.NewTestBrokers(4, 4)
	brokers[2].State = model.BrokerStateDead
	brokers[3].State = model.BrokerStateNew

	cluster := model.NewTestCluster(
		t,
		brokers,
		model.NewTestPartitions(
			"t",
			4,
			[][]int{{1, 2}, {3, 1}, {2, 3}},
			model.NewLoad(0.1, 10.0, 10.0, 100.0),
		),
	)

	goal := NewCapacityGoal(TestConstraint(t, nil), model.ResourceDisk)
	require.NoError(t, goal.Optimize(cluster, nil))

	// t-1 and t-2 had replicas on broker 3; both go to the new broker 4
	assert.Equal(t, 0, cluster.Broker(3).NumReplicas())
	assert.Equal(t, 2, cluster.Broker(4).NumReplicas())
}

func TestSelfHealingFailure(t *testing.T) {
	brokers := model.NewTestBrokers(2, 2)
	brokers[1].State = model.BrokerStateDead

	cluster := model.NewTestCluster(
		t,
		brokers,
		[]model.TestPartition{
			{Topic: "t", Partition: 0, Replicas: []int{1, 2}},
		},
	)

	goal := NewReplicaDistributionGoal(TestConstraint(t, nil))
	err := goal.Optimize(cluster, nil)
	assert.True(t, errors.Is(err, ErrSelfHealingFailed))
}

func TestSelfHealingExcludedTopic(t *testing.T) {
	brokers := model.NewTestBrokers(3, 3)
	brokers[2].State = model.BrokerStateDead

	cluster := model.NewTestCluster(
		t,
		brokers,
		[]model.TestPartition{
			{Topic: "excluded", Partition: 0, Replicas: []int{3}},
			{Topic: "excluded", Partition: 1, Replicas: []int{1}},
			{Topic: "excluded", Partition: 2, Replicas: []int{1}},
			{Topic: "excluded", Partition: 3, Replicas: []int{1}},
		},
	)
	constraint := TestConstraint(
		t,
		func(config *model.BalancingConstraintConfig) {
			config.ExcludedTopics = []string{"excluded"}
		},
	)

	goal := NewReplicaDistributionGoal(constraint)
	require.NoError(t, goal.Optimize(cluster, nil))

	// Replicas on dead brokers move even when excluded; the others stay
	assert.Equal(t, 0, cluster.Broker(3).NumReplicas())
	assert.Equal(t, 3, cluster.Broker(1).NumReplicas())
	assert.Equal(t, 1, cluster.Broker(2).NumReplicas())
}
