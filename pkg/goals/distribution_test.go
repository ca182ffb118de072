package goals

import (
	"testing"

	"github.com/segmentio/goalctl/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type distributionTestCase struct {
	description    string
	brokers        []model.TestBroker
	partitions     []model.TestPartition
	goal           func(constraint *model.BalancingConstraint) Goal
	optimizedGoals []Goal
	excludedTopics []string

	expectedSatisfied bool
	expectedValues    map[int]int
	valueOf           func(broker *model.Broker) int
	expectUnchanged   bool
}

func (d distributionTestCase) evaluate(t *testing.T) {
	cluster := model.NewTestCluster(t, d.brokers, d.partitions)
	constraint := TestConstraint(
		t,
		func(config *model.BalancingConstraintConfig) {
			config.ExcludedTopics = d.excludedTopics
		},
	)
	goal := d.goal(constraint)

	placementBefore := cluster.Placement()
	statsBefore := cluster.ClusterStats(constraint)

	require.NoError(t, goal.Optimize(cluster, d.optimizedGoals), d.description)
	require.NoError(t, cluster.Sanity(), d.description)

	assert.Equal(t, d.expectedSatisfied, goal.IsSatisfied(cluster), d.description)
	assert.NotEqual(
		t,
		Worse,
		goal.Comparator()(cluster.ClusterStats(constraint), statsBefore).Result,
		d.description,
	)

	if d.expectUnchanged {
		assert.Equal(t, placementBefore, cluster.Placement(), d.description)
	}
	for brokerID, expected := range d.expectedValues {
		assert.Equal(
			t,
			expected,
			d.valueOf(cluster.Broker(brokerID)),
			"%s: broker %d",
			d.description,
			brokerID,
		)
	}
}

func numReplicas(broker *model.Broker) int {
	return broker.NumReplicas()
}

func numLeaders(broker *model.Broker) int {
	return broker.NumLeaders()
}

func TestDistributionGoals(t *testing.T) {
	singleReplicas := model.NewTestPartitions(
		"t",
		6,
		[][]int{{1}},
		model.NewLoad(0.1, 10.0, 10.0, 100.0),
	)

	testCases := []distributionTestCase{
		{
			description:       "Replica counts",
			brokers:           model.NewTestBrokers(3, 3),
			partitions:        singleReplicas,
			goal:              NewReplicaDistributionGoal,
			expectedSatisfied: true,
			expectedValues:    map[int]int{1: 3, 2: 2, 3: 1},
			valueOf:           numReplicas,
		},
		{
			description:       "Replica counts with rejecting optimized goal",
			brokers:           model.NewTestBrokers(3, 3),
			partitions:        singleReplicas,
			goal:              NewReplicaDistributionGoal,
			optimizedGoals:    []Goal{rejectingGoal{}},
			expectedSatisfied: false,
			expectUnchanged:   true,
		},
		{
			description:       "Replica counts with excluded topic",
			brokers:           model.NewTestBrokers(3, 3),
			partitions:        singleReplicas,
			goal:              NewReplicaDistributionGoal,
			excludedTopics:    []string{"t"},
			expectedSatisfied: false,
			expectUnchanged:   true,
		},
		{
			description: "Leader counts",
			brokers:     model.NewTestBrokers(3, 3),
			partitions: model.NewTestPartitions(
				"t",
				4,
				[][]int{{1, 2}, {1, 3}},
				model.NewLoad(0.1, 10.0, 10.0, 100.0),
			),
			goal:              NewLeaderReplicaDistributionGoal,
			expectedSatisfied: true,
			expectedValues:    map[int]int{1: 2, 2: 1, 3: 1},
			valueOf:           numLeaders,
		},
		{
			description: "Already balanced",
			brokers:     model.NewTestBrokers(3, 3),
			partitions: model.NewTestPartitions(
				"t",
				3,
				[][]int{{1}, {2}, {3}},
				model.NewLoad(0.1, 10.0, 10.0, 100.0),
			),
			goal: func(constraint *model.BalancingConstraint) Goal {
				return NewResourceDistributionGoal(constraint, model.ResourceDisk)
			},
			expectedSatisfied: true,
			expectUnchanged:   true,
		},
	}

	for _, testCase := range testCases {
		testCase.evaluate(t)
	}
}

func TestLeaderDistributionKeepsReplicas(t *testing.T) {
	cluster := model.NewTestCluster(
		t,
		model.NewTestBrokers(3, 3),
		model.NewTestPartitions(
			"t",
			4,
			[][]int{{1, 2}, {1, 3}},
			model.NewLoad(0.1, 10.0, 10.0, 100.0),
		),
	)
	before := cluster.Placement()

	goal := NewLeaderReplicaDistributionGoal(TestConstraint(t, nil))
	require.NoError(t, goal.Optimize(cluster, nil))

	assert.Empty(t, ChangedPartitions(before, cluster.Placement()))
	assert.True(t, goal.IsSatisfied(cluster))
}

func TestResourceDistributionGoalNewBrokers(t *testing.T) {
	brokers := model.NewTestBrokers(3, 3)
	brokers[2].State = model.BrokerStateNew

	cluster := model.NewTestCluster(
		t,
		brokers,
		model.NewTestPartitions(
			"t",
			6,
			[][]int{{1}, {2}},
			model.NewLoad(0.1, 10.0, 10.0, 1000.0),
		),
	)
	constraint := TestConstraint(t, nil)
	goal := NewResourceDistributionGoal(constraint, model.ResourceDisk)
	assert.False(t, goal.IsSatisfied(cluster))

	require.NoError(t, goal.Optimize(cluster, nil))
	assert.True(t, goal.IsSatisfied(cluster))

	// Old brokers only lost replicas; nothing moved between them
	for _, brokerID := range []int{1, 2} {
		for _, replica := range cluster.BrokerReplicas(brokerID) {
			assert.Equal(t, brokerID, replica.OriginalBrokerID())
		}
	}

	avg := cluster.AverageUtilization(model.ResourceDisk)
	assert.InDelta(t, 0.2, avg, 1e-9)
	assert.GreaterOrEqual(
		t,
		cluster.Broker(3).Utilization(model.ResourceDisk),
		avg*(2.0-constraint.BalancePercentage(model.ResourceDisk))-1e-9,
	)
}

func TestResourceDistributionLowUtilization(t *testing.T) {
	cluster := model.NewTestCluster(
		t,
		model.NewTestBrokers(3, 3),
		model.NewTestPartitions(
			"t",
			3,
			[][]int{{1}},
			model.NewLoad(0.1, 10.0, 10.0, 100.0),
		),
	)
	constraint := TestConstraint(
		t,
		func(config *model.BalancingConstraintConfig) {
			config.LowUtilizationThreshold = map[model.Resource]float64{
				model.ResourceDisk: 0.5,
			}
		},
	)
	before := cluster.Placement()

	goal := NewResourceDistributionGoal(constraint, model.ResourceDisk)
	assert.True(t, goal.IsSatisfied(cluster))
	require.NoError(t, goal.Optimize(cluster, nil))
	assert.Equal(t, before, cluster.Placement())
}

func TestDistributionActionAcceptance(t *testing.T) {
	cluster := model.NewTestCluster(
		t,
		model.NewTestBrokers(3, 3),
		model.NewTestPartitions(
			"t",
			6,
			[][]int{{1}, {2}, {3}},
			model.NewLoad(0.1, 10.0, 10.0, 100.0),
		),
	)
	goal := NewReplicaDistributionGoal(TestConstraint(t, nil))
	require.True(t, goal.IsSatisfied(cluster))

	// Counts are 2, 2, 2 with band [1, 3]; one move stays in the band
	replica := cluster.BrokerReplicas(1)[0]
	assert.Equal(t, Accept, goal.ActionAcceptance(NewReplicaMovement(replica, 2), cluster))

	require.NoError(t, cluster.RelocateReplica(replica.ID(), 2))

	// A second move onto broker 2 would take it to 4
	replica = cluster.BrokerReplicas(3)[0]
	assert.Equal(t, BrokerReject, goal.ActionAcceptance(NewReplicaMovement(replica, 2), cluster))
}
