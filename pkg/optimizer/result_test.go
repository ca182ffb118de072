package optimizer

import (
	"context"
	"testing"

	"github.com/segmentio/goalctl/pkg/goals"
	"github.com/segmentio/goalctl/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type diffTestCase struct {
	description string
	before      model.PartitionPlacement
	after       model.PartitionPlacement
	expected    []ExecutionProposal
}

func (d diffTestCase) evaluate(t *testing.T) {
	tp := model.TopicPartition{Topic: "t", Partition: 0}
	proposals := diffPlacements(
		map[model.TopicPartition]model.PartitionPlacement{tp: d.before},
		map[model.TopicPartition]model.PartitionPlacement{tp: d.after},
	)
	for i := range d.expected {
		d.expected[i].TopicPartition = tp
	}
	assert.Equal(t, d.expected, proposals, d.description)
}

func TestDiffPlacements(t *testing.T) {
	testCases := []diffTestCase{
		{
			description: "No change",
			before:      model.PartitionPlacement{Replicas: []int{1, 2}, Leader: 1},
			after:       model.PartitionPlacement{Replicas: []int{1, 2}, Leader: 1},
			expected:    []ExecutionProposal{},
		},
		{
			description: "Replica movement",
			before:      model.PartitionPlacement{Replicas: []int{1, 2}, Leader: 1},
			after:       model.PartitionPlacement{Replicas: []int{1, 3}, Leader: 1},
			expected: []ExecutionProposal{
				{
					OldReplicas: []int{1, 2},
					NewReplicas: []int{1, 3},
					OldLeader:   1,
					NewLeader:   1,
				},
			},
		},
		{
			description: "Leadership movement puts the new leader first",
			before:      model.PartitionPlacement{Replicas: []int{1, 2, 3}, Leader: 1},
			after:       model.PartitionPlacement{Replicas: []int{1, 2, 3}, Leader: 3},
			expected: []ExecutionProposal{
				{
					OldReplicas: []int{1, 2, 3},
					NewReplicas: []int{3, 1, 2},
					OldLeader:   1,
					NewLeader:   3,
				},
			},
		},
		{
			description: "Leader replica moved",
			before:      model.PartitionPlacement{Replicas: []int{2, 1}, Leader: 1},
			after:       model.PartitionPlacement{Replicas: []int{2, 4}, Leader: 4},
			expected: []ExecutionProposal{
				{
					OldReplicas: []int{1, 2},
					NewReplicas: []int{4, 2},
					OldLeader:   1,
					NewLeader:   4,
				},
			},
		},
	}

	for _, testCase := range testCases {
		testCase.evaluate(t)
	}
}

func TestExecutionProposal(t *testing.T) {
	proposal := ExecutionProposal{
		TopicPartition: model.TopicPartition{Topic: "t", Partition: 3},
		OldReplicas:    []int{1, 2, 3},
		NewReplicas:    []int{2, 4, 3},
		OldLeader:      1,
		NewLeader:      2,
	}
	assert.True(t, proposal.HasReplicaAction())
	assert.True(t, proposal.HasLeaderAction())
	assert.Equal(t, []int{4}, proposal.ReplicasToAdd())
	assert.Equal(t, []int{1}, proposal.ReplicasToRemove())
	assert.Equal(t, "t-3: [1 2 3] (leader 1) -> [2 4 3] (leader 2)", proposal.String())
}

func TestApplyProposals(t *testing.T) {
	cluster := model.NewTestCluster(
		t,
		model.NewTestBrokers(4, 4),
		[]model.TestPartition{
			{Topic: "t", Partition: 0, Replicas: []int{1, 2}},
			{Topic: "t", Partition: 1, Replicas: []int{2, 3}},
		},
	)
	proposals := []ExecutionProposal{
		{
			TopicPartition: model.TopicPartition{Topic: "t", Partition: 0},
			OldReplicas:    []int{1, 2},
			NewReplicas:    []int{4, 2},
			OldLeader:      1,
			NewLeader:      4,
		},
		{
			TopicPartition: model.TopicPartition{Topic: "t", Partition: 1},
			OldReplicas:    []int{2, 3},
			NewReplicas:    []int{3, 2},
			OldLeader:      2,
			NewLeader:      3,
		},
	}
	require.NoError(t, ApplyProposals(cluster, proposals))
	require.NoError(t, cluster.Sanity())

	placement := cluster.Placement()
	assert.Equal(
		t,
		model.PartitionPlacement{Replicas: []int{4, 2}, Leader: 4},
		placement[model.TopicPartition{Topic: "t", Partition: 0}],
	)
	assert.Equal(
		t,
		model.PartitionPlacement{Replicas: []int{2, 3}, Leader: 3},
		placement[model.TopicPartition{Topic: "t", Partition: 1}],
	)

	err := ApplyProposals(
		cluster,
		[]ExecutionProposal{
			{
				TopicPartition: model.TopicPartition{Topic: "missing", Partition: 0},
				OldReplicas:    []int{1},
				NewReplicas:    []int{2},
			},
		},
	)
	assert.Error(t, err)

	err = ApplyProposals(
		cluster,
		[]ExecutionProposal{
			{
				TopicPartition: model.TopicPartition{Topic: "t", Partition: 1},
				OldReplicas:    []int{2, 3},
				NewReplicas:    []int{2, 3, 4},
				OldLeader:      3,
				NewLeader:      3,
			},
		},
	)
	assert.Error(t, err)
}

func TestReassignmentJSON(t *testing.T) {
	proposals := []ExecutionProposal{
		{
			TopicPartition: model.TopicPartition{Topic: "t", Partition: 8},
			OldReplicas:    []int{1, 4},
			NewReplicas:    []int{1, 3},
			OldLeader:      1,
			NewLeader:      1,
		},
	}

	contents, err := ReassignmentJSON(proposals)
	require.NoError(t, err)
	assert.JSONEq(
		t,
		`{"version":1,"partitions":[{"topic":"t","partition":8,"replicas":[1,3]}]}`,
		string(contents),
	)

	contents, err = ReassignmentJSON(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":1,"partitions":[]}`, string(contents))
}

func TestFormat(t *testing.T) {
	cluster := NewTestHealingCluster(t)
	constraint := goals.TestConstraint(t, nil)

	result, err := testOptimizer(t, nil).Optimizations(
		context.Background(),
		cluster,
		[]goals.Goal{goals.NewCapacityGoal(constraint, model.ResourceDisk)},
		nil,
	)
	require.NoError(t, err)

	proposalsTable := FormatProposals(result.Proposals)
	assert.Contains(t, proposalsTable, "1,3")
	assert.Contains(t, proposalsTable, "2,4")
	assert.Contains(t, proposalsTable, "replica")

	summaryTable := FormatGoalSummary(result)
	assert.Contains(t, summaryTable, "(initial)")
	assert.Contains(t, summaryTable, goals.DiskCapacityGoalName)
	assert.Contains(t, summaryTable, "✓")
}
