package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/segmentio/goalctl/pkg/config"
	"github.com/segmentio/goalctl/pkg/goals"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOutputFormat(t *testing.T) {
	type testCase struct {
		description string
		input       string
		expected    OutputFormat
		expectedErr bool
	}

	testCases := []testCase{
		{
			description: "empty",
			input:       "",
			expected:    OutputFormatTable,
		},
		{
			description: "json",
			input:       "JSON",
			expected:    OutputFormatJSON,
		},
		{
			description: "yaml",
			input:       "yaml",
			expected:    OutputFormatYAML,
		},
		{
			description: "unknown",
			input:       "xml",
			expectedErr: true,
		},
	}

	for _, testCase := range testCases {
		format, err := ParseOutputFormat(testCase.input)
		if testCase.expectedErr {
			assert.Error(t, err, testCase.description)
		} else {
			require.NoError(t, err, testCase.description)
			assert.Equal(t, testCase.expected, format, testCase.description)
		}
	}
}

func TestGetSnapshotNoSource(t *testing.T) {
	runner := NewCLIRunner(t.Logf, &bytes.Buffer{}, OutputFormatTable, false)
	_, err := runner.GetSnapshot(context.Background(), ClusterSource{})
	assert.Error(t, err)
}

func TestWriteSnapshot(t *testing.T) {
	ctx := context.Background()
	source := ClusterSource{SnapshotPath: filepath.Join("testdata", "snapshot.yaml")}

	out := &bytes.Buffer{}
	runner := NewCLIRunner(t.Logf, out, OutputFormatTable, false)
	require.NoError(t, runner.WriteSnapshot(ctx, source, ""))

	snapshot, err := config.LoadSnapshotBytes(out.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "cli-snapshot", snapshot.Meta.Name)
	assert.Equal(t, 4, len(snapshot.Spec.Brokers))
	assert.Equal(t, 2, len(snapshot.Spec.Partitions))

	outputPath := filepath.Join(t.TempDir(), "snapshot.yaml")
	require.NoError(t, runner.WriteSnapshot(ctx, source, outputPath))

	written, err := config.LoadSnapshotFile(outputPath)
	require.NoError(t, err)
	assert.Equal(t, snapshot, written)
}

func TestListGoals(t *testing.T) {
	out := &bytes.Buffer{}
	runner := NewCLIRunner(t.Logf, out, OutputFormatJSON, false)
	require.NoError(
		t,
		runner.ListGoals([]string{goals.ReplicaDistributionGoalName, goals.RackAwareGoalName}),
	)

	entries := []goalEntry{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &entries))
	assert.Equal(t, len(goals.Names()), len(entries))

	byName := map[string]goalEntry{}
	for _, entry := range entries {
		byName[entry.Name] = entry
	}
	assert.Equal(t, 1, byName[goals.ReplicaDistributionGoalName].Priority)
	assert.Equal(t, 2, byName[goals.RackAwareGoalName].Priority)
	assert.True(t, byName[goals.RackAwareGoalName].Hard)
	assert.Equal(t, 0, byName[goals.DiskUsageDistributionGoalName].Priority)
	assert.False(t, byName[goals.DiskUsageDistributionGoalName].Hard)
}

func TestOptimizeSnapshot(t *testing.T) {
	ctx := context.Background()

	optimizerConfig := config.OptimizerConfig{
		Meta: config.ResourceMeta{
			Name:    "cli-optimizer",
			Cluster: "test-cluster",
		},
		Spec: config.OptimizerSpec{
			Goals:         []string{goals.ReplicaCapacityGoalName},
			SanityCheck:   true,
			Verifications: []string{"dead-brokers"},
		},
	}
	optimizerConfig.SetDefaults()
	require.NoError(t, optimizerConfig.Validate())

	reassignmentPath := filepath.Join(t.TempDir(), "reassignment.json")
	out := &bytes.Buffer{}
	runner := NewCLIRunner(t.Logf, out, OutputFormatJSON, false)

	results, err := runner.Optimize(
		ctx,
		OptimizeConfig{
			Source:           ClusterSource{SnapshotPath: filepath.Join("testdata", "snapshot.yaml")},
			OptimizerConfig:  optimizerConfig,
			Verify:           true,
			ReassignmentPath: reassignmentPath,
		},
	)
	require.NoError(t, err)
	assert.True(t, results.AllOK())

	output := optimizeOutput{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &output))
	assert.NotEmpty(t, output.RunID)
	assert.False(t, output.Cancelled)
	assert.Equal(t, []string{goals.ReplicaCapacityGoalName}, output.GoalOrder)
	assert.Equal(t, 1, output.NumReplicaMovements)
	require.Equal(t, 1, len(output.Reassignment.Partitions))

	partition := output.Reassignment.Partitions[0]
	assert.Equal(t, "topic-a", partition.Topic)
	assert.Equal(t, 1, partition.Partition)
	assert.Equal(t, 2, len(partition.Replicas))
	assert.NotContains(t, partition.Replicas, 4)

	require.Equal(t, 1, len(output.Verifications))
	assert.True(t, output.Verifications[0].OK)
	assert.FileExists(t, reassignmentPath)
}

func TestOptimizeCandidates(t *testing.T) {
	optimizerConfig := config.OptimizerConfig{
		Meta: config.ResourceMeta{
			Name:    "cli-optimizer",
			Cluster: "test-cluster",
		},
		Spec: config.OptimizerSpec{
			Goals: []string{goals.ReplicaCapacityGoalName},
		},
	}
	optimizerConfig.SetDefaults()

	out := &bytes.Buffer{}
	runner := NewCLIRunner(t.Logf, out, OutputFormatTable, false)

	_, err := runner.Optimize(
		context.Background(),
		OptimizeConfig{
			Source:          ClusterSource{SnapshotPath: filepath.Join("testdata", "snapshot.yaml")},
			OptimizerConfig: optimizerConfig,
			CandidateGoals: [][]string{
				{goals.ReplicaDistributionGoalName},
			},
		},
	)
	require.NoError(t, err)

	_, err = runner.Optimize(
		context.Background(),
		OptimizeConfig{
			Source:          ClusterSource{SnapshotPath: filepath.Join("testdata", "snapshot.yaml")},
			OptimizerConfig: optimizerConfig,
			CandidateGoals: [][]string{
				{"NotAGoal"},
			},
		},
	)
	assert.Error(t, err)
}
