package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConstraint(t *testing.T) *BalancingConstraint {
	constraint, err := NewBalancingConstraint(DefaultBalancingConstraintConfig())
	require.NoError(t, err)
	return constraint
}

func TestNewStatistics(t *testing.T) {
	stats := NewStatistics([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.InDelta(t, 5.0, stats.Avg(), 1e-9)
	assert.InDelta(t, 9.0, stats.Max(), 1e-9)
	assert.InDelta(t, 2.0, stats.Min(), 1e-9)
	assert.InDelta(t, 2.0, stats.StdDev(), 1e-9)

	assert.Equal(t, Statistics{}, NewStatistics(nil))
}

func TestClusterStats(t *testing.T) {
	cluster := testClusterWithStates(t)
	constraint := testConstraint(t)

	stats := cluster.ClusterStats(constraint)
	assert.Equal(t, 4, stats.NumBrokers)
	assert.Equal(t, 3, stats.NumAliveBrokers)
	assert.Equal(t, 1, stats.NumNewBrokers)
	assert.Equal(t, 1, stats.NumDeadBrokers)
	assert.Equal(t, 6, stats.NumReplicas)
	assert.Equal(t, 2, stats.NumTopics)
	assert.Equal(t, 3, stats.NumPartitions)
	assert.Equal(t, 2, stats.NumPartitionsWithOfflineReplicas)
	assert.Equal(t, 2, stats.NumReplicasOnDeadBrokers)

	// Replica counts over alive brokers 1, 3, 4 are 2, 0, 2
	assert.InDelta(t, 4.0/3.0, stats.ReplicaCount.Avg(), 1e-9)
	assert.InDelta(t, 2.0, stats.ReplicaCount.Max(), 1e-9)
	assert.InDelta(t, 0.0, stats.ReplicaCount.Min(), 1e-9)
	assert.InDelta(t, math.Sqrt(8.0/9.0), stats.ReplicaCount.StdDev(), 1e-9)

	assert.Equal(t, DefaultBalancePercentage, stats.BalancePercentage[ResourceDisk])

	// Snapshots of an unmutated model are equal
	assert.Equal(t, stats, cluster.ClusterStats(constraint))
	assert.True(t, stats == cluster.ClusterStats(constraint))
}

func TestBands(t *testing.T) {
	lower, upper := CountBand(10.0, 1.1)
	assert.Equal(t, 9, lower)
	assert.Equal(t, 11, upper)

	lower, upper = CountBand(2.5, 1.1)
	assert.Equal(t, 2, lower)
	assert.Equal(t, 3, upper)

	lowerUtil, upperUtil := UtilizationBand(0.5, 1.2)
	assert.InDelta(t, 0.4, lowerUtil, 1e-9)
	assert.InDelta(t, 0.6, upperUtil, 1e-9)
}
