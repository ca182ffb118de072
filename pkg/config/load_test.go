package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCluster(t *testing.T) {
	os.Setenv("GOALCTL_TEST_REGION", "test-region")
	defer os.Unsetenv("GOALCTL_TEST_REGION")

	clusterConfig, err := LoadClusterFile("testdata/cluster.yaml", true)
	require.NoError(t, err)

	absDir, err := filepath.Abs("testdata")
	require.NoError(t, err)
	assert.Equal(t, absDir, clusterConfig.RootDir)

	assert.Equal(
		t,
		ClusterMeta{
			Name:        "test-cluster",
			Region:      "test-region",
			Environment: "test-env",
			Description: "Test cluster\n",
		},
		clusterConfig.Meta,
	)
	assert.Equal(t, []string{"bootstrap-addr:9092"}, clusterConfig.Spec.BootstrapAddrs)
	assert.True(t, clusterConfig.Spec.UseBrokerAdmin)
	assert.Equal(t, []int{3}, clusterConfig.Spec.NewBrokerIDs)
	assert.Equal(
		t,
		LoadConfig{CPU: 1.0, NetworkInbound: 50000, NetworkOutbound: 50000, DiskMB: 500000},
		clusterConfig.Spec.DefaultCapacity,
	)
	assert.NoError(t, clusterConfig.Validate())

	// Without env expansion the region is left as is
	clusterConfig, err = LoadClusterFile("testdata/cluster.yaml", false)
	require.NoError(t, err)
	assert.Equal(t, "${GOALCTL_TEST_REGION}", clusterConfig.Meta.Region)

	clusterConfig, err = LoadClusterFile("testdata/cluster-invalid.yaml", true)
	require.NoError(t, err)
	assert.Error(t, clusterConfig.Validate())

	_, err = LoadClusterFile("testdata/cluster-extra-fields.yaml", true)
	assert.Error(t, err)

	_, err = LoadClusterFile("testdata/empty.yaml", true)
	assert.Error(t, err)

	_, err = LoadClusterFile("testdata/non-existent.yaml", true)
	assert.Error(t, err)
}

func TestLoadOptimizer(t *testing.T) {
	optimizerConfig, err := LoadOptimizerFile("testdata/optimizer.yaml", true)
	require.NoError(t, err)

	assert.Equal(
		t,
		ResourceMeta{
			Name:        "test-optimizer",
			Cluster:     "test-cluster",
			Description: "Test optimizer\n",
		},
		optimizerConfig.Meta,
	)
	assert.Equal(
		t,
		[]string{
			"RackAwareGoal",
			"DiskCapacityGoal",
			"ReplicaDistributionGoal",
			"DiskUsageDistributionGoal",
		},
		optimizerConfig.Spec.Goals,
	)
	assert.Equal(t, []string{"disk", "cpu"}, optimizerConfig.Spec.Resources)
	assert.Equal(t, map[string]float64{"disk": 1.05}, optimizerConfig.Spec.BalancePercentages)
	assert.Equal(t, "cluster-use", optimizerConfig.Spec.PickerMethod)
	assert.True(t, optimizerConfig.Spec.SanityCheck)

	// Defaults haven't been applied yet
	assert.Equal(t, 0, optimizerConfig.Spec.MaxReplicasPerBroker)
	optimizerConfig.SetDefaults()
	assert.NoError(t, optimizerConfig.Validate())

	optimizerConfig, err = LoadOptimizerFile("testdata/optimizer-invalid.yaml", true)
	require.NoError(t, err)
	optimizerConfig.SetDefaults()
	assert.Error(t, optimizerConfig.Validate())

	_, err = LoadOptimizerBytes([]byte("meta:\n  name: x\nspec:\n  goalz: []\n"))
	assert.Error(t, err)
}

func TestLoadSnapshot(t *testing.T) {
	snapshot, err := LoadSnapshotFile("testdata/snapshot.yaml")
	require.NoError(t, err)

	assert.Equal(t, "test-snapshot", snapshot.Meta.Name)
	require.Equal(t, 4, len(snapshot.Spec.Brokers))
	assert.Equal(t, "dead", snapshot.Spec.Brokers[3].State)
	assert.Nil(t, snapshot.Spec.Brokers[3].Capacity)

	require.Equal(t, 2, len(snapshot.Spec.Partitions))
	assert.Nil(t, snapshot.Spec.Partitions[0].Leader)
	assert.Equal(t, 1, snapshot.Spec.Partitions[0].LeaderID())
	assert.Equal(t, 4, snapshot.Spec.Partitions[1].LeaderID())
	assert.NoError(t, snapshot.Validate())

	_, err = LoadSnapshotFile("testdata/empty.yaml")
	assert.Error(t, err)
}

func TestIsEmpty(t *testing.T) {
	assert.True(t, isEmpty(""))
	assert.True(t, isEmpty("  \n# comment\n   # another\n"))
	assert.False(t, isEmpty("# comment\nmeta:\n"))
}
