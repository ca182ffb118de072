package subcmd

import (
	"testing"

	"github.com/segmentio/goalctl/pkg/cli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSharedOptionsValidate(t *testing.T) {
	type testCase struct {
		description string
		options     sharedOptions
		expectedErr bool
	}

	testCases := []testCase{
		{
			description: "snapshot",
			options:     sharedOptions{snapshot: "snapshot.yaml"},
		},
		{
			description: "broker addr",
			options:     sharedOptions{brokerAddr: "localhost:9092", output: "json"},
		},
		{
			description: "no source",
			options:     sharedOptions{},
			expectedErr: true,
		},
		{
			description: "snapshot and broker addr",
			options:     sharedOptions{snapshot: "snapshot.yaml", brokerAddr: "localhost:9092"},
			expectedErr: true,
		},
		{
			description: "broker and zk addrs",
			options:     sharedOptions{brokerAddr: "localhost:9092", zkAddr: "localhost:2181"},
			expectedErr: true,
		},
		{
			description: "bad output",
			options:     sharedOptions{snapshot: "snapshot.yaml", output: "xml"},
			expectedErr: true,
		},
		{
			description: "bad sasl mechanism",
			options: sharedOptions{
				brokerAddr:    "localhost:9092",
				saslMechanism: "aws-msk-iam",
			},
			expectedErr: true,
		},
	}

	for _, testCase := range testCases {
		err := testCase.options.validate()
		if testCase.expectedErr {
			assert.Error(t, err, testCase.description)
		} else {
			assert.NoError(t, err, testCase.description)
		}
	}
}

func TestGetClusterSource(t *testing.T) {
	source, err := sharedOptions{snapshot: "snapshot.yaml"}.getClusterSource()
	require.NoError(t, err)
	assert.Equal(t, cli.ClusterSource{SnapshotPath: "snapshot.yaml"}, source)

	source, err = sharedOptions{
		brokerAddr:   "localhost:9092",
		tlsCACert:    "ca.pem",
		newBrokerIDs: []int{5},
		topics:       []string{"topic-a"},
	}.getClusterSource()
	require.NoError(t, err)
	require.NotNil(t, source.ClusterConfig)

	spec := source.ClusterConfig.Spec
	assert.True(t, spec.UseBrokerAdmin)
	assert.Equal(t, []string{"localhost:9092"}, spec.BootstrapAddrs)
	assert.True(t, spec.TLS.Enabled)
	assert.Equal(t, "ca.pem", spec.TLS.CACertPath)
	assert.False(t, spec.SASL.Enabled)
	assert.Equal(t, []int{5}, spec.NewBrokerIDs)
	assert.Equal(t, []string{"topic-a"}, source.Topics)

	source, err = sharedOptions{zkAddr: "localhost:2181", zkPrefix: "kafka"}.getClusterSource()
	require.NoError(t, err)
	assert.False(t, source.ClusterConfig.Spec.UseBrokerAdmin)
	assert.Equal(t, []string{"localhost:2181"}, source.ClusterConfig.Spec.ZKAddrs)
	assert.Equal(t, "kafka", source.ClusterConfig.Spec.ZKPrefix)
}

func TestSplitGoals(t *testing.T) {
	assert.Equal(
		t,
		[]string{"RackAwareGoal", "DiskCapacityGoal"},
		splitGoals(" RackAwareGoal, DiskCapacityGoal,"),
	)
	assert.Equal(t, []string{}, splitGoals(""))
}

func TestLoadOptimizerConfigDefaults(t *testing.T) {
	optimizerConfig, err := loadOptimizerConfig("", false, []string{"RackAwareGoal"})
	require.NoError(t, err)
	assert.Equal(t, []string{"RackAwareGoal"}, optimizerConfig.Spec.Goals)
	assert.NotEmpty(t, optimizerConfig.Spec.Resources)

	_, err = loadOptimizerConfig("", false, []string{"NotAGoal"})
	assert.Error(t, err)
}
