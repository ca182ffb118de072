package model

import (
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBalancingConstraint(t *testing.T) {
	config := DefaultBalancingConstraintConfig()
	config.Resources = []Resource{ResourceDisk, ResourceCPU}
	config.BalancePercentage = map[Resource]float64{ResourceDisk: 1.2}
	config.ExcludedTopics = []string{"b", "a"}

	constraint, err := NewBalancingConstraint(config)
	require.NoError(t, err)

	assert.Equal(t, []Resource{ResourceDisk, ResourceCPU}, constraint.Resources())
	assert.Equal(t, 1.2, constraint.BalancePercentage(ResourceDisk))
	assert.Equal(t, DefaultBalancePercentage, constraint.BalancePercentage(ResourceCPU))
	assert.Equal(t, DefaultCapacityThreshold, constraint.CapacityThreshold(ResourceNetworkInbound))
	assert.Equal(t, []string{"a", "b"}, constraint.ExcludedTopics())
	assert.True(t, constraint.IsExcludedTopic("a"))
	assert.False(t, constraint.IsExcludedTopic("c"))
	assert.Equal(t, PickerMethodLowestIndex, constraint.PickerMethod())
}

func TestNewBalancingConstraintErrors(t *testing.T) {
	config := BalancingConstraintConfig{
		Resources:                      []Resource{ResourceDisk, ResourceDisk},
		BalancePercentage:              map[Resource]float64{ResourceCPU: 0.9},
		CapacityThreshold:              map[Resource]float64{ResourceDisk: 1.5},
		ReplicaBalancePercentage:       1.1,
		LeaderReplicaBalancePercentage: 0.5,
		MaxReplicasPerBroker:           0,
		PickerMethod:                   "bogus",
	}

	_, err := NewBalancingConstraint(config)
	require.Error(t, err)

	merr, ok := err.(*multierror.Error)
	require.True(t, ok)
	// duplicate resource, cpu balance, disk threshold, leader balance, max replicas, picker
	assert.Equal(t, 6, len(merr.Errors))
}

func TestParseResourceAndState(t *testing.T) {
	resource, err := ParseResource("NetworkOutbound")
	require.NoError(t, err)
	assert.Equal(t, ResourceNetworkOutbound, resource)
	assert.Equal(t, "networkOutbound", resource.String())

	_, err = ParseResource("gpu")
	assert.Error(t, err)

	state, err := ParseBrokerState("")
	require.NoError(t, err)
	assert.Equal(t, BrokerStateAlive, state)
	_, err = ParseBrokerState("zombie")
	assert.Error(t, err)
}
