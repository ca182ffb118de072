package admin

import (
	"context"
	"testing"

	"github.com/segmentio/goalctl/pkg/util"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopicInfoFromMetadata(t *testing.T) {
	broker1 := kafka.Broker{ID: 1, Host: "broker1", Port: 9092, Rack: "zone1"}
	broker2 := kafka.Broker{ID: 2, Host: "broker2", Port: 9092, Rack: "zone2"}

	// Replicas on brokers missing from the metadata only carry their id
	missing := kafka.Broker{ID: 3}

	topicInfo := topicInfoFromMetadata(
		kafka.Topic{
			Name: "topic1",
			Partitions: []kafka.Partition{
				{
					Topic:    "topic1",
					ID:       0,
					Leader:   broker2,
					Replicas: []kafka.Broker{broker1, broker2},
					Isr:      []kafka.Broker{broker2},
				},
				{
					Topic:    "topic1",
					ID:       1,
					Leader:   kafka.Broker{},
					Replicas: []kafka.Broker{missing},
				},
			},
		},
	)

	assert.Equal(
		t,
		TopicInfo{
			Name: "topic1",
			Partitions: []PartitionInfo{
				{Topic: "topic1", ID: 0, Leader: 2, Replicas: []int{1, 2}, ISR: []int{2}},
				{Topic: "topic1", ID: 1, Leader: NoLeader, Replicas: []int{3}, ISR: []int{}},
			},
		},
		topicInfo,
	)
}

func TestBrokerClientClusterState(t *testing.T) {
	kafkaAddr := util.RequireKafka(t)

	ctx := context.Background()
	client, err := NewBrokerAdminClient(
		ctx,
		BrokerAdminClientConfig{
			ConnectorConfig: ConnectorConfig{BrokerAddr: kafkaAddr},
		},
	)
	require.NoError(t, err)
	defer client.Close()

	state, err := GetClusterState(ctx, client, nil)
	require.NoError(t, err)
	assert.NotEqual(t, "", state.ClusterID)
	assert.Greater(t, len(state.Brokers), 0)
	assert.Equal(t, []int{}, state.MissingBrokerIDs())

	_, err = NewBrokerAdminClient(
		ctx,
		BrokerAdminClientConfig{
			ConnectorConfig:   ConnectorConfig{BrokerAddr: kafkaAddr},
			ExpectedClusterID: "wrong-cluster-id",
		},
	)
	assert.Error(t, err)
}
