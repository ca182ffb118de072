package admin

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBrokerHelpers(t *testing.T) {
	brokers := []BrokerInfo{
		{ID: 1, Rack: "rack1"},
		{ID: 2, Rack: "rack2"},
		{ID: 3, Rack: "rack1"},
		{ID: 5, Rack: "rack3"},
	}

	assert.Equal(t, []int{1, 2, 3, 5}, BrokerIDs(brokers))
	assert.Equal(
		t,
		map[int]string{1: "rack1", 2: "rack2", 3: "rack1", 5: "rack3"},
		BrokerRacks(brokers),
	)
	assert.Equal(t, []string{"rack1", "rack2", "rack3"}, DistinctRacks(brokers))
}

func TestClusterStateHelpers(t *testing.T) {
	state := ClusterState{
		Brokers: []BrokerInfo{{ID: 1}, {ID: 2}, {ID: 4}},
		Topics: []TopicInfo{
			{
				Name: "topic1",
				Partitions: []PartitionInfo{
					{Topic: "topic1", ID: 0, Leader: 1, Replicas: []int{1, 2}},
					{Topic: "topic1", ID: 1, Leader: 2, Replicas: []int{2, 6}},
				},
			},
			{
				Name: "topic2",
				Partitions: []PartitionInfo{
					{Topic: "topic2", ID: 0, Leader: NoLeader, Replicas: []int{5}},
				},
			},
		},
	}

	assert.Equal(t, 3, state.NumPartitions())
	assert.Equal(t, []int{1, 2, 5, 6}, state.ReferencedBrokerIDs())
	assert.Equal(t, []int{5, 6}, state.MissingBrokerIDs())
	assert.Equal(
		t,
		[]PartitionInfo{{Topic: "topic2", ID: 0, Leader: NoLeader, Replicas: []int{5}}},
		state.OfflinePartitions(),
	)

	assert.Equal(t, 0, ClusterState{}.NumPartitions())
	assert.Equal(t, []int{}, ClusterState{}.MissingBrokerIDs())
}

func TestSortTopics(t *testing.T) {
	topics := []TopicInfo{
		{
			Name: "b",
			Partitions: []PartitionInfo{
				{ID: 2}, {ID: 0}, {ID: 1},
			},
		},
		{Name: "a"},
	}
	sortTopics(topics)

	assert.Equal(t, "a", topics[0].Name)
	assert.Equal(t, []PartitionInfo{{ID: 0}, {ID: 1}, {ID: 2}}, topics[1].Partitions)
}
