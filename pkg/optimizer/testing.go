package optimizer

import (
	"testing"

	"github.com/segmentio/goalctl/pkg/model"
)

// TestHealingLoad is the leader load of every partition in NewTestHealingCluster.
var TestHealingLoad = model.NewLoad(0.01, 1.0, 1.0, 100.0)

// NewTestHealingCluster returns a cluster with 4 brokers in different racks: brokers 1 and 2
// are alive, broker 3 is new and broker 4 is dead. Topic "t" has 10 partitions with two
// replicas each; partitions 8 and 9 have a follower on the dead broker.
func NewTestHealingCluster(t *testing.T) *model.ClusterModel {
	brokers := model.NewTestBrokers(4, 4)
	brokers[2].State = model.BrokerStateNew
	brokers[3].State = model.BrokerStateDead

	partitions := model.NewTestPartitions("t", 8, [][]int{{1, 2}, {2, 1}}, TestHealingLoad)
	partitions = append(
		partitions,
		model.TestPartition{Topic: "t", Partition: 8, Replicas: []int{1, 4}, Load: TestHealingLoad},
		model.TestPartition{Topic: "t", Partition: 9, Replicas: []int{2, 4}, Load: TestHealingLoad},
	)

	return model.NewTestCluster(t, brokers, partitions)
}
