package pickers

import (
	"sort"

	"github.com/segmentio/goalctl/pkg/model"
	"github.com/segmentio/goalctl/pkg/util"
)

// ClusterUsePicker is a picker that considers broker use across the entire cluster to break
// ties. Counts are read from the model at call time, so they follow the moves already made.
type ClusterUsePicker struct {
	cluster *model.ClusterModel
}

var _ Picker = (*ClusterUsePicker)(nil)

func NewClusterUsePicker(cluster *model.ClusterModel) *ClusterUsePicker {
	return &ClusterUsePicker{
		cluster: cluster,
	}
}

func (c *ClusterUsePicker) SortBrokers(
	tp model.TopicPartition,
	brokerIDs []int,
	scores map[int]float64,
) ([]int, error) {
	return sortBrokersByScore(brokerIDs, scores, c.keySorter())
}

func (c *ClusterUsePicker) ScoreBroker(tp model.TopicPartition, brokerID int) int {
	broker := c.cluster.Broker(brokerID)
	if broker == nil {
		return 0
	}
	return broker.NumReplicas()
}

func (c *ClusterUsePicker) keySorter() util.KeySorter {
	return func(input map[int]int) []int {
		keys := util.SortedKeys(input)

		sort.SliceStable(keys, func(a, b int) bool {
			return c.ScoreBroker(model.TopicPartition{}, keys[a]) <
				c.ScoreBroker(model.TopicPartition{}, keys[b])
		})

		return keys
	}
}
