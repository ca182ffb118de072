package goals

import (
	"testing"

	"github.com/segmentio/goalctl/pkg/model"
	"github.com/stretchr/testify/require"
)

// TestConstraint returns a default constraint, optionally adjusted by the argument function.
func TestConstraint(
	t *testing.T,
	update func(config *model.BalancingConstraintConfig),
) *model.BalancingConstraint {
	config := model.DefaultBalancingConstraintConfig()
	if update != nil {
		update(&config)
	}
	constraint, err := model.NewBalancingConstraint(config)
	require.NoError(t, err)
	return constraint
}

// ChangedPartitions returns the partitions whose broker sets differ between two placements.
func ChangedPartitions(
	before map[model.TopicPartition]model.PartitionPlacement,
	after map[model.TopicPartition]model.PartitionPlacement,
) []model.TopicPartition {
	changed := []model.TopicPartition{}

	for tp, placement := range after {
		beforeSet := before[tp].BrokerSet()
		afterSet := placement.BrokerSet()
		if len(beforeSet) != len(afterSet) {
			changed = append(changed, tp)
			continue
		}
		for brokerID := range afterSet {
			if _, ok := beforeSet[brokerID]; !ok {
				changed = append(changed, tp)
				break
			}
		}
	}

	model.SortTopicPartitions(changed)
	return changed
}
