package pickers

import (
	"fmt"
	"hash/fnv"

	"github.com/segmentio/goalctl/pkg/model"
	"github.com/segmentio/goalctl/pkg/util"
)

// RandomizedPicker is a picker that breaks ties with a shuffle seeded by the partition, so
// that the same partition always gets the same order.
type RandomizedPicker struct{}

var _ Picker = (*RandomizedPicker)(nil)

func NewRandomizedPicker() *RandomizedPicker {
	return &RandomizedPicker{}
}

func (r *RandomizedPicker) SortBrokers(
	tp model.TopicPartition,
	brokerIDs []int,
	scores map[int]float64,
) ([]int, error) {
	keySorter := func(input map[int]int) []int {
		return util.ShuffledKeys(input, tp.String())
	}
	return sortBrokersByScore(brokerIDs, scores, keySorter)
}

func (r *RandomizedPicker) ScoreBroker(tp model.TopicPartition, brokerID int) int {
	seed := fmt.Sprintf("%s-%d", tp, brokerID)
	hash := fnv.New32()
	hash.Write([]byte(seed))
	return int(hash.Sum32())
}
