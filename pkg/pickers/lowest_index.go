package pickers

import (
	"github.com/segmentio/goalctl/pkg/model"
	"github.com/segmentio/goalctl/pkg/util"
)

// LowestIndexPicker is a picker that uses broker id to break ties.
type LowestIndexPicker struct{}

var _ Picker = (*LowestIndexPicker)(nil)

func NewLowestIndexPicker() *LowestIndexPicker {
	return &LowestIndexPicker{}
}

func (l *LowestIndexPicker) SortBrokers(
	tp model.TopicPartition,
	brokerIDs []int,
	scores map[int]float64,
) ([]int, error) {
	return sortBrokersByScore(brokerIDs, scores, util.SortedKeys)
}

func (l *LowestIndexPicker) ScoreBroker(tp model.TopicPartition, brokerID int) int {
	return brokerID
}
