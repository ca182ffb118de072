package pickers

import (
	"errors"
	"fmt"

	"github.com/segmentio/goalctl/pkg/model"
	"github.com/segmentio/goalctl/pkg/util"
)

var (
	// ErrNoFeasibleChoice is returned by a picker when there is no feasible choice among
	// the offered possibilities.
	ErrNoFeasibleChoice = errors.New("Picker could not find a feasible choice")
)

// Picker orders candidate destination brokers for a replica. Goals compute a score per
// candidate (lower is better); the picker decides how equally-scored candidates are ordered.
type Picker interface {
	// SortBrokers returns the argument brokers sorted by ascending score. Brokers missing from
	// scores are treated as having a score of zero.
	SortBrokers(
		tp model.TopicPartition,
		brokerIDs []int,
		scores map[int]float64,
	) ([]int, error)

	// ScoreBroker generates a static tie-breaking score for a broker. A higher score means
	// the broker is less preferred.
	ScoreBroker(tp model.TopicPartition, brokerID int) int
}

// New returns the picker for the argument method.
func New(method model.PickerMethod, cluster *model.ClusterModel) (Picker, error) {
	switch method {
	case "", model.PickerMethodLowestIndex:
		return NewLowestIndexPicker(), nil
	case model.PickerMethodRandomized:
		return NewRandomizedPicker(), nil
	case model.PickerMethodClusterUse:
		return NewClusterUsePicker(cluster), nil
	default:
		return nil, fmt.Errorf("Unrecognized picker method: %s", method)
	}
}

func sortBrokersByScore(
	brokerIDs []int,
	scores map[int]float64,
	keySorter util.KeySorter,
) ([]int, error) {
	if len(brokerIDs) == 0 {
		return nil, ErrNoFeasibleChoice
	}

	candidateScores := map[int]float64{}
	for _, brokerID := range brokerIDs {
		candidateScores[brokerID] = scores[brokerID]
	}

	return util.SortedKeysByScore(candidateScores, keySorter), nil
}
