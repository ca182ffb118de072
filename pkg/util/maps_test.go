package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortedKeys(t *testing.T) {
	input := map[int]int{
		5: 2,
		1: 3,
		3: 2,
		2: 1,
	}

	assert.Equal(t, []int{1, 2, 3, 5}, SortedKeys(input))
}

func TestShuffledKeys(t *testing.T) {
	input := map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0, 6: 0}

	shuffled := ShuffledKeys(input, "seed")
	assert.ElementsMatch(t, []int{1, 2, 3, 4, 5, 6}, shuffled)
	assert.Equal(t, shuffled, ShuffledKeys(input, "seed"))
}

func TestSortedKeysByScore(t *testing.T) {
	scores := map[int]float64{
		4: 0.5,
		2: 0.5,
		1: 0.9,
		3: 0.1,
	}
	assert.Equal(t, []int{3, 2, 4, 1}, SortedKeysByScore(scores, SortedKeys))

	reversed := func(input map[int]int) []int {
		keys := SortedKeys(input)
		for i, j := 0, len(keys)-1; i < j; i, j = i+1, j-1 {
			keys[i], keys[j] = keys[j], keys[i]
		}
		return keys
	}
	assert.Equal(t, []int{3, 4, 2, 1}, SortedKeysByScore(scores, reversed))
}
