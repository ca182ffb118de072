package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSameElements(t *testing.T) {
	assert.True(t, SameElements([]int{1, 2, 3}, []int{3, 1, 2}))
	assert.False(t, SameElements([]int{1, 2, 2}, []int{1, 1, 2}))
	assert.False(t, SameElements([]int{1, 2}, []int{1, 2, 3}))
}

func TestDifference(t *testing.T) {
	assert.Equal(t, []int{4, 1}, Difference([]int{4, 2, 1, 3}, []int{2, 3}))
	assert.Equal(t, []int{}, Difference([]int{2}, []int{2}))
}
