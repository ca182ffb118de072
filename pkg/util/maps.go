package util

import (
	"hash/fnv"
	"math/rand"
	"sort"
)

// KeySorter is a type for a function that orders the integer keys of a map. It's used to
// break ties when keys are later sorted by value.
type KeySorter func(map[int]int) []int

// SortedKeys returns the keys of the argument in ascending order.
func SortedKeys(input map[int]int) []int {
	keys := []int{}

	for key := range input {
		keys = append(keys, key)
	}

	sort.Ints(keys)
	return keys
}

// ShuffledKeys returns a shuffled version of the keys in the
// argument map. The provided seedStr is hashed and used to seed
// the random number generator, so the same seed always produces the same order.
func ShuffledKeys(input map[int]int, seedStr string) []int {
	keys := SortedKeys(input)

	hash := fnv.New64()
	hash.Write([]byte(seedStr))

	random := rand.New(rand.NewSource(int64(hash.Sum64())))
	random.Shuffle(len(keys), func(i, j int) {
		keys[i], keys[j] = keys[j], keys[i]
	})

	return keys
}

// SortedKeysByScore orders the keys of the argument scores ascending, using the key sorter
// to break ties.
func SortedKeysByScore(scores map[int]float64, keySorter KeySorter) []int {
	placeholders := make(map[int]int, len(scores))
	for key := range scores {
		placeholders[key] = 0
	}
	keys := keySorter(placeholders)

	sort.SliceStable(
		keys, func(a, b int) bool {
			return scores[keys[a]] < scores[keys[b]]
		},
	)

	return keys
}
