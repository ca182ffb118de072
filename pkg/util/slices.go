package util

// CopyInts copies a slice of ints.
func CopyInts(input []int) []int {
	results := make([]int, len(input))
	copy(results, input)
	return results
}

// SameElements determines whether two int slices have the
// same elements (in any order).
func SameElements(slice1 []int, slice2 []int) bool {
	if len(slice1) != len(slice2) {
		return false
	}

	counts := map[int]int{}
	for _, s := range slice1 {
		counts[s]++
	}
	for _, s := range slice2 {
		counts[s]--
		if counts[s] < 0 {
			return false
		}
	}

	return true
}

// Difference returns the elements of slice1 that aren't in slice2, in slice1 order.
func Difference(slice1 []int, slice2 []int) []int {
	exclude := map[int]struct{}{}
	for _, s := range slice2 {
		exclude[s] = struct{}{}
	}

	results := []int{}
	for _, s := range slice1 {
		if _, ok := exclude[s]; !ok {
			results = append(results, s)
		}
	}
	return results
}
