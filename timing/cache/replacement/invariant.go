package replacement

import "fmt"

// CheckPermutation verifies that the stack ranks of a set form a permutation
// of [0, len(ways)).
func CheckPermutation(ways []LineSlot) error {
	seen := make([]bool, len(ways))
	for way, slot := range ways {
		if slot.Recency >= uint64(len(ways)) {
			return fmt.Errorf("way %d has rank %d, want < %d",
				way, slot.Recency, len(ways))
		}
		if seen[slot.Recency] {
			return fmt.Errorf("rank %d appears twice (again at way %d)",
				slot.Recency, way)
		}
		seen[slot.Recency] = true
	}
	return nil
}
