package domain

// Order keys are sparse on purpose: inserting between two tasks bisects the
// gap between their keys instead of renumbering the whole container.
const (
	// OrderSeed is the key of the first task in an empty container and the
	// gap left above the last task on append.
	OrderSeed int64 = 1000
	// OrderFloor is the smallest key ever handed out. Once the top task sits
	// at the floor there is no room left above it and the container needs a
	// renumber (see NeedsRenumber).
	OrderFloor int64 = 1
)

// ComputeOrderKey returns the order key for a task inserted at gap index
// insertAt among siblings, which must be the destination container's keys
// sorted ascending and excluding the task being moved. insertAt is clamped to
// [0, len(siblings)].
func ComputeOrderKey(siblings []int64, insertAt int) int64 {
	n := len(siblings)
	if n == 0 {
		return OrderSeed
	}
	if insertAt < 0 {
		insertAt = 0
	}
	if insertAt > n {
		insertAt = n
	}
	switch {
	case insertAt == 0:
		first := siblings[0]
		if first <= OrderFloor {
			return OrderFloor
		}
		return first / 2
	case insertAt == n:
		return siblings[n-1] + OrderSeed
	default:
		before, after := siblings[insertAt-1], siblings[insertAt]
		mid := before + (after-before)/2
		if mid == before || mid == after {
			// Adjacent keys leave no integer midpoint; nudge to keep
			// the ordering strict.
			mid = before + 1
		}
		return mid
	}
}

// NeedsRenumber reports whether inserting at the given gap index cannot
// produce a key strictly distinct from both neighbors, meaning the container's
// keys must be respaced before the move lands.
func NeedsRenumber(siblings []int64, insertAt int) bool {
	n := len(siblings)
	if n == 0 {
		return false
	}
	if insertAt <= 0 {
		return siblings[0] <= OrderFloor
	}
	if insertAt >= n {
		return false
	}
	return siblings[insertAt]-siblings[insertAt-1] < 2
}

// RenumberKeys returns fresh keys for count tasks spaced OrderSeed apart,
// starting at OrderSeed.
func RenumberKeys(count int) []int64 {
	keys := make([]int64, count)
	for i := range keys {
		keys[i] = OrderSeed * int64(i+1)
	}
	return keys
}
