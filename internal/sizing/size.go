// Package sizing guards the index-supplied record lengths, offsets and match
// totals against overflow when they cross into int, int64 or a running sum.
package sizing

import "math"

// ToInt converts a record length to int, or returns overflowErr.
func ToInt(size uint64, overflowErr error) (int, error) {
	if size > uint64(math.MaxInt) {
		return 0, overflowErr
	}
	return int(size), nil
}

// ToInt64 converts a seek offset to int64, or returns overflowErr.
func ToInt64(size uint64, overflowErr error) (int64, error) {
	if size > uint64(math.MaxInt64) {
		return 0, overflowErr
	}
	return int64(size), nil
}

// AddUint64 adds a count to a running total. ok is false on wraparound.
func AddUint64(total, n uint64) (sum uint64, ok bool) {
	sum = total + n
	if sum < total {
		return 0, false
	}
	return sum, true
}
