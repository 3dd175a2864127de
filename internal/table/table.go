// Package table implements the string- and integer-keyed hash tables that
// the descriptor package uses for name and number lookup (spec.md §3.2,
// §4.2).
//
// Structurally this is grounded on
// _examples/yaninyzwitty-hyperpb-go/internal/table/table.go (open
// addressing, power-of-two bucket counts, a fixed load factor, arena-
// friendly flat storage) but the collision-resolution strategy follows
// spec.md §4.2 exactly: main-position chaining with eviction ("Brent's
// variation"), not hyperpb's quadratic probing, because spec.md calls out
// chaining as an explicit, testable property of this component.
package table

const (
	// loadFactor is the maximum count/size ratio before a table doubles
	// (spec.md §4.2 "Resize").
	loadFactor = 0.85

	minBuckets = 8

	empty = -1
)

// log2Ceil returns the smallest power of two >= n, with a floor of
// minBuckets.
func log2Ceil(n int) int {
	size := minBuckets
	for size < n {
		size *= 2
	}
	return size
}
