// Package span provides Range, the half-open integer interval used to describe
// cached, visible and requested row spans throughout gridsync.
//
// # Overview
//
// A Range covers [Start, End). It is an immutable value type: every method
// that "changes" a range returns a new one. An empty range has Start == End
// and still carries a position, which matters when partitioning.
//
// # Invariants
//
// Start <= End always holds. Constructing a range that violates it is a
// programming error and panics, the same way slicing past a bound does.
//
// # Usage Example
//
//	cached := span.New(10, 30)
//	visible := span.WithLength(25, 10)
//
//	before, inside, after := visible.PartitionWith(cached)
//	// before = [25,25) inside = [25,30) after = [30,35)
//
//	if !visible.IsSubsetOf(cached) {
//		request(after)
//	}
package span
