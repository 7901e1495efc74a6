package span

import (
	"errors"
	"fmt"
)

// ErrNotAdjacent is returned by CombineWith when the ranges neither touch nor
// overlap.
var ErrNotAdjacent = errors.New("ranges are not adjacent")

// Range is a half-open interval [Start, End) of row indices.
type Range struct {
	start int
	end   int
}

// New returns [start, end). It panics when start > end.
func New(start, end int) Range {
	if start > end {
		panic(fmt.Sprintf("span: start (%d) must not be greater than end (%d)", start, end))
	}
	return Range{start: start, end: end}
}

// WithLength returns [start, start+length). It panics on a negative length.
func WithLength(start, length int) Range {
	if length < 0 {
		panic(fmt.Sprintf("span: length (%d) must not be negative", length))
	}
	return Range{start: start, end: start + length}
}

// WithOnly returns the single-index range [i, i+1).
func WithOnly(i int) Range {
	return Range{start: i, end: i + 1}
}

// Between returns the range spanning both a and b, including any gap between.
func Between(a, b Range) Range {
	return Range{start: min(a.start, b.start), end: max(a.end, b.end)}
}

// Empty returns the empty range positioned at zero.
func Empty() Range {
	return Range{}
}

// Start returns the first index in the range.
func (r Range) Start() int { return r.start }

// End returns the index one past the last index in the range.
func (r Range) End() int { return r.end }

// Len returns the number of indices in the range.
func (r Range) Len() int { return r.end - r.start }

// IsEmpty reports whether the range covers no indices.
func (r Range) IsEmpty() bool { return r.start == r.end }

// Contains reports whether i lies within the range.
func (r Range) Contains(i int) bool {
	return r.start <= i && i < r.end
}

// Intersects reports whether the two ranges share at least one index.
func (r Range) Intersects(other Range) bool {
	if r.IsEmpty() || other.IsEmpty() {
		return false
	}
	return r.start < other.end && other.start < r.end
}

// IsSubsetOf reports whether every index of r is also in other. An empty
// range is a subset of any range.
func (r Range) IsSubsetOf(other Range) bool {
	if r.IsEmpty() {
		return true
	}
	return other.start <= r.start && r.end <= other.end
}

// Intersection returns the overlap of the two ranges, or an empty range
// positioned at r.Start when they do not intersect.
func (r Range) Intersection(other Range) Range {
	if !r.Intersects(other) {
		return Range{start: r.start, end: r.start}
	}
	return Range{start: max(r.start, other.start), end: min(r.end, other.end)}
}

// CombineWith merges two overlapping or touching ranges. Empty ranges combine
// with anything by returning the other operand.
func (r Range) CombineWith(other Range) (Range, error) {
	if r.IsEmpty() {
		return other, nil
	}
	if other.IsEmpty() {
		return r, nil
	}
	if r.end < other.start || other.end < r.start {
		return Range{}, fmt.Errorf("combine %s with %s: %w", r, other, ErrNotAdjacent)
	}
	return Between(r, other), nil
}

// PartitionWith splits r into the part before other, the part inside other
// and the part after other. All three may be empty; together they always
// cover exactly r.
func (r Range) PartitionWith(other Range) (before, inside, after Range) {
	splitStart := clamp(other.start, r.start, r.end)
	splitEnd := clamp(other.end, splitStart, r.end)
	before = Range{start: r.start, end: splitStart}
	inside = Range{start: splitStart, end: splitEnd}
	after = Range{start: splitEnd, end: r.end}
	return before, inside, after
}

// SplitAt splits r at index i into [Start, i) and [i, End). i is clamped to
// the range.
func (r Range) SplitAt(i int) (Range, Range) {
	at := clamp(i, r.start, r.end)
	return Range{start: r.start, end: at}, Range{start: at, end: r.end}
}

// Offset moves the range by n.
func (r Range) Offset(n int) Range {
	return Range{start: r.start + n, end: r.end + n}
}

// ExpandBy grows the range by before indices at the start and after indices
// at the end. Negative values shrink it, but never past an empty range.
func (r Range) ExpandBy(before, after int) Range {
	start := r.start - before
	end := r.end + after
	if end < start {
		end = start
	}
	return Range{start: start, end: end}
}

// RestrictTo clips r to bounds. The result is empty when they do not overlap.
func (r Range) RestrictTo(bounds Range) Range {
	start := clamp(r.start, bounds.start, bounds.end)
	end := clamp(r.end, start, bounds.end)
	return Range{start: start, end: end}
}

// Subtract returns the parts of r not covered by other, in ascending order.
// The result holds zero, one or two non-empty ranges.
func (r Range) Subtract(other Range) []Range {
	if !r.Intersects(other) {
		if r.IsEmpty() {
			return nil
		}
		return []Range{r}
	}
	before, _, after := r.PartitionWith(other)
	var out []Range
	if !before.IsEmpty() {
		out = append(out, before)
	}
	if !after.IsEmpty() {
		out = append(out, after)
	}
	return out
}

func (r Range) String() string {
	return fmt.Sprintf("[%d..%d)", r.start, r.end)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
