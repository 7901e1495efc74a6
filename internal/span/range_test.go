package span

import (
	"errors"
	"testing"
)

func TestNew_PanicsWhenStartAfterEnd(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("New(5, 4) did not panic")
		}
	}()
	_ = New(5, 4)
}

func TestWithLength_PanicsOnNegativeLength(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("WithLength(0, -1) did not panic")
		}
	}()
	_ = WithLength(0, -1)
}

func TestRange_Predicates(t *testing.T) {
	tests := []struct {
		name       string
		a, b       Range
		intersects bool
		subset     bool
	}{
		{"identical", New(0, 10), New(0, 10), true, true},
		{"inner", New(2, 5), New(0, 10), true, true},
		{"overlap start", New(-5, 5), New(0, 10), true, false},
		{"touching", New(10, 20), New(0, 10), false, false},
		{"disjoint", New(20, 30), New(0, 10), false, false},
		{"empty inside", New(3, 3), New(0, 10), false, true},
		{"empty outside", New(30, 30), New(0, 10), false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Intersects(tt.b); got != tt.intersects {
				t.Fatalf("%s.Intersects(%s) = %v, want %v", tt.a, tt.b, got, tt.intersects)
			}
			if got := tt.b.Intersects(tt.a); got != tt.intersects {
				t.Fatalf("Intersects should be symmetric for %s and %s", tt.a, tt.b)
			}
			if got := tt.a.IsSubsetOf(tt.b); got != tt.subset {
				t.Fatalf("%s.IsSubsetOf(%s) = %v, want %v", tt.a, tt.b, got, tt.subset)
			}
		})
	}
}

func TestRange_PartitionWith(t *testing.T) {
	r := New(10, 20)
	tests := []struct {
		name                  string
		other                 Range
		before, inside, after Range
	}{
		{"middle", New(12, 15), New(10, 12), New(12, 15), New(15, 20)},
		{"covers", New(0, 30), New(10, 10), New(10, 20), New(20, 20)},
		{"entirely before", New(0, 5), New(10, 10), New(10, 10), New(10, 20)},
		{"entirely after", New(25, 30), New(10, 20), New(20, 20), New(20, 20)},
		{"overlaps end", New(15, 30), New(10, 15), New(15, 20), New(20, 20)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before, inside, after := r.PartitionWith(tt.other)
			if before != tt.before || inside != tt.inside || after != tt.after {
				t.Fatalf("PartitionWith(%s) = %s %s %s, want %s %s %s",
					tt.other, before, inside, after, tt.before, tt.inside, tt.after)
			}
			if before.Len()+inside.Len()+after.Len() != r.Len() {
				t.Fatalf("partitions do not cover %s", r)
			}
		})
	}
}

func TestRange_CombineWith(t *testing.T) {
	got, err := New(0, 5).CombineWith(New(5, 9))
	if err != nil {
		t.Fatalf("CombineWith adjacent returned error: %v", err)
	}
	if got != New(0, 9) {
		t.Fatalf("CombineWith = %s, want [0..9)", got)
	}

	got, err = Empty().CombineWith(New(40, 50))
	if err != nil || got != New(40, 50) {
		t.Fatalf("CombineWith empty = %s, %v; want [40..50)", got, err)
	}

	if _, err := New(0, 5).CombineWith(New(6, 9)); !errors.Is(err, ErrNotAdjacent) {
		t.Fatalf("CombineWith gap error = %v, want ErrNotAdjacent", err)
	}
}

func TestRange_RestrictToAndExpand(t *testing.T) {
	bounds := New(0, 100)
	if got := New(-10, 10).RestrictTo(bounds); got != New(0, 10) {
		t.Fatalf("RestrictTo = %s, want [0..10)", got)
	}
	if got := New(90, 120).RestrictTo(bounds); got != New(90, 100) {
		t.Fatalf("RestrictTo = %s, want [90..100)", got)
	}
	if got := New(200, 210).RestrictTo(bounds); !got.IsEmpty() {
		t.Fatalf("RestrictTo disjoint = %s, want empty", got)
	}
	if got := New(10, 20).ExpandBy(5, 7); got != New(5, 27) {
		t.Fatalf("ExpandBy = %s, want [5..27)", got)
	}
	if got := New(10, 20).ExpandBy(-8, -8); !got.IsEmpty() {
		t.Fatalf("ExpandBy shrink = %s, want empty", got)
	}
}

func TestRange_Subtract(t *testing.T) {
	got := New(0, 20).Subtract(New(5, 10))
	if len(got) != 2 || got[0] != New(0, 5) || got[1] != New(10, 20) {
		t.Fatalf("Subtract = %v, want [[0..5) [10..20)]", got)
	}
	if got := New(0, 20).Subtract(New(0, 30)); len(got) != 0 {
		t.Fatalf("Subtract covering = %v, want none", got)
	}
	if got := New(0, 20).Subtract(New(40, 50)); len(got) != 1 || got[0] != New(0, 20) {
		t.Fatalf("Subtract disjoint = %v, want [[0..20)]", got)
	}
}

func TestRange_SplitAtAndOffset(t *testing.T) {
	a, b := New(10, 20).SplitAt(14)
	if a != New(10, 14) || b != New(14, 20) {
		t.Fatalf("SplitAt = %s %s, want [10..14) [14..20)", a, b)
	}
	a, b = New(10, 20).SplitAt(50)
	if a != New(10, 20) || !b.IsEmpty() {
		t.Fatalf("SplitAt beyond end = %s %s", a, b)
	}
	if got := New(10, 20).Offset(-10); got != New(0, 10) {
		t.Fatalf("Offset = %s, want [0..10)", got)
	}
}
