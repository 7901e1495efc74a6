package sched

import (
	"reflect"
	"testing"
)

func TestQueue_FlushRunsInOrderIncludingNestedDefers(t *testing.T) {
	var q Queue
	var got []string

	q.Defer(func() {
		got = append(got, "a")
		q.Defer(func() { got = append(got, "c") })
	})
	q.Defer(func() { got = append(got, "b") })

	if q.Len() != 2 {
		t.Fatalf("Len = %d, want 2", q.Len())
	}
	if ran := q.Flush(); ran != 3 {
		t.Fatalf("Flush ran %d tasks, want 3", ran)
	}
	if want := []string{"a", "b", "c"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
	if q.Len() != 0 {
		t.Fatalf("Len after Flush = %d, want 0", q.Len())
	}
	if ran := q.Flush(); ran != 0 {
		t.Fatalf("empty Flush ran %d tasks", ran)
	}
}
