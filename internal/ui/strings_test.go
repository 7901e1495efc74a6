package ui

import "testing"

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		limit int
		want  string
	}{
		{"short", 10, "short"},
		{"  padded  ", 10, "padded"},
		{"a longer value", 8, "a lon..."},
		{"abcdef", 3, "abc"},
		{"anything", 0, "anything"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.limit); got != tt.want {
			t.Fatalf("truncate(%q, %d) = %q, want %q", tt.in, tt.limit, got, tt.want)
		}
	}
}

func TestFit(t *testing.T) {
	if got := fit("abc", 6, false); got != "abc   " {
		t.Fatalf("fit left = %q", got)
	}
	if got := fit("42", 5, true); got != "   42" {
		t.Fatalf("fit right = %q", got)
	}
	if got := fit("overflowing", 6, false); got != "ove..." {
		t.Fatalf("fit overflow = %q", got)
	}
}

func TestStripTags(t *testing.T) {
	if got := stripTags("<b>Price</b> &amp; <i>tax</i>"); got != "Price & tax" {
		t.Fatalf("stripTags = %q", got)
	}
}
