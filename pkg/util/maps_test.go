package util

import (
	"slices"
	"testing"
)

func TestSortedKeys(t *testing.T) {
	m := map[string]int{"b": 2, "a": 1, "c": 3}
	if got := SortedKeys(m); !slices.Equal(got, []string{"a", "b", "c"}) {
		t.Errorf("SortedKeys() = %v", got)
	}
	if got := SortedKeys(map[string]int(nil)); len(got) != 0 {
		t.Errorf("SortedKeys(nil) = %v, want empty", got)
	}
}

func TestSortedUnique(t *testing.T) {
	in := []string{"b", "a", "b", "c", "a"}
	got := SortedUnique(in)
	if !slices.Equal(got, []string{"a", "b", "c"}) {
		t.Errorf("SortedUnique() = %v", got)
	}
	if in[0] != "b" {
		t.Error("SortedUnique must not modify its input")
	}
	if got := SortedUnique[int](nil); len(got) != 0 {
		t.Errorf("SortedUnique(nil) = %v, want empty", got)
	}
}
