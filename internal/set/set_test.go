package set_test

import (
	"slices"
	"testing"

	"github.com/708u/mdblog/internal/set"
)

func TestNew(t *testing.T) {
	t.Parallel()

	s := set.New("b", "a", "c")

	if s.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", s.Len())
	}
	for _, e := range []string{"a", "b", "c"} {
		if !s.Has(e) {
			t.Errorf("Has(%q) = false, want true", e)
		}
	}
}

func TestNewDeduplicatesKeepingFirst(t *testing.T) {
	t.Parallel()

	s := set.New("x", "y", "x")

	if got, want := s.Values(), []string{"x", "y"}; !slices.Equal(got, want) {
		t.Fatalf("Values() = %v, want %v", got, want)
	}
}

func TestAdd(t *testing.T) {
	t.Parallel()

	var s set.Ordered[int]
	if !s.Add(1) {
		t.Fatal("Add(1) = false on empty set")
	}
	if s.Add(1) {
		t.Fatal("Add(1) = true for duplicate")
	}
	if s.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", s.Len())
	}
}

func TestValuesIsCopy(t *testing.T) {
	t.Parallel()

	s := set.New("a", "b")
	v := s.Values()
	v[0] = "z"

	if s.Has("z") || !slices.Equal(s.Values(), []string{"a", "b"}) {
		t.Fatalf("mutating Values() changed the set: %v", s.Values())
	}
}

func TestEmpty(t *testing.T) {
	t.Parallel()

	s := set.New[string]()

	if s.Has("x") {
		t.Fatal("Has on empty set returned true")
	}
	if s.Values() != nil {
		t.Fatalf("Values() = %v, want nil", s.Values())
	}
}
