package set

// Ordered is a set that remembers the order in which elements
// were first added.
type Ordered[E comparable] struct {
	index map[E]struct{}
	elems []E
}

// New creates an Ordered set containing the given elements.
// Duplicates after the first occurrence are dropped.
func New[E comparable](elems ...E) *Ordered[E] {
	s := &Ordered[E]{index: make(map[E]struct{}, len(elems))}
	for _, e := range elems {
		s.Add(e)
	}
	return s
}

// Add inserts e and reports whether it was not already present.
func (s *Ordered[E]) Add(e E) bool {
	if _, ok := s.index[e]; ok {
		return false
	}
	if s.index == nil {
		s.index = make(map[E]struct{})
	}
	s.index[e] = struct{}{}
	s.elems = append(s.elems, e)
	return true
}

// Has reports whether the set contains the element.
func (s *Ordered[E]) Has(e E) bool {
	_, ok := s.index[e]
	return ok
}

// Len returns the number of elements in the set.
func (s *Ordered[E]) Len() int {
	return len(s.elems)
}

// Values returns the elements in insertion order.
// The returned slice is a copy.
func (s *Ordered[E]) Values() []E {
	if len(s.elems) == 0 {
		return nil
	}
	return append([]E(nil), s.elems...)
}
