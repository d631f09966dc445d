package site

import (
	"sync/atomic"

	"github.com/708u/mdblog"
)

// Store holds the collection being served. Reloads replace it as a
// whole, so readers always see one complete collection.
type Store struct {
	current atomic.Pointer[mdblog.Collection]
}

// NewStore creates a Store serving c.
func NewStore(c *mdblog.Collection) *Store {
	s := &Store{}
	s.current.Store(c)
	return s
}

// Collection returns the current collection.
func (s *Store) Collection() *mdblog.Collection {
	return s.current.Load()
}

// Replace swaps in c and returns the collection it replaced.
func (s *Store) Replace(c *mdblog.Collection) *mdblog.Collection {
	return s.current.Swap(c)
}
