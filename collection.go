package mdblog

import (
	"errors"
	"fmt"
	"slices"

	"github.com/708u/mdblog/internal/set"
)

// ErrPostNotFound is returned by Collection.Get for an unknown ID.
var ErrPostNotFound = errors.New("post not found")

// ErrDuplicateID is returned when two posts share an ID.
var ErrDuplicateID = errors.New("duplicate post id")

// Skipped records a source document left out of a collection.
type Skipped struct {
	Path string
	Err  error
}

// Collection is an immutable set of posts ordered by date, most
// recent first. It is safe for concurrent reads.
type Collection struct {
	posts   []*Post
	byID    map[string]*Post
	tags    []string
	skipped []Skipped
}

// NewCollection orders posts by descending date and indexes them.
// Posts without a date come last. Posts with equal dates keep their
// relative order.
func NewCollection(posts []*Post) (*Collection, error) {
	sorted := slices.Clone(posts)
	slices.SortStableFunc(sorted, byDateDesc)

	byID := make(map[string]*Post, len(sorted))
	tags := set.New[string]()
	for _, p := range sorted {
		if _, ok := byID[p.ID]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateID, p.ID)
		}
		byID[p.ID] = p
		for _, t := range p.Tags {
			tags.Add(t)
		}
	}
	return &Collection{
		posts: sorted,
		byID:  byID,
		tags:  tags.Values(),
	}, nil
}

func byDateDesc(a, b *Post) int {
	switch az, bz := a.Date.IsZero(), b.Date.IsZero(); {
	case az && bz:
		return 0
	case az:
		return 1
	case bz:
		return -1
	}
	return b.Date.Compare(a.Date)
}

// Posts returns all posts in order.
func (c *Collection) Posts() []*Post {
	return slices.Clone(c.posts)
}

// Len returns the number of posts.
func (c *Collection) Len() int {
	return len(c.posts)
}

// Get returns the post with the given ID.
func (c *Collection) Get(id string) (*Post, error) {
	p, ok := c.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrPostNotFound, id)
	}
	return p, nil
}

// Tags returns every tag used by any post exactly once, in order of
// first appearance.
func (c *Collection) Tags() []string {
	return slices.Clone(c.tags)
}

// WithTag returns the posts tagged with tag, in order. An empty tag
// matches every post.
func (c *Collection) WithTag(tag string) []*Post {
	if tag == "" {
		return c.Posts()
	}
	var out []*Post
	for _, p := range c.posts {
		if p.HasTag(tag) {
			out = append(out, p)
		}
	}
	return out
}

// Skipped returns the documents the loader left out.
func (c *Collection) Skipped() []Skipped {
	return slices.Clone(c.skipped)
}
