package mdblog

import (
	"html/template"
	"slices"
	"time"
)

// Post is one loaded blog entry. Posts are never modified after
// loading.
type Post struct {
	// ID is the source file name without directory and extension.
	ID    string
	Title string
	// Date is the zero time when the date value is missing or could
	// not be parsed. RawDate keeps the value as written.
	Date    time.Time
	RawDate string
	Tags    []string
	// Extra holds front matter keys other than title, date and tags.
	Extra map[string]string

	// Content is the raw markdown body.
	Content string
	// Preview is the rendered excerpt shown in lists.
	Preview template.HTML
	// Body is the rendered full content.
	Body template.HTML

	Path string
}

// HasTag reports whether the post is tagged with tag.
func (p *Post) HasTag(tag string) bool {
	return slices.Contains(p.Tags, tag)
}
