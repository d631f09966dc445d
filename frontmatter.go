package mdblog

import (
	"bytes"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/708u/mdblog/internal/md"
	"github.com/708u/mdblog/internal/set"
)

// ErrMalformedDocument is returned when a document's front matter
// block is missing, unterminated or contains an invalid line.
var ErrMalformedDocument = errors.New("malformed document")

const (
	yamlDelimiter = "---"
	tomlDelimiter = "+++"
)

// Recognized front matter keys.
const (
	keyTitle = "title"
	keyDate  = "date"
	keyTags  = "tags"
)

// FrontMatter is the metadata block of a post. Keys other than
// title, date and tags are kept verbatim in Extra.
type FrontMatter struct {
	Title string
	Date  string
	Tags  []string
	Extra map[string]string
}

// Document is a parsed source file: front matter plus markdown body.
type Document struct {
	FrontMatter FrontMatter
	Body        string
}

// ParseDocument splits data into front matter and body.
//
// The first non-blank line must be a "---" delimiter and a later
// "---" line closes the block. Every non-blank line in between is
// "key: value", split on the first colon. A "+++" delimited block is
// decoded as TOML instead. The body is everything after the closing
// delimiter line.
func ParseDocument(data []byte) (*Document, error) {
	lines := splitLinesKeepEOL(string(bytes.TrimPrefix(data, []byte("\ufeff"))))

	open := 0
	for open < len(lines) && strings.TrimSpace(lines[open]) == "" {
		open++
	}
	if open == len(lines) {
		return nil, fmt.Errorf("%w: no front matter delimiter", ErrMalformedDocument)
	}
	delim := strings.TrimSpace(lines[open])
	if delim != yamlDelimiter && delim != tomlDelimiter {
		return nil, fmt.Errorf("%w: first line is not a %q delimiter", ErrMalformedDocument, yamlDelimiter)
	}

	closing := -1
	for i := open + 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == delim {
			closing = i
			break
		}
	}
	if closing < 0 {
		return nil, fmt.Errorf("%w: missing closing %q delimiter", ErrMalformedDocument, delim)
	}

	block := lines[open+1 : closing]
	body := strings.Join(lines[closing+1:], "")

	var (
		fm  FrontMatter
		err error
	)
	if delim == tomlDelimiter {
		fm, err = parseTOMLFrontMatter(strings.Join(lines[open:closing+1], ""), block)
	} else {
		fm, err = parseFrontMatter(block)
	}
	if err != nil {
		return nil, err
	}
	return &Document{FrontMatter: fm, Body: body}, nil
}

func parseFrontMatter(block []string) (FrontMatter, error) {
	fields := make(map[string]string)
	for i, line := range block {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return FrontMatter{}, fmt.Errorf("%w: front matter line %d has no ':'", ErrMalformedDocument, i+1)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return FrontMatter{}, fmt.Errorf("%w: front matter line %d has an empty key", ErrMalformedDocument, i+1)
		}
		fields[key] = strings.TrimSpace(value)
	}
	return newFrontMatter(fields), nil
}

// parseTOMLFrontMatter decodes a +++ block. Array values are joined
// with ", " so tags arrays and tags strings end up the same.
func parseTOMLFrontMatter(raw string, block []string) (FrontMatter, error) {
	if strings.TrimSpace(strings.Join(block, "")) == "" {
		return newFrontMatter(nil), nil
	}
	// goldmark's frontmatter extension expects the "+++" lines on
	// their own; normalize CRLF before handing the block over.
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	meta := md.Metadata([]byte(strings.TrimLeft(raw, " \t")))
	if len(meta) == 0 {
		return FrontMatter{}, fmt.Errorf("%w: invalid TOML front matter", ErrMalformedDocument)
	}

	fields := make(map[string]string, len(meta))
	for k, v := range meta {
		fields[k] = tomlString(v)
	}
	return newFrontMatter(fields), nil
}

func tomlString(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case time.Time:
		if v.Hour() == 0 && v.Minute() == 0 && v.Second() == 0 && v.Nanosecond() == 0 {
			return v.Format(time.DateOnly)
		}
		return v.Format(time.RFC3339)
	case []any:
		parts := make([]string, 0, len(v))
		for _, e := range v {
			parts = append(parts, tomlString(e))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(v)
	}
}

func newFrontMatter(fields map[string]string) FrontMatter {
	fm := FrontMatter{
		Title: fields[keyTitle],
		Date:  fields[keyDate],
		Tags:  SplitTags(fields[keyTags]),
	}
	for k, v := range fields {
		switch k {
		case keyTitle, keyDate, keyTags:
			continue
		}
		if fm.Extra == nil {
			fm.Extra = make(map[string]string)
		}
		fm.Extra[k] = v
	}
	return fm
}

// Fields returns the front matter as raw key/value pairs, with tags
// joined by ", ". Empty title, date and tags are omitted.
func (fm FrontMatter) Fields() map[string]string {
	fields := make(map[string]string, len(fm.Extra)+3)
	maps.Copy(fields, fm.Extra)
	if fm.Title != "" {
		fields[keyTitle] = fm.Title
	}
	if fm.Date != "" {
		fields[keyDate] = fm.Date
	}
	if len(fm.Tags) > 0 {
		fields[keyTags] = JoinTags(fm.Tags)
	}
	return fields
}

// FormatDocument renders doc back into its source form. Title, date
// and tags come first; other keys follow in sorted order.
func FormatDocument(doc *Document) []byte {
	fields := doc.FrontMatter.Fields()

	var b bytes.Buffer
	b.WriteString(yamlDelimiter + "\n")
	for _, k := range []string{keyTitle, keyDate, keyTags} {
		if v, ok := fields[k]; ok {
			fmt.Fprintf(&b, "%s: %s\n", k, v)
			delete(fields, k)
		}
	}
	for _, k := range slices.Sorted(maps.Keys(fields)) {
		fmt.Fprintf(&b, "%s: %s\n", k, fields[k])
	}
	b.WriteString(yamlDelimiter + "\n")
	b.WriteString(doc.Body)
	return b.Bytes()
}

// SplitTags splits a comma separated tags value into trimmed,
// non-empty tags. Repeated tags keep their first position.
func SplitTags(raw string) []string {
	tags := set.New[string]()
	for part := range strings.SplitSeq(raw, ",") {
		if tag := strings.TrimSpace(part); tag != "" {
			tags.Add(tag)
		}
	}
	return tags.Values()
}

// JoinTags is the inverse of SplitTags.
func JoinTags(tags []string) string {
	return strings.Join(tags, ", ")
}

// splitLinesKeepEOL splits s into lines, each keeping its line
// terminator, so joining the result gives back s.
func splitLinesKeepEOL(s string) []string {
	var lines []string
	for line := range strings.Lines(s) {
		lines = append(lines, line)
	}
	return lines
}
