package mdblog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const postExt = ".md"

// Loader reads every post document in one directory of a file
// system and builds a Collection.
//
// A document with malformed front matter is skipped and logged by
// default; WithStrict makes it fail the whole load instead. Read
// and render errors always fail the load.
type Loader struct {
	fsys          fs.FS
	dir           string
	renderer      Renderer
	logger        Logger
	strict        bool
	previewLength int
}

// LoaderOption configures optional Loader behavior.
type LoaderOption func(*Loader)

// WithLogger sets the logger for skipped documents and load summaries.
func WithLogger(l Logger) LoaderOption {
	return func(ld *Loader) {
		if l != nil {
			ld.logger = l
		}
	}
}

// WithStrict makes a malformed document fail the load.
func WithStrict() LoaderOption {
	return func(ld *Loader) { ld.strict = true }
}

// WithPreviewLength sets the preview length target. Values below 1
// are ignored.
func WithPreviewLength(n int) LoaderOption {
	return func(ld *Loader) {
		if n > 0 {
			ld.previewLength = n
		}
	}
}

// NewLoader creates a Loader for the *.md files directly under dir.
func NewLoader(fsys fs.FS, dir string, r Renderer, opts ...LoaderOption) *Loader {
	l := &Loader{
		fsys:          fsys,
		dir:           path.Clean(dir),
		renderer:      r,
		logger:        NopLogger(),
		previewLength: DefaultPreviewLength,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Load reads, parses and renders all posts. Files are visited in
// lexical order, which is also the tie-break order for equal dates.
func (l *Loader) Load(ctx context.Context) (*Collection, error) {
	entries, err := fs.ReadDir(l.fsys, l.dir)
	if err != nil {
		return nil, fmt.Errorf("reading posts directory %s: %w", l.dir, err)
	}

	var (
		posts   []*Post
		skipped []Skipped
	)
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if e.IsDir() || !strings.HasSuffix(e.Name(), postExt) || e.Name() == postExt {
			continue
		}
		p := path.Join(l.dir, e.Name())
		post, err := l.loadPost(p)
		if err != nil {
			if !l.strict && errors.Is(err, ErrMalformedDocument) {
				l.logger.Warn("skipping post", "path", p, "error", err)
				skipped = append(skipped, Skipped{Path: p, Err: err})
				continue
			}
			return nil, err
		}
		posts = append(posts, post)
	}

	c, err := NewCollection(posts)
	if err != nil {
		return nil, err
	}
	c.skipped = skipped
	l.logger.Info("posts loaded", "dir", l.dir, "posts", c.Len(), "skipped", len(skipped))
	return c, nil
}

func (l *Loader) loadPost(p string) (*Post, error) {
	data, err := fs.ReadFile(l.fsys, p)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", p, err)
	}
	doc, err := ParseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", p, err)
	}

	id := identifier(l.dir, p)
	fm := doc.FrontMatter
	title := fm.Title
	if title == "" {
		title = titleFromID(id)
	}
	date, err := parseDate(fm.Date)
	if err != nil {
		l.logger.Warn("unparseable date", "path", p, "date", fm.Date, "error", err)
	}

	preview, err := Preview(l.renderer, doc.Body, l.previewLength)
	if err != nil {
		return nil, fmt.Errorf("rendering preview of %s: %w", p, err)
	}
	body, err := l.renderer.Render([]byte(doc.Body))
	if err != nil {
		return nil, fmt.Errorf("rendering %s: %w", p, err)
	}

	return &Post{
		ID:      id,
		Title:   title,
		Date:    date,
		RawDate: fm.Date,
		Tags:    fm.Tags,
		Extra:   fm.Extra,
		Content: doc.Body,
		Preview: preview,
		Body:    body,
		Path:    p,
	}, nil
}

// identifier strips the directory prefix and the .md extension.
func identifier(dir, p string) string {
	return strings.TrimSuffix(strings.TrimPrefix(p, dir+"/"), postExt)
}

// parseDate parses a front matter date. An empty value is the zero
// time without error.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := dateparse.ParseStrict(s)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

// titleFromID turns "my-first_post" into "My First Post".
func titleFromID(id string) string {
	words := strings.NewReplacer("-", " ", "_", " ").Replace(id)
	return cases.Title(language.English).String(words)
}
