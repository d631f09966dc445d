// Package site renders a post collection as HTML pages, serves them
// over HTTP and writes them out as a static site.
package site

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	stripmd "github.com/writeas/go-strip-markdown"

	"github.com/708u/mdblog"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/style.css
var styleCSS []byte

const (
	// NotFoundMessage is shown for unknown posts and pages.
	NotFoundMessage = "Post not found"

	descriptionLength = 160
	dateLayout        = "January 2, 2006"
)

// Config controls what every page shows.
type Config struct {
	Title string

	// BasePath is the URL prefix of every link, e.g. "/blog/".
	BasePath string

	// MathScript is loaded on every page when not empty.
	MathScript string
}

// Views renders the list, detail and not-found pages.
// It is safe for concurrent use.
type Views struct {
	cfg   Config
	pages map[string]*template.Template
}

type page struct {
	Site        Config
	Title       string
	Description string

	Posts []*mdblog.Post
	Tags  []string
	Tag   string

	Post    *mdblog.Post
	Message string
}

// NewViews parses the embedded templates.
func NewViews(cfg Config) (*Views, error) {
	cfg.BasePath = NormalizeBasePath(cfg.BasePath)
	v := &Views{cfg: cfg, pages: make(map[string]*template.Template)}

	base, err := template.New("layout.html").Funcs(template.FuncMap{
		"url":  v.url,
		"date": formatDate,
	}).ParseFS(templateFS, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("parsing layout: %w", err)
	}
	for _, name := range []string{"list", "post", "notfound"} {
		t, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := t.ParseFS(templateFS, "templates/"+name+".html"); err != nil {
			return nil, fmt.Errorf("parsing %s template: %w", name, err)
		}
		v.pages[name] = t
	}
	return v, nil
}

// NormalizeBasePath makes p start and end with "/".
func NormalizeBasePath(p string) string {
	p = strings.Trim(p, "/")
	if p == "" {
		return "/"
	}
	return "/" + p + "/"
}

// BasePath returns the normalized base path.
func (v *Views) BasePath() string {
	return v.cfg.BasePath
}

// RenderList writes the list view. A non-empty tag limits it to the
// posts carrying that tag.
func (v *Views) RenderList(w io.Writer, c *mdblog.Collection, tag string) error {
	title := v.cfg.Title
	if tag != "" {
		title = tag + " · " + v.cfg.Title
	}
	return v.execute(w, "list", page{
		Title: title,
		Posts: c.WithTag(tag),
		Tags:  c.Tags(),
		Tag:   tag,
	})
}

// RenderPost writes the detail view of p.
func (v *Views) RenderPost(w io.Writer, p *mdblog.Post) error {
	return v.execute(w, "post", page{
		Title:       p.Title + " · " + v.cfg.Title,
		Description: description(p.Content),
		Post:        p,
	})
}

// RenderNotFound writes the not-found view.
func (v *Views) RenderNotFound(w io.Writer) error {
	return v.execute(w, "notfound", page{
		Title:   NotFoundMessage + " · " + v.cfg.Title,
		Message: NotFoundMessage,
	})
}

func (v *Views) execute(w io.Writer, name string, data page) error {
	data.Site = v.cfg
	if err := v.pages[name].ExecuteTemplate(w, "layout", data); err != nil {
		return fmt.Errorf("rendering %s view: %w", name, err)
	}
	return nil
}

// url joins the base path and escaped path segments into a
// directory-style link: url("posts", "a b") is "/posts/a%20b/".
func (v *Views) url(segments ...string) string {
	var b strings.Builder
	b.WriteString(v.cfg.BasePath)
	for _, s := range segments {
		b.WriteString(url.PathEscape(s))
		b.WriteByte('/')
	}
	return b.String()
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

// description is the plain text start of a markdown body, for the
// description meta tag.
func description(markdown string) string {
	text := strings.Join(strings.Fields(stripmd.Strip(markdown)), " ")
	if utf8.RuneCountInString(text) <= descriptionLength {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:descriptionLength])) + "…"
}
