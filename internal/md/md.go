// Package md renders blog markdown, including inline and display math,
// into trusted HTML.
package md

import (
	"bytes"
	"fmt"
	"html/template"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
)

// Options configures a Renderer.
type Options struct {
	// HardWraps renders every newline inside a paragraph as <br>.
	HardWraps bool

	// Unsafe passes raw HTML in the markdown source through unchanged.
	// When false raw HTML is replaced by a comment.
	Unsafe bool

	// HighlightStyle names a chroma style for fenced code blocks.
	// Empty disables syntax highlighting.
	HighlightStyle string

	// Typesetter renders math formulas. Defaults to MathJax.
	Typesetter Typesetter
}

// Renderer converts markdown into HTML. It is configured once and
// is safe for concurrent use.
type Renderer struct {
	engine goldmark.Markdown
}

// New builds a Renderer with GFM extensions, auto heading IDs and
// the math extension.
func New(opts Options) *Renderer {
	ts := opts.Typesetter
	if ts == nil {
		ts = MathJax{}
	}

	exts := []goldmark.Extender{extension.GFM, Math(ts)}
	if opts.HighlightStyle != "" {
		exts = append(exts, highlighting.NewHighlighting(
			highlighting.WithStyle(opts.HighlightStyle),
			highlighting.WithFormatOptions(chromahtml.TabWidth(4)),
		))
	}

	var rendererOptions []renderer.Option
	if opts.HardWraps {
		rendererOptions = append(rendererOptions, html.WithHardWraps())
	}
	if opts.Unsafe {
		rendererOptions = append(rendererOptions, html.WithUnsafe())
	}

	return &Renderer{
		engine: goldmark.New(
			goldmark.WithExtensions(exts...),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
			goldmark.WithRendererOptions(rendererOptions...),
		),
	}
}

// Render converts src to HTML. The result is the only place in the
// module where markdown output becomes template.HTML.
func (r *Renderer) Render(src []byte) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.engine.Convert(src, &buf); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return template.HTML(buf.String()), nil
}
