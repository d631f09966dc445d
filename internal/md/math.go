package md

import (
	"bytes"
	"fmt"
	"strings"

	mathjax "github.com/litao91/goldmark-mathjax"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

var mathFence = []byte("$$")

// displayAttr marks an InlineMath node written as $$...$$ inside a
// line of text.
const displayAttr = "display"

// Math returns an extension that parses math spans and blocks into
// goldmark-mathjax nodes and renders them through ts.
func Math(ts Typesetter) goldmark.Extender {
	return &mathExtension{typesetter: ts}
}

type mathExtension struct {
	typesetter Typesetter
}

func (e *mathExtension) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(
		parser.WithBlockParsers(util.Prioritized(&mathBlockParser{}, 701)),
		parser.WithInlineParsers(util.Prioritized(&mathInlineParser{}, 501)),
	)
	m.Renderer().AddOptions(
		renderer.WithNodeRenderers(util.Prioritized(&mathRenderer{typesetter: e.typesetter}, 500)),
	)
}

var mathBlockStateKey = parser.NewContextKey()

type mathBlockState struct {
	closed bool
}

// mathBlockParser opens a block on a line starting with $$ when a
// closing $$ follows, either on the same line or further down the
// source. Without a closer the line stays paragraph text.
type mathBlockParser struct{}

func (b *mathBlockParser) Trigger() []byte { return []byte{'$'} }

func (b *mathBlockParser) Open(parent ast.Node, reader text.Reader, pc parser.Context) (ast.Node, parser.State) {
	line, segment := reader.PeekLine()
	pos := pc.BlockOffset()
	if pos < 0 || !bytes.HasPrefix(line[pos:], mathFence) {
		return nil, parser.NoChildren
	}

	node := mathjax.NewMathBlock()
	state := &mathBlockState{}
	start := pos + len(mathFence)
	rest := line[start:]
	if end := bytes.Index(rest, mathFence); end >= 0 {
		// "$$x$$ and more" is left to the inline parser.
		if end == 0 || !util.IsBlank(rest[end+len(mathFence):]) {
			return nil, parser.NoChildren
		}
		node.Lines().Append(text.NewSegment(segment.Start+start, segment.Start+start+end))
		state.closed = true
	} else {
		if !bytes.Contains(reader.Source()[segment.Stop:], mathFence) {
			return nil, parser.NoChildren
		}
		if !util.IsBlank(rest) {
			node.Lines().Append(text.NewSegment(segment.Start+start, segment.Stop))
		}
	}
	pc.Set(mathBlockStateKey, state)
	reader.Advance(segment.Len() - 1)
	return node, parser.NoChildren
}

func (b *mathBlockParser) Continue(node ast.Node, reader text.Reader, pc parser.Context) parser.State {
	state := pc.Get(mathBlockStateKey).(*mathBlockState)
	if state.closed {
		return parser.Close
	}

	line, segment := reader.PeekLine()
	if end := bytes.Index(line, mathFence); end >= 0 {
		if !util.IsBlank(line[:end]) {
			node.Lines().Append(text.NewSegment(segment.Start, segment.Start+end))
		}
		state.closed = true
		newline := 0
		if len(line) > 0 && line[len(line)-1] == '\n' {
			newline = 1
		}
		reader.Advance(segment.Len() - newline)
		return parser.Close
	}

	node.Lines().Append(segment)
	reader.Advance(segment.Len() - 1)
	return parser.Continue | parser.NoChildren
}

func (b *mathBlockParser) Close(node ast.Node, reader text.Reader, pc parser.Context) {
	pc.Set(mathBlockStateKey, nil)
}

func (b *mathBlockParser) CanInterruptParagraph() bool { return true }

func (b *mathBlockParser) CanAcceptIndentedLine() bool { return false }

// mathInlineParser parses $...$ and $$...$$ within a single line.
//
// A single-dollar span must open on a non-space character and close
// on a non-space character that is not followed by a digit, so
// "$5 and $10" stays plain text.
type mathInlineParser struct{}

func (p *mathInlineParser) Trigger() []byte { return []byte{'$'} }

func (p *mathInlineParser) Parse(parent ast.Node, block text.Reader, pc parser.Context) ast.Node {
	line, segment := block.PeekLine()
	if len(line) < 2 {
		return nil
	}

	if line[1] == '$' {
		rest := line[len(mathFence):]
		end := bytes.Index(rest, mathFence)
		if end <= 0 || util.IsBlank(rest[:end]) {
			return nil
		}
		node := inlineMath(segment.Start+len(mathFence), end)
		node.SetAttributeString(displayAttr, true)
		block.Advance(len(mathFence) + end + len(mathFence))
		return node
	}

	rest := line[1:]
	if isSpace(rest[0]) {
		return nil
	}
	end := inlineCloser(rest)
	if end < 0 {
		return nil
	}
	block.Advance(1 + end + 1)
	return inlineMath(segment.Start+1, end)
}

// inlineMath returns a span holding the n source bytes at start.
func inlineMath(start, n int) *mathjax.InlineMath {
	node := mathjax.NewInlineMath()
	node.AppendChild(node, ast.NewRawTextSegment(text.NewSegment(start, start+n)))
	return node
}

func inlineCloser(rest []byte) int {
	for j := 1; j < len(rest); j++ {
		switch rest[j] {
		case '\n':
			return -1
		case '$':
			if isSpace(rest[j-1]) || rest[j-1] == '\\' {
				continue
			}
			if j+1 < len(rest) && rest[j+1] >= '0' && rest[j+1] <= '9' {
				continue
			}
			return j
		}
	}
	return -1
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// mathRenderer writes math nodes through a Typesetter. A formula the
// typesetter rejects is written as its escaped source so one bad
// expression never breaks the page.
type mathRenderer struct {
	typesetter Typesetter
}

func (r *mathRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(mathjax.KindMathBlock, r.renderBlock)
	reg.Register(mathjax.KindInlineMath, r.renderInline)
}

func (r *mathRenderer) renderBlock(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	var b strings.Builder
	lines := node.Lines()
	for i := range lines.Len() {
		seg := lines.At(i)
		b.Write(seg.Value(source))
	}
	formula := strings.TrimSpace(b.String())

	out, err := r.typeset(formula, true)
	if err != nil {
		_, _ = w.WriteString(`<div class="math-error">`)
		_, _ = w.Write(util.EscapeHTML([]byte("$$" + formula + "$$")))
		_, _ = w.WriteString("</div>\n")
		return ast.WalkSkipChildren, nil
	}
	_, _ = w.WriteString(`<div class="math display">`)
	_, _ = w.WriteString(out)
	_, _ = w.WriteString("</div>\n")
	return ast.WalkSkipChildren, nil
}

func (r *mathRenderer) renderInline(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	var b strings.Builder
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			b.Write(t.Segment.Value(source))
		}
	}
	formula := strings.TrimSpace(b.String())
	_, display := node.AttributeString(displayAttr)
	delim, class := "$", "math inline"
	if display {
		delim, class = "$$", "math display"
	}

	out, err := r.typeset(formula, display)
	if err != nil {
		_, _ = w.WriteString(`<span class="math-error">`)
		_, _ = w.Write(util.EscapeHTML([]byte(delim + formula + delim)))
		_, _ = w.WriteString("</span>")
		return ast.WalkSkipChildren, nil
	}
	_, _ = w.WriteString(`<span class="` + class + `">`)
	_, _ = w.WriteString(out)
	_, _ = w.WriteString("</span>")
	return ast.WalkSkipChildren, nil
}

func (r *mathRenderer) typeset(formula string, display bool) (out string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: typesetter panicked: %v", ErrInvalidFormula, p)
		}
	}()
	return r.typesetter.Typeset(formula, display)
}
