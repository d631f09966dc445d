package md

import (
	"errors"
	"slices"
	"strings"
	"testing"

	mathjax "github.com/litao91/goldmark-mathjax"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

func TestRender(t *testing.T) {
	t.Parallel()
	r := New(Options{HardWraps: true})

	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "paragraph",
			src:  "Hello world",
			want: "<p>Hello world</p>\n",
		},
		{
			name: "newline is a hard break",
			src:  "a\nb",
			want: "<p>a<br>\nb</p>\n",
		},
		{
			name: "inline math",
			src:  "Energy $E=mc^2$ here",
			want: `<p>Energy <span class="math inline">\(E=mc^2\)</span> here</p>` + "\n",
		},
		{
			name: "inline math keeps underscores",
			src:  "$a_1 + b_2$",
			want: `<p><span class="math inline">\(a_1 + b_2\)</span></p>` + "\n",
		},
		{
			name: "inline math is escaped",
			src:  "$a<b$",
			want: `<p><span class="math inline">\(a&lt;b\)</span></p>` + "\n",
		},
		{
			name: "currency is not math",
			src:  "costs $5 and $10",
			want: "<p>costs $5 and $10</p>\n",
		},
		{
			name: "display math inside a line",
			src:  "Inline $$x$$ display",
			want: `<p>Inline <span class="math display">\[x\]</span> display</p>` + "\n",
		},
		{
			name: "fenced display block",
			src:  "$$\nx^2\n$$\n",
			want: `<div class="math display">\[x^2\]</div>` + "\n",
		},
		{
			name: "single line display block",
			src:  "$$E=mc^2$$",
			want: `<div class="math display">\[E=mc^2\]</div>` + "\n",
		},
		{
			name: "display block keeps blank lines",
			src:  "$$\na\n\nb\n$$",
			want: `<div class="math display">\[a` + "\n\n" + `b\]</div>` + "\n",
		},
		{
			name: "display block interrupts paragraph",
			src:  "Intro\n$$\nx\n$$",
			want: "<p>Intro</p>\n" + `<div class="math display">\[x\]</div>` + "\n",
		},
		{
			name: "unclosed display fence stays text",
			src:  "$$\nx\n\n## Section\n\nMore *text*",
			want: "<p>$$<br>\nx</p>\n" + `<h2 id="section">Section</h2>` + "\n<p>More <em>text</em></p>\n",
		},
		{
			name: "prose starting with $$",
			src:  "$$ is what it costs\n\n## Section\n\nMore text",
			want: "<p>$$ is what it costs</p>\n" + `<h2 id="section">Section</h2>` + "\n<p>More text</p>\n",
		},
		{
			name: "display block closes on a later line",
			src:  "$$\na\n\nb\n$$\n\n## After",
			want: `<div class="math display">\[a` + "\n\n" + `b\]</div>` + "\n" + `<h2 id="after">After</h2>` + "\n",
		},
		{
			name: "malformed formula degrades to source",
			src:  `$\frac{a$`,
			want: `<p><span class="math-error">$\frac{a$</span></p>` + "\n",
		},
		{
			name: "raw html is omitted",
			src:  "<b>x</b>",
			want: "<p><!-- raw HTML omitted -->x<!-- raw HTML omitted --></p>\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := r.Render([]byte(tt.src))
			if err != nil {
				t.Fatalf("Render() error: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Render(%q)\ngot:  %q\nwant: %q", tt.src, got, tt.want)
			}
		})
	}
}

func TestMathNodes(t *testing.T) {
	t.Parallel()
	gm := goldmark.New(goldmark.WithExtensions(Math(MathJax{})))

	src := []byte("$$\nx^2\n$$\n\nsee $y$ and $$z$$")
	doc := gm.Parser().Parse(text.NewReader(src))

	block := doc.FirstChild()
	if block.Kind() != mathjax.KindMathBlock {
		t.Fatalf("first node kind = %v, want %v", block.Kind(), mathjax.KindMathBlock)
	}

	var spans []string
	var display []bool
	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering && n.Kind() == mathjax.KindInlineMath {
			spans = append(spans, string(n.FirstChild().(*ast.Text).Segment.Value(src)))
			_, ok := n.AttributeString(displayAttr)
			display = append(display, ok)
		}
		return ast.WalkContinue, nil
	})
	if !slices.Equal(spans, []string{"y", "z"}) {
		t.Errorf("inline spans = %q, want [y z]", spans)
	}
	if !slices.Equal(display, []bool{false, true}) {
		t.Errorf("display flags = %v, want [false true]", display)
	}
}

func TestRenderUnsafe(t *testing.T) {
	t.Parallel()
	r := New(Options{Unsafe: true})

	got, err := r.Render([]byte("<b>x</b>"))
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if want := "<p><b>x</b></p>\n"; string(got) != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}
}

func TestRenderHighlighting(t *testing.T) {
	t.Parallel()
	r := New(Options{HighlightStyle: "github"})

	got, err := r.Render([]byte("```go\npackage main\n```\n"))
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if !strings.Contains(string(got), "<pre") || !strings.Contains(string(got), "style=") {
		t.Errorf("expected highlighted code block, got %q", got)
	}
}

type failingTypesetter struct{}

func (failingTypesetter) Typeset(string, bool) (string, error) {
	return "", errors.New("boom")
}

type panickingTypesetter struct{}

func (panickingTypesetter) Typeset(string, bool) (string, error) {
	panic("typesetter bug")
}

func TestRenderTypesetterFailure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ts   Typesetter
	}{
		{name: "error", ts: failingTypesetter{}},
		{name: "panic", ts: panickingTypesetter{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := New(Options{Typesetter: tt.ts})
			got, err := r.Render([]byte("before $x$ after\n\n$$\ny\n$$\n\ntail"))
			if err != nil {
				t.Fatalf("Render() error: %v", err)
			}
			want := `<p>before <span class="math-error">$x$</span> after</p>` + "\n" +
				`<div class="math-error">$$y$$</div>` + "\n" +
				"<p>tail</p>\n"
			if string(got) != want {
				t.Errorf("Render()\ngot:  %q\nwant: %q", got, want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		formula string
		wantErr bool
	}{
		{name: "plain", formula: "E=mc^2"},
		{name: "braces", formula: `\frac{a}{b}`},
		{name: "escaped braces", formula: `\{x\}`},
		{name: "environment", formula: `\begin{pmatrix} a & b \end{pmatrix}`},
		{name: "nested environments", formula: `\begin{a}\begin{b}x\end{b}\end{a}`},
		{name: "empty", formula: ""},
		{name: "open brace", formula: `\frac{a`, wantErr: true},
		{name: "close brace", formula: "a}", wantErr: true},
		{name: "trailing backslash", formula: `a\`, wantErr: true},
		{name: "unclosed environment", formula: `\begin{align} x`, wantErr: true},
		{name: "mismatched environment", formula: `\begin{a} x \end{b}`, wantErr: true},
		{name: "unterminated begin", formula: `\begin{a`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := Validate(tt.formula)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidFormula) {
					t.Errorf("Validate(%q) = %v, want ErrInvalidFormula", tt.formula, err)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate(%q) = %v, want nil", tt.formula, err)
			}
		})
	}
}

func TestMathJaxTypeset(t *testing.T) {
	t.Parallel()

	got, err := MathJax{}.Typeset("a<b", false)
	if err != nil {
		t.Fatalf("Typeset() error: %v", err)
	}
	if want := `\(a&lt;b\)`; got != want {
		t.Errorf("Typeset() = %q, want %q", got, want)
	}

	got, err = MathJax{}.Typeset("x", true)
	if err != nil {
		t.Fatalf("Typeset() error: %v", err)
	}
	if want := `\[x\]`; got != want {
		t.Errorf("Typeset() = %q, want %q", got, want)
	}
}

func TestMetadata(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		data     string
		key      string
		want     string
		wantNone bool
	}{
		{
			name: "toml title",
			data: "+++\ntitle = \"Hello\"\n+++\nbody\n",
			key:  "title",
			want: "Hello",
		},
		{
			name: "yaml title",
			data: "---\ntitle: Hello\n---\nbody\n",
			key:  "title",
			want: "Hello",
		},
		{
			name:     "no front matter",
			data:     "# Heading\n",
			wantNone: true,
		},
		{
			name:     "empty input",
			data:     "",
			wantNone: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := Metadata([]byte(tt.data))
			if tt.wantNone {
				if len(m) != 0 {
					t.Errorf("Metadata() = %v, want empty", m)
				}
				return
			}
			if got, _ := m[tt.key].(string); got != tt.want {
				t.Errorf("Metadata()[%q] = %v, want %q", tt.key, m[tt.key], tt.want)
			}
		})
	}
}
