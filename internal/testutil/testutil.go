package testutil

import (
	"errors"
	"html"
	"html/template"
	"path"
	"strings"
	"sync"
	"testing/fstest"
)

// Doc builds a post document with a "---" front matter block.
// Empty fields are left out.
func Doc(title, date, tags, body string) string {
	var b strings.Builder
	b.WriteString("---\n")
	if title != "" {
		b.WriteString("title: " + title + "\n")
	}
	if date != "" {
		b.WriteString("date: " + date + "\n")
	}
	if tags != "" {
		b.WriteString("tags: " + tags + "\n")
	}
	b.WriteString("---\n")
	b.WriteString(body)
	return b.String()
}

// PostsFS returns an in-memory file system holding files under dir.
func PostsFS(dir string, files map[string]string) fstest.MapFS {
	fsys := make(fstest.MapFS, len(files))
	for name, content := range files {
		fsys[path.Join(dir, name)] = &fstest.MapFile{Data: []byte(content)}
	}
	return fsys
}

// EchoRenderer is a Renderer stub that wraps the escaped source in
// a <p> element.
type EchoRenderer struct{}

func (EchoRenderer) Render(src []byte) (template.HTML, error) {
	return template.HTML("<p>" + html.EscapeString(string(src)) + "</p>"), nil
}

// ErrRender is returned by FailingRenderer.
var ErrRender = errors.New("render failed")

// FailingRenderer is a Renderer stub that always fails.
type FailingRenderer struct{}

func (FailingRenderer) Render([]byte) (template.HTML, error) {
	return "", ErrRender
}

// Entry is one recorded log call.
type Entry struct {
	Level string
	Msg   string
	Args  []any
}

// Logger records every log call. It is safe for concurrent use.
type Logger struct {
	mu      sync.Mutex
	entries []Entry
}

func (l *Logger) Debug(msg string, args ...any) { l.add("debug", msg, args) }
func (l *Logger) Info(msg string, args ...any)  { l.add("info", msg, args) }
func (l *Logger) Warn(msg string, args ...any)  { l.add("warn", msg, args) }
func (l *Logger) Error(msg string, args ...any) { l.add("error", msg, args) }

func (l *Logger) add(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, Entry{Level: level, Msg: msg, Args: args})
}

// Entries returns a copy of the recorded entries.
func (l *Logger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Entry(nil), l.entries...)
}

// Has reports whether a call with level and msg was recorded.
func (l *Logger) Has(level, msg string) bool {
	for _, e := range l.Entries() {
		if e.Level == level && e.Msg == msg {
			return true
		}
	}
	return false
}
