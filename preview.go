package mdblog

import (
	"html/template"
	"slices"
	"strings"
	"unicode/utf8"
)

// DefaultPreviewLength is the preview length target in characters.
const DefaultPreviewLength = 150

const ellipsis = "..."

// Renderer converts markdown, math included, to trusted HTML.
type Renderer interface {
	Render(src []byte) (template.HTML, error)
}

// SplitBlocks splits body into blocks separated by blank lines.
// Blank lines inside a fenced code block or a $$ display block do
// not end the block. A display block opens on a line starting with
// $$ only when a closing $$ follows, so a stray $$ in prose cannot
// swallow the rest of the body.
func SplitBlocks(body string) []string {
	var (
		blocks []string
		cur    []string
		fence  string
		inMath bool
	)
	flush := func() {
		for len(cur) > 0 && strings.TrimSpace(cur[len(cur)-1]) == "" {
			cur = cur[:len(cur)-1]
		}
		if len(cur) > 0 {
			blocks = append(blocks, strings.Join(cur, "\n"))
		}
		cur = nil
	}

	lines := slices.Collect(strings.Lines(body))
	for i, line := range lines {
		line = strings.TrimRight(line, "\r\n")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" && fence == "" && !inMath {
			flush()
			continue
		}
		cur = append(cur, line)

		switch {
		case fence != "":
			if strings.HasPrefix(trimmed, fence) && strings.Trim(trimmed, fence[:1]) == "" {
				fence = ""
			}
		case inMath:
			if strings.Contains(trimmed, mathFence) {
				inMath = false
			}
		case strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~"):
			fence = trimmed[:len(trimmed)-len(strings.TrimLeft(trimmed, trimmed[:1]))]
		case strings.HasPrefix(trimmed, mathFence):
			rest := trimmed[len(mathFence):]
			inMath = !strings.Contains(rest, mathFence) && closedLater(lines[i+1:])
		}
	}
	flush()
	return blocks
}

const mathFence = "$$"

// closedLater reports whether any of lines holds a closing $$.
func closedLater(lines []string) bool {
	for _, l := range lines {
		if strings.Contains(l, mathFence) {
			return true
		}
	}
	return false
}

// hasAtomicMarker reports whether a block holds display math or a
// TeX environment, which must never be cut.
func hasAtomicMarker(block string) bool {
	return strings.Contains(block, mathFence) || strings.Contains(block, `\begin{`)
}

// Excerpt picks the leading blocks of body that make up its preview.
//
// A first block with display math or an environment is returned
// alone. Otherwise blocks are taken while the running length stays
// within target, always keeping the first one, and stopping before
// any math block. "..." is appended when blocks were left out.
func Excerpt(body string, target int) string {
	blocks := SplitBlocks(body)
	if len(blocks) == 0 {
		return ""
	}
	if hasAtomicMarker(blocks[0]) {
		return blocks[0]
	}

	var kept []string
	length := 0
	for _, block := range blocks {
		if hasAtomicMarker(block) {
			break
		}
		n := utf8.RuneCountInString(block)
		if length+n > target && len(kept) > 0 {
			break
		}
		kept = append(kept, block)
		length += n
	}
	if len(kept) == 0 {
		kept = blocks[:1]
	}

	excerpt := strings.Join(kept, "\n\n")
	if len(kept) < len(blocks) {
		excerpt += ellipsis
	}
	return excerpt
}

// Preview renders the excerpt of body. An empty body gives an empty
// preview.
func Preview(r Renderer, body string, target int) (template.HTML, error) {
	excerpt := Excerpt(body, target)
	if excerpt == "" {
		return "", nil
	}
	return r.Render([]byte(excerpt))
}
