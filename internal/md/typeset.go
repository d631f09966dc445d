package md

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yuin/goldmark/util"
)

// ErrInvalidFormula is returned by a Typesetter for a formula it
// cannot typeset.
var ErrInvalidFormula = errors.New("invalid formula")

// Typesetter turns a TeX formula into HTML. display is true for
// display math. Implementations return an error rather than partial
// output for malformed input.
type Typesetter interface {
	Typeset(formula string, display bool) (string, error)
}

// MathJax checks that a formula is well formed and emits it between
// MathJax delimiters, \( \) or \[ \], for typesetting in the browser.
type MathJax struct{}

func (MathJax) Typeset(formula string, display bool) (string, error) {
	if err := Validate(formula); err != nil {
		return "", err
	}
	escaped := string(util.EscapeHTML([]byte(formula)))
	if display {
		return `\[` + escaped + `\]`, nil
	}
	return `\(` + escaped + `\)`, nil
}

// Validate reports structural errors in a TeX formula: unbalanced
// braces, a dangling backslash, or mismatched \begin/\end pairs.
func Validate(formula string) error {
	depth := 0
	var envs []string
	for i := 0; i < len(formula); i++ {
		switch formula[i] {
		case '\\':
			if i+1 >= len(formula) {
				return fmt.Errorf("%w: trailing backslash", ErrInvalidFormula)
			}
			rest := formula[i+1:]
			switch {
			case strings.HasPrefix(rest, "begin{"):
				name, end, ok := envName(rest[len("begin{"):])
				if !ok {
					return fmt.Errorf("%w: unterminated \\begin", ErrInvalidFormula)
				}
				envs = append(envs, name)
				i += len(`\begin{`) + end
			case strings.HasPrefix(rest, "end{"):
				name, end, ok := envName(rest[len("end{"):])
				if !ok {
					return fmt.Errorf("%w: unterminated \\end", ErrInvalidFormula)
				}
				if len(envs) == 0 || envs[len(envs)-1] != name {
					return fmt.Errorf("%w: unexpected \\end{%s}", ErrInvalidFormula, name)
				}
				envs = envs[:len(envs)-1]
				i += len(`\end{`) + end
			default:
				i++
			}
		case '{':
			depth++
		case '}':
			depth--
			if depth < 0 {
				return fmt.Errorf("%w: unbalanced '}'", ErrInvalidFormula)
			}
		}
	}
	if depth != 0 {
		return fmt.Errorf("%w: unbalanced '{'", ErrInvalidFormula)
	}
	if len(envs) > 0 {
		return fmt.Errorf("%w: \\begin{%s} is not closed", ErrInvalidFormula, envs[len(envs)-1])
	}
	return nil
}

// envName reads an environment name up to the closing brace and
// returns it with the brace's index in s.
func envName(s string) (string, int, bool) {
	end := strings.IndexByte(s, '}')
	if end <= 0 {
		return "", 0, false
	}
	return s[:end], end, true
}
