package expressions

import (
	"strings"

	"github.com/rendis/flowlayout/pkg/schema"
)

// Templates returns the expressions embedded as ${...} in activity text, in
// order of appearance. Braces inside quoted strings do not count towards
// nesting. An unclosed ${ is an error.
func Templates(text string) ([]string, error) {
	var out []string
	i := 0
	for i < len(text) {
		idx := strings.Index(text[i:], "${")
		if idx == -1 {
			break
		}
		start := i + idx + 2
		end := closingBrace(text, start)
		if end == -1 {
			return out, schema.NewError(schema.ErrCodeExpression, "unclosed ${ expression").
				WithDetails(map[string]any{"offset": i + idx})
		}
		if e := strings.TrimSpace(text[start:end]); e != "" {
			out = append(out, e)
		}
		i = end + 1
	}
	return out, nil
}

// closingBrace finds the } matching an opening brace just before start.
func closingBrace(s string, start int) int {
	depth := 1
	var quote byte
	for i := start; i < len(s); i++ {
		ch := s[i]
		switch {
		case quote != 0:
			if ch == '\\' {
				i++
			} else if ch == quote {
				quote = 0
			}
		case ch == '\'' || ch == '"':
			quote = ch
		case ch == '{':
			depth++
		case ch == '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// CheckTemplates checks every embedded expression of text with c and
// returns the failures keyed by expression.
func CheckTemplates(c Checker, text string) (map[string]error, error) {
	exprs, err := Templates(text)
	if err != nil {
		return nil, err
	}
	var failed map[string]error
	for _, e := range exprs {
		if cErr := c.Check(e); cErr != nil {
			if failed == nil {
				failed = make(map[string]error)
			}
			failed[e] = cErr
		}
	}
	return failed, nil
}
