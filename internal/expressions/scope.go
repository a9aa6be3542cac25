package expressions

import "strings"

// Scopes are the bot memory roots a dialog expression can read from.
var Scopes = []string{"user", "turn", "dialog", "conversation", "this", "settings"}

// Normalize strips the leading "=" Composer writes in front of expression
// properties, and the surrounding whitespace.
func Normalize(expression string) string {
	s := strings.TrimSpace(expression)
	if strings.HasPrefix(s, "=") {
		s = strings.TrimSpace(s[1:])
	}
	return s
}

// ScopeOf returns the memory root of a dotted reference such as
// "dialog.items[0]", or "" when ref does not start with a known scope.
func ScopeOf(ref string) string {
	root := ref
	if i := strings.IndexAny(ref, ".["); i >= 0 {
		root = ref[:i]
	}
	for _, s := range Scopes {
		if s == root {
			return s
		}
	}
	return ""
}
