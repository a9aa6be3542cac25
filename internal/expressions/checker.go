// Package expressions checks the conditions and template expressions found
// in dialog actions. Checks compile only; nothing is ever evaluated.
package expressions

import (
	"fmt"

	"github.com/rendis/flowlayout/pkg/schema"
)

// Dialect names an expression language a Checker understands.
type Dialect string

const (
	DialectCEL  Dialect = "cel"
	DialectExpr Dialect = "expr"
)

// Checker reports whether an expression compiles in its dialect.
// Implementations are safe for concurrent use.
type Checker interface {
	Name() string
	Check(expression string) error
}

// New returns the checker for dialect. Strict checkers additionally reject
// references outside the bot memory scopes.
func New(dialect Dialect, strict bool) (Checker, error) {
	switch dialect {
	case DialectCEL, "":
		return NewCELChecker(strict)
	case DialectExpr:
		return NewExprChecker(strict), nil
	default:
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "unknown expression dialect %q", dialect).
			WithDetails(map[string]any{"available": []Dialect{DialectCEL, DialectExpr}})
	}
}

func compileError(dialect Dialect, expression string, err error) error {
	return schema.NewErrorf(schema.ErrCodeExpression, "%s: %s", dialect, err.Error()).
		WithCause(err).
		WithDetails(map[string]any{"expression": expression})
}

func emptyError(dialect Dialect) error {
	return schema.NewError(schema.ErrCodeExpression, fmt.Sprintf("%s: empty expression", dialect))
}
