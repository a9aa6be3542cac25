package expressions

import (
	"github.com/expr-lang/expr"
)

// ExprChecker checks conditions as expr-lang expressions, whose syntax is
// close to the adaptive expression language (single-quoted strings, ?? and
// ?. operators, builtins like len and filter).
// Thread-safe: outcomes are kept in a bounded LRU per checker.
type ExprChecker struct {
	strict bool
	cache  *outcomeCache
}

// NewExprChecker creates an expr checker. A strict checker rejects
// identifiers outside the memory scopes.
func NewExprChecker(strict bool) *ExprChecker {
	return &ExprChecker{
		strict: strict,
		cache:  newOutcomeCache(DefaultCacheSize),
	}
}

// Name returns the dialect identifier.
func (c *ExprChecker) Name() string {
	return string(DialectExpr)
}

// Check compiles expression (or retrieves the cached outcome).
func (c *ExprChecker) Check(expression string) error {
	expression = Normalize(expression)
	if expression == "" {
		return emptyError(DialectExpr)
	}
	return c.cache.check(expression, c.compile)
}

func (c *ExprChecker) compile(expression string) error {
	opts := []expr.Option{expr.Env(scopeEnv())}
	if !c.strict {
		opts = append(opts, expr.AllowUndefinedVariables())
	}
	if _, err := expr.Compile(expression, opts...); err != nil {
		return compileError(DialectExpr, expression, err)
	}
	return nil
}

// scopeEnv declares every memory scope as an untyped map.
func scopeEnv() map[string]any {
	env := make(map[string]any, len(Scopes))
	for _, s := range Scopes {
		env[s] = map[string]any{}
	}
	return env
}

var _ Checker = (*ExprChecker)(nil)
