package expressions

import (
	"github.com/google/cel-go/cel"
)

// CELChecker checks conditions as Common Expression Language.
// Thread-safe: outcomes are kept in a bounded LRU per checker.
type CELChecker struct {
	env    *cel.Env
	strict bool
	cache  *outcomeCache
}

// NewCELChecker creates a checker whose environment declares every memory
// scope as dyn. A lenient checker only parses, so functions the dialog
// runtime provides (length, exists, ...) do not show up as errors; a strict
// one type-checks against the declared scopes.
func NewCELChecker(strict bool) (*CELChecker, error) {
	opts := make([]cel.EnvOption, 0, len(Scopes))
	for _, s := range Scopes {
		opts = append(opts, cel.Variable(s, cel.DynType))
	}
	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, compileError(DialectCEL, "", err)
	}

	return &CELChecker{
		env:    env,
		strict: strict,
		cache:  newOutcomeCache(DefaultCacheSize),
	}, nil
}

// Name returns the dialect identifier.
func (c *CELChecker) Name() string {
	return string(DialectCEL)
}

// Check compiles expression (or retrieves the cached outcome).
func (c *CELChecker) Check(expression string) error {
	expression = Normalize(expression)
	if expression == "" {
		return emptyError(DialectCEL)
	}
	return c.cache.check(expression, c.compile)
}

func (c *CELChecker) compile(expression string) error {
	var issues *cel.Issues
	if c.strict {
		_, issues = c.env.Compile(expression)
	} else {
		_, issues = c.env.Parse(expression)
	}
	if issues != nil && issues.Err() != nil {
		return compileError(DialectCEL, expression, issues.Err())
	}
	return nil
}

var _ Checker = (*CELChecker)(nil)
