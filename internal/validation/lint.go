package validation

import (
	"fmt"
	"maps"
	"slices"

	"github.com/rendis/flowlayout/internal/dialog"
	"github.com/rendis/flowlayout/internal/expressions"
	"github.com/rendis/flowlayout/internal/transform"
	"github.com/rendis/flowlayout/pkg/schema"
)

// Linter orchestrates the two-stage lint:
// 1. Structural (JSON Schema, plus registered component schemas)
// 2. Semantic (kinds, conditions, templates, switch cases)
type Linter struct {
	jsonSchema *JSONSchemaValidator
	registry   *dialog.Registry
	checker    expressions.Checker
}

// NewLinter creates a Linter. registry defaults to the stock kinds; checker
// may be nil to skip expression checks.
func NewLinter(registry *dialog.Registry, checker expressions.Checker) (*Linter, error) {
	jsv, err := NewJSONSchemaValidator()
	if err != nil {
		return nil, err
	}
	if registry == nil {
		registry = dialog.DefaultRegistry()
	}
	return &Linter{
		jsonSchema: jsv,
		registry:   registry,
		checker:    checker,
	}, nil
}

// RegisterKind attaches a component schema to kind.
func (l *Linter) RegisterKind(kind string, componentSchema []byte) error {
	return l.jsonSchema.RegisterKind(kind, componentSchema)
}

// Validate runs both stages and returns an aggregated result. Structural
// errors short-circuit: the semantic stage would only repeat them.
func (l *Linter) Validate(root any) *schema.ValidationResult {
	result := l.jsonSchema.Validate(root)
	if !result.Valid() {
		return result
	}

	switch t := root.(type) {
	case []any:
		l.steps(t, dialog.FieldActions, result)
	default:
		l.step(t, "", result)
	}
	return result
}

func (l *Linter) steps(items []any, listPath string, result *schema.ValidationResult) {
	for i, item := range items {
		l.step(item, transform.Index(listPath, i), result)
	}
}

func (l *Linter) list(action map[string]any, path, field string, result *schema.ValidationResult) {
	items, malformed := dialog.List(action, field)
	if malformed {
		result.AddWarning(transform.Join(path, field), CodeMalformedField,
			fmt.Sprintf("%s is not a list; drawn as empty", field))
		return
	}
	l.steps(items, transform.Join(path, field), result)
}

func (l *Linter) step(v any, path string, result *schema.ValidationResult) {
	action, ok := v.(map[string]any)
	if !ok {
		return
	}

	kind := dialog.Kind(action)
	if !l.registry.Known(kind) {
		result.AddWarning(path, CodeUnknownKind,
			fmt.Sprintf("kind %q is not registered; drawn as a plain card", kind))
	}
	l.jsonSchema.validateKind(kind, path, action, result)

	switch l.registry.Construct(kind) {
	case dialog.ConstructStepGroup:
		l.list(action, path, dialog.FieldActions, result)
	case dialog.ConstructIfElse:
		l.condition(action, path, result)
		l.list(action, path, dialog.FieldActions, result)
		l.list(action, path, dialog.FieldElseActions, result)
	case dialog.ConstructSwitch:
		l.condition(action, path, result)
		l.cases(action, path, result)
		l.list(action, path, dialog.FieldDefault, result)
	case dialog.ConstructForeach, dialog.ConstructForeachPage:
		if dialog.String(action, dialog.FieldItems) == "" {
			result.AddWarning(transform.Join(path, dialog.FieldItems), CodeMissingItems,
				"loop has no itemsProperty")
		}
		l.list(action, path, dialog.FieldActions, result)
	case dialog.ConstructLeaf:
		l.leaf(kind, action, path, result)
	}
}

func (l *Linter) condition(action map[string]any, path string, result *schema.ValidationResult) {
	p := transform.Join(path, dialog.FieldCondition)
	if _, literal := action[dialog.FieldCondition].(bool); literal {
		return
	}
	expr := expressions.Normalize(dialog.String(action, dialog.FieldCondition))
	if expr == "" {
		result.AddWarning(p, CodeEmptyCondition, "condition is empty")
		return
	}
	if l.checker == nil {
		return
	}
	if err := l.checker.Check(expr); err != nil {
		result.AddError(p, schema.ErrCodeExpression, err.Error())
	}
}

func (l *Linter) cases(action map[string]any, path string, result *schema.ValidationResult) {
	casesPath := transform.Join(path, dialog.FieldCases)
	items, malformed := dialog.List(action, dialog.FieldCases)
	if malformed {
		result.AddWarning(casesPath, CodeMalformedField, "cases is not a list; drawn as empty")
		return
	}

	seen := make(map[string]int, len(items))
	for i, item := range items {
		casePath := transform.Index(casesPath, i)
		c, ok := item.(map[string]any)
		if !ok {
			continue
		}
		label := dialog.CaseLabel(c[dialog.FieldValue])
		if first, dup := seen[label]; dup {
			result.AddWarning(casePath, CodeDuplicateCase,
				fmt.Sprintf("case %q repeats cases[%d]; only the first can match", label, first))
		} else {
			seen[label] = i
		}
		l.list(c, casePath, dialog.FieldActions, result)
	}
}

func (l *Linter) leaf(kind string, action map[string]any, path string, result *schema.ValidationResult) {
	switch kind {
	case dialog.KindBeginDialog, dialog.KindReplaceDialog:
		if _, ok := action[dialog.FieldDialog]; !ok {
			result.AddWarning(transform.Join(path, dialog.FieldDialog), CodeMissingDialog,
				"no target dialog")
		}
	}

	if l.checker == nil {
		return
	}
	text := dialog.Text(action)
	failed, err := expressions.CheckTemplates(l.checker, text)
	if err != nil {
		result.AddWarning(path, CodeTemplate, err.Error())
		return
	}
	for _, expr := range slices.Sorted(maps.Keys(failed)) {
		result.AddWarning(path, CodeTemplate, fmt.Sprintf("${%s}: %s", expr, failed[expr].Error()))
	}
}

var _ Validator = (*Linter)(nil)
