package validation

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/rendis/flowlayout/internal/dialog"
	"github.com/rendis/flowlayout/internal/transform"
	"github.com/rendis/flowlayout/pkg/schema"
)

const dialogSchemaURL = "https://flowlayout.dev/schemas/dialog.json"

// dialogSchemaJSON describes the structural fields the layout engine reads.
// Everything else on an action is the runtime's business and passes
// through. Alternatives branch on type with if/then/else so only the
// applicable shape reports errors.
const dialogSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://flowlayout.dev/schemas/dialog.json",
  "if": { "type": "array" },
  "then": { "$ref": "#/$defs/steps" },
  "else": { "$ref": "#/$defs/step" },
  "$defs": {
    "steps": {
      "type": "array",
      "items": { "$ref": "#/$defs/step" }
    },
    "step": {
      "if": { "type": "string" },
      "then": { "minLength": 1 },
      "else": { "$ref": "#/$defs/action" }
    },
    "action": {
      "type": "object",
      "required": ["$kind"],
      "properties": {
        "$kind": { "type": "string", "minLength": 1 },
        "$designer": {
          "type": "object",
          "properties": {
            "id": { "type": "string" },
            "name": { "type": "string" },
            "comment": { "type": "string" }
          }
        },
        "disabled": { "type": ["boolean", "string"] },
        "condition": { "type": ["string", "boolean"] },
        "actions": { "$ref": "#/$defs/steps" },
        "elseActions": { "$ref": "#/$defs/steps" },
        "default": { "$ref": "#/$defs/steps" },
        "cases": {
          "type": "array",
          "items": { "$ref": "#/$defs/case" }
        },
        "itemsProperty": { "type": "string" },
        "pageSize": { "type": ["integer", "string"] }
      }
    },
    "case": {
      "type": "object",
      "properties": {
        "value": { "type": ["string", "number", "boolean"] },
        "actions": { "$ref": "#/$defs/steps" }
      }
    }
  }
}`

// JSONSchemaValidator checks dialog trees against the structural dialog
// schema and, per $kind, against component schemas registered at runtime.
// It is safe for concurrent use.
type JSONSchemaValidator struct {
	dialogSchema *jsonschema.Schema

	// mu guards the per-kind component schemas.
	mu    sync.RWMutex
	kinds map[string]*jsonschema.Schema
	cache map[string]*jsonschema.Schema
}

// NewJSONSchemaValidator creates a validator with the dialog schema
// pre-compiled.
func NewJSONSchemaValidator() (*JSONSchemaValidator, error) {
	c := newCompiler()

	schemaDoc, err := jsonschema.UnmarshalJSON(strings.NewReader(dialogSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("unmarshal dialog schema: %w", err)
	}
	if err := c.AddResource(dialogSchemaURL, schemaDoc); err != nil {
		return nil, fmt.Errorf("add dialog schema resource: %w", err)
	}

	dialogSchema, err := c.Compile(dialogSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile dialog schema: %w", err)
	}

	return &JSONSchemaValidator{
		dialogSchema: dialogSchema,
		kinds:        make(map[string]*jsonschema.Schema),
		cache:        make(map[string]*jsonschema.Schema),
	}, nil
}

// RegisterKind attaches a component schema to kind. Actions of that kind
// are checked against it on top of the structural schema. Identical
// schema documents are compiled once.
func (v *JSONSchemaValidator) RegisterKind(kind string, componentSchema []byte) error {
	if len(componentSchema) == 0 {
		return schema.NewErrorf(schema.ErrCodeValidation, "empty schema for kind %q", kind)
	}
	compiled, err := v.getOrCompile(componentSchema)
	if err != nil {
		return schema.NewErrorf(schema.ErrCodeValidation, "invalid schema for kind %q", kind).WithCause(err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.kinds[dialog.Canonical(kind)] = compiled
	return nil
}

// Validate checks root against the structural schema. Issue paths use the
// same addressing as node ids.
func (v *JSONSchemaValidator) Validate(root any) *schema.ValidationResult {
	result := &schema.ValidationResult{}

	doc, err := toJSONValue(root)
	if err != nil {
		result.AddError("", schema.ErrCodeValidation, "dialog is not serializable: "+err.Error())
		return result
	}

	base := ""
	if _, ok := root.([]any); ok {
		base = dialog.FieldActions
	}
	addViolations(result, v.dialogSchema.Validate(doc), base)
	return result
}

// validateKind checks one action against its kind's component schema, if
// any.
func (v *JSONSchemaValidator) validateKind(kind, path string, action map[string]any, result *schema.ValidationResult) {
	v.mu.RLock()
	compiled, ok := v.kinds[kind]
	v.mu.RUnlock()
	if !ok {
		return
	}

	doc, err := toJSONValue(action)
	if err != nil {
		result.AddError(path, schema.ErrCodeValidation, "action is not serializable: "+err.Error())
		return
	}
	addViolations(result, compiled.Validate(doc), path)
}

// getOrCompile returns a cached compiled schema or compiles and caches a new one.
func (v *JSONSchemaValidator) getOrCompile(schemaBytes []byte) (*jsonschema.Schema, error) {
	key := string(schemaBytes)

	v.mu.RLock()
	if cached, ok := v.cache[key]; ok {
		v.mu.RUnlock()
		return cached, nil
	}
	v.mu.RUnlock()

	v.mu.Lock()
	defer v.mu.Unlock()

	// Double-check after acquiring write lock.
	if cached, ok := v.cache[key]; ok {
		return cached, nil
	}

	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(key))
	if err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}

	// Each component schema gets a unique URL to avoid collisions in the compiler.
	url := fmt.Sprintf("flowlayout://component-schema/%d", len(v.cache))

	c := newCompiler()
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}

	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	v.cache[key] = compiled
	return compiled, nil
}

func newCompiler() *jsonschema.Compiler {
	c := jsonschema.NewCompiler()
	c.AssertFormat()
	return c
}

// toJSONValue round-trips a Go value through JSON encoding/decoding so that
// numeric values become json.Number (required by the jsonschema library).
func toJSONValue(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(strings.NewReader(string(b)))
}

// addViolations records the leaves of a jsonschema error tree as errors.
func addViolations(result *schema.ValidationResult, err error, base string) {
	if err == nil {
		return
	}
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		result.AddError(base, schema.ErrCodeValidation, err.Error())
		return
	}
	for _, leaf := range leaves(verr) {
		result.AddError(instancePath(base, leaf.InstanceLocation), schema.ErrCodeValidation, leaf.Error())
	}
}

// leaves walks a ValidationError tree and collects the errors without
// causes, each carrying its own instance location.
func leaves(verr *jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(verr.Causes) == 0 {
		return []*jsonschema.ValidationError{verr}
	}
	var out []*jsonschema.ValidationError
	for _, cause := range verr.Causes {
		out = append(out, leaves(cause)...)
	}
	return out
}

// instancePath turns a JSON pointer split into segments into a dialog path
// such as "actions[2].cases[0]".
func instancePath(base string, loc []string) string {
	path := base
	for _, seg := range loc {
		if i, err := strconv.Atoi(seg); err == nil {
			path = transform.Index(path, i)
			continue
		}
		path = transform.Join(path, seg)
	}
	return path
}
