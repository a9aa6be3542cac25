package dialog

import (
	"strconv"
)

// Field names read by the layout engine.
const (
	FieldKind        = "$kind"
	FieldDesigner    = "$designer"
	FieldActions     = "actions"
	FieldElseActions = "elseActions"
	FieldCases       = "cases"
	FieldDefault     = "default"
	FieldValue       = "value"
	FieldCondition   = "condition"
	FieldDisabled    = "disabled"
	FieldItems       = "itemsProperty"
	FieldPageSize    = "pageSize"
	FieldDialog      = "dialog"
)

// textFields are tried in order when sizing a leaf card.
var textFields = []string{"activity", "prompt", "text", FieldDialog, "property", FieldValue, FieldCondition}

// Kind returns the $kind of data, canonicalised.
func Kind(data map[string]any) string {
	k, _ := data[FieldKind].(string)
	return Canonical(k)
}

// String returns data[key] when it is a string.
func String(data map[string]any, key string) string {
	s, _ := data[key].(string)
	return s
}

// List returns data[key] as a list. A missing field is an empty list; a
// present field of the wrong type is reported as malformed and also treated
// as empty.
func List(data map[string]any, key string) (items []any, malformed bool) {
	raw, ok := data[key]
	if !ok || raw == nil {
		return nil, false
	}
	items, ok = raw.([]any)
	if !ok {
		return nil, true
	}
	return items, false
}

// Object returns data[key] when it is an object.
func Object(data map[string]any, key string) map[string]any {
	m, _ := data[key].(map[string]any)
	return m
}

// StaticDisabled reports whether the action is disabled by a literal true.
// Expression strings are evaluated at runtime by the bot and do not count.
func StaticDisabled(data map[string]any) bool {
	b, ok := data[FieldDisabled].(bool)
	return ok && b
}

// Designer returns the $designer name and comment, if any.
func Designer(data map[string]any) (name, comment string) {
	d := Object(data, FieldDesigner)
	if d == nil {
		return "", ""
	}
	return String(d, "name"), String(d, "comment")
}

// Label picks the display title of an action: the designer name when set,
// otherwise the short kind.
func Label(data map[string]any) string {
	if name, _ := Designer(data); name != "" {
		return name
	}
	if k := Kind(data); k != "" {
		return ShortKind(k)
	}
	return "Action"
}

// Text returns the body text a card would show, used for its size class.
func Text(data map[string]any) string {
	for _, f := range textFields {
		if s := String(data, f); s != "" {
			return s
		}
	}
	return ""
}

// CaseLabel renders a switch case value for display.
func CaseLabel(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	default:
		return ""
	}
}

// BeginDialog expands the bare-string dialog reference shorthand.
func BeginDialog(ref string) map[string]any {
	return map[string]any{FieldKind: KindBeginDialog, FieldDialog: ref}
}
