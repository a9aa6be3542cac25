package validation

import "github.com/rendis/flowlayout/pkg/schema"

// Validator lints a dialog tree. Findings never block layout: the engine
// draws malformed input anyway, the lint only tells the author why a
// diagram looks the way it does.
type Validator interface {
	Validate(root any) *schema.ValidationResult
}

// Issue codes reported alongside schema.ErrCodeValidation and
// schema.ErrCodeExpression.
const (
	CodeUnknownKind    = "UNKNOWN_KIND"
	CodeMalformedField = "MALFORMED_FIELD"
	CodeEmptyCondition = "EMPTY_CONDITION"
	CodeDuplicateCase  = "DUPLICATE_CASE"
	CodeMissingItems   = "MISSING_ITEMS"
	CodeMissingDialog  = "MISSING_DIALOG"
	CodeTemplate       = "TEMPLATE_ERROR"
)
