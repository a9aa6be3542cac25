// Package dialog knows the shape of bot dialog documents: the $kind
// vocabulary, which kinds are structural constructs, and how to read the
// handful of fields the layout engine cares about.
package dialog

import "strings"

// Dialog action kinds. Short aliases are accepted wherever the full kind is.
const (
	KindIfCondition     = "Microsoft.IfCondition"
	KindSwitchCondition = "Microsoft.SwitchCondition"
	KindForeach         = "Microsoft.Foreach"
	KindForeachPage     = "Microsoft.ForeachPage"
	KindEditActions     = "Microsoft.EditActions"
	KindBeginDialog     = "Microsoft.BeginDialog"
	KindReplaceDialog   = "Microsoft.ReplaceDialog"
	KindSendActivity    = "Microsoft.SendActivity"

	KindTextInput       = "Microsoft.TextInput"
	KindNumberInput     = "Microsoft.NumberInput"
	KindConfirmInput    = "Microsoft.ConfirmInput"
	KindChoiceInput     = "Microsoft.ChoiceInput"
	KindAttachmentInput = "Microsoft.AttachmentInput"
	KindDateTimeInput   = "Microsoft.DateTimeInput"
	KindOAuthInput      = "Microsoft.OAuthInput"

	// KindSequence is the kind given to bare action arrays.
	KindSequence = "Sequence"

	// triggerPrefix marks trigger kinds (Microsoft.OnIntent, ...), which
	// lay out as a step list.
	triggerPrefix = "Microsoft.On"
)

var aliases = map[string]string{
	"if":           KindIfCondition,
	"switch":       KindSwitchCondition,
	"foreach":      KindForeach,
	"foreach-page": KindForeachPage,
	"edit-actions": KindEditActions,
	"begin-dialog": KindBeginDialog,
	"sequence":     KindSequence,
}

// Canonical resolves a short alias to its full kind. Unknown values are
// returned unchanged.
func Canonical(kind string) string {
	if full, ok := aliases[kind]; ok {
		return full
	}
	return kind
}

// IsTrigger reports whether kind names a trigger.
func IsTrigger(kind string) bool {
	return strings.HasPrefix(kind, triggerPrefix)
}

// ShortKind strips the vendor namespace for display.
func ShortKind(kind string) string {
	if i := strings.LastIndex(kind, "."); i >= 0 {
		return kind[i+1:]
	}
	return kind
}

// Construct is the closed set of structural shapes a node can take.
type Construct int

const (
	// ConstructLeaf is the wildcard arm: anything the registry does not
	// recognise is drawn as a single card.
	ConstructLeaf Construct = iota
	ConstructStepGroup
	ConstructIfElse
	ConstructSwitch
	ConstructForeach
	ConstructForeachPage
)

func (c Construct) String() string {
	switch c {
	case ConstructStepGroup:
		return "step-group"
	case ConstructIfElse:
		return "if-else"
	case ConstructSwitch:
		return "switch"
	case ConstructForeach:
		return "foreach"
	case ConstructForeachPage:
		return "foreach-page"
	default:
		return "leaf"
	}
}
