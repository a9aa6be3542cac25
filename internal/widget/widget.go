// Package widget names the visual templates the rendering layer picks from.
// The layout engine only carries these tags through; it never draws.
package widget

// Kind tells the renderer which template to use for a node.
type Kind string

const (
	ActionCard     Kind = "ActionCard"
	ActivityCard   Kind = "ActivityCard"
	PromptCard     Kind = "PromptCard"
	DialogRefCard  Kind = "DialogRefCard"
	ConditionNode  Kind = "ConditionNode"
	ChoiceDiamond  Kind = "ChoiceDiamond"
	LoopHeader     Kind = "LoopHeader"
	LoopPageHeader Kind = "LoopPageHeader"
	LoopIndicator  Kind = "LoopIndicator"

	// Container kinds wrap a nested layout.
	StepGroup  Kind = "StepGroup"
	IfElse     Kind = "IfElse"
	SwitchCase Kind = "SwitchCase"
	Foreach    Kind = "Foreach"
)

// Container reports whether k wraps a nested layout rather than a card.
func (k Kind) Container() bool {
	switch k {
	case StepGroup, IfElse, SwitchCase, Foreach:
		return true
	default:
		return false
	}
}

// Marker reports whether k is an invisible geometry anchor.
func (k Kind) Marker() bool {
	return k == LoopIndicator
}
