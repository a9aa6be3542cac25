package dialog

import (
	"maps"

	"github.com/rendis/flowlayout/internal/widget"
)

// stockLeaves are the built-in actions drawn as plain action cards.
var stockLeaves = []string{
	"Microsoft.SetProperty",
	"Microsoft.SetProperties",
	"Microsoft.DeleteProperty",
	"Microsoft.DeleteProperties",
	"Microsoft.EditArray",
	"Microsoft.EmitEvent",
	"Microsoft.EndDialog",
	"Microsoft.EndTurn",
	"Microsoft.CancelAllDialogs",
	"Microsoft.RepeatDialog",
	"Microsoft.LogAction",
	"Microsoft.TraceActivity",
	"Microsoft.HttpRequest",
	"Microsoft.SignOutUser",
	"Microsoft.UpdateActivity",
	"Microsoft.DeleteActivity",
	"Microsoft.GetActivityMembers",
	"Microsoft.GetConversationMembers",
	"Microsoft.BreakLoop",
	"Microsoft.ContinueLoop",
	"Microsoft.GotoAction",
	"Microsoft.ThrowException",
	"Microsoft.TelemetryTrackEvent",
	"Microsoft.QnAMakerDialog",
}

// Registry maps $kind values to constructs and, for leaves, to the widget
// the renderer should use. Registries are plain values: each diagram can
// carry its own.
type Registry struct {
	constructs map[string]Construct
	widgets    map[string]widget.Kind
}

// NewRegistry returns an empty registry. Every kind resolves to a leaf
// action card until registered.
func NewRegistry() *Registry {
	return &Registry{
		constructs: make(map[string]Construct),
		widgets:    make(map[string]widget.Kind),
	}
}

// DefaultRegistry returns a fresh registry populated with the stock
// adaptive dialog kinds.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(KindSequence, ConstructStepGroup)
	r.Register(KindEditActions, ConstructStepGroup)
	r.Register(KindIfCondition, ConstructIfElse)
	r.Register(KindSwitchCondition, ConstructSwitch)
	r.Register(KindForeach, ConstructForeach)
	r.Register(KindForeachPage, ConstructForeachPage)

	r.RegisterWidget(KindSendActivity, widget.ActivityCard)
	r.RegisterWidget(KindBeginDialog, widget.DialogRefCard)
	r.RegisterWidget(KindReplaceDialog, widget.DialogRefCard)
	for _, k := range stockLeaves {
		r.RegisterWidget(k, widget.ActionCard)
	}
	for _, k := range []string{
		KindTextInput, KindNumberInput, KindConfirmInput, KindChoiceInput,
		KindAttachmentInput, KindDateTimeInput, KindOAuthInput,
	} {
		r.RegisterWidget(k, widget.PromptCard)
	}
	return r
}

// Register binds kind to a construct.
func (r *Registry) Register(kind string, c Construct) {
	r.constructs[Canonical(kind)] = c
}

// RegisterWidget binds a leaf kind to a widget.
func (r *Registry) RegisterWidget(kind string, w widget.Kind) {
	r.widgets[Canonical(kind)] = w
}

// Construct resolves kind. Triggers are step groups; anything unknown is a
// leaf.
func (r *Registry) Construct(kind string) Construct {
	kind = Canonical(kind)
	if c, ok := r.constructs[kind]; ok {
		return c
	}
	if IsTrigger(kind) {
		return ConstructStepGroup
	}
	return ConstructLeaf
}

// Widget returns the leaf widget for kind, ActionCard by default.
func (r *Registry) Widget(kind string) widget.Kind {
	if w, ok := r.widgets[Canonical(kind)]; ok {
		return w
	}
	return widget.ActionCard
}

// Known reports whether kind was registered explicitly or is a trigger.
func (r *Registry) Known(kind string) bool {
	kind = Canonical(kind)
	_, c := r.constructs[kind]
	_, w := r.widgets[kind]
	return c || w || IsTrigger(kind)
}

// Clone returns an independent copy.
func (r *Registry) Clone() *Registry {
	return &Registry{
		constructs: maps.Clone(r.constructs),
		widgets:    maps.Clone(r.widgets),
	}
}
