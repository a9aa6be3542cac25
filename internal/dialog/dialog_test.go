package dialog

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/flowlayout/internal/widget"
	"github.com/rendis/flowlayout/pkg/schema"
)

const sampleYAML = `
$kind: Microsoft.AdaptiveDialog
triggers:
  - $kind: Microsoft.OnBeginDialog
    actions:
      - $kind: Microsoft.SendActivity
        activity: hello
      - $kind: Microsoft.NumberInput
        maxTurnCount: 3
`

func TestRegistryDefaults(t *testing.T) {
	r := DefaultRegistry()

	assert.Equal(t, ConstructIfElse, r.Construct("if"))
	assert.Equal(t, ConstructIfElse, r.Construct(KindIfCondition))
	assert.Equal(t, ConstructSwitch, r.Construct("switch"))
	assert.Equal(t, ConstructForeachPage, r.Construct("foreach-page"))
	assert.Equal(t, ConstructStepGroup, r.Construct("Microsoft.OnIntent"))
	assert.Equal(t, ConstructLeaf, r.Construct("Contoso.Future"))
	assert.Equal(t, ConstructLeaf, r.Construct(""))

	assert.Equal(t, widget.ActivityCard, r.Widget(KindSendActivity))
	assert.Equal(t, widget.PromptCard, r.Widget(KindChoiceInput))
	assert.Equal(t, widget.DialogRefCard, r.Widget("begin-dialog"))
	assert.Equal(t, widget.ActionCard, r.Widget("Contoso.Future"))
}

func TestRegistryIsolated(t *testing.T) {
	a := DefaultRegistry()
	b := DefaultRegistry()
	a.Register("Contoso.Loop", ConstructForeach)

	assert.Equal(t, ConstructForeach, a.Construct("Contoso.Loop"))
	assert.Equal(t, ConstructLeaf, b.Construct("Contoso.Loop"))

	c := a.Clone()
	c.RegisterWidget("Contoso.Card", widget.PromptCard)
	assert.False(t, a.Known("Contoso.Card"))
	assert.True(t, c.Known("Contoso.Card"))
}

func TestListMalformed(t *testing.T) {
	data := map[string]any{"cases": "oops", "actions": []any{"a"}}

	items, bad := List(data, FieldCases)
	assert.Nil(t, items)
	assert.True(t, bad)

	items, bad = List(data, FieldActions)
	assert.Len(t, items, 1)
	assert.False(t, bad)

	items, bad = List(data, FieldElseActions)
	assert.Nil(t, items)
	assert.False(t, bad)
}

func TestStaticDisabled(t *testing.T) {
	assert.True(t, StaticDisabled(map[string]any{"disabled": true}))
	assert.False(t, StaticDisabled(map[string]any{"disabled": false}))
	assert.False(t, StaticDisabled(map[string]any{"disabled": "=user.flag"}))
	assert.False(t, StaticDisabled(map[string]any{}))
}

func TestLabelAndDesigner(t *testing.T) {
	data := map[string]any{
		"$kind":     KindSendActivity,
		"$designer": map[string]any{"name": "Greet", "comment": "first touch"},
	}
	name, comment := Designer(data)
	assert.Equal(t, "Greet", name)
	assert.Equal(t, "first touch", comment)
	assert.Equal(t, "Greet", Label(data))
	assert.Equal(t, "SendActivity", Label(map[string]any{"$kind": KindSendActivity}))
	assert.Equal(t, "IfCondition", Label(map[string]any{"$kind": "if"}))
}

func TestCaseLabel(t *testing.T) {
	assert.Equal(t, "A", CaseLabel("A"))
	assert.Equal(t, "3", CaseLabel(3.0))
	assert.Equal(t, "2.5", CaseLabel(2.5))
	assert.Equal(t, "true", CaseLabel(true))
	assert.Equal(t, "", CaseLabel(nil))
}

func TestBeginDialogShorthand(t *testing.T) {
	d := BeginDialog("checkout")
	assert.Equal(t, KindBeginDialog, Kind(d))
	assert.Equal(t, "checkout", Text(d))
}

func TestLoadYAMLUsesJSONShapes(t *testing.T) {
	doc, err := Load(strings.NewReader(sampleYAML), FormatYAML)
	require.NoError(t, err)

	root, ok := doc.(map[string]any)
	require.True(t, ok)
	triggers, ok := root["triggers"].([]any)
	require.True(t, ok)
	actions := triggers[0].(map[string]any)["actions"].([]any)
	// YAML ints come back as float64, like JSON.
	assert.Equal(t, 3.0, actions[1].(map[string]any)["maxTurnCount"])
}

func TestLoadInvalid(t *testing.T) {
	_, err := Load(strings.NewReader("{"), FormatJSON)
	require.Error(t, err)

	var fe *schema.FlowError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, schema.ErrCodeInput, fe.Code)
}

func TestSelect(t *testing.T) {
	doc, err := Load(strings.NewReader(sampleYAML), FormatYAML)
	require.NoError(t, err)

	v, err := Select(context.Background(), doc, ".triggers[0]")
	require.NoError(t, err)
	assert.Equal(t, "Microsoft.OnBeginDialog", v.(map[string]any)["$kind"])

	same, err := Select(context.Background(), doc, "")
	require.NoError(t, err)
	assert.Equal(t, doc, same)

	_, err = Select(context.Background(), doc, ".missing")
	var fe *schema.FlowError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, schema.ErrCodeNotFound, fe.Code)

	_, err = Select(context.Background(), doc, ".[")
	require.Error(t, err)
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, FormatYAML, FormatFromPath("main.dialog.yml"))
	assert.Equal(t, FormatJSON, FormatFromPath("main.dialog"))
}
