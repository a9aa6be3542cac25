package transform

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/flowlayout/internal/dialog"
	"github.com/rendis/flowlayout/internal/graph"
)

func action(kind string) map[string]any {
	return map[string]any{"$kind": kind}
}

func switchNode(cases any, def any) map[string]any {
	n := map[string]any{"$kind": "switch", "condition": "x"}
	if cases != nil {
		n["cases"] = cases
	}
	if def != nil {
		n["default"] = def
	}
	return n
}

func ids(nodes []*graph.IndexedNode) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out
}

func deepCopy(t *testing.T, v any) any {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	var out any
	require.NoError(t, json.Unmarshal(b, &out))
	return out
}

func TestSequencePaths(t *testing.T) {
	p := NewPass(nil, nil)
	owner := graph.NewIndexedNode("actions[1]", action(dialog.KindEditActions))
	steps := Sequence(p, owner, "actions[1].actions", []any{
		action(dialog.KindSendActivity),
		"checkout",
		42.0,
	})

	assert.Equal(t, []string{"actions[1].actions[0]", "actions[1].actions[1]", "actions[1].actions[2]"}, ids(steps))
	assert.Equal(t, dialog.KindBeginDialog, dialog.Kind(steps[1].Data))
	assert.Nil(t, steps[2].Data)
	assert.Equal(t, 1, p.Fallbacks())
}

func TestStepGroupMalformed(t *testing.T) {
	p := NewPass(nil, nil)
	n := graph.NewRoot(map[string]any{"$kind": "Microsoft.OnIntent", "actions": "nope"})

	steps := StepGroup(p, n)
	assert.Empty(t, steps)
	assert.Equal(t, 1, p.Fallbacks())

	leaf := graph.NewIndexedNode("actions[0]", action(dialog.KindSendActivity))
	assert.Nil(t, StepGroup(p, leaf))
}

func TestIfElseDecomposition(t *testing.T) {
	p := NewPass(nil, nil)
	n := graph.NewIndexedNode("actions[0]", map[string]any{
		"$kind":     "if",
		"condition": "user.age >= 21",
		"actions":   []any{action(dialog.KindSendActivity)},
	})

	parts := IfElse(p, n)
	require.NotNil(t, parts)
	assert.Equal(t, "actions[0]#condition", parts.Condition.ID)
	assert.Equal(t, "actions[0].actions", parts.True.Node.ID)
	assert.Equal(t, "actions[0].elseActions", parts.False.Node.ID)
	assert.Len(t, parts.True.Items, 1)
	assert.Empty(t, parts.False.Items)

	assert.Equal(t, RoleCondition, p.Kind(parts.Condition))
	assert.Equal(t, dialog.ConstructLeaf, p.Construct(parts.Condition))
	assert.Equal(t, dialog.ConstructStepGroup, p.Construct(parts.True.Node))

	steps := Steps(p, parts.True)
	assert.Equal(t, []string{"actions[0].actions[0]"}, ids(steps))

	assert.Nil(t, IfElse(p, graph.NewIndexedNode("x", action(dialog.KindSendActivity))))
}

func TestIfElseAtRoot(t *testing.T) {
	p := NewPass(nil, nil)
	parts := IfElse(p, graph.NewRoot(map[string]any{"$kind": "if"}))
	require.NotNil(t, parts)
	assert.Equal(t, "root#condition", parts.Condition.ID)
	assert.Equal(t, "actions", parts.True.Node.ID)
	assert.Equal(t, "elseActions", parts.False.Node.ID)
}

func TestSwitchDefaultAlwaysLast(t *testing.T) {
	tests := []struct {
		name   string
		data   map[string]any
		labels []string
	}{
		{
			name: "default absent",
			data: switchNode([]any{
				map[string]any{"value": "A", "actions": []any{action("x")}},
				map[string]any{"value": "B"},
			}, nil),
			labels: []string{"A", "B", DefaultLabel},
		},
		{
			name: "default present",
			data: switchNode([]any{
				map[string]any{"value": "B"},
				map[string]any{"value": "A"},
			}, []any{action("x")}),
			labels: []string{"B", "A", DefaultLabel},
		},
		{
			name:   "no cases",
			data:   switchNode(nil, nil),
			labels: []string{DefaultLabel},
		},
		{
			name:   "malformed cases",
			data:   switchNode("oops", map[string]any{}),
			labels: []string{DefaultLabel},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPass(nil, nil)
			parts := SwitchCase(p, graph.NewIndexedNode("actions[3]", tt.data))
			require.NotNil(t, parts)
			assert.Equal(t, tt.labels, parts.Labels())

			last := parts.Branches[len(parts.Branches)-1]
			assert.Equal(t, "actions[3].default", last.Node.ID)
			assert.Equal(t, "actions[3]#choice", parts.Choice.ID)
		})
	}
}

func TestSwitchCasePaths(t *testing.T) {
	p := NewPass(nil, nil)
	parts := SwitchCase(p, graph.NewIndexedNode("s", switchNode([]any{
		map[string]any{"value": 1.0, "actions": []any{action("x"), action("y")}},
	}, nil)))
	require.NotNil(t, parts)

	b := parts.Branches[0]
	assert.Equal(t, "s.cases[0]", b.Node.ID)
	assert.Equal(t, "s.cases[0].actions", b.ListPath)
	assert.Equal(t, "1", b.Label)
	assert.Equal(t, []string{"s.cases[0].actions[0]", "s.cases[0].actions[1]"}, ids(Steps(p, b)))
}

func TestForeachDecomposition(t *testing.T) {
	for _, kind := range []string{"foreach", "foreach-page"} {
		p := NewPass(nil, nil)
		parts := Foreach(p, graph.NewIndexedNode("actions[0]", map[string]any{
			"$kind":         kind,
			"itemsProperty": "dialog.items",
		}))
		require.NotNil(t, parts, kind)
		assert.Equal(t, "actions[0]#header", parts.Header.ID)
		assert.Equal(t, "actions[0]#loopBegin", parts.Begin.ID)
		assert.Equal(t, "actions[0]#loopEnd", parts.End.ID)
		assert.Equal(t, "actions[0].actions", parts.Body.Node.ID)
		assert.Equal(t, kind == "foreach-page", parts.Paged)
	}
}

func TestDisabledPropagatesOneLevel(t *testing.T) {
	inner := map[string]any{
		"$kind":   "if",
		"actions": []any{action(dialog.KindSendActivity)},
	}
	root := graph.NewRoot(map[string]any{
		"$kind":    dialog.KindEditActions,
		"disabled": true,
		"actions":  []any{inner, action(dialog.KindSendActivity)},
	})
	p := NewPass(nil, nil)

	steps := StepGroup(p, root)
	require.Len(t, steps, 2)
	for _, s := range steps {
		assert.True(t, p.Disabled(s), s.ID)
	}

	parts := IfElse(p, steps[0])
	// Nothing below the direct children yet.
	assert.False(t, p.Annotations.Get("actions[0].actions[0]").Disabled)

	assert.True(t, p.Disabled(parts.Condition))
	assert.True(t, p.Disabled(parts.True.Node))
	grand := Steps(p, parts.True)
	assert.True(t, p.Disabled(grand[0]))
}

func TestDisabledExpressionDoesNotPropagate(t *testing.T) {
	p := NewPass(nil, nil)
	n := graph.NewRoot(map[string]any{
		"$kind":    dialog.KindEditActions,
		"disabled": "=user.beta",
		"actions":  []any{action("x")},
	})
	steps := StepGroup(p, n)
	assert.False(t, p.Disabled(steps[0]))
}

func TestDisabledIdempotent(t *testing.T) {
	data := map[string]any{
		"$kind":    dialog.KindEditActions,
		"disabled": true,
		"actions": []any{
			action(dialog.KindSendActivity),
			map[string]any{"$kind": dialog.KindSendActivity, "disabled": false},
		},
	}
	before := deepCopy(t, data)

	p := NewPass(nil, nil)
	root := graph.NewRoot(data)
	first := StepGroup(p, root)
	snapshot := make(graph.Annotations, len(p.Annotations))
	for k, v := range p.Annotations {
		snapshot[k] = v
	}
	second := StepGroup(p, root)

	assert.Equal(t, ids(first), ids(second))
	assert.Equal(t, snapshot, p.Annotations)
	for _, s := range second {
		assert.True(t, p.Disabled(s))
	}
	// The source tree is never written to.
	assert.Equal(t, before, deepCopy(t, data))
}
