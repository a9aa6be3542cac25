package transform

import (
	"github.com/rendis/flowlayout/internal/dialog"
	"github.com/rendis/flowlayout/internal/graph"
)

// Branch is a nested step list: a container node plus the list it holds.
type Branch struct {
	Node     *graph.IndexedNode
	ListPath string
	Items    []any
	Label    string
}

// IfElseParts is the decomposition of an if/else.
type IfElseParts struct {
	Condition *graph.IndexedNode
	True      Branch
	False     Branch
}

// SwitchParts is the decomposition of a switch. Branches holds the cases
// in declaration order followed by the default branch.
type SwitchParts struct {
	Condition *graph.IndexedNode
	Choice    *graph.IndexedNode
	Branches  []Branch
}

// Labels returns the branch labels in order.
func (s *SwitchParts) Labels() []string {
	labels := make([]string, len(s.Branches))
	for i, b := range s.Branches {
		labels[i] = b.Label
	}
	return labels
}

// ForeachParts is the decomposition of a foreach or foreach-page.
type ForeachParts struct {
	Header *graph.IndexedNode
	Body   Branch
	Begin  *graph.IndexedNode
	End    *graph.IndexedNode
	Paged  bool
}

// DefaultLabel labels the implicit switch branch.
const DefaultLabel = "Default"

// Sequence turns items into one child per element at listPath[i]. Bare
// strings become begin-dialog actions. Non-object elements are kept as
// opaque leaves.
func Sequence(p *Pass, owner *graph.IndexedNode, listPath string, items []any) []*graph.IndexedNode {
	steps := make([]*graph.IndexedNode, 0, len(items))
	for i, item := range items {
		path := Index(listPath, i)
		var data map[string]any
		switch v := item.(type) {
		case map[string]any:
			data = v
		case string:
			data = dialog.BeginDialog(v)
		default:
			p.Fallback(path, "non-object action")
		}
		steps = append(steps, graph.NewIndexedNode(path, data))
	}
	p.inherit(owner, steps...)
	return steps
}

// StepGroup decomposes a step list construct (edit-actions, triggers,
// plain sequences). Its steps live at path.actions[i]. It returns nil when
// n is not a step group.
func StepGroup(p *Pass, n *graph.IndexedNode) []*graph.IndexedNode {
	if p.Construct(n) != dialog.ConstructStepGroup {
		return nil
	}
	return Sequence(p, n, Join(n.Path, dialog.FieldActions), p.list(n, dialog.FieldActions))
}

// Steps is StepGroup for a branch produced by another transformer.
func Steps(p *Pass, b Branch) []*graph.IndexedNode {
	return Sequence(p, b.Node, b.ListPath, b.Items)
}

// IfElse decomposes an if/else, or returns nil when n is not one.
func IfElse(p *Pass, n *graph.IndexedNode) *IfElseParts {
	if p.Construct(n) != dialog.ConstructIfElse {
		return nil
	}
	truePath := Join(n.Path, dialog.FieldActions)
	falsePath := Join(n.Path, dialog.FieldElseActions)
	parts := &IfElseParts{
		Condition: p.synthetic(n, RoleCondition),
		True: Branch{
			Node:     p.branch(truePath, nil),
			ListPath: truePath,
			Items:    p.list(n, dialog.FieldActions),
			Label:    "True",
		},
		False: Branch{
			Node:     p.branch(falsePath, nil),
			ListPath: falsePath,
			Items:    p.list(n, dialog.FieldElseActions),
			Label:    "False",
		},
	}
	p.inherit(n, parts.Condition, parts.True.Node, parts.False.Node)
	return parts
}

// SwitchCase decomposes a switch, or returns nil when n is not one. There
// is always exactly one default branch and it is always last.
func SwitchCase(p *Pass, n *graph.IndexedNode) *SwitchParts {
	if p.Construct(n) != dialog.ConstructSwitch {
		return nil
	}
	parts := &SwitchParts{
		Condition: p.synthetic(n, RoleCondition),
		Choice:    p.synthetic(n, RoleChoice),
	}

	casesPath := Join(n.Path, dialog.FieldCases)
	for i, raw := range p.list(n, dialog.FieldCases) {
		path := Index(casesPath, i)
		c, ok := raw.(map[string]any)
		if !ok {
			p.Fallback(path, "malformed case")
		}
		node := p.branch(path, c)
		items, malformed := dialog.List(c, dialog.FieldActions)
		if malformed {
			p.Fallback(path, "malformed field", "field", dialog.FieldActions)
		}
		parts.Branches = append(parts.Branches, Branch{
			Node:     node,
			ListPath: Join(path, dialog.FieldActions),
			Items:    items,
			Label:    dialog.CaseLabel(c[dialog.FieldValue]),
		})
	}

	defaultPath := Join(n.Path, dialog.FieldDefault)
	parts.Branches = append(parts.Branches, Branch{
		Node:     p.branch(defaultPath, nil),
		ListPath: defaultPath,
		Items:    p.list(n, dialog.FieldDefault),
		Label:    DefaultLabel,
	})

	children := []*graph.IndexedNode{parts.Condition, parts.Choice}
	for _, b := range parts.Branches {
		children = append(children, b.Node)
	}
	p.inherit(n, children...)
	return parts
}

// Foreach decomposes a foreach or foreach-page, or returns nil when n is
// neither.
func Foreach(p *Pass, n *graph.IndexedNode) *ForeachParts {
	c := p.Construct(n)
	if c != dialog.ConstructForeach && c != dialog.ConstructForeachPage {
		return nil
	}
	bodyPath := Join(n.Path, dialog.FieldActions)
	parts := &ForeachParts{
		Header: p.synthetic(n, RoleHeader),
		Body: Branch{
			Node:     p.branch(bodyPath, nil),
			ListPath: bodyPath,
			Items:    p.list(n, dialog.FieldActions),
		},
		Begin: p.synthetic(n, RoleLoopBegin),
		End:   p.synthetic(n, RoleLoopEnd),
		Paged: c == dialog.ConstructForeachPage,
	}
	p.inherit(n, parts.Header, parts.Body.Node, parts.Begin, parts.End)
	return parts
}
