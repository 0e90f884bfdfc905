package syntax

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/arbor/internal/grammar"
)

// Capture is one classified node reported by the query program.
type Capture struct {
	Kind     grammar.CaptureKind
	Span     Span
	Text     string
	NodeType string

	ParentType string
	ParentSpan Span
	// NamesParent is set when the node is the "name" field of its parent,
	// as for the identifier of a function or class declaration.
	NamesParent bool
	// Value is the initializer of the declaration a definition names, such
	// as the right-hand side of x := x + 1. Empty when there is none.
	Value Span
}

// valueFields name the initializer child of declaring constructs across
// the supported grammars.
var valueFields = []string{"value", "right"}

// Type aliases may name themselves in their own definition.
var selfReferential = map[string]bool{"type_alias_declaration": true}

// maxDeclDepth bounds how far above a name its declaring construct may be:
// name, list or pattern, declaration.
const maxDeclDepth = 3

// Matches is a lazy, finite sequence of captures. It is not restartable.
type Matches struct {
	cursor  *sitter.QueryCursor
	tree    *Tree
	pending []Capture
	done    bool
}

// Next returns the next capture, or false once the sequence is exhausted.
func (m *Matches) Next() (Capture, bool) {
	for len(m.pending) == 0 {
		if m.done {
			return Capture{}, false
		}
		match, ok := m.cursor.NextMatch()
		if !ok {
			m.Close()
			return Capture{}, false
		}
		match = m.cursor.FilterPredicates(match, m.tree.src)
		for _, c := range match.Captures {
			m.pending = append(m.pending, m.capture(c))
		}
	}
	c := m.pending[0]
	m.pending = m.pending[1:]
	return c, true
}

func (m *Matches) capture(qc sitter.QueryCapture) Capture {
	n := qc.Node
	c := Capture{
		Kind:     m.tree.prog.Kind(qc.Index),
		Span:     nodeSpan(n),
		Text:     n.Content(m.tree.src),
		NodeType: n.Type(),
	}
	if parent := n.Parent(); parent != nil {
		c.ParentType = parent.Type()
		c.ParentSpan = nodeSpan(parent)
		if name := parent.ChildByFieldName("name"); name != nil {
			c.NamesParent = nodeSpan(name) == c.Span
		}
	}
	if c.Kind.IsDefinition() {
		c.Value = valueSpan(n)
	}
	return c
}

// valueSpan finds the nearest ancestor with an initializer field. A name
// that sits inside that initializer, like a lambda parameter, has none.
func valueSpan(n *sitter.Node) Span {
	at := nodeSpan(n)
	node := n
	for depth := 0; depth < maxDeclDepth; depth++ {
		parent := node.Parent()
		if parent == nil || selfReferential[parent.Type()] {
			break
		}
		for _, field := range valueFields {
			v := parent.ChildByFieldName(field)
			if v == nil {
				continue
			}
			vs := nodeSpan(v)
			if vs.Contains(at) {
				return Span{}
			}
			return vs
		}
		node = parent
	}
	return Span{}
}

// Close stops the sequence early. Next returns false afterwards.
func (m *Matches) Close() {
	if m.done {
		return
	}
	m.done = true
	m.pending = nil
	m.cursor.Close()
}
