// Package syntax wraps the tree-sitter binding: it turns a byte buffer into
// a syntax tree and exposes the tree's query captures as a one-shot
// sequence.
package syntax

import (
	"context"
	"errors"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/arbor/internal/grammar"
)

var (
	// ErrSyntax is wrapped by a ParseError when the tree contains error
	// or missing nodes.
	ErrSyntax = errors.New("syntax error")

	// ErrConsumed is returned when the captures of a tree are requested a
	// second time.
	ErrConsumed = errors.New("syntax: matches already consumed")
)

// ParseError reports a file that did not produce a clean syntax tree.
type ParseError struct {
	Language string
	Line     uint32 // zero-based
	Column   uint32
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %d:%d: %v", e.Language, e.Line+1, e.Column+1, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Span is a half-open byte range [Start, End).
type Span struct {
	Start uint32
	End   uint32
}

// Contains reports whether o lies within s.
func (s Span) Contains(o Span) bool {
	return s.Start <= o.Start && o.End <= s.End
}

// Len returns the number of bytes in s.
func (s Span) Len() uint32 { return s.End - s.Start }

func nodeSpan(n *sitter.Node) Span {
	return Span{Start: n.StartByte(), End: n.EndByte()}
}

// Tree is a parsed file.
type Tree struct {
	tree     *sitter.Tree
	src      []byte
	prog     *grammar.Program
	consumed bool
}

// Parse parses src with the program's grammar. A parser is created per
// call, so Parse is safe for concurrent use with a shared program.
func Parse(src []byte, prog *grammar.Program) (*Tree, error) {
	p := sitter.NewParser()
	defer p.Close()
	p.SetLanguage(prog.Grammar)

	tree, err := p.ParseCtx(context.Background(), nil, src)
	if err != nil {
		return nil, &ParseError{Language: prog.Language, Err: err}
	}
	root := tree.RootNode()
	if root.HasError() {
		pt := firstError(root).StartPoint()
		tree.Close()
		return nil, &ParseError{Language: prog.Language, Line: pt.Row, Column: pt.Column, Err: ErrSyntax}
	}
	return &Tree{tree: tree, src: src, prog: prog}, nil
}

// firstError descends into the first subtree carrying an error.
func firstError(n *sitter.Node) *sitter.Node {
	for {
		if n.Type() == "ERROR" || n.IsMissing() {
			return n
		}
		var next *sitter.Node
		for i := 0; i < int(n.ChildCount()); i++ {
			c := n.Child(i)
			if c != nil && (c.HasError() || c.IsMissing()) {
				next = c
				break
			}
		}
		if next == nil {
			return n
		}
		n = next
	}
}

// Source returns the bytes the tree was parsed from.
func (t *Tree) Source() []byte { return t.src }

// Close releases the native tree.
func (t *Tree) Close() {
	t.tree.Close()
}

// Matches starts the capture sequence of the tree's query program. The
// sequence can be taken once per tree.
func (t *Tree) Matches() (*Matches, error) {
	if t.consumed {
		return nil, ErrConsumed
	}
	t.consumed = true
	qc := sitter.NewQueryCursor()
	qc.Exec(t.prog.Query, t.tree.RootNode())
	return &Matches{cursor: qc, tree: t}, nil
}
