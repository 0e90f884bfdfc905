// Package analysis extracts the scope tree, definitions and references of
// a single file by running its language's query program over the syntax
// tree. References that bind within the file are resolved here; the rest
// are left for the cross-file resolver.
package analysis

import (
	"bytes"
	"sort"
	"strings"

	"github.com/jward/arbor/internal/grammar"
	"github.com/jward/arbor/internal/syntax"
)

const maxSignatureLen = 160

// ProgramSource supplies compiled query programs by language tag.
type ProgramSource interface {
	Program(lang string) (*grammar.Program, error)
}

// Analyzer turns SourceFiles into FileAnalyses. It holds no mutable state
// and may be shared by concurrent workers.
type Analyzer struct {
	programs ProgramSource
}

// New returns an Analyzer backed by programs.
func New(programs ProgramSource) *Analyzer {
	return &Analyzer{programs: programs}
}

type captures struct {
	scopes   []Span
	defs     []syntax.Capture
	refs     []syntax.Capture
	comments []Span
}

// Analyze runs the full per-file algorithm. The result depends only on the
// file's bytes and its query program.
func (a *Analyzer) Analyze(src SourceFile) *FileAnalysis {
	prog, err := a.programs.Program(src.Language)
	if err != nil {
		return Failed(src, err)
	}
	tree, err := syntax.Parse(src.Content, prog)
	if err != nil {
		return Failed(src, err)
	}
	defer tree.Close()

	m, err := tree.Matches()
	if err != nil {
		return Failed(src, err)
	}
	var c captures
	for {
		capt, ok := m.Next()
		if !ok {
			break
		}
		switch capt.Kind {
		case grammar.CaptureScope:
			c.scopes = append(c.scopes, capt.Span)
		case grammar.CaptureDefinitionScoped, grammar.CaptureDefinitionExported:
			c.defs = append(c.defs, capt)
		case grammar.CaptureReference:
			c.refs = append(c.refs, capt)
		case grammar.CaptureComment:
			c.comments = append(c.comments, capt.Span)
		}
	}
	return build(src, &c)
}

func build(src SourceFile, c *captures) *FileAnalysis {
	li := newLineIndex(src.Content)
	fa := &FileAnalysis{
		Path:     src.Path,
		Language: src.Language,
		Hash:     src.Hash,
		Scopes:   buildScopes(c.scopes, uint32(len(src.Content))),
	}
	var values []Span
	fa.Definitions, values = definitions(src, fa.Scopes, c.defs, li)
	fa.Comments = sortedSpans(c.comments)
	attachDocs(fa, src.Content, li)
	fa.References = references(src, fa.Scopes, fa.Definitions, values, c.refs, li)
	return fa
}

// definitions also returns, per definition, the span of its initializer.
func definitions(src SourceFile, scopes []ScopeRegion, caps []syntax.Capture, li *lineIndex) ([]Definition, []Span) {
	bySpan := make(map[Span]ScopeID, len(scopes))
	for _, s := range scopes {
		bySpan[s.Span] = s.ID
	}

	sort.SliceStable(caps, func(i, j int) bool { return spanLess(caps[i].Span, caps[j].Span) })

	defs := make([]Definition, 0, len(caps))
	values := make([]Span, 0, len(caps))
	for _, dc := range caps {
		if dc.Text == "" {
			continue
		}
		exported := dc.Kind == grammar.CaptureDefinitionExported
		if n := len(defs); n > 0 && defs[n-1].Location.Span == dc.Span {
			defs[n-1].Exported = defs[n-1].Exported || exported
			continue
		}

		scope := innermost(scopes, dc.Span)
		// The name of a scope-introducing construct is bound where the
		// construct appears, not inside it. A name that carries a scope of
		// its own stays there.
		if dc.NamesParent {
			if id, ok := bySpan[dc.ParentSpan]; ok && id != RootScope && id == scope {
				scope = scopes[id].Parent
			}
		}

		defs = append(defs, Definition{
			Index:     len(defs),
			Name:      dc.Text,
			Path:      src.Path,
			Location:  li.location(dc.Span),
			Scope:     scope,
			Exported:  exported,
			Kind:      dc.ParentType,
			NodeType:  dc.NodeType,
			Signature: signature(li.lineText(dc.Span.Start)),
		})
		values = append(values, dc.Value)
	}
	return defs, values
}

func references(src SourceFile, scopes []ScopeRegion, defs []Definition, values []Span, caps []syntax.Capture, li *lineIndex) []Reference {
	declared := make(map[Span]bool, len(defs))
	visible := make(map[ScopeID]map[string][]int)
	for i := range defs {
		d := &defs[i]
		declared[d.Location.Span] = true
		names := visible[d.Scope]
		if names == nil {
			names = make(map[string][]int)
			visible[d.Scope] = names
		}
		names[d.Name] = append(names[d.Name], i)
	}

	sort.SliceStable(caps, func(i, j int) bool { return spanLess(caps[i].Span, caps[j].Span) })

	refs := make([]Reference, 0, len(caps))
	var last Span
	for _, rc := range caps {
		if rc.Text == "" || declared[rc.Span] {
			continue
		}
		if len(refs) > 0 && rc.Span == last {
			continue
		}
		last = rc.Span

		ref := Reference{
			Name:     rc.Text,
			Path:     src.Path,
			Location: li.location(rc.Span),
			Scope:    innermost(scopes, rc.Span),
			NodeType: rc.NodeType,
		}
		if i, ok := lookupLocal(scopes, defs, values, visible, ref.Scope, ref.Name, rc.Span); ok {
			ref.Resolution = ResolvedLocal
			ref.Target = defs[i].Ref()
		}
		refs = append(refs, ref)
	}
	return refs
}

// lookupLocal walks from scope to the root. Inner scopes shadow outer
// ones; within a scope the closest preceding definition wins, falling back
// to the first one for uses before the declaration. A use inside the
// initializer of a definition in its own scope does not see that
// definition, so the right-hand x of x := x + 1 reaches the outer x.
func lookupLocal(scopes []ScopeRegion, defs []Definition, values []Span, visible map[ScopeID]map[string][]int, scope ScopeID, name string, at Span) (int, bool) {
	for s := scope; s != NoScope; s = scopes[s].Parent {
		best := -1
		for _, i := range visible[s][name] {
			if s == scope && values[i].Len() > 0 && values[i].Contains(at) {
				continue
			}
			if best >= 0 && defs[i].Location.Span.Start > at.Start {
				break
			}
			best = i
		}
		if best >= 0 {
			return best, true
		}
	}
	return 0, false
}

func spanLess(a, b Span) bool {
	if a.Start != b.Start {
		return a.Start < b.Start
	}
	return a.End < b.End
}

func sortedSpans(spans []Span) []Span {
	sort.Slice(spans, func(i, j int) bool { return spanLess(spans[i], spans[j]) })
	out := spans[:0]
	for _, s := range spans {
		if len(out) > 0 && out[len(out)-1] == s {
			continue
		}
		out = append(out, s)
	}
	return out
}

func signature(line []byte) string {
	s := strings.Join(strings.Fields(string(bytes.TrimSpace(line))), " ")
	if r := []rune(s); len(r) > maxSignatureLen {
		s = string(r[:maxSignatureLen]) + "…"
	}
	return s
}
